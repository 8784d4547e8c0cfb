// Package geo assigns coordinates to municipalities using a polygon
// boundary layer read from an ESRI shapefile.
package geo

import (
	"fmt"
	"math"
	"strings"

	shp "github.com/jonas-p/go-shp"
)

// Feature is one (possibly multi-part) boundary polygon and its attributes.
type Feature struct {
	Parts [][][2]float64    // closed rings of [y, x] points
	Attrs map[string]string // DBF attributes keyed by field name
	MinY  float64
	MinX  float64
	MaxY  float64
	MaxX  float64
}

// Boundaries is an in-memory municipal boundary layer. It is read-only after
// loading.
type Boundaries struct {
	features []Feature
	idField  string
	proj     Projection
}

// NewBoundaries builds a layer from features already in memory. idField
// names the attribute holding the municipality id or name. proj may be nil
// when the rings are in WGS-84 degrees.
func NewBoundaries(features []Feature, idField string, proj Projection) *Boundaries {
	return &Boundaries{features: features, idField: idField, proj: proj}
}

// LoadBoundaries reads the polygon layer at path. Non-polygon shapes are
// skipped.
func LoadBoundaries(path, idField string, proj Projection) (*Boundaries, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open boundary shapefile %s: %w", path, err)
	}
	defer r.Close()

	fields := r.Fields()
	found := false
	for _, f := range fields {
		if strings.EqualFold(f.String(), idField) {
			idField = f.String()
			found = true
			break
		}
	}
	if !found {
		return nil, fmt.Errorf("boundary shapefile %s has no %q attribute", path, idField)
	}

	var features []Feature
	for r.Next() {
		idx, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}
		feat := polygonFeature(poly)
		feat.Attrs = make(map[string]string, len(fields))
		for i, f := range fields {
			feat.Attrs[f.String()] = strings.TrimSpace(r.ReadAttribute(idx, i))
		}
		features = append(features, feat)
	}
	return NewBoundaries(features, idField, proj), nil
}

// polygonFeature splits the flat point list into rings and records the
// bounding box.
func polygonFeature(poly *shp.Polygon) Feature {
	numParts := len(poly.Parts)
	f := Feature{
		Parts: make([][][2]float64, numParts),
		MinY:  math.MaxFloat64,
		MinX:  math.MaxFloat64,
		MaxY:  -math.MaxFloat64,
		MaxX:  -math.MaxFloat64,
	}
	for partIdx := 0; partIdx < numParts; partIdx++ {
		start := poly.Parts[partIdx]
		end := int32(len(poly.Points))
		if partIdx+1 < numParts {
			end = poly.Parts[partIdx+1]
		}
		ring := make([][2]float64, 0, end-start)
		for i := start; i < end; i++ {
			pt := poly.Points[i]
			ring = append(ring, [2]float64{pt.Y, pt.X})
			f.MinY = math.Min(f.MinY, pt.Y)
			f.MaxY = math.Max(f.MaxY, pt.Y)
			f.MinX = math.Min(f.MinX, pt.X)
			f.MaxX = math.Max(f.MaxX, pt.X)
		}
		f.Parts[partIdx] = ring
	}
	return f
}

// Len is the number of polygons in the layer.
func (b *Boundaries) Len() int { return len(b.features) }

// Locate returns the id attribute of the first polygon containing the
// WGS-84 point.
func (b *Boundaries) Locate(lat, lon float64) (string, bool) {
	attrs, ok := b.Attributes(lat, lon)
	if !ok {
		return "", false
	}
	id := attrs[b.idField]
	return id, id != ""
}

// Attributes returns every attribute of the first polygon containing the
// WGS-84 point.
func (b *Boundaries) Attributes(lat, lon float64) (map[string]string, bool) {
	y, x := lat, lon
	if b.proj != nil {
		y, x = b.proj.Forward(lat, lon)
	}
	for _, f := range b.features {
		if y < f.MinY || y > f.MaxY || x < f.MinX || x > f.MaxX {
			continue // quick bbox reject
		}
		if f.contains(y, x) {
			return f.Attrs, true
		}
	}
	return nil, false
}

// contains applies the even-odd rule across all rings, so inner rings cut
// holes.
func (f Feature) contains(y, x float64) bool {
	inside := false
	for _, ring := range f.Parts {
		if pointInRing(y, x, ring) {
			inside = !inside
		}
	}
	return inside
}

// pointInRing is the ray-casting test. Shapefile rings are closed, but
// closure is not required.
func pointInRing(y, x float64, ring [][2]float64) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		yi, xi := ring[i][0], ring[i][1]
		yj, xj := ring[j][0], ring[j][1]
		if ((yi > y) != (yj > y)) && (x < (xj-xi)*(y-yi)/(yj-yi)+xi) {
			inside = !inside
		}
		j = i
	}
	return inside
}
