package geo

import (
	"fmt"
	"math"
	"strings"
)

// Projection converts WGS-84 degrees into the coordinate system of a
// boundary layer. It returns (northing, easting), matching the (lat, lon)
// order of the rings.
type Projection interface {
	Forward(latDeg, lonDeg float64) (northing, easting float64)
}

// LCCParams describes a two-parallel Lambert Conformal Conic state-plane
// zone on the NAD83 ellipsoid. Offsets are in the zone's output unit.
type LCCParams struct {
	Name          string
	OriginLat     float64 // latitude of origin, degrees
	Parallel1     float64 // standard parallel 1, degrees
	Parallel2     float64 // standard parallel 2, degrees
	CentralMerid  float64 // central meridian, degrees
	FalseEasting  float64
	FalseNorthing float64
	UnitsPerMeter float64
}

const (
	semiMajorM = 6378137.0
	nad83E2    = 0.00669438002290

	// FeetPerMeterUS is the US survey foot.
	FeetPerMeterUS = 3.2808333333333334
)

// Zone presets.
var (
	// NYLongIsland is EPSG:2263, the zone county GIS layers in the New York
	// metro area are published in.
	NYLongIsland = LCCParams{
		Name:          "NAD83 / New York Long Island (ftUS)",
		OriginLat:     40.16666666666666,
		Parallel1:     41.03333333333333,
		Parallel2:     40.66666666666666,
		CentralMerid:  -74,
		FalseEasting:  984250.0,
		FalseNorthing: 0,
		UnitsPerMeter: FeetPerMeterUS,
	}

	// TexasNorthCentral is EPSG:2276.
	TexasNorthCentral = LCCParams{
		Name:          "NAD83 / Texas North Central (ftUS)",
		OriginLat:     31.66666666666667,
		Parallel1:     32.13333333333333,
		Parallel2:     33.96666666666667,
		CentralMerid:  -98.5,
		FalseEasting:  1968500.0,
		FalseNorthing: 6561666.666666666,
		UnitsPerMeter: FeetPerMeterUS,
	}
)

// LambertConic is a precomputed LCC projection.
type LambertConic struct {
	p    LCCParams
	e    float64
	n    float64
	f    float64
	rho0 float64
}

func rad(d float64) float64 { return d * math.Pi / 180 }

// NewLambertConic precomputes the cone constants for p.
func NewLambertConic(p LCCParams) *LambertConic {
	e := math.Sqrt(nad83E2)
	m := func(phi float64) float64 {
		return math.Cos(phi) / math.Sqrt(1-nad83E2*math.Sin(phi)*math.Sin(phi))
	}
	t := func(phi float64) float64 {
		return math.Tan(math.Pi/4-phi/2) / math.Pow((1-e*math.Sin(phi))/(1+e*math.Sin(phi)), e/2)
	}

	phi1, phi2 := rad(p.Parallel1), rad(p.Parallel2)
	m1, m2 := m(phi1), m(phi2)
	t1, t2 := t(phi1), t(phi2)

	var n float64
	if math.Abs(phi1-phi2) < 1e-12 {
		n = math.Sin(phi1)
	} else {
		n = math.Log(m1/m2) / math.Log(t1/t2)
	}
	a := semiMajorM * p.UnitsPerMeter
	f := a * m1 / (n * math.Pow(t1, n))
	return &LambertConic{
		p:    p,
		e:    e,
		n:    n,
		f:    f,
		rho0: f * math.Pow(t(rad(p.OriginLat)), n),
	}
}

// Params returns the zone definition.
func (l *LambertConic) Params() LCCParams { return l.p }

// Forward projects WGS-84 degrees to zone units. NAD83 and WGS-84 differ by
// well under a metre, which is ignored.
func (l *LambertConic) Forward(latDeg, lonDeg float64) (northing, easting float64) {
	phi := rad(latDeg)
	es := l.e * math.Sin(phi)
	t := math.Tan(math.Pi/4-phi/2) / math.Pow((1-es)/(1+es), l.e/2)
	rho := l.f * math.Pow(t, l.n)
	theta := l.n * (rad(lonDeg) - rad(l.p.CentralMerid))

	easting = rho*math.Sin(theta) + l.p.FalseEasting
	northing = l.rho0 - rho*math.Cos(theta) + l.p.FalseNorthing
	return northing, easting
}

// ProjectionByName returns the projection for a configured layer CRS. Empty,
// "wgs84" and "none" mean the layer is already in degrees and yield nil.
func ProjectionByName(name string) (Projection, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "wgs84", "epsg:4326":
		return nil, nil
	case "ny-long-island", "epsg:2263":
		return NewLambertConic(NYLongIsland), nil
	case "texas-north-central", "epsg:2276":
		return NewLambertConic(TexasNorthCentral), nil
	}
	return nil, fmt.Errorf("unknown projection %q", name)
}
