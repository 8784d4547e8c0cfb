// Package loader reads residential sale exports into validated sale records.
//
// Files are delimited text with a header row. Column names are matched
// loosely (case, spaces and a set of common aliases) so that exports from
// listing sites, assessor extracts and hand-kept spreadsheets all load.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	muerrors "munitax/internal/errors"
	"munitax/internal/logging"
	"munitax/internal/registry"
	"munitax/internal/types"
)

// Locator maps a coordinate to a municipality id.
type Locator interface {
	Locate(lat, lon float64) (string, bool)
}

// LoadResult is the outcome of a load.
type LoadResult struct {
	Records []types.SaleRecord
	Files   []string
	// Skipped counts rows that could not become a valid record.
	Skipped int
	// Synthetic is set when the records were generated rather than read.
	Synthetic bool
}

func (r *LoadResult) merge(o *LoadResult) {
	r.Records = append(r.Records, o.Records...)
	r.Files = append(r.Files, o.Files...)
	r.Skipped += o.Skipped
}

// Loader turns delimited files into sale records.
type Loader struct {
	reg       *registry.Registry
	logger    *zap.Logger
	delimiter rune
	locator   Locator
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for skipped-row warnings.
func WithLogger(l *zap.Logger) Option {
	return func(ld *Loader) {
		ld.logger = logging.OrNop(l)
	}
}

// WithDelimiter forces the field delimiter. By default it is detected from
// the header: '|' when present, otherwise ','.
func WithDelimiter(r rune) Option {
	return func(ld *Loader) { ld.delimiter = r }
}

// WithLocator assigns rows without a usable city by their coordinates.
func WithLocator(loc Locator) Option {
	return func(ld *Loader) { ld.locator = loc }
}

// New returns a loader resolving municipalities through reg.
func New(reg *registry.Registry, opts ...Option) *Loader {
	l := &Loader{reg: reg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var (
	colAddress  = []string{"address", "street_address", "streetaddress", "full_address", "situs_address"}
	colCity     = []string{"city", "municipality", "town", "village", "situs_city"}
	colPrice    = []string{"sale_price", "saleprice", "price", "sold_price", "soldprice"}
	colSqft     = []string{"sqft", "square_feet", "squarefeet", "sq_ft", "living_area"}
	colDate     = []string{"sale_date", "saledate", "sold_date", "solddate", "close_date"}
	colAssessed = []string{"assessed_value", "assessedvalue", "assessment", "tax_assessed_value"}
	colTaxes    = []string{"annual_taxes", "annualtaxes", "taxes", "property_tax", "tax_amount"}
	colBeds     = []string{"bedrooms", "beds", "br"}
	colBaths    = []string{"bathrooms", "baths", "ba"}
	colYear     = []string{"year_built", "yearbuilt", "built"}
	colSource   = []string{"source"}
	colLat      = []string{"latitude", "lat"}
	colLon      = []string{"longitude", "lon", "lng"}
)

var dateLayouts = []string{"2006-01-02", "01/02/2006", "01-02-2006", "2006/01/02"}

// LoadFile reads one file. The file stem is used as the record source and,
// when it contains a municipality id, as the fallback municipality.
func (l *Loader) LoadFile(path string) (*LoadResult, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, muerrors.Parsing("reading "+path, err)
	}
	if !isText(mt) {
		return nil, muerrors.Newf(muerrors.TypeParsing, "%s is %s, not delimited text", path, mt.String())
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, muerrors.Parsing("opening "+path, err)
	}
	defer f.Close()

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res, err := l.Read(f, stem)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	res.Files = []string{path}
	l.logger.Info("loaded sales file",
		zap.String("file", path),
		zap.Int("records", len(res.Records)),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func isText(mt *mimetype.MIME) bool {
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return true
		}
	}
	return false
}

// LoadDir loads every file in dir matching pattern, in lexical order.
// Files whose stem ends in "_template" are skipped.
func (l *Loader) LoadDir(dir, pattern string) (*LoadResult, error) {
	if pattern == "" {
		pattern = "*.csv"
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return nil, muerrors.Config("bad sales file pattern "+pattern, err)
	}
	res := &LoadResult{}
	for _, path := range matches {
		stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		if strings.HasSuffix(stem, "_template") {
			continue
		}
		one, err := l.LoadFile(path)
		if err != nil {
			return nil, err
		}
		res.merge(one)
	}
	return res, nil
}

// LoadOrSample loads dir and falls back to synthetic records for ids when
// no file matched.
func (l *Loader) LoadOrSample(dir, pattern string, ids []string, perMuni int, seed uint64) (*LoadResult, error) {
	res, err := l.LoadDir(dir, pattern)
	if err != nil {
		return nil, err
	}
	if len(res.Files) > 0 {
		return res, nil
	}
	l.logger.Warn("no sales files found, using synthetic sample",
		zap.String("dir", dir),
		zap.String("pattern", pattern),
		zap.Uint64("seed", seed),
	)
	return l.Sample(ids, perMuni, seed)
}

// Read parses delimited text from r. source names the input in records and
// warnings.
func (l *Loader) Read(r io.Reader, source string) (*LoadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, muerrors.Parsing("reading "+source, err)
	}

	delim := l.delimiter
	if delim == 0 {
		header, _, _ := strings.Cut(string(data), "\n")
		delim = ','
		if strings.Contains(header, "|") {
			delim = '|'
		}
	}

	cr := csv.NewReader(strings.NewReader(string(data)))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, muerrors.Newf(muerrors.TypeParsing, "%s is empty", source)
	}
	if err != nil {
		return nil, muerrors.Parsing("reading header of "+source, err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[normalizeColumn(h)] = i
	}

	res := &LoadResult{}
	for line := 2; ; line++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, muerrors.Parsing(fmt.Sprintf("%s line %d", source, line), err)
		}
		rec, err := l.toRecord(row{cols: cols, fields: fields}, source)
		if err != nil {
			res.Skipped++
			l.logger.Warn("skipping invalid row",
				zap.String("source", source),
				zap.Int("line", line),
				zap.Error(err),
			)
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res, nil
}

func normalizeColumn(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	return strings.ReplaceAll(h, " ", "_")
}

type row struct {
	cols   map[string]int
	fields []string
}

// get returns the first non-empty value among names.
func (r row) get(names []string) string {
	for _, n := range names {
		if i, ok := r.cols[n]; ok && i < len(r.fields) {
			if v := strings.TrimSpace(r.fields[i]); v != "" {
				return v
			}
		}
	}
	return ""
}

// amount returns the first parseable currency or numeric value among names.
func (r row) amount(names []string) (decimal.Decimal, bool) {
	for _, n := range names {
		if i, ok := r.cols[n]; ok && i < len(r.fields) {
			if v, ok := parseAmount(r.fields[i]); ok {
				return v, true
			}
		}
	}
	return decimal.Zero, false
}

// parseAmount accepts plain numbers and currency strings such as "$1,250,000".
func parseAmount(s string) (decimal.Decimal, bool) {
	s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
	if s == "" {
		return decimal.Zero, false
	}
	v, err := decimal.NewFromString(s)
	return v, err == nil
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (l *Loader) toRecord(r row, source string) (types.SaleRecord, error) {
	address := r.get(colAddress)
	muniID, err := l.resolve(r, source)
	if err != nil {
		return types.SaleRecord{}, fmt.Errorf("%s: %w", address, err)
	}

	price, _ := r.amount(colPrice)
	sqft, _ := r.amount(colSqft)
	assessed, ok := r.amount(colAssessed)
	if !ok || !assessed.IsPositive() {
		m, err := l.reg.Get(muniID)
		if err != nil {
			return types.SaleRecord{}, err
		}
		assessed = m.MarketToAssessed(price).Round(2)
	}
	taxes, _ := r.amount(colTaxes)

	// An unreadable date leaves the sale undated; it still counts toward
	// every metric.
	var saleDate time.Time
	if s := r.get(colDate); s != "" {
		if d, ok := parseDate(s); ok {
			saleDate = d
		} else {
			l.logger.Warn("unrecognised sale date, keeping sale undated",
				zap.String("source", source), zap.String("address", address), zap.String("date", s))
		}
	}

	f := types.SaleFields{
		Address:        address,
		MunicipalityID: muniID,
		SalePrice:      price,
		Sqft:           sqft,
		AssessedValue:  assessed,
		SaleDate:       saleDate,
		AnnualTaxes:    taxes,
		Source:         r.get(colSource),
	}
	if f.Source == "" {
		f.Source = source
	}
	if v, ok := r.amount(colBeds); ok {
		f.Bedrooms = int(v.IntPart())
	}
	if v, ok := r.amount(colBaths); ok {
		f.Bathrooms = v.InexactFloat64()
	}
	if v, ok := r.amount(colYear); ok {
		f.YearBuilt = int(v.IntPart())
	}
	return types.NewSaleRecord(f)
}

// resolve finds the municipality for a row: the city column through the
// registry, then a municipality id in the file stem, then the coordinates.
func (l *Loader) resolve(r row, source string) (string, error) {
	city := r.get(colCity)
	if city != "" {
		if id, ok := l.reg.Resolve(city); ok {
			return id, nil
		}
	}
	stem := strings.ToLower(source)
	var best string
	for _, id := range l.reg.IDs() {
		if strings.Contains(stem, id) && len(id) > len(best) {
			best = id
		}
	}
	if best != "" {
		return best, nil
	}
	if l.locator != nil {
		lat, errLat := strconv.ParseFloat(r.get(colLat), 64)
		lon, errLon := strconv.ParseFloat(r.get(colLon), 64)
		if errLat == nil && errLon == nil {
			if id, ok := l.locator.Locate(lat, lon); ok {
				if resolved, ok := l.reg.Resolve(id); ok {
					return resolved, nil
				}
			}
		}
	}
	if city == "" {
		return "", muerrors.InvalidInput("no city and no location to resolve a municipality")
	}
	return "", muerrors.NotFound("municipality", city)
}
