// Package comparison builds the cross-municipality report: per-municipality
// metrics in registry order, three independent rankings and plain-text
// insights derived from the numbers.
package comparison

import (
	"context"
	"fmt"
	"runtime"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	muerrors "munitax/internal/errors"
	"munitax/internal/logging"
	"munitax/internal/metrics"
	"munitax/internal/registry"
	"munitax/internal/tax"
	"munitax/internal/types"
)

const (
	// DefaultMinSample is the sample size below which a municipality is
	// flagged as low confidence.
	DefaultMinSample = 5
	// DefaultReferenceSqft is the home size used for annual tax differences.
	DefaultReferenceSqft = 2000
)

// reportNamespace scopes report ids so they never collide with other v5 uuids.
var reportNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("munitax/comparison-report"))

// Engine generates comparison reports. It is read-only after construction.
type Engine struct {
	reg           *registry.Registry
	metrics       *metrics.Engine
	calc          *tax.Calculator
	logger        *zap.Logger
	minSample     int
	referenceSqft float64
	workers       int
	area          string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.OrNop(l)
	}
}

// WithMinSample sets the low-confidence threshold.
func WithMinSample(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.minSample = n
		}
	}
}

// WithReferenceSqft sets the home size used in tax-difference insights.
func WithReferenceSqft(sqft float64) Option {
	return func(e *Engine) {
		if sqft > 0 {
			e.referenceSqft = sqft
		}
	}
}

// WithAreaGroup names the registry group analysed as one area. Its first
// member is the baseline the others are compared against.
func WithAreaGroup(name string) Option {
	return func(e *Engine) {
		e.area = name
	}
}

// WithWorkers bounds how many municipalities are computed at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// New returns an engine over reg using me for per-municipality metrics.
func New(reg *registry.Registry, me *metrics.Engine, opts ...Option) *Engine {
	e := &Engine{
		reg:           reg,
		metrics:       me,
		calc:          tax.New(reg),
		logger:        zap.NewNop(),
		minSample:     DefaultMinSample,
		referenceSqft: DefaultReferenceSqft,
		workers:       runtime.NumCPU(),
		area:          registry.GroupEastchesterArea,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// GenerateReport compares the municipalities in ids (all registered ones
// when empty) over sales. Municipalities without sales are listed in
// Excluded. An unknown id or any error other than missing data fails the
// whole report.
func (e *Engine) GenerateReport(ctx context.Context, ids []string, sales []types.SaleRecord) (*types.ComparisonReport, error) {
	if len(ids) == 0 {
		ids = e.reg.IDs()
	}
	ordered, err := e.reg.Ordered(ids)
	if err != nil {
		return nil, err
	}

	results := make([]*types.MunicipalityMetrics, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, id := range ordered {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := e.reg.Get(id)
			if err != nil {
				return err
			}
			mm, err := e.metrics.ComputeMetrics(sales, m)
			if muerrors.IsType(err, muerrors.TypeInsufficientData) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("computing metrics for %s: %w", id, err)
			}
			results[i] = mm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &types.ComparisonReport{ID: e.reportID(ordered, sales)}
	for i, mm := range results {
		if mm == nil {
			report.Excluded = append(report.Excluded, ordered[i])
			e.logger.Warn("municipality excluded: no sales", zap.String("municipality", ordered[i]))
			continue
		}
		report.Compared = append(report.Compared, *mm)
		report.TotalSales += mm.SampleSize
		if mm.SampleSize < e.minSample {
			report.LowConfidence = append(report.LowConfidence, mm.MunicipalityID)
		}
	}

	report.EfficiencyRanking = rank(report.Compared, func(m types.MunicipalityMetrics) float64 { return m.EfficiencyRatio }, false)
	report.ValueRanking = rank(report.Compared, func(m types.MunicipalityMetrics) float64 { return m.ValuePerSqftMedian }, true)
	report.TaxBurdenRanking = rank(report.Compared, func(m types.MunicipalityMetrics) float64 { return m.TaxPerSqftMedian }, true)
	report.BestValue, report.AboveAverageValue = valueVsTax(report.Compared)
	report.Area = e.areaAnalysis(report)
	report.Insights = e.insights(report)

	e.logger.Info("comparison report generated",
		zap.String("report_id", report.ID),
		zap.Int("compared", len(report.Compared)),
		zap.Int("excluded", len(report.Excluded)),
		zap.Int("sales", report.TotalSales),
	)
	return report, nil
}

// rank orders compared by key. The sort is stable and compared is already in
// registry order, so ties keep registry order.
func rank(compared []types.MunicipalityMetrics, key func(types.MunicipalityMetrics) float64, desc bool) []types.RankEntry {
	out := make([]types.RankEntry, len(compared))
	for i, m := range compared {
		out[i] = types.RankEntry{MunicipalityID: m.MunicipalityID, Value: key(m)}
	}
	slices.SortStableFunc(out, func(a, b types.RankEntry) int {
		switch {
		case a.Value == b.Value:
			return 0
		case (a.Value < b.Value) != desc:
			return -1
		default:
			return 1
		}
	})
	return out
}

// reportID hashes everything the report's numbers and text depend on: the
// engine settings, each selected municipality's registry entry and a
// canonical form of every sale. Sale order does not change the id.
func (e *Engine) reportID(ids []string, sales []types.SaleRecord) string {
	keys := make([]string, len(sales))
	for i, s := range sales {
		keys[i] = strings.Join([]string{
			s.MunicipalityID,
			s.Address,
			s.SalePrice.String(),
			s.Sqft.String(),
			s.AssessedValue.String(),
			s.SaleDate.Format("2006-01-02"),
		}, "|")
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "min_sample=%d;reference_sqft=%g;area=%s", e.minSample, e.referenceSqft, e.area)
	if members, err := e.reg.Group(e.area); err == nil {
		b.WriteString(":" + strings.Join(members, ","))
	}
	for _, id := range ids {
		m, err := e.reg.Get(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(&b, "\n%s|%s|%s|%s|%s", id, m.Name, m.AssessmentRatio, m.RateBasis, m.SchoolDistrict)
		for _, l := range m.Layers() {
			fmt.Fprintf(&b, "|%s=%s", l, m.Rates[l])
		}
	}
	b.WriteString("\n--")
	for _, k := range keys {
		b.WriteByte('\n')
		b.WriteString(k)
	}
	return uuid.NewSHA1(reportNamespace, []byte(b.String())).String()
}
