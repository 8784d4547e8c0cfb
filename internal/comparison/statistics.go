package comparison

import (
	"context"
	"fmt"

	"munitax/internal/metrics"
	"munitax/internal/types"
)

// SaleOutlier is a sale whose value/sqft falls outside its municipality's
// IQR fences.
type SaleOutlier struct {
	Address      string  `json:"address"`
	ValuePerSqft float64 `json:"value_per_sqft"`
	Lower        float64 `json:"lower"`
	Upper        float64 `json:"upper"`
}

// MunicipalityStatistics describes the per-sale distributions of one
// municipality.
type MunicipalityStatistics struct {
	MunicipalityID string               `json:"municipality_id"`
	Name           string               `json:"name"`
	ValuePerSqft   metrics.Distribution `json:"value_per_sqft"`
	TaxPerSqft     metrics.Distribution `json:"tax_per_sqft"`
	EffectiveRate  metrics.Distribution `json:"effective_rate"`
	Outliers       []SaleOutlier        `json:"outliers,omitempty"`
}

// PairTest compares the per-sale value/sqft of municipality A with B.
type PairTest struct {
	A string `json:"a"`
	B string `json:"b"`
	metrics.TTest
}

// StatisticsReport is the per-sale statistical view of a set of
// municipalities.
type StatisticsReport struct {
	ValuePerSqft   metrics.Distribution     `json:"value_per_sqft"`
	TaxPerSqft     metrics.Distribution     `json:"tax_per_sqft"`
	EffectiveRate  metrics.Distribution     `json:"effective_rate"`
	Municipalities []MunicipalityStatistics `json:"municipalities"`

	// Correlation of value/sqft with tax/sqft over every sale. Nil with
	// fewer than three sales or no variance.
	Correlation *float64 `json:"correlation,omitempty"`
	// ANOVA over municipalities with at least two sales.
	ANOVA *metrics.ANOVA `json:"anova,omitempty"`
	// Pairs tests each area group member against the group baseline.
	Pairs []PairTest `json:"pairs,omitempty"`
}

func column(pms []types.PropertyMetrics, f func(types.PropertyMetrics) float64) []float64 {
	out := make([]float64, len(pms))
	for i, p := range pms {
		out[i] = f(p)
	}
	return out
}

func valuePerSqft(p types.PropertyMetrics) float64  { return p.ValuePerSqft }
func taxPerSqft(p types.PropertyMetrics) float64    { return p.TaxPerSqft }
func effectiveRate(p types.PropertyMetrics) float64 { return p.EffectiveRate }

// propertyMetrics prices every sale of id.
func (e *Engine) propertyMetrics(sales []types.SaleRecord, id string) ([]types.PropertyMetrics, error) {
	m, err := e.reg.Get(id)
	if err != nil {
		return nil, err
	}
	var out []types.PropertyMetrics
	for _, s := range sales {
		if s.MunicipalityID != id {
			continue
		}
		pm, err := e.metrics.PropertyMetrics(s, m)
		if err != nil {
			return nil, fmt.Errorf("sale %s: %w", s.Address, err)
		}
		out = append(out, pm)
	}
	return out, nil
}

// Statistics describes the sales of ids (all registered municipalities when
// empty): distributions, IQR outliers, the value/tax correlation, an ANOVA
// across municipalities and t-tests within the area group. Municipalities
// without sales are left out.
func (e *Engine) Statistics(ctx context.Context, ids []string, sales []types.SaleRecord) (*StatisticsReport, error) {
	if len(ids) == 0 {
		ids = e.reg.IDs()
	}
	ordered, err := e.reg.Ordered(ids)
	if err != nil {
		return nil, err
	}

	sr := &StatisticsReport{}
	var (
		all    []types.PropertyMetrics
		groups [][]float64
	)
	byID := make(map[string][]float64, len(ordered))
	for _, id := range ordered {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pms, err := e.propertyMetrics(sales, id)
		if err != nil {
			return nil, err
		}
		if len(pms) == 0 {
			continue
		}
		all = append(all, pms...)

		vps := column(pms, valuePerSqft)
		ms := MunicipalityStatistics{
			MunicipalityID: id,
			Name:           e.name(id),
			ValuePerSqft:   metrics.Describe(vps),
			TaxPerSqft:     metrics.Describe(column(pms, taxPerSqft)),
			EffectiveRate:  metrics.Describe(column(pms, effectiveRate)),
		}
		lower, upper := ms.ValuePerSqft.Fences(metrics.OutlierFence)
		for _, i := range metrics.Outliers(vps, metrics.OutlierFence) {
			ms.Outliers = append(ms.Outliers, SaleOutlier{
				Address:      pms[i].Address,
				ValuePerSqft: vps[i],
				Lower:        lower,
				Upper:        upper,
			})
		}
		sr.Municipalities = append(sr.Municipalities, ms)

		byID[id] = vps
		if len(vps) >= 2 {
			groups = append(groups, vps)
		}
	}

	vps, tps := column(all, valuePerSqft), column(all, taxPerSqft)
	sr.ValuePerSqft = metrics.Describe(vps)
	sr.TaxPerSqft = metrics.Describe(tps)
	sr.EffectiveRate = metrics.Describe(column(all, effectiveRate))
	if len(all) >= 3 {
		if r, ok := metrics.Correlation(vps, tps); ok {
			sr.Correlation = &r
		}
	}
	if a, err := metrics.OneWayANOVA(groups); err == nil {
		sr.ANOVA = &a
	}
	if members, err := e.reg.Group(e.area); err == nil && len(members) >= 2 {
		for _, id := range members[1:] {
			tt, err := metrics.WelchTTest(byID[id], byID[members[0]])
			if err != nil {
				continue
			}
			sr.Pairs = append(sr.Pairs, PairTest{A: id, B: members[0], TTest: tt})
		}
	}
	return sr, nil
}

// ComparePair runs Welch's t-test on the per-sale value/sqft of a and b.
func (e *Engine) ComparePair(a, b string, sales []types.SaleRecord) (PairTest, error) {
	pa, err := e.propertyMetrics(sales, a)
	if err != nil {
		return PairTest{}, err
	}
	pb, err := e.propertyMetrics(sales, b)
	if err != nil {
		return PairTest{}, err
	}
	tt, err := metrics.WelchTTest(column(pa, valuePerSqft), column(pb, valuePerSqft))
	if err != nil {
		return PairTest{}, fmt.Errorf("comparing %s with %s: %w", a, b, err)
	}
	return PairTest{A: a, B: b, TTest: tt}, nil
}
