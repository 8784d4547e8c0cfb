package comparison

import (
	"munitax/internal/types"
)

// valueVsTax picks the municipality with the most value/sqft per dollar of
// tax/sqft and lists those above the average value/sqft, both in registry
// order. Fewer than two compared municipalities give nothing.
func valueVsTax(compared []types.MunicipalityMetrics) (best string, above []string) {
	if len(compared) < 2 {
		return "", nil
	}
	var (
		bestRatio float64
		avg       float64
	)
	for _, m := range compared {
		avg += m.ValuePerSqftMedian
		if m.TaxPerSqftMedian <= 0 {
			continue
		}
		if r := m.ValuePerSqftMedian / m.TaxPerSqftMedian; r > bestRatio {
			best, bestRatio = m.MunicipalityID, r
		}
	}
	avg /= float64(len(compared))
	for _, m := range compared {
		if m.ValuePerSqftMedian > avg {
			above = append(above, m.MunicipalityID)
		}
	}
	return best, above
}

// areaAnalysis compares every compared member of the engine's area group
// with the group's first member. It is empty when the registry has no such
// group or the baseline has no sales.
func (e *Engine) areaAnalysis(r *types.ComparisonReport) []types.AreaComparison {
	members, err := e.reg.Group(e.area)
	if err != nil || len(members) < 2 {
		return nil
	}
	base, ok := r.Metrics(members[0])
	if !ok || base.ValuePerSqftMedian <= 0 {
		return nil
	}
	baseMuni, err := e.reg.Get(base.MunicipalityID)
	if err != nil {
		return nil
	}

	var out []types.AreaComparison
	for _, id := range members[1:] {
		m, ok := r.Metrics(id)
		if !ok {
			continue
		}
		muni, err := e.reg.Get(id)
		if err != nil {
			continue
		}
		out = append(out, types.AreaComparison{
			MunicipalityID:  id,
			BaselineID:      base.MunicipalityID,
			ValuePremium:    m.ValuePerSqftMedian - base.ValuePerSqftMedian,
			ValuePremiumPct: (m.ValuePerSqftMedian/base.ValuePerSqftMedian - 1) * 100,
			TaxDifference:   m.TaxPerSqftMedian - base.TaxPerSqftMedian,
			SeparateSchools: muni.SchoolDistrict != "" && baseMuni.SchoolDistrict != "" &&
				muni.SchoolDistrict != baseMuni.SchoolDistrict,
		})
	}
	return out
}
