package types

// MunicipalityMetrics aggregates the sales of one municipality.
// Per-square-foot figures are in currency units per sqft; rates in percent.
type MunicipalityMetrics struct {
	MunicipalityID string `json:"municipality_id"`
	Name           string `json:"name"`
	SampleSize     int    `json:"sample_size"`

	ValuePerSqftMedian float64 `json:"value_per_sqft_median"`
	ValuePerSqftMean   float64 `json:"value_per_sqft_mean"`
	ValuePerSqftStd    float64 `json:"value_per_sqft_std"`
	ValuePerSqftMin    float64 `json:"value_per_sqft_min"`
	ValuePerSqftMax    float64 `json:"value_per_sqft_max"`

	TaxPerSqftMedian float64 `json:"tax_per_sqft_median"`
	TaxPerSqftMean   float64 `json:"tax_per_sqft_mean"`
	TaxPerSqftStd    float64 `json:"tax_per_sqft_std"`

	EffectiveRateMean   float64 `json:"effective_rate_mean"`
	EffectiveRateMedian float64 `json:"effective_rate_median"`

	SalePriceMedian float64 `json:"sale_price_median"`
	SalePriceMean   float64 `json:"sale_price_mean"`
	SqftMedian      float64 `json:"sqft_median"`

	// EfficiencyRatio is median tax/sqft over median value/sqft, times 1000:
	// tax dollars per $1,000 of value/sqft. Lower is better.
	EfficiencyRatio float64 `json:"efficiency_ratio"`
}

// MonthlyTaxTypical is the monthly tax on a median-priced home at the median
// effective rate.
func (m MunicipalityMetrics) MonthlyTaxTypical() float64 {
	return m.SalePriceMedian * m.EffectiveRateMedian / 100 / 12
}

// PropertyMetrics is the per-sale view used for drill-down and export.
type PropertyMetrics struct {
	MunicipalityID  string       `json:"municipality_id"`
	Address         string       `json:"address"`
	MarketValue     float64      `json:"market_value"`
	Sqft            float64      `json:"sqft"`
	ValuePerSqft    float64      `json:"value_per_sqft"`
	AnnualTax       float64      `json:"annual_tax"`
	TaxPerSqft      float64      `json:"tax_per_sqft"`
	EffectiveRate   float64      `json:"effective_rate"`
	EfficiencyRatio float64      `json:"efficiency_ratio"`
	Breakdown       TaxBreakdown `json:"breakdown"`
}

// RankEntry is one position in a ranking.
type RankEntry struct {
	MunicipalityID string  `json:"municipality_id"`
	Value          float64 `json:"value"`
}

// ComparisonReport is the cross-municipality output. Every entry in Compared
// has at least one sale; municipalities without sales are listed in Excluded.
type ComparisonReport struct {
	ID         string                `json:"id"`
	Compared   []MunicipalityMetrics `json:"compared"`
	Excluded   []string              `json:"excluded,omitempty"`
	TotalSales int                   `json:"total_sales"`

	EfficiencyRanking []RankEntry `json:"efficiency_ranking"`
	ValueRanking      []RankEntry `json:"value_ranking"`
	TaxBurdenRanking  []RankEntry `json:"tax_burden_ranking"`

	// BestValue has the most value/sqft per dollar of tax/sqft.
	BestValue         string   `json:"best_value,omitempty"`
	AboveAverageValue []string `json:"above_average_value,omitempty"`

	Area []AreaComparison `json:"area,omitempty"`

	Insights      []string `json:"insights"`
	LowConfidence []string `json:"low_confidence,omitempty"`
}

// AreaComparison sets one municipality of an area group against the group's
// baseline municipality. Differences are subject minus baseline.
type AreaComparison struct {
	MunicipalityID  string  `json:"municipality_id"`
	BaselineID      string  `json:"baseline_id"`
	ValuePremium    float64 `json:"value_premium"`
	ValuePremiumPct float64 `json:"value_premium_pct"`
	TaxDifference   float64 `json:"tax_difference"`
	// SeparateSchools is set when the two are served by different school
	// districts, so the value premium is read as a school premium.
	SeparateSchools bool `json:"separate_schools,omitempty"`
}

// Metrics returns the metrics for id, if it was compared.
func (r *ComparisonReport) Metrics(id string) (MunicipalityMetrics, bool) {
	for _, m := range r.Compared {
		if m.MunicipalityID == id {
			return m, true
		}
	}
	return MunicipalityMetrics{}, false
}
