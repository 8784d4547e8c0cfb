package comparison

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"

	"munitax/internal/metrics"
	"munitax/internal/types"
)

// premiumThreshold is the value/sqft premium over the compared average, in
// percent, above which a municipality gets its own insight.
const premiumThreshold = 20

func dollars(v float64) string {
	return "$" + humanize.FormatFloat("#,###.", v)
}

func cents(v float64) string {
	return "$" + humanize.FormatFloat("#,###.##", v)
}

func signed(v float64, format func(float64) string) string {
	if v < 0 {
		return "-" + format(-v)
	}
	return "+" + format(v)
}

func (e *Engine) names(ids []string) string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = e.name(id)
	}
	return strings.Join(out, ", ")
}

func (e *Engine) name(id string) string {
	if m, err := e.reg.Get(id); err == nil && m.Name != "" {
		return m.Name
	}
	return id
}

// insights derives the report's text lines from its numbers only. The same
// report always yields the same lines in the same order.
func (e *Engine) insights(r *types.ComparisonReport) []string {
	if len(r.Compared) == 0 {
		return []string{"No valid sales data available"}
	}
	var out []string

	hi, lo := r.ValueRanking[0], r.ValueRanking[len(r.ValueRanking)-1]
	out = append(out, fmt.Sprintf("%s has the highest home values at %s/sqft, while %s is lowest at %s/sqft",
		e.name(hi.MunicipalityID), dollars(hi.Value), e.name(lo.MunicipalityID), dollars(lo.Value)))

	if len(r.ValueRanking) >= 2 && lo.Value > 0 {
		out = append(out, fmt.Sprintf("Premium of %.0f%% between highest and lowest value municipalities",
			(hi.Value/lo.Value-1)*100))
	}

	best, worst := r.EfficiencyRanking[0], r.EfficiencyRanking[len(r.EfficiencyRanking)-1]
	out = append(out, fmt.Sprintf("%s offers the best tax efficiency (%.1f), while %s is least efficient (%.1f)",
		e.name(best.MunicipalityID), best.Value, e.name(worst.MunicipalityID), worst.Value))

	if len(r.Compared) >= 2 {
		low := r.TaxBurdenRanking[len(r.TaxBurdenRanking)-1]
		var rest float64
		for _, m := range r.Compared {
			if m.MunicipalityID != low.MunicipalityID {
				rest += m.TaxPerSqftMedian
			}
		}
		rest /= float64(len(r.Compared) - 1)
		if rest > 0 {
			out = append(out, fmt.Sprintf("%s has %.0f%% lower tax/sqft than the average of the rest",
				e.name(low.MunicipalityID), (1-low.Value/rest)*100))
		}

		heavy := r.TaxBurdenRanking[0]
		if diff := heavy.Value - low.Value; diff > 0 {
			out = append(out, fmt.Sprintf("Tax difference: %s/sqft between %s and %s. For a %s sqft home, that's %s/year",
				cents(diff), e.name(heavy.MunicipalityID), e.name(low.MunicipalityID),
				humanize.FormatFloat("#,###.", e.referenceSqft), dollars(diff*e.referenceSqft)))
		}

		var avg float64
		for _, m := range r.Compared {
			avg += m.ValuePerSqftMedian
		}
		avg /= float64(len(r.Compared))
		for _, m := range r.Compared {
			if p := (m.ValuePerSqftMedian/avg - 1) * 100; p > premiumThreshold {
				out = append(out, fmt.Sprintf("%s commands a %.0f%% value premium over the compared average",
					e.name(m.MunicipalityID), p))
			}
		}
	}

	if m, ok := r.Metrics(r.BestValue); ok && m.TaxPerSqftMedian > 0 {
		out = append(out, fmt.Sprintf("%s delivers the most value per tax dollar: %s of value/sqft per $1 of tax/sqft",
			e.name(m.MunicipalityID), dollars(m.ValuePerSqftMedian/m.TaxPerSqftMedian)))
	}
	if len(r.AboveAverageValue) > 0 {
		out = append(out, "Above the average value/sqft: "+e.names(r.AboveAverageValue))
	}

	for _, a := range r.Area {
		out = append(out, fmt.Sprintf("%s vs %s: %s/sqft value (%+.0f%%), %s/sqft/year tax",
			e.name(a.MunicipalityID), e.name(a.BaselineID),
			signed(a.ValuePremium, dollars), a.ValuePremiumPct, signed(a.TaxDifference, cents)))
		if a.SeparateSchools && a.ValuePremium > 0 {
			out = append(out, fmt.Sprintf("Estimated school district premium for %s: ~%s/sqft",
				e.name(a.MunicipalityID), dollars(a.ValuePremium)))
		}
	}

	if len(r.Compared) >= 3 {
		xs := make([]float64, len(r.Compared))
		ys := make([]float64, len(r.Compared))
		for i, m := range r.Compared {
			xs[i], ys[i] = m.ValuePerSqftMedian, m.TaxPerSqftMedian
		}
		if corr, ok := metrics.Correlation(xs, ys); ok && math.Abs(corr) >= 0.3 {
			dir := "higher"
			if corr < 0 {
				dir = "lower"
			}
			out = append(out, fmt.Sprintf("Higher-value municipalities tend to carry %s tax per sqft (r = %.2f)", dir, corr))
		}
	}

	if len(r.LowConfidence) > 0 {
		out = append(out, fmt.Sprintf("Low confidence (fewer than %d sales): %s", e.minSample, e.names(r.LowConfidence)))
	}
	if len(r.Excluded) > 0 {
		out = append(out, fmt.Sprintf("Excluded for lack of sales: %s", strings.Join(r.Excluded, ", ")))
	}
	return out
}
