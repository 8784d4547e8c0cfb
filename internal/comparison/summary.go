package comparison

import (
	"fmt"
	"strings"

	"munitax/internal/metrics"
	"munitax/internal/types"
)

// Summary renders r as plain text: header, the three rankings, then
// insights. Municipality names come from the engine's registry.
func (e *Engine) Summary(r *types.ComparisonReport) string {
	var b strings.Builder
	rule := strings.Repeat("=", 70)
	sub := strings.Repeat("-", 50)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "PROPERTY TAX & VALUE COMPARISON REPORT")
	fmt.Fprintf(&b, "Report: %s\n", r.ID)
	fmt.Fprintf(&b, "Municipalities: %d compared, %d excluded\n", len(r.Compared), len(r.Excluded))
	fmt.Fprintf(&b, "Total Sales Analyzed: %d\n", r.TotalSales)
	fmt.Fprintln(&b, rule)

	section := func(title string, entries []types.RankEntry, format func(float64) string) {
		fmt.Fprintf(&b, "\n%s\n%s\n", title, sub)
		for i, re := range entries {
			fmt.Fprintf(&b, "  %2d. %-32s %s\n", i+1, e.name(re.MunicipalityID), format(re.Value))
		}
	}
	section("TAX EFFICIENCY RANKING (Best to Worst, lower = more value per tax dollar):",
		r.EfficiencyRanking, func(v float64) string { return fmt.Sprintf("%.2f", v) })
	section("VALUE PER SQFT RANKING (Highest to Lowest):",
		r.ValueRanking, func(v float64) string { return dollars(v) + "/sqft" })
	section("TAX BURDEN RANKING (Highest to Lowest tax/sqft):",
		r.TaxBurdenRanking, func(v float64) string { return cents(v) + "/sqft" })

	if len(r.Insights) > 0 {
		fmt.Fprintf(&b, "\nKEY INSIGHTS:\n%s\n", sub)
		for _, in := range r.Insights {
			fmt.Fprintf(&b, "  • %s\n", in)
		}
	}
	return b.String()
}

func describe(d metrics.Distribution, format func(float64) string) string {
	return fmt.Sprintf("n=%d, mean=%s, median=%s, std=%s, range=[%s, %s], cv=%.2f",
		d.Count, format(d.Mean), format(d.Median), format(d.Std), format(d.Min), format(d.Max), d.CV())
}

func percent(v float64) string { return fmt.Sprintf("%.3f%%", v) }

// StatisticsSummary renders sr as plain text.
func (e *Engine) StatisticsSummary(sr *StatisticsReport) string {
	var b strings.Builder
	rule := strings.Repeat("=", 70)
	sub := strings.Repeat("-", 50)

	fmt.Fprintln(&b, rule)
	fmt.Fprintln(&b, "STATISTICAL ANALYSIS REPORT")
	fmt.Fprintln(&b, rule)

	fmt.Fprintf(&b, "\nDISTRIBUTION ANALYSIS\n%s\n", sub)
	fmt.Fprintf(&b, "  value/sqft     : %s\n", describe(sr.ValuePerSqft, dollars))
	fmt.Fprintf(&b, "  tax/sqft       : %s\n", describe(sr.TaxPerSqft, cents))
	fmt.Fprintf(&b, "  effective rate : %s\n", describe(sr.EffectiveRate, percent))

	fmt.Fprintf(&b, "\nBY MUNICIPALITY (value/sqft)\n%s\n", sub)
	for _, m := range sr.Municipalities {
		d := m.ValuePerSqft
		fmt.Fprintf(&b, "  %-32s n=%-4d median %s  IQR %s  cv %.2f  outliers %d\n",
			m.Name, d.Count, dollars(d.Median), dollars(d.IQR), d.CV(), len(m.Outliers))
	}

	var outliers []string
	for _, m := range sr.Municipalities {
		for _, o := range m.Outliers {
			outliers = append(outliers, fmt.Sprintf("  %s, %s: %s/sqft (fences %s to %s)",
				o.Address, m.Name, dollars(o.ValuePerSqft), dollars(o.Lower), dollars(o.Upper)))
		}
	}
	if len(outliers) > 0 {
		fmt.Fprintf(&b, "\nOUTLIERS (%.1f x IQR)\n%s\n%s\n", metrics.OutlierFence, sub, strings.Join(outliers, "\n"))
	}

	fmt.Fprintf(&b, "\nCORRELATION ANALYSIS\n%s\n", sub)
	if sr.Correlation == nil {
		fmt.Fprintln(&b, "  Insufficient data")
	} else {
		r := *sr.Correlation
		dir, tend := "positive", "higher"
		if r < 0 {
			dir, tend = "negative", "lower"
		}
		strength := metrics.CorrelationStrength(r)
		fmt.Fprintf(&b, "  %s%s %s correlation (%.3f). Higher-value homes tend to have %s taxes per sqft.\n",
			strings.ToUpper(strength[:1]), strength[1:], dir, r, tend)
	}

	fmt.Fprintf(&b, "\nANOVA: Do municipalities differ significantly?\n%s\n", sub)
	if sr.ANOVA == nil {
		fmt.Fprintln(&b, "  Need at least 2 municipalities with 2 or more varied sales")
	} else {
		verdict := "is"
		if !sr.ANOVA.Significant(0.05) {
			verdict = "is NOT"
		}
		fmt.Fprintf(&b, "  There %s a statistically significant difference in value/sqft between municipalities (F=%.2f, p=%.4f)\n",
			verdict, sr.ANOVA.F, sr.ANOVA.P)
	}

	if len(sr.Pairs) > 0 {
		fmt.Fprintf(&b, "\nAREA COMPARISONS (value/sqft, Welch t-test)\n%s\n", sub)
		for _, p := range sr.Pairs {
			fmt.Fprintln(&b, e.PairLine(p))
		}
	}
	return b.String()
}

// PairLine renders one t-test result on a line.
func (e *Engine) PairLine(p PairTest) string {
	sig := "not significant"
	switch {
	case p.Significant(0.01):
		sig = "significant at 1%"
	case p.Significant(0.05):
		sig = "significant at 5%"
	}
	return fmt.Sprintf("  %s vs %s: %s/sqft, t=%.2f, p=%.4f, %s effect, %s",
		e.name(p.A), e.name(p.B), signed(p.Difference(), dollars), p.T, p.P, p.EffectSize(), sig)
}
