package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"munitax/internal/tax"
	"munitax/internal/types"
)

var (
	browseSel selection
	browseSrc source
)

// browseCmd represents the browse command
var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse municipalities interactively, best tax efficiency first",
	Long: `Show the efficiency ranking as a list. Use the arrow keys (or j/k) to
move and Enter to see a municipality's metrics and the layer-by-layer tax
on its median-priced sale.`,
	Args: cobra.NoArgs,
	RunE: runBrowse,
}

func init() {
	browseSel.register(browseCmd)
	browseSrc.register(browseCmd)
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, _ []string) error {
	ids, err := browseSel.ids()
	if err != nil {
		return err
	}
	set, err := browseSrc.load(cmd.Context(), ids)
	if err != nil {
		return err
	}
	r, err := newEngine().GenerateReport(cmd.Context(), ids, set.records)
	if err != nil {
		return err
	}
	if len(r.EfficiencyRanking) == 0 {
		fmt.Println("No municipality has sales to browse.")
		return nil
	}

	lines := make([]string, len(r.EfficiencyRanking))
	for i, re := range r.EfficiencyRanking {
		m, _ := r.Metrics(re.MunicipalityID)
		lines[i] = fmt.Sprintf("%2d. %-32s eff %6.2f  $%s/sqft  tax $%s/sqft  (%d sales)",
			i+1, m.Name, re.Value,
			humanize.FormatFloat("#,###.", m.ValuePerSqftMedian),
			humanize.FormatFloat("#,###.##", m.TaxPerSqftMedian),
			m.SampleSize)
	}
	calc := tax.New(reg)
	interactiveSelect(lines, func(i int) {
		m, _ := r.Metrics(r.EfficiencyRanking[i].MunicipalityID)
		renderMetrics(calc, m)
	})
	return nil
}

// renderMetrics prints one municipality's metrics and the tax on its median
// sale.
func renderMetrics(calc *tax.Calculator, m types.MunicipalityMetrics) {
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Municipality      : %s\n", m.Name)
	fmt.Printf("Sales             : %d\n", m.SampleSize)
	fmt.Printf("Median price      : $%s\n", humanize.FormatFloat("#,###.", m.SalePriceMedian))
	fmt.Printf("Median sqft       : %s\n", humanize.FormatFloat("#,###.", m.SqftMedian))
	fmt.Println()
	fmt.Printf("Value/sqft        : median $%s, mean $%s, range $%s to $%s\n",
		humanize.FormatFloat("#,###.", m.ValuePerSqftMedian),
		humanize.FormatFloat("#,###.", m.ValuePerSqftMean),
		humanize.FormatFloat("#,###.", m.ValuePerSqftMin),
		humanize.FormatFloat("#,###.", m.ValuePerSqftMax))
	fmt.Printf("Tax/sqft          : median $%.2f, mean $%.2f\n", m.TaxPerSqftMedian, m.TaxPerSqftMean)
	fmt.Printf("Effective rate    : median %.3f%%\n", m.EffectiveRateMedian)
	fmt.Printf("Efficiency ratio  : %.2f\n", m.EfficiencyRatio)
	fmt.Printf("Typical monthly   : $%s\n", humanize.FormatFloat("#,###.##", m.MonthlyTaxTypical()))

	b, err := calc.ComputeByID(decimal.NewFromFloat(m.SalePriceMedian).Round(0), m.MunicipalityID, false)
	if err != nil {
		fmt.Printf("%sTax breakdown unavailable: %v%s\n", colorRed, err, colorReset)
		return
	}
	fmt.Println()
	for _, lt := range b.Layers {
		fmt.Printf("  %-16s: %12s  (%s%%)\n", lt.Layer, money(lt.Amount), b.LayerShare(lt.Layer).StringFixed(1))
	}
	fmt.Printf("  %-16s: %12s\n", "total", money(b.Total))
	fmt.Println(strings.Repeat("-", 60))
}
