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
	calcSel      selection
	calcAssessed bool
	calcCompare  bool
	calcSTAR     bool
	calcSqft     float64
)

// calcCmd represents the calc command
var calcCmd = &cobra.Command{
	Use:   "calc VALUE",
	Short: "Compute the tax on a property, layer by layer",
	Long: `Compute the annual tax on a property of the given value.

VALUE is a market value unless --assessed is set. With one municipality the
breakdown is shown together with its monthly escrow and the difference from
the average of all municipalities. With --compare, or with no municipality,
every selected municipality is priced side by side.

Examples:
  munitax calc 850000 --muni scarsdale
  munitax calc 7200 --muni bronxville --assessed
  munitax calc 850000 --compare --group comparison
  munitax calc 1100000 -m rye --star`,
	Args: cobra.ExactArgs(1),
	RunE: runCalc,
}

func init() {
	calcSel.register(calcCmd)
	calcCmd.Flags().BoolVar(&calcAssessed, "assessed", false, "VALUE is an assessed value")
	calcCmd.Flags().BoolVar(&calcCompare, "compare", false, "compare every selected municipality")
	calcCmd.Flags().BoolVar(&calcSTAR, "star", false, "show the Basic STAR school tax exemption")
	calcCmd.Flags().Float64Var(&calcSqft, "sqft", tax.ReferenceSqft, "living area for the per-sqft figure")
	rootCmd.AddCommand(calcCmd)
}

func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.NewReplacer("$", "", ",", "", "_", "").Replace(strings.TrimSpace(s))
	v, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

func money(d decimal.Decimal) string {
	f, _ := d.Float64()
	return "$" + humanize.FormatFloat("#,###.##", f)
}

func runCalc(cmd *cobra.Command, args []string) error {
	value, err := parseMoney(args[0])
	if err != nil {
		return err
	}
	ids, err := calcSel.ids()
	if err != nil {
		return err
	}
	calc := tax.New(reg)

	if calcCompare || len(ids) != 1 {
		if calcAssessed {
			return fmt.Errorf("--assessed needs exactly one municipality")
		}
		return printComparison(calc, value, ids)
	}

	id := ids[0]
	b, err := calc.ComputeByID(value, id, calcAssessed)
	if err != nil {
		return err
	}
	m, _ := reg.Get(id)
	printBreakdown(m, b)

	if !calcAssessed {
		imp, err := calc.Impact(value, id, decimal.NewFromFloat(calcSqft))
		if err != nil {
			return err
		}
		color, sign := colorGreen, "-"
		if imp.VsAverage.IsPositive() {
			color, sign = colorRed, "+"
		}
		fmt.Printf("Per sqft (%.0f)    : %s\n", calcSqft, money(imp.PerSqft))
		fmt.Printf("Area average      : %s\n", money(imp.Average))
		fmt.Printf("Vs average        : %s%s%s (%s%s%%)%s\n",
			color, sign, money(imp.VsAverage.Abs()), sign, imp.VsAveragePct.Abs().StringFixed(1), colorReset)
	}

	if calcSTAR {
		star, err := calc.BasicSTAR(id)
		if err != nil {
			return err
		}
		fmt.Println()
		fmt.Printf("Basic STAR        : %s assessed exemption\n", money(star.AssessedReduction))
		fmt.Printf("  School savings  : %s%s%s per year\n", colorGreen, money(star.SchoolTaxSavings), colorReset)
	}
	fmt.Println(strings.Repeat("-", 60))
	return nil
}

func printBreakdown(m types.Municipality, b types.TaxBreakdown) {
	fmt.Println(strings.Repeat("-", 60))
	fmt.Printf("Municipality      : %s\n", m.Name)
	fmt.Printf("Market value      : %s\n", money(b.MarketValue))
	fmt.Printf("Assessed value    : %s (ratio %s)\n", money(b.AssessedValue), m.AssessmentRatio.String())
	fmt.Println()
	for _, lt := range b.Layers {
		fmt.Printf("  %-16s: %12s  @ %s %s\n", lt.Layer, money(lt.Amount), lt.Rate.String(), b.RateBasis)
	}
	fmt.Println()
	fmt.Printf("Annual total      : %s\n", money(b.Total))
	fmt.Printf("Monthly           : %s\n", money(b.Monthly()))
	fmt.Printf("Effective rate    : %s%%\n", b.EffectiveRate().StringFixed(3))
}

func printComparison(calc *tax.Calculator, value decimal.Decimal, ids []string) error {
	all, err := calc.Compare(value, ids)
	if err != nil {
		return err
	}
	lowest, err := calc.Lowest(value, ids)
	if err != nil {
		return err
	}
	fmt.Printf("Annual tax on a %s home\n", money(value))
	fmt.Println(strings.Repeat("-", 60))
	for _, b := range all {
		mark := ""
		if b.MunicipalityID == lowest.MunicipalityID {
			mark = colorGreen + "  lowest" + colorReset
		}
		monthly, err := calc.MonthlyEstimate(value, b.MunicipalityID)
		if err != nil {
			return err
		}
		m, _ := reg.Get(b.MunicipalityID)
		fmt.Printf("  %-32s %12s  %10s/mo  %6s%%%s\n", m.Name, money(b.Total), money(monthly), b.EffectiveRate().StringFixed(2), mark)
	}
	return nil
}
