package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	scenarioSel   selection
	scenarioValue string
	scenarioSqft  float64
)

// scenariosCmd represents the scenarios command
var scenariosCmd = &cobra.Command{
	Use:   "scenarios",
	Short: "Price one hypothetical home in every municipality",
	Long: `Show what a home of the given market value and size would pay in each
municipality, cheapest first.

Examples:
  munitax scenarios --value 1200000 --sqft 2400
  munitax scenarios --value 900000 --group eastchester_area`,
	Args: cobra.NoArgs,
	RunE: runScenarios,
}

func init() {
	scenarioSel.register(scenariosCmd)
	scenariosCmd.Flags().StringVar(&scenarioValue, "value", "1000000", "market value of the home")
	scenariosCmd.Flags().Float64Var(&scenarioSqft, "sqft", 2000, "living area of the home")
	rootCmd.AddCommand(scenariosCmd)
}

func runScenarios(cmd *cobra.Command, _ []string) error {
	value, err := parseMoney(scenarioValue)
	if err != nil {
		return err
	}
	ids, err := scenarioSel.ids()
	if err != nil {
		return err
	}
	scenarios, err := newEngine().TaxScenarios(value, decimal.NewFromFloat(scenarioSqft), ids)
	if err != nil {
		return err
	}

	fmt.Printf("Tax on a %s, %s sqft home\n", money(value), humanize.Comma(int64(scenarioSqft)))
	fmt.Println(strings.Repeat("-", 86))
	fmt.Printf("  %-32s %12s %10s %9s %8s %8s\n", "Municipality", "Annual", "Monthly", "Per sqft", "Rate %", "School %")
	for _, s := range scenarios {
		fmt.Printf("  %-32s %12s %10s %9s %8s %8s\n",
			s.Name, money(s.Annual), money(s.Monthly), money(s.PerSqft),
			s.EffectiveRate.StringFixed(3), s.SchoolShare.StringFixed(1))
	}
	if len(scenarios) > 1 {
		spread := scenarios[len(scenarios)-1].Annual.Sub(scenarios[0].Annual)
		fmt.Println(strings.Repeat("-", 86))
		fmt.Printf("Spread between %s and %s: %s%s%s per year\n",
			scenarios[0].Name, scenarios[len(scenarios)-1].Name, colorRed, money(spread), colorReset)
	}
	return nil
}
