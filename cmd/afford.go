package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"munitax/internal/types"
)

var (
	affordSrc    source
	affordNoSale bool
)

// affordCmd represents the afford command
var affordCmd = &cobra.Command{
	Use:   "afford BUDGET",
	Short: "Show the home value an annual tax budget buys in each municipality",
	Long: `Invert the tax calculation: for an annual tax budget, show the market
value whose tax equals it in each municipality, largest first. When sales
are available, the median value/sqft turns that into a typical home size.

Examples:
  munitax afford 20000
  munitax afford 15000 --dataset spring-2025
  munitax afford 25000 --no-sales`,
	Args: cobra.ExactArgs(1),
	RunE: runAfford,
}

func init() {
	affordSrc.register(affordCmd)
	affordCmd.Flags().BoolVar(&affordNoSale, "no-sales", false, "skip loading sales; show market values only")
	rootCmd.AddCommand(affordCmd)
}

func runAfford(cmd *cobra.Command, args []string) error {
	budget, err := parseMoney(args[0])
	if err != nil {
		return err
	}
	engine := newEngine()

	var report *types.ComparisonReport
	if !affordNoSale {
		set, err := affordSrc.load(cmd.Context(), nil)
		if err != nil {
			return err
		}
		report, err = engine.GenerateReport(cmd.Context(), nil, set.records)
		if err != nil {
			return err
		}
	}
	rows, err := engine.ValueForTaxBudget(budget, report)
	if err != nil {
		return err
	}

	fmt.Printf("What %s a year in property tax buys\n", money(budget))
	fmt.Println(strings.Repeat("-", 74))
	for i, a := range rows {
		size := "n/a"
		if a.AffordableSqft > 0 {
			size = humanize.Comma(int64(a.AffordableSqft+0.5)) + " sqft"
		}
		fmt.Printf("  %2d. %-32s %14s  %12s\n", i+1, a.Name, money(a.MarketValue), size)
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stderr, "No municipality levies tax")
	}
	return nil
}
