package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	muerrors "munitax/internal/errors"
)

var (
	statsSel  selection
	statsSrc  source
	statsJSON bool
	statsPair []string
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Describe the per-sale distributions behind a comparison",
	Long: `Describe the sales of each municipality: value/sqft, tax/sqft and
effective rate distributions, IQR outliers, the correlation of value with
tax, a one-way ANOVA across municipalities and Welch t-tests within the
area group.

With --pair, only the t-test between the two named municipalities is shown.

Examples:
  munitax stats
  munitax stats --group eastchester_area --json
  munitax stats --pair bronxville,tuckahoe`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

func init() {
	statsSel.register(statsCmd)
	statsSrc.register(statsCmd)
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the statistics as JSON")
	statsCmd.Flags().StringSliceVar(&statsPair, "pair", nil, "two municipalities to t-test against each other")
	rootCmd.AddCommand(statsCmd)
}

// pairIDs resolves the --pair flag to two municipality ids.
func pairIDs(names []string) (string, string, error) {
	if len(names) != 2 {
		return "", "", fmt.Errorf("--pair needs exactly two municipalities, got %d", len(names))
	}
	var ids [2]string
	for i, n := range names {
		id, ok := reg.Resolve(n)
		if !ok {
			return "", "", muerrors.NotFound("municipality", n)
		}
		ids[i] = id
	}
	return ids[0], ids[1], nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	engine := newEngine()

	if len(statsPair) > 0 {
		a, b, err := pairIDs(statsPair)
		if err != nil {
			return err
		}
		set, err := statsSrc.load(cmd.Context(), []string{a, b})
		if err != nil {
			return err
		}
		p, err := engine.ComparePair(a, b, set.records)
		if err != nil {
			return err
		}
		if statsJSON {
			return writeJSON(p)
		}
		fmt.Println(engine.PairLine(p))
		return nil
	}

	ids, err := statsSel.ids()
	if err != nil {
		return err
	}
	set, err := statsSrc.load(cmd.Context(), ids)
	if err != nil {
		return err
	}
	sr, err := engine.Statistics(cmd.Context(), ids, set.records)
	if err != nil {
		return err
	}
	if statsJSON {
		return writeJSON(sr)
	}
	fmt.Printf("Sales: %s\n", set.label)
	fmt.Print(engine.StatisticsSummary(sr))
	return nil
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
