package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var (
	importSel selection
	importSrc source
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import NAME",
	Short: "Snapshot loaded sales into the local store",
	Long: `Load sales from the sales directory or the assessor warehouse and save
them in the snapshot store under NAME, replacing any dataset of that name.
Saved datasets can then be reported on with --dataset NAME.

Examples:
  munitax import spring-2025
  munitax import warehouse-q3 --from-db --group comparison`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

// datasetsCmd represents the datasets command
var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List saved sales snapshots",
	Args:  cobra.NoArgs,
	RunE:  runDatasets,
}

func init() {
	importSel.register(importCmd)
	importSrc.register(importCmd)
	rootCmd.AddCommand(importCmd, datasetsCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	name := strings.TrimSpace(args[0])
	if name == "" {
		return fmt.Errorf("dataset name is required")
	}
	if importSrc.dataset != "" {
		return fmt.Errorf("--dataset cannot be the source of an import")
	}
	ids, err := importSel.ids()
	if err != nil {
		return err
	}
	set, err := importSrc.load(cmd.Context(), ids)
	if err != nil {
		return err
	}

	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()
	id, err := st.SaveSales(cmd.Context(), name, set.synthetic, set.records)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %s sales from %s as %q (%s)\n", humanize.Comma(int64(len(set.records))), set.label, name, id)
	return nil
}

func runDatasets(cmd *cobra.Command, _ []string) error {
	st, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer st.Close()
	sets, err := st.Datasets(cmd.Context())
	if err != nil {
		return err
	}
	if len(sets) == 0 {
		fmt.Println("No saved datasets. Create one with: munitax import NAME")
		return nil
	}
	for _, d := range sets {
		kind := ""
		if d.Synthetic {
			kind = " (synthetic)"
		}
		fmt.Printf("  %-24s %8s sales  saved %s%s\n", d.Name, humanize.Comma(int64(d.Sales)), humanize.Time(d.CreatedAt), kind)
	}
	return nil
}
