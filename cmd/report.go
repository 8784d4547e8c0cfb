package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"munitax/internal/logging"
	"munitax/internal/types"
)

var (
	reportSel    selection
	reportSrc    source
	reportJSON   bool
	reportSave   bool
	reportWatch  bool
	reportLoadID string
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Rank municipalities by tax efficiency, value and tax burden",
	Long: `Aggregate sales per municipality and print the comparison report.

Municipalities without sales are excluded and listed. The report id is a
hash of the municipalities and sales, so the same inputs always give the
same id.

Examples:
  munitax report
  munitax report --group eastchester_area
  munitax report --dataset spring-2025 --json
  munitax report --watch`,
	Args: cobra.NoArgs,
	RunE: runReport,
}

func init() {
	reportSel.register(reportCmd)
	reportSrc.register(reportCmd)
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print the report as JSON")
	reportCmd.Flags().BoolVar(&reportSave, "save", false, "save the report in the snapshot store")
	reportCmd.Flags().BoolVarP(&reportWatch, "watch", "w", false, "regenerate when files in the sales directory change")
	reportCmd.Flags().StringVar(&reportLoadID, "id", "", "print a previously saved report")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if reportLoadID != "" {
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		r, err := st.LoadReport(ctx, reportLoadID)
		if err != nil {
			return err
		}
		return printReport(r)
	}

	ids, err := reportSel.ids()
	if err != nil {
		return err
	}
	if err := generateAndPrint(ctx, ids); err != nil {
		return err
	}
	if !reportWatch {
		return nil
	}
	if reportSrc.dataset != "" || reportSrc.fromDB {
		return fmt.Errorf("--watch only applies to a sales directory")
	}
	return watchSales(ctx, ids)
}

func generateAndPrint(ctx context.Context, ids []string) error {
	set, err := reportSrc.load(ctx, ids)
	if err != nil {
		return err
	}
	r, err := newEngine().GenerateReport(ctx, ids, set.records)
	if err != nil {
		return err
	}
	if reportSave {
		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()
		if err := st.SaveReport(ctx, set.label, r); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved report %s\n", r.ID)
	}
	return printReport(r)
}

func printReport(r *types.ComparisonReport) error {
	if reportJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}
	fmt.Print(newEngine().Summary(r))
	return nil
}

// watchSales regenerates the report whenever a matching file in the sales
// directory is written, created or removed. Bursts of events within half a
// second produce one report.
func watchSales(ctx context.Context, ids []string) error {
	dir := reportSrc.dir
	if dir == "" {
		dir = cfg.Data.SalesDir
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	fmt.Fprintf(os.Stderr, "Watching %s for %s (Ctrl-C to stop)\n", dir, cfg.Data.Pattern)

	const settle = 500 * time.Millisecond
	timer := time.NewTimer(settle)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if match, _ := filepath.Match(cfg.Data.Pattern, filepath.Base(ev.Name)); !match {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				logger.Debug("sales file changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
				timer.Reset(settle)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logging.Sugar.Warnw("watch error", "dir", dir, "error", err)
		case <-timer.C:
			logging.Sugar.Infow("regenerating report", "dir", dir, "pattern", cfg.Data.Pattern)
			fmt.Println()
			if err := generateAndPrint(ctx, ids); err != nil {
				fmt.Fprintf(os.Stderr, "%sError:%s %v\n", colorRed, colorReset, err)
			}
		}
	}
}
