// Command munitax compares property tax burden and home value across
// municipalities.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"munitax/internal/comparison"
	"munitax/internal/config"
	"munitax/internal/database"
	muerrors "munitax/internal/errors"
	"munitax/internal/geo"
	"munitax/internal/loader"
	"munitax/internal/logging"
	"munitax/internal/metrics"
	"munitax/internal/registry"
	"munitax/internal/store"
	"munitax/internal/tax"
	"munitax/internal/types"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	colorRed   = "\033[31m"
	colorGreen = "\033[32m"
	colorReset = "\033[0m"
)

var (
	cfgFile string
	envFile string
	verbose bool

	// set by initApp
	cfg    *config.Config
	logger *zap.Logger
	reg    *registry.Registry
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "munitax",
	Short: "Compare property taxes and home values across municipalities",
	Long: `munitax prices property tax layer by layer for each municipality in its
registry, aggregates recent residential sales into per-square-foot metrics,
and ranks municipalities by how much home value each tax dollar buys.

Examples:
  munitax report
  munitax report --group comparison --save
  munitax calc 850000 --muni scarsdale --compare
  munitax scenarios --value 1200000 --sqft 2400
  munitax afford 20000`,
	SilenceUsage:      true,
	PersistentPreRunE: initApp,
	PersistentPostRun: func(*cobra.Command, []string) { logging.Sync() },
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./munitax.yaml or $HOME/.munitax/munitax.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file with DB_* warehouse settings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(versionCmd)
}

func initApp(cmd *cobra.Command, _ []string) error {
	var err error
	cfg, err = config.Load(cfgFile, envFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Initialize(cfg.Logging); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	logger = logging.Logger

	if cfg.Data.RegistryFile != "" {
		reg, err = registry.LoadFile(cfg.Data.RegistryFile)
		if err != nil {
			return err
		}
		logger.Debug("loaded registry", zap.String("file", cfg.Data.RegistryFile), zap.Int("municipalities", reg.Len()))
	} else {
		reg = registry.Default()
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%sError:%s %v\n", colorRed, colorReset, err)
		os.Exit(1)
	}
}

// versionCmd prints version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("munitax version %s\n", version)
	},
}

// ---------------- shared command plumbing ----------------

// selection holds the flags that choose municipalities.
type selection struct {
	munis []string
	group string
}

func (s *selection) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVarP(&s.munis, "muni", "m", nil, "municipality ids or names (repeatable; default all)")
	cmd.Flags().StringVarP(&s.group, "group", "g", "", "named municipality group")
}

// ids resolves the selection against the registry. Names are accepted
// anywhere an id is.
func (s *selection) ids() ([]string, error) {
	var ids []string
	if s.group != "" {
		g, err := reg.Group(s.group)
		if err != nil {
			return nil, err
		}
		ids = append(ids, g...)
	}
	for _, m := range s.munis {
		id, ok := reg.Resolve(m)
		if !ok {
			return nil, muerrors.NotFound("municipality", m)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return reg.Ordered(ids)
}

// source holds the flags that choose where sales come from.
type source struct {
	dataset string
	fromDB  bool
	dir     string
}

func (s *source) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.dataset, "dataset", "d", "", "read sales from a saved snapshot")
	cmd.Flags().BoolVar(&s.fromDB, "from-db", false, "read sales from the assessor warehouse")
	cmd.Flags().StringVar(&s.dir, "dir", "", "sales directory (default from config)")
}

// salesSet is a loaded set of sales and a label describing where it came from.
type salesSet struct {
	records   []types.SaleRecord
	label     string
	synthetic bool
}

// load reads sales for ids. Files are the default; when the sales directory
// has none, a seeded synthetic sample stands in.
func (s *source) load(ctx context.Context, ids []string) (*salesSet, error) {
	switch {
	case s.dataset != "":
		st, err := openStore(ctx)
		if err != nil {
			return nil, err
		}
		defer st.Close()
		recs, err := st.LoadSales(ctx, s.dataset)
		if err != nil {
			return nil, err
		}
		return &salesSet{records: recs, label: s.dataset}, nil

	case s.fromDB:
		if !cfg.Database.Enabled() {
			return nil, fmt.Errorf("warehouse not configured: set DB_HOST and DB_USERNAME")
		}
		db, err := database.NewDatabase(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		defer db.Close()
		recs, skipped, err := db.QuerySales(ctx, reg, ids)
		if err != nil {
			return nil, err
		}
		if skipped > 0 {
			fmt.Fprintf(os.Stderr, "Warning: skipped %d warehouse rows\n", skipped)
		}
		return &salesSet{records: recs, label: "warehouse"}, nil
	}

	dir := s.dir
	if dir == "" {
		dir = cfg.Data.SalesDir
	}
	ld, err := newLoader()
	if err != nil {
		return nil, err
	}
	res, err := ld.LoadOrSample(dir, cfg.Data.Pattern, ids, cfg.Data.SamplePerMuni, cfg.Data.SampleSeed)
	if err != nil {
		return nil, err
	}
	if res.Skipped > 0 {
		fmt.Fprintf(os.Stderr, "Warning: skipped %d rows in %s\n", res.Skipped, strings.Join(res.Files, ", "))
	}
	label := dir
	if res.Synthetic {
		label = fmt.Sprintf("synthetic sample (seed %d)", cfg.Data.SampleSeed)
		fmt.Fprintf(os.Stderr, "No sales files in %s; using a %s\n", dir, label)
	}
	return &salesSet{records: res.Records, label: label, synthetic: res.Synthetic}, nil
}

func newLoader() (*loader.Loader, error) {
	opts := []loader.Option{
		loader.WithLogger(logger),
		loader.WithDelimiter(cfg.Data.DelimiterRune()),
	}
	b, err := loadBoundaries()
	if err != nil {
		return nil, err
	}
	if b != nil {
		opts = append(opts, loader.WithLocator(b))
	}
	return loader.New(reg, opts...), nil
}

// loadBoundaries returns the configured boundary layer, or nil when none is
// configured.
func loadBoundaries() (*geo.Boundaries, error) {
	if cfg.Geo.Boundaries == "" {
		return nil, nil
	}
	proj, err := geo.ProjectionByName(cfg.Geo.Projection)
	if err != nil {
		return nil, err
	}
	b, err := geo.LoadBoundaries(cfg.Geo.Boundaries, cfg.Geo.IDField, proj)
	if err != nil {
		return nil, err
	}
	logger.Debug("loaded boundaries", zap.String("file", cfg.Geo.Boundaries), zap.Int("polygons", b.Len()))
	return b, nil
}

func openStore(ctx context.Context) (*store.Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Store.Path), 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}
	return store.Open(ctx, cfg.Store.Path)
}

func newEngine() *comparison.Engine {
	return comparison.New(reg, metrics.New(tax.New(reg)),
		comparison.WithLogger(logger),
		comparison.WithMinSample(cfg.Report.MinSample),
		comparison.WithReferenceSqft(cfg.Report.ReferenceSqft),
		comparison.WithWorkers(cfg.Report.Workers),
	)
}
