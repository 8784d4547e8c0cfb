// Package config provides configuration management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/viper"

	"munitax/internal/database"
	muerrors "munitax/internal/errors"
	"munitax/internal/logging"
)

// EnvPrefix is prepended to every environment override, e.g.
// MUNITAX_REPORT_MIN_SAMPLE.
const EnvPrefix = "MUNITAX"

// Config is the main application configuration
type Config struct {
	// Data controls where sales come from
	Data DataConfig `mapstructure:"data"`

	// Store is the local snapshot database
	Store StoreConfig `mapstructure:"store"`

	// Database is the optional Oracle assessor warehouse
	Database database.DBConfig `mapstructure:"database"`

	// Geo is the optional municipal boundary layer
	Geo GeoConfig `mapstructure:"geo"`

	// Report tunes the comparison engine
	Report ReportConfig `mapstructure:"report"`

	// Logging contains logging configuration
	Logging logging.Config `mapstructure:"logging"`
}

// DataConfig locates sale files and the municipality registry.
type DataConfig struct {
	SalesDir     string `mapstructure:"sales_dir"`
	Pattern      string `mapstructure:"pattern"`
	Delimiter    string `mapstructure:"delimiter"`
	RegistryFile string `mapstructure:"registry_file"`

	// SampleSeed and SamplePerMuni drive synthetic data when no files exist.
	SampleSeed    uint64 `mapstructure:"sample_seed"`
	SamplePerMuni int    `mapstructure:"sample_per_muni"`
}

// StoreConfig locates the SQLite snapshot file.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

// GeoConfig describes the boundary shapefile.
type GeoConfig struct {
	Boundaries string `mapstructure:"boundaries"`
	IDField    string `mapstructure:"id_field"`
	Projection string `mapstructure:"projection"`
}

// ReportConfig tunes report generation.
type ReportConfig struct {
	MinSample     int     `mapstructure:"min_sample"`
	ReferenceSqft float64 `mapstructure:"reference_sqft"`
	Workers       int     `mapstructure:"workers"`
}

// DelimiterRune returns the configured delimiter, or 0 for auto-detect.
func (d DataConfig) DelimiterRune() rune {
	switch d.Delimiter {
	case "", "auto":
		return 0
	case "tab", `\t`:
		return '\t'
	case "pipe":
		return '|'
	}
	return []rune(d.Delimiter)[0]
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()

	v.SetDefault("data.sales_dir", filepath.Join("data", "sales"))
	v.SetDefault("data.pattern", "*.csv")
	v.SetDefault("data.delimiter", "auto")
	v.SetDefault("data.registry_file", "")
	v.SetDefault("data.sample_seed", 42)
	v.SetDefault("data.sample_per_muni", 50)

	v.SetDefault("store.path", filepath.Join(home, ".munitax", "munitax.db"))

	v.SetDefault("database.host", "")
	v.SetDefault("database.port", "1522")
	v.SetDefault("database.service", "")
	v.SetDefault("database.username", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.wallet_location", "")
	v.SetDefault("database.sales_table", database.DefaultSalesTable)

	v.SetDefault("geo.boundaries", "")
	v.SetDefault("geo.id_field", "MUNI_ID")
	v.SetDefault("geo.projection", "")

	v.SetDefault("report.min_sample", 5)
	v.SetDefault("report.reference_sqft", 2000)
	v.SetDefault("report.workers", 0)

	def := logging.DefaultConfig()
	v.SetDefault("logging.level", def.Level)
	v.SetDefault("logging.format", def.Format)
	v.SetDefault("logging.output", def.Output)
	v.SetDefault("logging.development", def.Development)
}

// dbEnv maps the warehouse settings to the DB_* variables used in .env files.
var dbEnv = map[string]string{
	"database.host":            "DB_HOST",
	"database.port":            "DB_PORT",
	"database.service":         "DB_SERVICE",
	"database.username":        "DB_USERNAME",
	"database.password":        "DB_PASSWORD",
	"database.wallet_location": "DB_WALLET_LOCATION",
	"database.sales_table":     "DB_SALES_TABLE",
}

// Load reads configuration. When path is empty, munitax.yaml is searched for
// in the working directory and $HOME/.munitax; a missing file is not an
// error. Values from envFile (a dotenv file, skipped when absent) fill the
// DB_* variables that are not already set in the environment. Environment
// variables override the file.
func Load(path, envFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("munitax")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".munitax"))
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, muerrors.Config("reading config", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	dotenv, err := readDotenv(envFile)
	if err != nil {
		return nil, err
	}
	for key, env := range dbEnv {
		if val, ok := os.LookupEnv(env); ok {
			v.Set(key, val)
		} else if val, ok := dotenv[strings.ToLower(env)]; ok {
			v.Set(key, val)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, muerrors.Config("decoding config", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// readDotenv parses a dotenv file into lower-cased keys.
func readDotenv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	ev := viper.New()
	ev.SetConfigFile(path)
	ev.SetConfigType("env")
	if err := ev.ReadInConfig(); err != nil {
		return nil, muerrors.Config("reading "+path, err)
	}
	out := make(map[string]string)
	for _, k := range ev.AllKeys() {
		out[k] = ev.GetString(k)
	}
	return out, nil
}

// Validate rejects settings no command could run with.
func (c *Config) Validate() error {
	switch {
	case c.Report.MinSample < 1:
		return muerrors.Config("report.min_sample must be at least 1", nil)
	case c.Report.ReferenceSqft <= 0:
		return muerrors.Config("report.reference_sqft must be positive", nil)
	case c.Report.Workers < 0:
		return muerrors.Config("report.workers cannot be negative", nil)
	case c.Data.SamplePerMuni < 1:
		return muerrors.Config("data.sample_per_muni must be at least 1", nil)
	}
	switch c.Data.Delimiter {
	case "", "auto", "tab", `\t`, "pipe":
	default:
		if utf8.RuneCountInString(c.Data.Delimiter) != 1 {
			return muerrors.Config(fmt.Sprintf("data.delimiter %q must be one character, auto, tab or pipe", c.Data.Delimiter), nil)
		}
	}
	return nil
}
