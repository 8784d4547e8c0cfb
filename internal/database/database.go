package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"

	muerrors "munitax/internal/errors"
	"munitax/internal/logging"
	"munitax/internal/registry"
	"munitax/internal/types"
)

// DefaultSalesTable is the assessor warehouse view read by QuerySales.
const DefaultSalesTable = "RESIDENTIAL_SALES"

// dsn builds a properly encoded connection string for Oracle Autonomous Database
func dsn(username, password, host, port, service string, walletLocation string) string {
	query := "ssl=true" // ADB requires TCPS on 1522
	if walletLocation != "" {
		// wallet-based mTLS
		query += "&wallet_location=" + url.QueryEscape(walletLocation)
	}
	return (&url.URL{
		Scheme:   "oracle",
		User:     url.UserPassword(username, password), // escapes automatically
		Host:     host + ":" + port,
		Path:     "/" + service, // keep full service name
		RawQuery: query,
	}).String()
}

// DBConfig holds database connection configuration
type DBConfig struct {
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port"`
	Service        string `mapstructure:"service"`
	Username       string `mapstructure:"username"`
	Password       string `mapstructure:"password"`
	WalletLocation string `mapstructure:"wallet_location"`
	SalesTable     string `mapstructure:"sales_table"`
}

// Enabled reports whether enough is configured to attempt a connection.
func (c DBConfig) Enabled() bool {
	return c.Host != "" && c.Username != ""
}

// Database holds the database connection and configuration
type Database struct {
	db     *sql.DB
	config DBConfig
	logger *zap.Logger
}

// NewDatabase opens and pings the warehouse. The ping is bounded to ten
// seconds.
func NewDatabase(ctx context.Context, config DBConfig, logger *zap.Logger) (*Database, error) {
	logger = logging.OrNop(logger)
	if config.SalesTable == "" {
		config.SalesTable = DefaultSalesTable
	}
	if !validIdent.MatchString(config.SalesTable) {
		return nil, muerrors.Config(fmt.Sprintf("invalid sales table name %q", config.SalesTable), nil)
	}

	connStr := dsn(config.Username, config.Password, config.Host, config.Port, config.Service, config.WalletLocation)
	logger.Info("connecting to Oracle",
		zap.String("host", config.Host),
		zap.String("service", config.Service),
		zap.Bool("wallet", config.WalletLocation != ""),
	)

	db, err := sql.Open("oracle", connStr)
	if err != nil {
		return nil, muerrors.Storage("failed to open database connection", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, muerrors.Storage("failed to ping database", err)
	}

	return &Database{
		db:     db,
		config: config,
		logger: logger,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

var validIdent = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]*(\.[A-Za-z][A-Za-z0-9_$#]*)?$`)

func salesQuery(table string) string {
	return `
		SELECT
			Address, Municipality, Sale_Price, Living_Area, Assessed_Value,
			Sale_Date, Annual_Taxes, Num_Bedrooms, Num_Bathrooms, Year_Built
		FROM ` + table + `
		WHERE Sale_Price > 0 AND Living_Area > 0
		ORDER BY Municipality, Sale_Date, Address`
}

// saleRow is one warehouse row as scanned. Numbers arrive as text so that
// decimals keep their exact value.
type saleRow struct {
	Address       sql.NullString
	Municipality  sql.NullString
	SalePrice     sql.NullString
	LivingArea    sql.NullString
	AssessedValue sql.NullString
	SaleDate      sql.NullTime
	AnnualTaxes   sql.NullString
	Bedrooms      sql.NullInt64
	Bathrooms     sql.NullFloat64
	YearBuilt     sql.NullInt64
}

func parseNumber(s sql.NullString) decimal.Decimal {
	if !s.Valid {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(strings.TrimSpace(s.String))
	if err != nil {
		return decimal.Zero
	}
	return v
}

// toRecord validates the row as a sale of municipality id. A missing
// assessed value is derived from the sale price.
func (r saleRow) toRecord(reg *registry.Registry, id string) (types.SaleRecord, error) {
	price := parseNumber(r.SalePrice)
	assessed := parseNumber(r.AssessedValue)
	if !assessed.IsPositive() {
		m, err := reg.Get(id)
		if err != nil {
			return types.SaleRecord{}, err
		}
		assessed = m.MarketToAssessed(price).Round(2)
	}
	return types.NewSaleRecord(types.SaleFields{
		Address:        r.Address.String,
		MunicipalityID: id,
		SalePrice:      price,
		Sqft:           parseNumber(r.LivingArea),
		AssessedValue:  assessed,
		SaleDate:       r.SaleDate.Time,
		AnnualTaxes:    parseNumber(r.AnnualTaxes),
		Bedrooms:       int(r.Bedrooms.Int64),
		Bathrooms:      r.Bathrooms.Float64,
		YearBuilt:      int(r.YearBuilt.Int64),
		Source:         "oracle",
	})
}

// selectSales keeps the rows of the municipalities in ids (all when empty)
// and converts them. Rows of other municipalities are dropped before
// validation, so skipped only counts rejected rows that were asked for. With
// no ids, a row whose municipality is not registered is rejected.
func selectSales(rows []saleRow, reg *registry.Registry, ids []string, logger *zap.Logger) ([]types.SaleRecord, int) {
	var (
		sales   []types.SaleRecord
		skipped int
	)
	for _, r := range rows {
		id, ok := reg.Resolve(r.Municipality.String)
		if len(ids) > 0 && (!ok || !slices.Contains(ids, id)) {
			continue
		}
		if !ok {
			skipped++
			logger.Warn("skipping warehouse row", zap.String("address", r.Address.String),
				zap.Error(muerrors.NotFound("municipality", r.Municipality.String)))
			continue
		}
		rec, err := r.toRecord(reg, id)
		if err != nil {
			skipped++
			logger.Warn("skipping warehouse row", zap.String("address", r.Address.String), zap.Error(err))
			continue
		}
		sales = append(sales, rec)
	}
	return sales, skipped
}

// QuerySales reads every valid sale for the municipalities in ids (all when
// empty). Rows that fail validation are skipped and counted.
func (d *Database) QuerySales(ctx context.Context, reg *registry.Registry, ids []string) ([]types.SaleRecord, int, error) {
	rows, err := d.db.QueryContext(ctx, salesQuery(d.config.SalesTable))
	if err != nil {
		return nil, 0, muerrors.Storage("failed to query sales", err)
	}
	defer rows.Close()

	var scanned []saleRow
	for rows.Next() {
		var r saleRow
		if err := rows.Scan(
			&r.Address, &r.Municipality, &r.SalePrice, &r.LivingArea, &r.AssessedValue,
			&r.SaleDate, &r.AnnualTaxes, &r.Bedrooms, &r.Bathrooms, &r.YearBuilt,
		); err != nil {
			return nil, 0, muerrors.Storage("failed to scan sale", err)
		}
		scanned = append(scanned, r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, muerrors.Storage("failed to read sales", err)
	}
	sales, skipped := selectSales(scanned, reg, ids, d.logger)
	return sales, skipped, nil
}
