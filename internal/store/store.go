// Package store keeps named snapshots of loaded sales, and the reports
// generated from them, in a local SQLite file.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	muerrors "munitax/internal/errors"
	"munitax/internal/types"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// insertBatch bounds rows per INSERT to stay well under SQLite's variable
// limit.
const insertBatch = 500

// Store is a SQLite-backed snapshot store.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open connects to the SQLite file at path, creating it if needed, and
// applies all pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sqlx.ConnectContext(ctx, "sqlite",
		fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path))
	if err != nil {
		return nil, muerrors.Storage("connecting to store "+path, err)
	}
	db.SetMaxOpenConns(1)

	goose.SetBaseFS(embedMigrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(string(goose.DialectSQLite3)); err != nil {
		db.Close()
		return nil, muerrors.Storage("setting dialect for migrations", err)
	}
	if err := goose.UpContext(ctx, db.DB, "migrations"); err != nil {
		db.Close()
		return nil, muerrors.Storage("applying migrations", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}
	return nil
}

// Dataset describes one saved snapshot.
type Dataset struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Synthetic bool      `db:"synthetic"`
	CreatedAt time.Time `db:"created_at"`
	Sales     int       `db:"sales"`
}

// dbSale is a sale as stored. Money and areas are kept as decimal text.
type dbSale struct {
	DatasetID      uuid.UUID `db:"dataset_id"`
	Seq            int       `db:"seq"`
	Address        string    `db:"address"`
	MunicipalityID string    `db:"municipality_id"`
	SalePrice      string    `db:"sale_price"`
	Sqft           string    `db:"sqft"`
	AssessedValue  string    `db:"assessed_value"`
	SaleDate       string    `db:"sale_date"`
	AnnualTaxes    string    `db:"annual_taxes"`
	Bedrooms       int       `db:"bedrooms"`
	Bathrooms      float64   `db:"bathrooms"`
	YearBuilt      int       `db:"year_built"`
	Source         string    `db:"source"`
}

const dateLayout = "2006-01-02"

func toDBSale(dataset uuid.UUID, seq int, r types.SaleRecord) dbSale {
	s := dbSale{
		DatasetID:      dataset,
		Seq:            seq,
		Address:        r.Address,
		MunicipalityID: r.MunicipalityID,
		SalePrice:      r.SalePrice.String(),
		Sqft:           r.Sqft.String(),
		AssessedValue:  r.AssessedValue.String(),
		AnnualTaxes:    r.AnnualTaxes.String(),
		Bedrooms:       r.Bedrooms,
		Bathrooms:      r.Bathrooms,
		YearBuilt:      r.YearBuilt,
		Source:         r.Source,
	}
	if !r.SaleDate.IsZero() {
		s.SaleDate = r.SaleDate.Format(dateLayout)
	}
	return s
}

func (s dbSale) toRecord() (types.SaleRecord, error) {
	f := types.SaleFields{
		Address:        s.Address,
		MunicipalityID: s.MunicipalityID,
		Bedrooms:       s.Bedrooms,
		Bathrooms:      s.Bathrooms,
		YearBuilt:      s.YearBuilt,
		Source:         s.Source,
	}
	var err error
	for _, col := range []struct {
		raw string
		dst *decimal.Decimal
	}{
		{s.SalePrice, &f.SalePrice},
		{s.Sqft, &f.Sqft},
		{s.AssessedValue, &f.AssessedValue},
		{s.AnnualTaxes, &f.AnnualTaxes},
	} {
		if *col.dst, err = decimal.NewFromString(col.raw); err != nil {
			return types.SaleRecord{}, muerrors.Parsing(fmt.Sprintf("stored sale %d", s.Seq), err)
		}
	}
	if s.SaleDate != "" {
		if f.SaleDate, err = time.Parse(dateLayout, s.SaleDate); err != nil {
			return types.SaleRecord{}, muerrors.Parsing(fmt.Sprintf("stored sale %d", s.Seq), err)
		}
	}
	return types.NewSaleRecord(f)
}

// SaveSales replaces the dataset called name with records, in order.
func (s *Store) SaveSales(ctx context.Context, name string, synthetic bool, records []types.SaleRecord) (uuid.UUID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.Nil, fmt.Errorf("generating uuid: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return uuid.Nil, muerrors.Storage("beginning transaction", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM sales WHERE dataset_id IN (SELECT id FROM datasets WHERE name = ?)`, name); err != nil {
		return uuid.Nil, muerrors.Storage("clearing dataset "+name, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM datasets WHERE name = ?`, name); err != nil {
		return uuid.Nil, muerrors.Storage("clearing dataset "+name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO datasets(id, name, synthetic, created_at) VALUES (?,?,?,?)`,
		id, name, synthetic, s.now().UTC()); err != nil {
		return uuid.Nil, muerrors.Storage("creating dataset "+name, err)
	}

	const insert = `INSERT INTO sales(
			dataset_id, seq, address, municipality_id, sale_price, sqft, assessed_value,
			sale_date, annual_taxes, bedrooms, bathrooms, year_built, source)
		VALUES (
			:dataset_id, :seq, :address, :municipality_id, :sale_price, :sqft, :assessed_value,
			:sale_date, :annual_taxes, :bedrooms, :bathrooms, :year_built, :source)`

	for start := 0; start < len(records); start += insertBatch {
		end := min(start+insertBatch, len(records))
		batch := make([]dbSale, 0, end-start)
		for i := start; i < end; i++ {
			batch = append(batch, toDBSale(id, i, records[i]))
		}
		if _, err := tx.NamedExecContext(ctx, insert, batch); err != nil {
			return uuid.Nil, muerrors.Storage("inserting sales", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return uuid.Nil, muerrors.Storage("committing dataset "+name, err)
	}
	return id, nil
}

// LoadSales returns the records of dataset name in their saved order.
func (s *Store) LoadSales(ctx context.Context, name string) ([]types.SaleRecord, error) {
	var datasetID uuid.UUID
	err := s.db.GetContext(ctx, &datasetID, `SELECT id FROM datasets WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, muerrors.NotFound("dataset", name)
	}
	if err != nil {
		return nil, muerrors.Storage("looking up dataset "+name, err)
	}

	var rows []dbSale
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM sales WHERE dataset_id = ? ORDER BY seq`, datasetID); err != nil {
		return nil, muerrors.Storage("reading dataset "+name, err)
	}
	out := make([]types.SaleRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := r.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// Datasets lists saved datasets by name.
func (s *Store) Datasets(ctx context.Context) ([]Dataset, error) {
	var out []Dataset
	err := s.db.SelectContext(ctx, &out, `
		SELECT d.id, d.name, d.synthetic, d.created_at, COUNT(s.seq) AS sales
		FROM datasets d LEFT JOIN sales s ON s.dataset_id = d.id
		GROUP BY d.id, d.name, d.synthetic, d.created_at
		ORDER BY d.name`)
	if err != nil {
		return nil, muerrors.Storage("listing datasets", err)
	}
	return out, nil
}

// SaveReport stores r as JSON under its id. Saving the same id again
// replaces it.
func (s *Store) SaveReport(ctx context.Context, dataset string, r *types.ComparisonReport) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding report %s: %w", r.ID, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports(id, dataset, body, created_at) VALUES (?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET dataset = excluded.dataset, body = excluded.body`,
		r.ID, dataset, string(body), s.now().UTC())
	if err != nil {
		return muerrors.Storage("saving report "+r.ID, err)
	}
	return nil
}

// LoadReport returns the report saved under id.
func (s *Store) LoadReport(ctx context.Context, id string) (*types.ComparisonReport, error) {
	var body string
	err := s.db.GetContext(ctx, &body, `SELECT body FROM reports WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, muerrors.NotFound("report", id)
	}
	if err != nil {
		return nil, muerrors.Storage("loading report "+id, err)
	}
	var r types.ComparisonReport
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return nil, muerrors.Parsing("decoding report "+id, err)
	}
	return &r, nil
}
