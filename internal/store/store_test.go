package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	muerrors "munitax/internal/errors"
	"munitax/internal/types"
)

func setupTestDB(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sale(t *testing.T, addr, muni string, price, sqft int64) types.SaleRecord {
	t.Helper()
	rec, err := types.NewSaleRecord(types.SaleFields{
		Address:        addr,
		MunicipalityID: muni,
		SalePrice:      decimal.NewFromInt(price),
		Sqft:           decimal.NewFromInt(sqft),
		AssessedValue:  decimal.RequireFromString("6160.5"),
		SaleDate:       time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		AnnualTaxes:    decimal.RequireFromString("7145.60"),
		Bedrooms:       3,
		Bathrooms:      2.5,
		YearBuilt:      1952,
		Source:         "csv",
	})
	require.NoError(t, err)
	return rec
}

func TestSaveAndLoadSales(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	records := []types.SaleRecord{
		sale(t, "12 Elm St", "rye", 1200000, 2400),
		sale(t, "3 Oak Ln", "scarsdale", 1850000, 3100),
	}
	undated := sale(t, "9 Pine Ct", "rye", 900000, 1800)
	undated.SaleDate = time.Time{}
	records = append(records, undated)

	id, err := s.SaveSales(ctx, "spring", false, records)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, id)

	got, err := s.LoadSales(ctx, "spring")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range records {
		assert.Equal(t, records[i].Address, got[i].Address)
		assert.Equal(t, records[i].MunicipalityID, got[i].MunicipalityID)
		assert.True(t, records[i].SalePrice.Equal(got[i].SalePrice))
		assert.True(t, records[i].AssessedValue.Equal(got[i].AssessedValue))
		assert.True(t, records[i].AnnualTaxes.Equal(got[i].AnnualTaxes))
		assert.True(t, records[i].SaleDate.Equal(got[i].SaleDate))
		assert.Equal(t, records[i].Bathrooms, got[i].Bathrooms)
	}
	assert.True(t, got[2].SaleDate.IsZero())
}

func TestSaveSalesReplaces(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	_, err := s.SaveSales(ctx, "q1", false, []types.SaleRecord{
		sale(t, "1 A St", "rye", 1000000, 2000),
		sale(t, "2 B St", "rye", 1100000, 2100),
	})
	require.NoError(t, err)
	_, err = s.SaveSales(ctx, "q1", true, []types.SaleRecord{sale(t, "3 C St", "harrison", 950000, 1900)})
	require.NoError(t, err)

	got, err := s.LoadSales(ctx, "q1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "3 C St", got[0].Address)

	sets, err := s.Datasets(ctx)
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, "q1", sets[0].Name)
	assert.True(t, sets[0].Synthetic)
	assert.Equal(t, 1, sets[0].Sales)
}

func TestSaveSalesBatches(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	records := make([]types.SaleRecord, 0, insertBatch+7)
	for i := 0; i < insertBatch+7; i++ {
		records = append(records, sale(t, "house", "rye", int64(800000+i), 2000))
	}
	_, err := s.SaveSales(ctx, "bulk", false, records)
	require.NoError(t, err)

	got, err := s.LoadSales(ctx, "bulk")
	require.NoError(t, err)
	require.Len(t, got, len(records))
	assert.Equal(t, "800000", got[0].SalePrice.String())
	assert.Equal(t, "800506", got[len(got)-1].SalePrice.String())
}

func TestDatasetsEmpty(t *testing.T) {
	s := setupTestDB(t)
	_, err := s.SaveSales(context.Background(), "empty", false, nil)
	require.NoError(t, err)

	sets, err := s.Datasets(context.Background())
	require.NoError(t, err)
	require.Len(t, sets, 1)
	assert.Equal(t, 0, sets[0].Sales)
}

func TestLoadSalesUnknown(t *testing.T) {
	s := setupTestDB(t)
	_, err := s.LoadSales(context.Background(), "nope")
	assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))
}

func TestReports(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	r := &types.ComparisonReport{
		ID: "5f1c",
		Compared: []types.MunicipalityMetrics{
			{MunicipalityID: "rye", Name: "City of Rye", SampleSize: 2, EfficiencyRatio: 11.5},
		},
		Excluded:          []string{"pelham"},
		TotalSales:        2,
		EfficiencyRanking: []types.RankEntry{{MunicipalityID: "rye", Value: 11.5}},
		Insights:          []string{"City of Rye has the highest median value/sqft"},
	}
	require.NoError(t, s.SaveReport(ctx, "spring", r))

	r.Insights = append(r.Insights, "second save")
	require.NoError(t, s.SaveReport(ctx, "spring", r))

	got, err := s.LoadReport(ctx, "5f1c")
	require.NoError(t, err)
	assert.Equal(t, r, got)

	_, err = s.LoadReport(ctx, "missing")
	assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))
}
