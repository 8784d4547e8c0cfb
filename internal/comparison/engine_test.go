package comparison

import (
	"context"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	muerrors "munitax/internal/errors"
	"munitax/internal/metrics"
	"munitax/internal/registry"
	"munitax/internal/tax"
	"munitax/internal/types"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func muni(id, name string, school int64) types.Municipality {
	return types.Municipality{
		ID:              id,
		Name:            name,
		Type:            types.Village,
		AssessmentRatio: decimal.NewFromInt(1),
		RateBasis:       types.PerThousand,
		Rates:           map[types.Layer]decimal.Decimal{types.LayerSchool: decimal.NewFromInt(school)},
	}
}

func newEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	reg, err := registry.New([]types.Municipality{
		muni("alpha", "Alpha", 10),
		muni("beta", "Beta", 10),
		muni("gamma", "Gamma", 20),
		muni("delta", "Delta", 5),
	})
	require.NoError(t, err)
	return New(reg, metrics.New(tax.New(reg)), opts...)
}

func sale(t *testing.T, id, addr string, sqft, price int64) types.SaleRecord {
	t.Helper()
	s, err := types.NewSaleRecord(types.SaleFields{
		Address:        addr,
		MunicipalityID: id,
		SalePrice:      decimal.NewFromInt(price),
		Sqft:           decimal.NewFromInt(sqft),
		AssessedValue:  decimal.NewFromInt(price),
	})
	require.NoError(t, err)
	return s
}

func fixtureSales(t *testing.T) []types.SaleRecord {
	return []types.SaleRecord{
		sale(t, "alpha", "1 Oak", 1500, 600000),
		sale(t, "alpha", "2 Oak", 2000, 750000),
		sale(t, "beta", "1 Elm", 1500, 600000),
		sale(t, "beta", "2 Elm", 2000, 750000),
		sale(t, "gamma", "1 Ash", 1000, 300000),
	}
}

func ids(entries []types.RankEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.MunicipalityID
	}
	return out
}

func TestGenerateReport(t *testing.T) {
	e := newEngine(t, WithMinSample(2))

	r, err := e.GenerateReport(context.Background(), []string{"delta", "gamma", "alpha", "beta"}, fixtureSales(t))
	require.NoError(t, err)

	t.Run("compared in registry order, empty excluded", func(t *testing.T) {
		var got []string
		for _, m := range r.Compared {
			got = append(got, m.MunicipalityID)
			assert.Positive(t, m.SampleSize)
		}
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, got)
		assert.Equal(t, []string{"delta"}, r.Excluded)
		_, ok := r.Metrics("delta")
		assert.False(t, ok)
		assert.Equal(t, 5, r.TotalSales)
		assert.Equal(t, []string{"gamma"}, r.LowConfidence)
	})

	t.Run("rankings keep registry order on ties", func(t *testing.T) {
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, ids(r.EfficiencyRanking))
		assert.Equal(t, []string{"alpha", "beta", "gamma"}, ids(r.ValueRanking))
		assert.Equal(t, []string{"gamma", "alpha", "beta"}, ids(r.TaxBurdenRanking))
		assert.InDelta(t, 10.0, r.EfficiencyRanking[0].Value, 1e-9)
		assert.InDelta(t, 387.5, r.ValueRanking[0].Value, 1e-9)
	})

	t.Run("insights", func(t *testing.T) {
		assert.Contains(t, r.Insights, "Beta has 22% lower tax/sqft than the average of the rest")
		assert.Contains(t, r.Insights, "Alpha has the highest home values at $388/sqft, while Gamma is lowest at $300/sqft")
		assert.Contains(t, r.Insights, "Excluded for lack of sales: delta")
	})

	t.Run("id is a v5 uuid", func(t *testing.T) {
		u, err := uuid.Parse(r.ID)
		require.NoError(t, err)
		assert.Equal(t, uuid.Version(5), u.Version())
	})
}

func TestGenerateReportReproducible(t *testing.T) {
	e := newEngine(t)
	sales := fixtureSales(t)

	first, err := e.GenerateReport(context.Background(), nil, sales)
	require.NoError(t, err)

	reversed := slices.Clone(sales)
	slices.Reverse(reversed)
	for i := 0; i < 5; i++ {
		again, err := e.GenerateReport(context.Background(), nil, reversed)
		require.NoError(t, err)
		if diff := cmp.Diff(first, again); diff != "" {
			t.Fatalf("report changed between runs (-first +again):\n%s", diff)
		}
	}

	other, err := e.GenerateReport(context.Background(), []string{"alpha", "gamma"}, sales)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)
}

func TestGenerateReportErrors(t *testing.T) {
	e := newEngine(t)

	_, err := e.GenerateReport(context.Background(), []string{"alpha", "atlantis"}, fixtureSales(t))
	assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))

	bad := fixtureSales(t)
	bad[0].Sqft = decimal.Zero
	_, err = e.GenerateReport(context.Background(), nil, bad)
	require.Error(t, err)
	assert.True(t, muerrors.IsType(err, muerrors.TypeInvalidInput))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.GenerateReport(ctx, nil, fixtureSales(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateReportNoSales(t *testing.T) {
	e := newEngine(t)
	r, err := e.GenerateReport(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, r.Compared)
	assert.Equal(t, []string{"alpha", "beta", "gamma", "delta"}, r.Excluded)
	assert.Equal(t, []string{"No valid sales data available"}, r.Insights)
}

func TestTaxScenarios(t *testing.T) {
	e := newEngine(t)
	got, err := e.TaxScenarios(decimal.NewFromInt(500000), decimal.NewFromInt(2000), nil)
	require.NoError(t, err)

	var order []string
	for _, s := range got {
		order = append(order, s.MunicipalityID)
	}
	assert.Equal(t, []string{"delta", "alpha", "beta", "gamma"}, order)
	assert.Equal(t, "2500", got[0].Annual.String())
	assert.Equal(t, "2.50", got[1].PerSqft.StringFixed(2))
	assert.Equal(t, "100", got[1].SchoolShare.String())

	_, err = e.TaxScenarios(decimal.NewFromInt(500000), decimal.Zero, nil)
	assert.True(t, muerrors.IsType(err, muerrors.TypeInvalidInput))
}

func TestValueForTaxBudget(t *testing.T) {
	e := newEngine(t)
	r, err := e.GenerateReport(context.Background(), nil, fixtureSales(t))
	require.NoError(t, err)

	got, err := e.ValueForTaxBudget(decimal.NewFromInt(5000), r)
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.Equal(t, "delta", got[0].MunicipalityID)
	assert.Equal(t, "1000000", got[0].MarketValue.String())
	assert.Zero(t, got[0].AffordableSqft)

	assert.Equal(t, "alpha", got[1].MunicipalityID)
	assert.InDelta(t, 500000/387.5, got[1].AffordableSqft, 1e-6)
	assert.Equal(t, "gamma", got[3].MunicipalityID)

	_, err = e.ValueForTaxBudget(decimal.Zero, nil)
	assert.True(t, muerrors.IsType(err, muerrors.TypeInvalidInput))
}

func TestSummary(t *testing.T) {
	e := newEngine(t)
	r, err := e.GenerateReport(context.Background(), nil, fixtureSales(t))
	require.NoError(t, err)

	out := e.Summary(r)
	assert.Contains(t, out, "Report: "+r.ID)
	assert.Contains(t, out, "3 compared, 1 excluded")
	assert.Contains(t, out, "Gamma")
	assert.Contains(t, out, "KEY INSIGHTS:")
}
