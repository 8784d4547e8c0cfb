package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	muerrors "munitax/internal/errors"
	"munitax/internal/registry"
	"munitax/internal/types"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func hilltown() types.Municipality {
	return types.Municipality{
		ID:              "hilltown",
		Name:            "Hill Town",
		Type:            types.Town,
		AssessmentRatio: d("0.0088"),
		RateBasis:       types.PerThousand,
		Rates: map[types.Layer]decimal.Decimal{
			types.LayerSchool: d("900"),
			types.LayerTown:   d("150"),
			types.LayerCounty: d("110"),
		},
	}
}

func riverside() types.Municipality {
	return types.Municipality{
		ID:              "riverside",
		Name:            "Riverside",
		Type:            types.Village,
		AssessmentRatio: d("1"),
		RateBasis:       types.PerHundred,
		Rates: map[types.Layer]decimal.Decimal{
			types.LayerSchool:  d("1.85"),
			types.LayerVillage: d("0.52"),
			types.LayerFire:    d("0.05"),
		},
	}
}

func newCalc(t *testing.T) *Calculator {
	t.Helper()
	reg, err := registry.New([]types.Municipality{hilltown(), riverside()})
	require.NoError(t, err)
	return New(reg)
}

func TestComputeMarketValue(t *testing.T) {
	calc := newCalc(t)

	b, err := calc.Compute(d("700000"), hilltown(), false)
	require.NoError(t, err)

	assert.Equal(t, "6160", b.AssessedValue.String())
	assert.Equal(t, "700000", b.MarketValue.String())

	want := map[types.Layer]string{
		types.LayerSchool: "5544",
		types.LayerTown:   "924",
		types.LayerCounty: "677.6",
	}
	for layer, amount := range want {
		got, ok := b.Amount(layer)
		require.True(t, ok, layer)
		assert.True(t, got.Equal(d(amount)), "%s: got %s", layer, got)
	}
	_, ok := b.Amount(types.LayerVillage)
	assert.False(t, ok, "unlevied layer must be absent")

	assert.True(t, b.Total.Equal(d("7145.60")), "total %s", b.Total)
	assert.Equal(t, []types.Layer{types.LayerSchool, types.LayerCounty, types.LayerTown},
		[]types.Layer{b.Layers[0].Layer, b.Layers[1].Layer, b.Layers[2].Layer})
}

func TestComputeAssessedMatchesMarket(t *testing.T) {
	calc := newCalc(t)
	m := hilltown()

	fromMarket, err := calc.Compute(d("700000"), m, false)
	require.NoError(t, err)
	fromAssessed, err := calc.Compute(m.MarketToAssessed(d("700000")), m, true)
	require.NoError(t, err)

	assert.True(t, fromMarket.Total.Equal(fromAssessed.Total))
	assert.True(t, fromAssessed.MarketValue.Equal(d("700000")))
}

func TestComputeTotalIsSumOfRoundedLayers(t *testing.T) {
	calc := newCalc(t)
	m := types.Municipality{
		ID:              "thirds",
		AssessmentRatio: d("1"),
		RateBasis:       types.PerThousand,
		Rates: map[types.Layer]decimal.Decimal{
			types.LayerSchool: d("3.333"),
			types.LayerTown:   d("3.333"),
		},
	}
	b, err := calc.Compute(d("1000"), m, false)
	require.NoError(t, err)

	sum := decimal.Zero
	for _, lt := range b.Layers {
		assert.True(t, lt.Amount.Equal(d("3.33")))
		sum = sum.Add(lt.Amount)
	}
	assert.True(t, b.Total.Equal(sum))
	assert.True(t, b.Total.Equal(d("6.66")))
}

func TestComputePerHundred(t *testing.T) {
	calc := newCalc(t)
	b, err := calc.ComputeByID(d("500000"), "riverside", false)
	require.NoError(t, err)

	school, _ := b.Amount(types.LayerSchool)
	assert.True(t, school.Equal(d("9250")))
	assert.True(t, b.Total.Equal(d("12100")), "total %s", b.Total)
	assert.Equal(t, types.PerHundred, b.RateBasis)
}

func TestComputeErrors(t *testing.T) {
	calc := newCalc(t)

	for _, v := range []string{"0", "-1"} {
		_, err := calc.Compute(d(v), hilltown(), false)
		require.Error(t, err)
		assert.True(t, muerrors.IsType(err, muerrors.TypeInvalidInput), v)
	}

	_, err := calc.ComputeByID(d("100"), "atlantis", false)
	assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))

	bad := hilltown()
	bad.RateBasis = "per_mill"
	_, err = calc.Compute(d("100"), bad, false)
	assert.True(t, muerrors.IsType(err, muerrors.TypeConfig))
}

func TestMonthlyEstimate(t *testing.T) {
	calc := newCalc(t)
	got, err := calc.MonthlyEstimate(d("700000"), "hilltown")
	require.NoError(t, err)
	assert.Equal(t, "595.47", got.StringFixed(2))
}

func TestCompareAndLowest(t *testing.T) {
	calc := newCalc(t)

	all, err := calc.Compare(d("700000"), []string{"riverside", "hilltown"})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "hilltown", all[0].MunicipalityID)
	assert.True(t, all[1].Total.Equal(d("16940")), "riverside %s", all[1].Total)

	low, err := calc.Lowest(d("700000"), nil)
	require.NoError(t, err)
	assert.Equal(t, "hilltown", low.MunicipalityID)

	_, err = calc.Compare(d("700000"), []string{"hilltown", "atlantis"})
	assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))
}

func TestImpact(t *testing.T) {
	calc := newCalc(t)
	imp, err := calc.Impact(d("700000"), "hilltown", decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, "12042.80", imp.Average.StringFixed(2))
	assert.Equal(t, "-4897.20", imp.VsAverage.StringFixed(2))
	assert.Equal(t, "3.57", imp.PerSqft.StringFixed(2))
	assert.Equal(t, "595.47", imp.Monthly.StringFixed(2))
	assert.True(t, imp.VsAveragePct.IsNegative())
}

func TestBasicSTAR(t *testing.T) {
	calc := newCalc(t)
	star, err := calc.BasicSTAR("hilltown")
	require.NoError(t, err)
	assert.Equal(t, "264", star.AssessedReduction.String())
	assert.Equal(t, "237.60", star.SchoolTaxSavings.StringFixed(2))

	_, err = calc.BasicSTAR("atlantis")
	assert.Error(t, err)
}

func TestAffordableMarketValue(t *testing.T) {
	calc := newCalc(t)

	v, err := calc.AffordableMarketValue(d("7145.60"), hilltown())
	require.NoError(t, err)
	assert.Equal(t, "700000", v.String())

	_, err = calc.AffordableMarketValue(decimal.Zero, hilltown())
	assert.True(t, muerrors.IsType(err, muerrors.TypeInvalidInput))
}
