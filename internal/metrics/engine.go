// Package metrics turns sale records into per-square-foot value and tax
// statistics for one municipality.
package metrics

import (
	"github.com/shopspring/decimal"

	muerrors "munitax/internal/errors"
	"munitax/internal/types"
)

// Computer is the part of the tax calculator the engine needs.
type Computer interface {
	Compute(value decimal.Decimal, m types.Municipality, isAssessed bool) (types.TaxBreakdown, error)
}

// Engine computes municipality metrics. It holds no mutable state and is
// safe for concurrent use.
type Engine struct {
	calc Computer
}

// New returns an engine that prices sales with calc.
func New(calc Computer) *Engine {
	return &Engine{calc: calc}
}

// EfficiencyRatio is tax per sqft for every $1,000 of value per sqft.
func EfficiencyRatio(taxPerSqft, valuePerSqft float64) (float64, error) {
	if valuePerSqft <= 0 {
		return 0, muerrors.InvalidInput("value per sqft must be positive, got %g", valuePerSqft)
	}
	return taxPerSqft / valuePerSqft * 1000, nil
}

type saleFigures struct {
	valuePerSqft  float64
	taxPerSqft    float64
	effectiveRate float64
	price         float64
	sqft          float64
	tax           types.TaxBreakdown
}

func (e *Engine) figures(s types.SaleRecord, m types.Municipality) (saleFigures, error) {
	if !s.Sqft.IsPositive() {
		return saleFigures{}, muerrors.InvalidInput("sale %s: sqft must be positive, got %s", s.Address, s.Sqft)
	}
	if !s.SalePrice.IsPositive() {
		return saleFigures{}, muerrors.InvalidInput("sale %s: sale price must be positive, got %s", s.Address, s.SalePrice)
	}
	b, err := e.calc.Compute(s.AssessedValue, m, true)
	if err != nil {
		return saleFigures{}, err
	}
	return saleFigures{
		valuePerSqft:  s.SalePrice.Div(s.Sqft).InexactFloat64(),
		taxPerSqft:    b.Total.Div(s.Sqft).InexactFloat64(),
		effectiveRate: b.Total.Div(s.SalePrice).Mul(decimal.NewFromInt(100)).InexactFloat64(),
		price:         s.SalePrice.InexactFloat64(),
		sqft:          s.Sqft.InexactFloat64(),
		tax:           b,
	}, nil
}

// ComputeMetrics aggregates the sales of m. Sales for other municipalities
// are ignored; if none remain the result is an InsufficientData error.
func (e *Engine) ComputeMetrics(sales []types.SaleRecord, m types.Municipality) (*types.MunicipalityMetrics, error) {
	var vps, tps, eff, price, sqft []float64
	for _, s := range sales {
		if s.MunicipalityID != m.ID {
			continue
		}
		f, err := e.figures(s, m)
		if err != nil {
			return nil, err
		}
		vps = append(vps, f.valuePerSqft)
		tps = append(tps, f.taxPerSqft)
		eff = append(eff, f.effectiveRate)
		price = append(price, f.price)
		sqft = append(sqft, f.sqft)
	}
	if len(vps) == 0 {
		return nil, muerrors.InsufficientData(m.ID)
	}

	out := &types.MunicipalityMetrics{
		MunicipalityID:      m.ID,
		Name:                m.Name,
		SampleSize:          len(vps),
		ValuePerSqftMedian:  Median(vps),
		ValuePerSqftMean:    Mean(vps),
		ValuePerSqftStd:     StdDev(vps),
		TaxPerSqftMedian:    Median(tps),
		TaxPerSqftMean:      Mean(tps),
		TaxPerSqftStd:       StdDev(tps),
		EffectiveRateMean:   Mean(eff),
		EffectiveRateMedian: Median(eff),
		SalePriceMedian:     Median(price),
		SalePriceMean:       Mean(price),
		SqftMedian:          Median(sqft),
	}
	out.ValuePerSqftMin, out.ValuePerSqftMax = MinMax(vps)

	ratio, err := EfficiencyRatio(out.TaxPerSqftMedian, out.ValuePerSqftMedian)
	if err != nil {
		return nil, err
	}
	out.EfficiencyRatio = ratio
	return out, nil
}

// PropertyMetrics is the per-sale drill-down for s priced in m.
func (e *Engine) PropertyMetrics(s types.SaleRecord, m types.Municipality) (types.PropertyMetrics, error) {
	if s.MunicipalityID != m.ID {
		return types.PropertyMetrics{}, muerrors.InvalidInput("sale %s belongs to %s, not %s", s.Address, s.MunicipalityID, m.ID)
	}
	f, err := e.figures(s, m)
	if err != nil {
		return types.PropertyMetrics{}, err
	}
	ratio, err := EfficiencyRatio(f.taxPerSqft, f.valuePerSqft)
	if err != nil {
		return types.PropertyMetrics{}, err
	}
	return types.PropertyMetrics{
		MunicipalityID:  m.ID,
		Address:         s.Address,
		MarketValue:     f.price,
		Sqft:            f.sqft,
		ValuePerSqft:    f.valuePerSqft,
		AnnualTax:       f.tax.Total.InexactFloat64(),
		TaxPerSqft:      f.taxPerSqft,
		EffectiveRate:   f.effectiveRate,
		EfficiencyRatio: ratio,
		Breakdown:       f.tax,
	}, nil
}
