// Package tax computes layered property tax for a municipality.
//
// Rates are applied per the municipality's RateBasis: a rate of 900 on a
// per_1000 basis levies $900 for every $1,000 of assessed value. Each layer
// amount is rounded half-up to cents and the total is the sum of the
// rounded layers, so a breakdown always adds up exactly.
package tax

import (
	"github.com/shopspring/decimal"

	muerrors "munitax/internal/errors"
	"munitax/internal/registry"
	"munitax/internal/types"
)

// CurrencyPlaces is the precision every tax amount is rounded to.
const CurrencyPlaces = 2

// Calculator computes tax breakdowns against a registry.
type Calculator struct {
	reg *registry.Registry
}

// New returns a calculator bound to reg.
func New(reg *registry.Registry) *Calculator {
	return &Calculator{reg: reg}
}

// Registry returns the registry the calculator was built with.
func (c *Calculator) Registry() *registry.Registry {
	return c.reg
}

// Compute returns the tax breakdown for value in municipality m. When
// isAssessed is false, value is a market value and is converted with the
// municipality's assessment ratio; otherwise it is already assessed.
func (c *Calculator) Compute(value decimal.Decimal, m types.Municipality, isAssessed bool) (types.TaxBreakdown, error) {
	if !value.IsPositive() {
		return types.TaxBreakdown{}, muerrors.InvalidInput("value must be positive, got %s", value)
	}
	divisor, err := m.RateBasis.Divisor()
	if err != nil {
		return types.TaxBreakdown{}, muerrors.Config("municipality "+m.ID, err)
	}

	var market, assessed decimal.Decimal
	if isAssessed {
		assessed = value
		market, err = m.AssessedToMarket(value)
		if err != nil {
			return types.TaxBreakdown{}, muerrors.Config("municipality "+m.ID, err)
		}
	} else {
		market = value
		assessed = m.MarketToAssessed(value)
	}

	return breakdown(m, market, assessed, divisor), nil
}

func breakdown(m types.Municipality, market, assessed, divisor decimal.Decimal) types.TaxBreakdown {
	b := types.TaxBreakdown{
		MunicipalityID: m.ID,
		MarketValue:    market,
		AssessedValue:  assessed,
		RateBasis:      m.RateBasis,
		Total:          decimal.Zero,
	}
	for _, layer := range m.Layers() {
		rate := m.Rates[layer]
		amount := assessed.Mul(rate).Div(divisor).Round(CurrencyPlaces)
		b.Layers = append(b.Layers, types.LayerTax{Layer: layer, Rate: rate, Amount: amount})
		b.Total = b.Total.Add(amount)
	}
	return b
}

// ComputeByID looks up id in the registry and computes its breakdown.
func (c *Calculator) ComputeByID(value decimal.Decimal, id string, isAssessed bool) (types.TaxBreakdown, error) {
	m, err := c.reg.Get(id)
	if err != nil {
		return types.TaxBreakdown{}, err
	}
	return c.Compute(value, m, isAssessed)
}

// MonthlyEstimate is the monthly tax on a home with the given market value.
func (c *Calculator) MonthlyEstimate(marketValue decimal.Decimal, id string) (decimal.Decimal, error) {
	b, err := c.ComputeByID(marketValue, id, false)
	if err != nil {
		return decimal.Zero, err
	}
	return b.Monthly(), nil
}
