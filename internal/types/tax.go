package types

import "github.com/shopspring/decimal"

// LayerTax is the tax levied by one layer.
type LayerTax struct {
	Layer  Layer           `json:"layer"`
	Rate   decimal.Decimal `json:"rate"`
	Amount decimal.Decimal `json:"amount"`
}

// TaxBreakdown is the annual tax on one property, layer by layer. Layers the
// municipality does not levy have no entry. Total is the sum of the
// cent-rounded layer amounts.
type TaxBreakdown struct {
	MunicipalityID string          `json:"municipality_id"`
	MarketValue    decimal.Decimal `json:"market_value"`
	AssessedValue  decimal.Decimal `json:"assessed_value"`
	RateBasis      RateBasis       `json:"rate_basis"`
	Layers         []LayerTax      `json:"layers"`
	Total          decimal.Decimal `json:"total"`
}

// Amount returns the tax for layer l and whether the layer is levied.
func (b TaxBreakdown) Amount(l Layer) (decimal.Decimal, bool) {
	for _, lt := range b.Layers {
		if lt.Layer == l {
			return lt.Amount, true
		}
	}
	return decimal.Zero, false
}

// EffectiveRate is the total tax as a percentage of market value.
func (b TaxBreakdown) EffectiveRate() decimal.Decimal {
	if !b.MarketValue.IsPositive() {
		return decimal.Zero
	}
	return b.Total.Div(b.MarketValue).Mul(decimal.NewFromInt(100))
}

// LayerShare is layer l as a percentage of the total.
func (b TaxBreakdown) LayerShare(l Layer) decimal.Decimal {
	amt, ok := b.Amount(l)
	if !ok || !b.Total.IsPositive() {
		return decimal.Zero
	}
	return amt.Div(b.Total).Mul(decimal.NewFromInt(100))
}

// Monthly is the total spread over twelve payments, rounded to cents.
func (b TaxBreakdown) Monthly() decimal.Decimal {
	return b.Total.Div(decimal.NewFromInt(12)).Round(2)
}
