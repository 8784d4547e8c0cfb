package tax

import (
	"github.com/shopspring/decimal"

	muerrors "munitax/internal/errors"
	"munitax/internal/types"
)

// ReferenceSqft is the home size used for per-sqft figures when no actual
// square footage is known.
const ReferenceSqft = 2000

// BasicSTARMarketExemption is the market-value equivalent of the Basic STAR
// school tax exemption.
var BasicSTARMarketExemption = decimal.NewFromInt(30000)

// Compare computes the breakdown for the same market value in each
// municipality. An empty ids list means every registered municipality.
// Results are in registry order.
func (c *Calculator) Compare(marketValue decimal.Decimal, ids []string) ([]types.TaxBreakdown, error) {
	if len(ids) == 0 {
		ids = c.reg.IDs()
	}
	ordered, err := c.reg.Ordered(ids)
	if err != nil {
		return nil, err
	}
	out := make([]types.TaxBreakdown, 0, len(ordered))
	for _, id := range ordered {
		b, err := c.ComputeByID(marketValue, id, false)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// Lowest returns the breakdown with the smallest total. Ties go to the
// municipality that comes first in registry order.
func (c *Calculator) Lowest(marketValue decimal.Decimal, ids []string) (types.TaxBreakdown, error) {
	all, err := c.Compare(marketValue, ids)
	if err != nil {
		return types.TaxBreakdown{}, err
	}
	if len(all) == 0 {
		return types.TaxBreakdown{}, muerrors.InvalidInput("no municipalities to compare")
	}
	best := all[0]
	for _, b := range all[1:] {
		if b.Total.LessThan(best.Total) {
			best = b
		}
	}
	return best, nil
}

// Impact describes one municipality's tax on a home against the average of
// every registered municipality.
type Impact struct {
	Breakdown    types.TaxBreakdown
	Monthly      decimal.Decimal
	PerSqft      decimal.Decimal
	Average      decimal.Decimal
	VsAverage    decimal.Decimal
	VsAveragePct decimal.Decimal
}

// Impact computes the tax impact of a home with the given market value in
// municipality id. sqft ≤ 0 uses ReferenceSqft.
func (c *Calculator) Impact(marketValue decimal.Decimal, id string, sqft decimal.Decimal) (Impact, error) {
	b, err := c.ComputeByID(marketValue, id, false)
	if err != nil {
		return Impact{}, err
	}
	all, err := c.Compare(marketValue, nil)
	if err != nil {
		return Impact{}, err
	}

	sum := decimal.Zero
	for _, other := range all {
		sum = sum.Add(other.Total)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(all)))).Round(CurrencyPlaces)

	if !sqft.IsPositive() {
		sqft = decimal.NewFromInt(ReferenceSqft)
	}

	imp := Impact{
		Breakdown: b,
		Monthly:   b.Monthly(),
		PerSqft:   b.Total.Div(sqft).Round(CurrencyPlaces),
		Average:   avg,
		VsAverage: b.Total.Sub(avg),
	}
	if avg.IsPositive() {
		imp.VsAveragePct = b.Total.Div(avg).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).Round(CurrencyPlaces)
	}
	return imp, nil
}

// STARExemption is the school-tax relief for an owner-occupied residence.
type STARExemption struct {
	Kind              string
	AssessedReduction decimal.Decimal
	SchoolTaxSavings  decimal.Decimal
}

// BasicSTAR estimates the Basic STAR exemption for municipality id: the
// market-value exemption is converted to assessed value and priced at the
// school rate.
func (c *Calculator) BasicSTAR(id string) (STARExemption, error) {
	m, err := c.reg.Get(id)
	if err != nil {
		return STARExemption{}, err
	}
	divisor, err := m.RateBasis.Divisor()
	if err != nil {
		return STARExemption{}, muerrors.Config("municipality "+m.ID, err)
	}
	reduction := m.MarketToAssessed(BasicSTARMarketExemption)
	savings := reduction.Mul(m.Rates[types.LayerSchool]).Div(divisor).Round(CurrencyPlaces)
	return STARExemption{
		Kind:              "basic",
		AssessedReduction: reduction,
		SchoolTaxSavings:  savings,
	}, nil
}

// AffordableMarketValue is the market value whose annual tax in m equals
// budget, ignoring cent rounding.
func (c *Calculator) AffordableMarketValue(budget decimal.Decimal, m types.Municipality) (decimal.Decimal, error) {
	if !budget.IsPositive() {
		return decimal.Zero, muerrors.InvalidInput("tax budget must be positive, got %s", budget)
	}
	divisor, err := m.RateBasis.Divisor()
	if err != nil {
		return decimal.Zero, muerrors.Config("municipality "+m.ID, err)
	}
	total := m.TotalRate()
	if !total.IsPositive() {
		return decimal.Zero, muerrors.InvalidInput("municipality %s levies no tax", m.ID)
	}
	// tax = market × ratio ÷ divisor × rate  ⇒  market = tax × divisor ÷ (ratio × rate)
	return budget.Mul(divisor).Div(m.AssessmentRatio.Mul(total)).Round(0), nil
}
