package comparison

import (
	"slices"

	"github.com/shopspring/decimal"

	muerrors "munitax/internal/errors"
	"munitax/internal/types"
)

// Scenario is the tax on one hypothetical home in one municipality.
type Scenario struct {
	MunicipalityID string             `json:"municipality_id"`
	Name           string             `json:"name"`
	Annual         decimal.Decimal    `json:"annual"`
	Monthly        decimal.Decimal    `json:"monthly"`
	PerSqft        decimal.Decimal    `json:"per_sqft"`
	EffectiveRate  decimal.Decimal    `json:"effective_rate"`
	SchoolShare    decimal.Decimal    `json:"school_share"`
	Breakdown      types.TaxBreakdown `json:"breakdown"`
}

// TaxScenarios prices a home of the given market value and size in each of
// ids (every municipality when empty), cheapest first.
func (e *Engine) TaxScenarios(marketValue, sqft decimal.Decimal, ids []string) ([]Scenario, error) {
	if !sqft.IsPositive() {
		return nil, muerrors.InvalidInput("sqft must be positive, got %s", sqft)
	}
	breakdowns, err := e.calc.Compare(marketValue, ids)
	if err != nil {
		return nil, err
	}
	out := make([]Scenario, 0, len(breakdowns))
	for _, b := range breakdowns {
		out = append(out, Scenario{
			MunicipalityID: b.MunicipalityID,
			Name:           e.name(b.MunicipalityID),
			Annual:         b.Total,
			Monthly:        b.Monthly(),
			PerSqft:        b.Total.Div(sqft).Round(2),
			EffectiveRate:  b.EffectiveRate().Round(3),
			SchoolShare:    b.LayerShare(types.LayerSchool).Round(1),
			Breakdown:      b,
		})
	}
	slices.SortStableFunc(out, func(a, b Scenario) int { return a.Annual.Cmp(b.Annual) })
	return out, nil
}

// Affordability is what an annual tax budget buys in one municipality.
type Affordability struct {
	MunicipalityID string          `json:"municipality_id"`
	Name           string          `json:"name"`
	MarketValue    decimal.Decimal `json:"market_value"`

	// TypicalValuePerSqft and AffordableSqft are zero when the report has
	// no sales for the municipality.
	TypicalValuePerSqft float64 `json:"typical_value_per_sqft,omitempty"`
	AffordableSqft      float64 `json:"affordable_sqft,omitempty"`
}

// ValueForTaxBudget returns, for every registered municipality that levies
// tax, the market value whose annual tax equals budget, largest first.
// When report is non-nil its median value/sqft converts that into a home
// size.
func (e *Engine) ValueForTaxBudget(budget decimal.Decimal, report *types.ComparisonReport) ([]Affordability, error) {
	if !budget.IsPositive() {
		return nil, muerrors.InvalidInput("tax budget must be positive, got %s", budget)
	}
	var out []Affordability
	for _, m := range e.reg.All() {
		if !m.TotalRate().IsPositive() {
			continue
		}
		value, err := e.calc.AffordableMarketValue(budget, m)
		if err != nil {
			return nil, err
		}
		a := Affordability{MunicipalityID: m.ID, Name: m.Name, MarketValue: value}
		if report != nil {
			if mm, ok := report.Metrics(m.ID); ok && mm.ValuePerSqftMedian > 0 {
				a.TypicalValuePerSqft = mm.ValuePerSqftMedian
				a.AffordableSqft = value.InexactFloat64() / mm.ValuePerSqftMedian
			}
		}
		out = append(out, a)
	}
	slices.SortStableFunc(out, func(a, b Affordability) int { return b.MarketValue.Cmp(a.MarketValue) })
	return out, nil
}
