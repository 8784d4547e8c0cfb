package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MunicipalityType is the kind of municipal entity levying the tax.
type MunicipalityType string

const (
	Town    MunicipalityType = "town"
	Village MunicipalityType = "village"
	City    MunicipalityType = "city"
)

// Layer names one component of the total property tax.
type Layer string

const (
	LayerSchool  Layer = "school"
	LayerCounty  Layer = "county"
	LayerTown    Layer = "town"
	LayerVillage Layer = "village"
	LayerFire    Layer = "fire"
	LayerLibrary Layer = "library"
	LayerSpecial Layer = "special"
)

// LayerOrder is the canonical order layers appear in a breakdown.
var LayerOrder = []Layer{
	LayerSchool,
	LayerCounty,
	LayerTown,
	LayerVillage,
	LayerFire,
	LayerLibrary,
	LayerSpecial,
}

// ParseLayer accepts the canonical names plus the long forms used on tax bills.
func ParseLayer(s string) (Layer, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "school":
		return LayerSchool, nil
	case "county":
		return LayerCounty, nil
	case "town", "city":
		return LayerTown, nil
	case "village":
		return LayerVillage, nil
	case "fire", "fire_district":
		return LayerFire, nil
	case "library":
		return LayerLibrary, nil
	case "special", "special_districts":
		return LayerSpecial, nil
	}
	return "", fmt.Errorf("unknown tax layer %q", s)
}

// RateBasis is the unit every rate of a municipality is expressed in.
type RateBasis string

const (
	// PerThousand rates are currency per $1,000 of assessed value.
	PerThousand RateBasis = "per_1000"
	// PerHundred rates are currency per $100 of assessed value.
	PerHundred RateBasis = "per_100"
)

// Divisor returns the assessed-value unit the basis refers to.
func (b RateBasis) Divisor() (decimal.Decimal, error) {
	switch b {
	case PerThousand:
		return decimal.NewFromInt(1000), nil
	case PerHundred:
		return decimal.NewFromInt(100), nil
	}
	return decimal.Zero, fmt.Errorf("unknown rate basis %q", string(b))
}

// Municipality is immutable reference data describing how one municipality
// assesses and taxes residential property.
type Municipality struct {
	ID   string
	Name string
	Type MunicipalityType

	// AssessmentRatio is the residential assessment ratio (RAR) as a
	// fraction of market value, e.g. 0.0088 for 0.88%.
	AssessmentRatio decimal.Decimal

	// RateBasis is the unit of every entry in Rates.
	RateBasis RateBasis

	// Rates holds only the layers this municipality levies.
	Rates map[Layer]decimal.Decimal

	SchoolDistrict string
	ParentTown     string
}

// MarketToAssessed converts a market value to assessed value.
func (m Municipality) MarketToAssessed(market decimal.Decimal) decimal.Decimal {
	return market.Mul(m.AssessmentRatio)
}

// AssessedToMarket converts an assessed value to an estimated market value.
func (m Municipality) AssessedToMarket(assessed decimal.Decimal) (decimal.Decimal, error) {
	if !m.AssessmentRatio.IsPositive() {
		return decimal.Zero, fmt.Errorf("assessment ratio not set for %s", m.ID)
	}
	return assessed.Div(m.AssessmentRatio), nil
}

// HasLayer reports whether the municipality levies the given layer.
func (m Municipality) HasLayer(l Layer) bool {
	_, ok := m.Rates[l]
	return ok
}

// Layers returns the levied layers in canonical order.
func (m Municipality) Layers() []Layer {
	layers := make([]Layer, 0, len(m.Rates))
	for _, l := range LayerOrder {
		if m.HasLayer(l) {
			layers = append(layers, l)
		}
	}
	return layers
}

// TotalRate is the sum of all layer rates, in RateBasis units.
func (m Municipality) TotalRate() decimal.Decimal {
	total := decimal.Zero
	for _, r := range m.Rates {
		total = total.Add(r)
	}
	return total
}

// Clone returns a copy whose rate map is not shared with m.
func (m Municipality) Clone() Municipality {
	rates := make(map[Layer]decimal.Decimal, len(m.Rates))
	for l, r := range m.Rates {
		rates[l] = r
	}
	m.Rates = rates
	return m
}
