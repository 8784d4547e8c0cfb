package loader

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"munitax/internal/tax"
	"munitax/internal/types"
)

type span struct{ lo, hi int }

var (
	samplePrices = map[string]span{
		"bronxville":           {900_000, 3_500_000},
		"eastchester_unincorp": {500_000, 1_200_000},
		"tuckahoe":             {450_000, 1_000_000},
		"scarsdale":            {800_000, 4_000_000},
		"larchmont":            {700_000, 2_500_000},
		"mamaroneck_village":   {600_000, 2_000_000},
		"pelham":               {500_000, 1_500_000},
	}
	sampleSqft = map[string]span{
		"bronxville":           {1_500, 4_500},
		"eastchester_unincorp": {1_200, 3_000},
		"tuckahoe":             {1_000, 2_500},
		"scarsdale":            {2_000, 5_500},
		"larchmont":            {1_500, 4_000},
		"mamaroneck_village":   {1_400, 3_500},
		"pelham":               {1_200, 3_200},
	}
	defaultPrice = span{500_000, 1_500_000}
	defaultSqft  = span{1_200, 3_000}

	// sampleAnchor is the latest synthetic sale date; sales fall in the 180
	// days before it.
	sampleAnchor = time.Date(2025, time.June, 30, 0, 0, 0, 0, time.UTC)
)

var sampleBaths = []float64{1.5, 2, 2.5, 3, 3.5}

// Sample synthesizes perMuni sales for each of ids (every registered
// municipality when empty). The same seed always yields the same records.
func (l *Loader) Sample(ids []string, perMuni int, seed uint64) (*LoadResult, error) {
	if len(ids) == 0 {
		ids = l.reg.IDs()
	}
	ordered, err := l.reg.Ordered(ids)
	if err != nil {
		return nil, err
	}
	if perMuni <= 0 {
		perMuni = 10
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	calc := tax.New(l.reg)
	res := &LoadResult{Synthetic: true}

	between := func(s span) int { return s.lo + rng.IntN(s.hi-s.lo+1) }

	for _, id := range ordered {
		m, err := l.reg.Get(id)
		if err != nil {
			return nil, err
		}
		prices, ok := samplePrices[id]
		if !ok {
			prices = defaultPrice
		}
		sizes, ok := sampleSqft[id]
		if !ok {
			sizes = defaultSqft
		}

		for i := range perMuni {
			sqft := between(sizes)
			// ±15% around a price drawn from the municipality's range.
			price := float64(between(prices)) * (0.85 + 0.3*rng.Float64())
			salePrice := decimal.NewFromFloat(price).Round(-3)
			assessed := m.MarketToAssessed(salePrice).Round(2)

			b, err := calc.Compute(assessed, m, true)
			if err != nil {
				return nil, err
			}

			rec, err := types.NewSaleRecord(types.SaleFields{
				Address:        fmt.Sprintf("%d Sample Street %d", 1+rng.IntN(999), i+1),
				MunicipalityID: id,
				SalePrice:      salePrice,
				Sqft:           decimal.NewFromInt(int64(sqft)),
				AssessedValue:  assessed,
				SaleDate:       sampleAnchor.AddDate(0, 0, -rng.IntN(181)),
				AnnualTaxes:    b.Total,
				Bedrooms:       2 + rng.IntN(4),
				Bathrooms:      sampleBaths[rng.IntN(len(sampleBaths))],
				YearBuilt:      1920 + rng.IntN(101),
				Source:         "synthetic",
			})
			if err != nil {
				return nil, err
			}
			res.Records = append(res.Records, rec)
		}
	}
	return res, nil
}
