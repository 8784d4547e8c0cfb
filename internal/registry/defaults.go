package registry

import (
	"github.com/shopspring/decimal"

	"munitax/internal/types"
)

// Group names registered by Default.
const (
	GroupEastchesterArea = "eastchester_area"
	GroupComparison      = "comparison"
)

func rates(kv map[types.Layer]string) map[types.Layer]decimal.Decimal {
	out := make(map[types.Layer]decimal.Decimal, len(kv))
	for l, s := range kv {
		out[l] = decimal.RequireFromString(s)
	}
	return out
}

// DefaultMunicipalities is the 2024-25 Westchester table. Every rate is per
// $1,000 of assessed value; ratios are the published RARs. Layers a
// municipality does not levy are absent rather than zero.
func DefaultMunicipalities() []types.Municipality {
	return []types.Municipality{
		{
			ID:              "eastchester_unincorp",
			Name:            "Eastchester (Unincorporated)",
			Type:            types.Town,
			AssessmentRatio: decimal.RequireFromString("0.0088"),
			RateBasis:       types.PerThousand,
			Rates: rates(map[types.Layer]string{
				types.LayerCounty:  "2.5",
				types.LayerTown:    "320.04",
				types.LayerSchool:  "850",
				types.LayerFire:    "45",
				types.LayerLibrary: "8",
			}),
			SchoolDistrict: "Eastchester UFSD",
		},
		{
			ID:              "bronxville",
			Name:            "Bronxville",
			Type:            types.Village,
			AssessmentRatio: decimal.RequireFromString("1"),
			RateBasis:       types.PerThousand,
			Rates: rates(map[types.Layer]string{
				types.LayerCounty:  "2.8",
				types.LayerTown:    "1.5",
				types.LayerVillage: "5.2",
				types.LayerSchool:  "18.5",
				types.LayerFire:    "0.5",
				types.LayerLibrary: "0.3",
			}),
			SchoolDistrict: "Bronxville UFSD",
			ParentTown:     "eastchester",
		},
		{
			ID:              "tuckahoe",
			Name:            "Tuckahoe",
			Type:            types.Village,
			AssessmentRatio: decimal.RequireFromString("0.0098"),
			RateBasis:       types.PerThousand,
			Rates: rates(map[types.Layer]string{
				types.LayerCounty:  "2.5",
				types.LayerTown:    "35",
				types.LayerVillage: "85",
				types.LayerSchool:  "650",
				types.LayerFire:    "40",
				types.LayerLibrary: "7",
			}),
			SchoolDistrict: "Tuckahoe UFSD",
			ParentTown:     "eastchester",
		},
		{
			ID:              "scarsdale",
			Name:            "Scarsdale",
			Type:            types.Village,
			AssessmentRatio: decimal.RequireFromString("0.6973"),
			RateBasis:       types.PerThousand,
			Rates: rates(map[types.Layer]string{
				types.LayerCounty:  "4",
				types.LayerVillage: "4.5",
				types.LayerSchool:  "25",
				types.LayerFire:    "0.8",
				types.LayerLibrary: "0.4",
			}),
			SchoolDistrict: "Scarsdale UFSD",
			ParentTown:     "scarsdale",
		},
		{
			ID:              "larchmont",
			Name:            "Larchmont",
			Type:            types.Village,
			AssessmentRatio: decimal.RequireFromString("1"),
			RateBasis:       types.PerThousand,
			Rates: rates(map[types.Layer]string{
				types.LayerCounty:  "4.27",
				types.LayerVillage: "4.70",
				types.LayerSchool:  "12.64",
				types.LayerFire:    "0.4",
				types.LayerLibrary: "0.3",
			}),
			SchoolDistrict: "Mamaroneck UFSD",
			ParentTown:     "mamaroneck",
		},
		{
			ID:              "mamaroneck_village",
			Name:            "Mamaroneck (Village)",
			Type:            types.Village,
			AssessmentRatio: decimal.RequireFromString("1"),
			RateBasis:       types.PerThousand,
			Rates: rates(map[types.Layer]string{
				types.LayerCounty:  "3.86",
				types.LayerVillage: "6.34",
				types.LayerSchool:  "12.64",
				types.LayerFire:    "0.4",
				types.LayerLibrary: "0.3",
			}),
			SchoolDistrict: "Mamaroneck UFSD",
			ParentTown:     "mamaroneck",
		},
		{
			ID:              "mamaroneck_town",
			Name:            "Mamaroneck (Town/Unincorporated)",
			Type:            types.Town,
			AssessmentRatio: decimal.RequireFromString("1"),
			RateBasis:       types.PerThousand,
			Rates: rates(map[types.Layer]string{
				types.LayerCounty:  "8.76",
				types.LayerSchool:  "12.64",
				types.LayerFire:    "0.5",
				types.LayerLibrary: "0.3",
			}),
			SchoolDistrict: "Mamaroneck UFSD",
		},
		{
			ID:              "pelham",
			Name:            "Pelham (Village)",
			Type:            types.Village,
			AssessmentRatio: decimal.RequireFromString("0.025"),
			RateBasis:       types.PerThousand,
			Rates: rates(map[types.Layer]string{
				types.LayerCounty:  "15",
				types.LayerTown:    "8",
				types.LayerVillage: "45",
				types.LayerSchool:  "280",
				types.LayerFire:    "12",
				types.LayerLibrary: "3",
			}),
			SchoolDistrict: "Pelham UFSD",
			ParentTown:     "pelham",
		},
		{
			ID:              "pelham_manor",
			Name:            "Pelham Manor",
			Type:            types.Village,
			AssessmentRatio: decimal.RequireFromString("0.025"),
			RateBasis:       types.PerThousand,
			Rates: rates(map[types.Layer]string{
				types.LayerCounty:  "15",
				types.LayerTown:    "8",
				types.LayerVillage: "50",
				types.LayerSchool:  "280",
				types.LayerFire:    "12",
				types.LayerLibrary: "3",
			}),
			SchoolDistrict: "Pelham UFSD",
			ParentTown:     "pelham",
		},
		{
			ID:              "rye_city",
			Name:            "Rye (City)",
			Type:            types.City,
			AssessmentRatio: decimal.RequireFromString("0.0274"),
			RateBasis:       types.PerThousand,
			Rates: rates(map[types.Layer]string{
				types.LayerCounty:  "12",
				types.LayerSchool:  "320",
				types.LayerLibrary: "4",
			}),
			SchoolDistrict: "Rye City SD",
		},
	}
}

// DefaultAliases maps listing city names to municipality ids.
func DefaultAliases() map[string]string {
	return map[string]string{
		"eastchester":  "eastchester_unincorp",
		"bronxville":   "bronxville",
		"tuckahoe":     "tuckahoe",
		"scarsdale":    "scarsdale",
		"larchmont":    "larchmont",
		"mamaroneck":   "mamaroneck_village",
		"pelham":       "pelham",
		"pelham manor": "pelham_manor",
		"rye":          "rye_city",
	}
}

// Default returns the built-in Westchester registry.
func Default() *Registry {
	r, err := New(DefaultMunicipalities(),
		WithAliases(DefaultAliases()),
		WithGroup(GroupEastchesterArea, "eastchester_unincorp", "bronxville", "tuckahoe"),
		WithGroup(GroupComparison, "scarsdale", "larchmont", "mamaroneck_village", "pelham", "pelham_manor"),
	)
	if err != nil {
		panic("registry: invalid built-in table: " + err.Error())
	}
	return r
}
