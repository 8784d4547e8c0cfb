package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	muerrors "munitax/internal/errors"
	"munitax/internal/types"
)

func TestDefaultRegistry(t *testing.T) {
	reg := Default()

	t.Run("order is fixed", func(t *testing.T) {
		ids := reg.IDs()
		require.Len(t, ids, 10)
		assert.Equal(t, "eastchester_unincorp", ids[0])
		assert.Equal(t, "rye_city", ids[len(ids)-1])
		assert.Equal(t, ids, reg.IDs())
	})

	t.Run("get known", func(t *testing.T) {
		m, err := reg.Get("bronxville")
		require.NoError(t, err)
		assert.Equal(t, types.Village, m.Type)
		assert.True(t, m.HasLayer(types.LayerVillage))
		assert.Equal(t, "Bronxville UFSD", m.SchoolDistrict)
	})

	t.Run("town has no village entry", func(t *testing.T) {
		m, err := reg.Get("eastchester_unincorp")
		require.NoError(t, err)
		assert.False(t, m.HasLayer(types.LayerVillage))
	})

	t.Run("get unknown", func(t *testing.T) {
		_, err := reg.Get("atlantis")
		require.Error(t, err)
		assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))
	})

	t.Run("returned values are copies", func(t *testing.T) {
		m, err := reg.Get("tuckahoe")
		require.NoError(t, err)
		m.Rates[types.LayerSchool] = decimal.Zero
		delete(m.Rates, types.LayerVillage)

		again, err := reg.Get("tuckahoe")
		require.NoError(t, err)
		assert.True(t, again.Rates[types.LayerSchool].Equal(decimal.NewFromInt(650)))
		assert.True(t, again.HasLayer(types.LayerVillage))
	})

	t.Run("resolve aliases and names", func(t *testing.T) {
		for in, want := range map[string]string{
			"Pelham Manor":                     "pelham_manor",
			"RYE":                              "rye_city",
			"eastchester":                      "eastchester_unincorp",
			"Mamaroneck (Town/Unincorporated)": "mamaroneck_town",
			"scarsdale":                        "scarsdale",
		} {
			got, ok := reg.Resolve(in)
			assert.True(t, ok, in)
			assert.Equal(t, want, got, in)
		}
		_, ok := reg.Resolve("yonkers")
		assert.False(t, ok)
	})

	t.Run("groups", func(t *testing.T) {
		ids, err := reg.Group(GroupEastchesterArea)
		require.NoError(t, err)
		assert.Equal(t, []string{"eastchester_unincorp", "bronxville", "tuckahoe"}, ids)

		_, err = reg.Group("nope")
		assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))
	})

	t.Run("ordered dedupes into canonical order", func(t *testing.T) {
		ids, err := reg.Ordered([]string{"rye_city", "bronxville", "rye_city", "eastchester_unincorp"})
		require.NoError(t, err)
		assert.Equal(t, []string{"eastchester_unincorp", "bronxville", "rye_city"}, ids)

		_, err = reg.Ordered([]string{"bronxville", "atlantis"})
		assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))
	})
}

func TestNewValidation(t *testing.T) {
	base := func() types.Municipality {
		return types.Municipality{
			ID:              "a",
			AssessmentRatio: decimal.RequireFromString("0.5"),
			RateBasis:       types.PerThousand,
			Rates:           map[types.Layer]decimal.Decimal{types.LayerSchool: decimal.NewFromInt(10)},
		}
	}

	tests := []struct {
		name   string
		mutate func(m *types.Municipality)
	}{
		{"empty id", func(m *types.Municipality) { m.ID = " " }},
		{"zero ratio", func(m *types.Municipality) { m.AssessmentRatio = decimal.Zero }},
		{"bad basis", func(m *types.Municipality) { m.RateBasis = "per_mill" }},
		{"no layers", func(m *types.Municipality) { m.Rates = nil }},
		{"unknown layer", func(m *types.Municipality) { m.Rates["sewer"] = decimal.NewFromInt(1) }},
		{"negative rate", func(m *types.Municipality) { m.Rates[types.LayerTown] = decimal.NewFromInt(-1) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base()
			tt.mutate(&m)
			_, err := New([]types.Municipality{m})
			require.Error(t, err)
			assert.True(t, muerrors.IsType(err, muerrors.TypeConfig))
		})
	}

	t.Run("duplicate id", func(t *testing.T) {
		_, err := New([]types.Municipality{base(), base()})
		assert.Error(t, err)
	})

	t.Run("alias to unknown id", func(t *testing.T) {
		_, err := New([]types.Municipality{base()}, WithAliases(map[string]string{"x": "b"}))
		assert.Error(t, err)
	})
}

const sampleYAML = `
municipalities:
  - id: hilltown
    name: Hill Town
    type: town
    assessment_ratio: 0.0088
    rate_basis: per_1000
    rates:
      school: 900
      town: 150
      county: 110
  - id: riverside
    name: Riverside
    type: village
    assessment_ratio: 1
    rate_basis: per_100
    rates:
      school: 1.85
      village: 0.52
      fire_district: 0.05
aliases:
  hill: hilltown
groups:
  all: [riverside, hilltown]
`

func TestParseYAML(t *testing.T) {
	reg, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"hilltown", "riverside"}, reg.IDs())

	hill, err := reg.Get("hilltown")
	require.NoError(t, err)
	assert.Equal(t, "0.0088", hill.AssessmentRatio.String())
	assert.Equal(t, []types.Layer{types.LayerSchool, types.LayerCounty, types.LayerTown}, hill.Layers())

	river, err := reg.Get("riverside")
	require.NoError(t, err)
	assert.Equal(t, types.PerHundred, river.RateBasis)
	assert.True(t, river.Rates[types.LayerFire].Equal(decimal.RequireFromString("0.05")))

	id, ok := reg.Resolve("Hill")
	assert.True(t, ok)
	assert.Equal(t, "hilltown", id)

	group, err := reg.Group("all")
	require.NoError(t, err)
	assert.Equal(t, []string{"riverside", "hilltown"}, group)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0644))

	reg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, reg.Len())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, muerrors.IsType(err, muerrors.TypeConfig))
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("municipalities:\n  - id: a\n    colour: red\n"))
	require.Error(t, err)
	assert.True(t, muerrors.IsType(err, muerrors.TypeParsing))
}

func TestParseRejectsBadRate(t *testing.T) {
	_, err := Parse([]byte("municipalities:\n  - id: a\n    assessment_ratio: 1\n    rates: {school: lots}\n"))
	require.Error(t, err)
	assert.True(t, muerrors.IsType(err, muerrors.TypeParsing))
}

func TestParseRejectsLayerAliasCollision(t *testing.T) {
	tests := []struct {
		name  string
		rates string
	}{
		{"town and city", "{school: 900, town: 150, city: 999, county: 110}"},
		{"fire and fire_district", "{school: 900, fire: 20, fire_district: 25}"},
		{"special and special_districts", "{school: 900, special: 5, special_districts: 6}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := "municipalities:\n  - id: a\n    assessment_ratio: 1\n    rates: " + tt.rates + "\n"
			for range 8 {
				_, err := Parse([]byte(doc))
				require.Error(t, err)
				assert.True(t, muerrors.IsType(err, muerrors.TypeParsing))
			}
		})
	}
}
