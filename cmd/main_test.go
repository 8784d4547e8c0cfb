package main

import (
	"bytes"
	"path/filepath"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	muerrors "munitax/internal/errors"
	"munitax/internal/loader"
	"munitax/internal/registry"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"850000", "850000", true},
		{"$1,250,000", "1250000", true},
		{" 20_000.50 ", "20000.5", true},
		{"lots", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseMoney(tt.in)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestSelectionIDs(t *testing.T) {
	reg = registry.Default()

	ids, err := (&selection{}).ids()
	require.NoError(t, err)
	assert.Nil(t, ids)

	ids, err = (&selection{munis: []string{"Rye", "bronxville", "Pelham Manor"}}).ids()
	require.NoError(t, err)
	assert.Equal(t, []string{"bronxville", "pelham_manor", "rye_city"}, sorted(ids))

	ids, err = (&selection{group: registry.GroupEastchesterArea, munis: []string{"tuckahoe"}}).ids()
	require.NoError(t, err)
	assert.Len(t, ids, 3)

	_, err = (&selection{munis: []string{"Yonkers"}}).ids()
	assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))

	_, err = (&selection{group: "nowhere"}).ids()
	assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))
}

func sorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

func TestWriteSalesReadsBack(t *testing.T) {
	reg = registry.Default()
	ld := loader.New(reg)

	sample, err := ld.Sample([]string{"scarsdale", "rye_city"}, 4, 11)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, writeSales(&buf, sample.Records))

	got, err := ld.Read(&buf, "sample")
	require.NoError(t, err)
	assert.Zero(t, got.Skipped)
	require.Len(t, got.Records, len(sample.Records))
	for i, want := range sample.Records {
		have := got.Records[i]
		assert.Equal(t, want.MunicipalityID, have.MunicipalityID)
		assert.True(t, want.SalePrice.Equal(have.SalePrice))
		assert.True(t, want.AssessedValue.Equal(have.AssessedValue))
		assert.True(t, want.SaleDate.Equal(have.SaleDate))
		assert.Equal(t, want.Bedrooms, have.Bedrooms)
	}
}

func TestWriteSalesFile(t *testing.T) {
	reg = registry.Default()
	ld := loader.New(reg)
	sample, err := ld.Sample([]string{"tuckahoe"}, 3, 5)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sample.csv")
	require.NoError(t, writeSalesFile(path, sample.Records))

	got, err := ld.LoadFile(path)
	require.NoError(t, err)
	assert.Len(t, got.Records, len(sample.Records))

	err = writeSalesFile(filepath.Join(t.TempDir(), "missing", "sample.csv"), sample.Records)
	assert.ErrorContains(t, err, "creating")
}

func TestPairIDs(t *testing.T) {
	reg = registry.Default()

	a, b, err := pairIDs([]string{"Bronxville", "tuckahoe"})
	require.NoError(t, err)
	assert.Equal(t, "bronxville", a)
	assert.Equal(t, "tuckahoe", b)

	_, _, err = pairIDs([]string{"bronxville"})
	assert.ErrorContains(t, err, "exactly two")

	_, _, err = pairIDs([]string{"bronxville", "Yonkers"})
	assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))
}
