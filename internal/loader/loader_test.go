package loader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	muerrors "munitax/internal/errors"
	"munitax/internal/registry"
)

const listingCSV = `Street Address,City,Sold Price,Square Feet,Sale Date,Assessed Value,Beds,Baths
1 Main St,Eastchester,"$700,000",2000,2024-03-15,,3,2.5
2 Main St,Bronxville,"$1,250,000","1,800",03/16/2024,1250000,4,3
3 Main St,Yonkers,500000,1500,2024-01-01,,3,2
4 Main St,Tuckahoe,0,1500,2024-01-01,,3,2
5 Main St,Tuckahoe,650000,1400,someday,,3,2
`

func TestReadListingExport(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	l := New(registry.Default(), WithLogger(zap.New(core)))

	res, err := l.Read(strings.NewReader(listingCSV), "sales")
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, 2, logs.FilterMessage("skipping invalid row").Len())
	assert.Equal(t, 1, logs.FilterMessage("unrecognised sale date, keeping sale undated").Len())
	assert.False(t, res.Synthetic)

	first := res.Records[0]
	assert.Equal(t, "eastchester_unincorp", first.MunicipalityID)
	assert.Equal(t, "700000", first.SalePrice.String())
	assert.Equal(t, "6160", first.AssessedValue.String(), "assessed derived from price × ratio")
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), first.SaleDate)
	assert.Equal(t, 3, first.Bedrooms)
	assert.Equal(t, 2.5, first.Bathrooms)
	assert.Equal(t, "sales", first.Source)

	second := res.Records[1]
	assert.Equal(t, "bronxville", second.MunicipalityID)
	assert.Equal(t, "1800", second.Sqft.String())
	assert.Equal(t, time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), second.SaleDate)

	undated := res.Records[2]
	assert.Equal(t, "tuckahoe", undated.MunicipalityID)
	assert.Equal(t, "5 Main St", undated.Address)
	assert.True(t, undated.SaleDate.IsZero())
}

func TestReadWithoutLogger(t *testing.T) {
	l := New(registry.Default(), WithLogger(nil))
	res, err := l.Read(strings.NewReader(listingCSV), "sales")
	require.NoError(t, err)
	assert.Len(t, res.Records, 3)
	assert.Equal(t, 2, res.Skipped)
}

func TestReadPipeDelimited(t *testing.T) {
	l := New(registry.Default())
	res, err := l.Read(strings.NewReader("address|city|price|sqft\n9 Elm|Rye|900000|2100\n"), "assessor")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "rye_city", res.Records[0].MunicipalityID)
}

func TestReadResolvesFromFileStem(t *testing.T) {
	l := New(registry.Default())
	res, err := l.Read(strings.NewReader("address,price,sqft\n7 Manor Cir,1100000,2600\n"), "pelham_manor_2024")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "pelham_manor", res.Records[0].MunicipalityID)
}

type fixedLocator string

func (f fixedLocator) Locate(lat, lon float64) (string, bool) {
	if lat == 0 && lon == 0 {
		return "", false
	}
	return string(f), true
}

func TestReadResolvesFromCoordinates(t *testing.T) {
	l := New(registry.Default(), WithLocator(fixedLocator("scarsdale")))
	res, err := l.Read(strings.NewReader("address,latitude,longitude,price,sqft\n1 Post Rd,40.99,-73.80,1000000,2500\n"), "mls")
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "scarsdale", res.Records[0].MunicipalityID)
}

func TestReadEmpty(t *testing.T) {
	_, err := New(registry.Default()).Read(strings.NewReader(""), "empty")
	assert.True(t, muerrors.IsType(err, muerrors.TypeParsing))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
	}
	write("b_sales.csv", "address,city,price,sqft\n1 A St,Tuckahoe,600000,1500\n")
	write("a_sales.csv", "address,city,price,sqft\n2 B St,Larchmont,900000,2000\n3 C St,Larchmont,950000,2100\n")
	write("sales_template.csv", "address,city,price,sqft\n")
	write("notes.txt", "not a csv")

	res, err := New(registry.Default()).LoadDir(dir, "*.csv")
	require.NoError(t, err)
	assert.Len(t, res.Files, 2)
	assert.Equal(t, filepath.Join(dir, "a_sales.csv"), res.Files[0])
	require.Len(t, res.Records, 3)
	assert.Equal(t, "larchmont", res.Records[0].MunicipalityID)
	assert.Equal(t, "tuckahoe", res.Records[2].MunicipalityID)
}

func TestLoadFileRejectsBinary(t *testing.T) {
	path := filepath.Join(t.TempDir(), "photo.csv")
	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)
	require.NoError(t, os.WriteFile(path, png, 0644))

	_, err := New(registry.Default()).LoadFile(path)
	require.Error(t, err)
	assert.True(t, muerrors.IsType(err, muerrors.TypeParsing))
}

func TestLoadOrSampleFallsBack(t *testing.T) {
	l := New(registry.Default())
	res, err := l.LoadOrSample(t.TempDir(), "*.csv", []string{"bronxville", "tuckahoe"}, 4, 42)
	require.NoError(t, err)
	assert.True(t, res.Synthetic)
	assert.Len(t, res.Records, 8)
	assert.Empty(t, res.Files)
}

func TestSampleDeterministic(t *testing.T) {
	l := New(registry.Default())

	a, err := l.Sample(nil, 5, 7)
	require.NoError(t, err)
	b, err := l.Sample(nil, 5, 7)
	require.NoError(t, err)
	assert.Equal(t, a.Records, b.Records)
	assert.Len(t, a.Records, 5*registry.Default().Len())

	c, err := l.Sample(nil, 5, 8)
	require.NoError(t, err)
	assert.NotEqual(t, a.Records, c.Records)

	for _, r := range a.Records {
		assert.True(t, r.SalePrice.IsPositive())
		assert.True(t, r.Sqft.IsPositive())
		assert.True(t, r.AssessedValue.IsPositive())
		assert.True(t, r.AnnualTaxes.IsPositive())
		assert.Equal(t, "synthetic", r.Source)
	}

	_, err = l.Sample([]string{"atlantis"}, 5, 7)
	assert.True(t, muerrors.IsType(err, muerrors.TypeNotFound))
}
