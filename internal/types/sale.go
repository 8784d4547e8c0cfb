package types

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	muerrors "munitax/internal/errors"
)

// SaleRecord is one residential sale. Build it with NewSaleRecord so that a
// record that exists is always usable by the metrics engine.
type SaleRecord struct {
	Address        string
	MunicipalityID string

	SalePrice     decimal.Decimal
	Sqft          decimal.Decimal
	AssessedValue decimal.Decimal
	SaleDate      time.Time

	// AnnualTaxes is the billed tax when the source reports it; zero otherwise.
	AnnualTaxes decimal.Decimal

	Bedrooms  int
	Bathrooms float64
	YearBuilt int

	Source string
}

// SaleFields carries the raw values for NewSaleRecord.
type SaleFields struct {
	Address        string
	MunicipalityID string
	SalePrice      decimal.Decimal
	Sqft           decimal.Decimal
	AssessedValue  decimal.Decimal
	SaleDate       time.Time
	AnnualTaxes    decimal.Decimal
	Bedrooms       int
	Bathrooms      float64
	YearBuilt      int
	Source         string
}

// NewSaleRecord validates f and returns the record. Missing identifiers and
// non-positive price, sqft or assessed value are rejected here rather than
// at first use.
func NewSaleRecord(f SaleFields) (SaleRecord, error) {
	addr := strings.TrimSpace(f.Address)
	muni := strings.TrimSpace(f.MunicipalityID)
	switch {
	case addr == "":
		return SaleRecord{}, muerrors.InvalidInput("sale address is required")
	case muni == "":
		return SaleRecord{}, muerrors.InvalidInput("sale %s: municipality is required", addr)
	case !f.SalePrice.IsPositive():
		return SaleRecord{}, muerrors.InvalidInput("sale %s: sale price must be positive, got %s", addr, f.SalePrice)
	case !f.Sqft.IsPositive():
		return SaleRecord{}, muerrors.InvalidInput("sale %s: sqft must be positive, got %s", addr, f.Sqft)
	case !f.AssessedValue.IsPositive():
		return SaleRecord{}, muerrors.InvalidInput("sale %s: assessed value must be positive, got %s", addr, f.AssessedValue)
	case f.AnnualTaxes.IsNegative():
		return SaleRecord{}, muerrors.InvalidInput("sale %s: annual taxes cannot be negative, got %s", addr, f.AnnualTaxes)
	}

	source := f.Source
	if source == "" {
		source = "unknown"
	}
	return SaleRecord{
		Address:        addr,
		MunicipalityID: muni,
		SalePrice:      f.SalePrice,
		Sqft:           f.Sqft,
		AssessedValue:  f.AssessedValue,
		SaleDate:       f.SaleDate,
		AnnualTaxes:    f.AnnualTaxes,
		Bedrooms:       f.Bedrooms,
		Bathrooms:      f.Bathrooms,
		YearBuilt:      f.YearBuilt,
		Source:         source,
	}, nil
}

// PricePerSqft is sale price divided by living area.
func (s SaleRecord) PricePerSqft() decimal.Decimal {
	return s.SalePrice.Div(s.Sqft)
}
