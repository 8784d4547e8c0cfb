package registry

import (
	"bytes"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	muerrors "munitax/internal/errors"
	"munitax/internal/types"
)

// fileFormat is the on-disk layout of a registry file:
//
//	municipalities:
//	  - id: bronxville
//	    name: Bronxville
//	    type: village
//	    assessment_ratio: 1.0
//	    rate_basis: per_1000
//	    rates: {school: 18.5, village: 5.2}
//	aliases: {bronxville: bronxville}
//	groups: {eastchester_area: [bronxville]}
type fileFormat struct {
	Municipalities []fileMunicipality   `yaml:"municipalities"`
	Aliases        map[string]string   `yaml:"aliases"`
	Groups         map[string][]string `yaml:"groups"`
}

type fileMunicipality struct {
	ID              string            `yaml:"id"`
	Name            string            `yaml:"name"`
	Type            string            `yaml:"type"`
	AssessmentRatio string            `yaml:"assessment_ratio"`
	RateBasis       string            `yaml:"rate_basis"`
	Rates           map[string]string `yaml:"rates"`
	SchoolDistrict  string            `yaml:"school_district"`
	ParentTown      string            `yaml:"parent_town"`
}

// LoadFile reads a YAML registry from path.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, muerrors.Config("reading registry file "+path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML registry. Numbers are kept as their literal text so
// rates like 320.04 are exact.
func Parse(data []byte) (*Registry, error) {
	var f fileFormat
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, muerrors.Parsing("decoding registry", err)
	}

	munis := make([]types.Municipality, 0, len(f.Municipalities))
	for _, fm := range f.Municipalities {
		m, err := fm.toMunicipality()
		if err != nil {
			return nil, err
		}
		munis = append(munis, m)
	}

	opts := []Option{WithAliases(f.Aliases)}
	for name, ids := range f.Groups {
		opts = append(opts, WithGroup(name, ids...))
	}
	return New(munis, opts...)
}

func (fm fileMunicipality) toMunicipality() (types.Municipality, error) {
	ratio, err := decimal.NewFromString(fm.AssessmentRatio)
	if err != nil {
		return types.Municipality{}, muerrors.Parsing(fmt.Sprintf("municipality %s: assessment_ratio", fm.ID), err)
	}

	basis := types.RateBasis(fm.RateBasis)
	if basis == "" {
		basis = types.PerThousand
	}

	rates := make(map[types.Layer]decimal.Decimal, len(fm.Rates))
	keys := make(map[types.Layer]string, len(fm.Rates))
	for name, raw := range fm.Rates {
		layer, err := types.ParseLayer(name)
		if err != nil {
			return types.Municipality{}, muerrors.Parsing(fmt.Sprintf("municipality %s", fm.ID), err)
		}
		if prev, dup := keys[layer]; dup {
			first, second := prev, name
			if second < first {
				first, second = second, first
			}
			return types.Municipality{}, muerrors.Parsing(
				fmt.Sprintf("municipality %s: rates %q and %q both set the %s layer", fm.ID, first, second, layer), nil)
		}
		keys[layer] = name
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return types.Municipality{}, muerrors.Parsing(fmt.Sprintf("municipality %s: %s rate", fm.ID, name), err)
		}
		rates[layer] = rate
	}

	return types.Municipality{
		ID:              fm.ID,
		Name:            fm.Name,
		Type:            types.MunicipalityType(fm.Type),
		AssessmentRatio: ratio,
		RateBasis:       basis,
		Rates:           rates,
		SchoolDistrict:  fm.SchoolDistrict,
		ParentTown:      fm.ParentTown,
	}, nil
}
