// Package registry holds the immutable table of municipalities that the tax,
// metrics and comparison packages are constructed with.
package registry

import (
	"fmt"
	"slices"
	"strings"

	muerrors "munitax/internal/errors"
	"munitax/internal/types"
)

// Registry is an ordered, read-only set of municipalities. The zero value is
// empty and usable.
type Registry struct {
	munis   []types.Municipality
	index   map[string]int
	aliases map[string]string
	groups  map[string][]string
}

// Option configures a Registry at construction time.
type Option func(*Registry)

// WithAliases maps alternative names (city names as they appear in listings)
// to municipality ids. Keys are matched case-insensitively.
func WithAliases(aliases map[string]string) Option {
	return func(r *Registry) {
		for k, v := range aliases {
			r.aliases[normalizeName(k)] = v
		}
	}
}

// WithGroup registers a named subset of municipality ids.
func WithGroup(name string, ids ...string) Option {
	return func(r *Registry) {
		r.groups[name] = append([]string(nil), ids...)
	}
}

// New validates munis and returns a registry that preserves their order.
func New(munis []types.Municipality, opts ...Option) (*Registry, error) {
	r := &Registry{
		munis:   make([]types.Municipality, 0, len(munis)),
		index:   make(map[string]int, len(munis)),
		aliases: make(map[string]string),
		groups:  make(map[string][]string),
	}
	for _, m := range munis {
		if err := validate(m); err != nil {
			return nil, err
		}
		if _, dup := r.index[m.ID]; dup {
			return nil, muerrors.Config(fmt.Sprintf("duplicate municipality id %q", m.ID), nil)
		}
		r.index[m.ID] = len(r.munis)
		r.munis = append(r.munis, m.Clone())
	}
	for _, opt := range opts {
		opt(r)
	}
	for alias, id := range r.aliases {
		if _, ok := r.index[id]; !ok {
			return nil, muerrors.Config(fmt.Sprintf("alias %q points to unknown municipality %q", alias, id), nil)
		}
	}
	for name, ids := range r.groups {
		for _, id := range ids {
			if _, ok := r.index[id]; !ok {
				return nil, muerrors.Config(fmt.Sprintf("group %q lists unknown municipality %q", name, id), nil)
			}
		}
	}
	return r, nil
}

func validate(m types.Municipality) error {
	if strings.TrimSpace(m.ID) == "" {
		return muerrors.Config("municipality id is required", nil)
	}
	if !m.AssessmentRatio.IsPositive() {
		return muerrors.Config(fmt.Sprintf("municipality %s: assessment ratio must be positive", m.ID), nil)
	}
	if _, err := m.RateBasis.Divisor(); err != nil {
		return muerrors.Config(fmt.Sprintf("municipality %s", m.ID), err)
	}
	if len(m.Rates) == 0 {
		return muerrors.Config(fmt.Sprintf("municipality %s: no tax layers", m.ID), nil)
	}
	for l, rate := range m.Rates {
		if !slices.Contains(types.LayerOrder, l) {
			return muerrors.Config(fmt.Sprintf("municipality %s: unknown layer %q", m.ID, l), nil)
		}
		if rate.IsNegative() {
			return muerrors.Config(fmt.Sprintf("municipality %s: negative %s rate", m.ID, l), nil)
		}
	}
	return nil
}

// Get returns the municipality with the given id.
func (r *Registry) Get(id string) (types.Municipality, error) {
	i, ok := r.index[id]
	if !ok {
		return types.Municipality{}, muerrors.NotFound("municipality", id)
	}
	return r.munis[i].Clone(), nil
}

// All returns every municipality in registration order, which is the
// canonical display order.
func (r *Registry) All() []types.Municipality {
	out := make([]types.Municipality, len(r.munis))
	for i, m := range r.munis {
		out[i] = m.Clone()
	}
	return out
}

// IDs returns every municipality id in canonical order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.munis))
	for i, m := range r.munis {
		ids[i] = m.ID
	}
	return ids
}

// Index returns the canonical position of id.
func (r *Registry) Index(id string) (int, bool) {
	i, ok := r.index[id]
	return i, ok
}

// Len is the number of municipalities.
func (r *Registry) Len() int { return len(r.munis) }

// Resolve maps an id, display name or alias to a municipality id.
func (r *Registry) Resolve(name string) (string, bool) {
	if _, ok := r.index[name]; ok {
		return name, true
	}
	norm := normalizeName(name)
	if id, ok := r.aliases[norm]; ok {
		return id, true
	}
	for _, m := range r.munis {
		if normalizeName(m.ID) == norm || normalizeName(m.Name) == norm {
			return m.ID, true
		}
	}
	return "", false
}

// Group returns the ids registered under name.
func (r *Registry) Group(name string) ([]string, error) {
	ids, ok := r.groups[name]
	if !ok {
		return nil, muerrors.NotFound("group", name)
	}
	return append([]string(nil), ids...), nil
}

// Ordered dedupes ids and sorts them into canonical order. Unknown ids are
// reported as not found.
func (r *Registry) Ordered(ids []string) ([]string, error) {
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		i, ok := r.index[id]
		if !ok {
			return nil, muerrors.NotFound("municipality", id)
		}
		seen[i] = true
	}
	out := make([]string, 0, len(seen))
	for i, m := range r.munis {
		if seen[i] {
			out = append(out, m.ID)
		}
	}
	return out, nil
}

func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ", "(", "", ")", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}
