// SPDX-License-Identifier: MPL-2.0

package producer

import (
	"fmt"
	"slices"
)

// Registry holds producers in registration order.
type Registry struct {
	producers []*Producer
	names     map[string]struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register appends producers. Registration stops at the first invalid or
// duplicate producer; producers before it remain registered.
func (r *Registry) Register(ps ...*Producer) error {
	for _, p := range ps {
		if err := p.validate(); err != nil {
			return err
		}
		if _, dup := r.names[p.Name]; dup {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidProducer, p.Name)
		}
		r.names[p.Name] = struct{}{}
		r.producers = append(r.producers, p)
	}
	return nil
}

// Len returns the number of registered producers.
func (r *Registry) Len() int { return len(r.producers) }

// Producers returns the registered producers in registration order.
func (r *Registry) Producers() []*Producer {
	return slices.Clone(r.producers)
}

// Match returns every producer claiming path, in registration order. A path
// claimed by no producer yields an empty result.
func (r *Registry) Match(path string) []Match {
	var out []Match
	for _, p := range r.producers {
		if m, ok := p.MatchPath(path); ok {
			out = append(out, m)
		}
	}
	return out
}

// Filter returns a new Registry with the producers that carry at least one
// include category (all producers when include is empty) and none of the
// exclude categories.
func (r *Registry) Filter(include, exclude []Category) *Registry {
	filtered := NewRegistry()
	for _, p := range r.producers {
		if len(include) > 0 && !p.HasAnyCategory(include) {
			continue
		}
		if p.HasAnyCategory(exclude) {
			continue
		}
		filtered.names[p.Name] = struct{}{}
		filtered.producers = append(filtered.producers, p)
	}
	return filtered
}
