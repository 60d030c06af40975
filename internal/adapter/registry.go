// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"fmt"
	"sort"

	"github.com/pdiddy/donor-match/pkg/types"
)

// Registry is the read-only capability table mapping source ID to adapter.
// It is built once and never mutated; a refresh builds a new Registry.
type Registry struct {
	ids      []string
	adapters map[string]Adapter
	caps     map[string][]Capability
}

// NewRegistry builds a registry from adapters. IDs must be unique and
// non-empty.
func NewRegistry(adapters ...Adapter) (*Registry, error) {
	r := &Registry{
		adapters: make(map[string]Adapter, len(adapters)),
		caps:     make(map[string][]Capability, len(adapters)),
	}
	for _, a := range adapters {
		id := a.ID()
		if id == "" {
			return nil, fmt.Errorf("adapter with empty id")
		}
		if _, ok := r.adapters[id]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateSource, id)
		}
		r.adapters[id] = a
		caps := a.Capabilities()
		sortCapabilities(caps)
		r.caps[id] = caps
		r.ids = append(r.ids, id)
	}
	sort.Strings(r.ids)
	return r, nil
}

// IDs returns the registered source IDs in sorted order.
func (r *Registry) IDs() []string {
	out := make([]string, len(r.ids))
	copy(out, r.ids)
	return out
}

// Len returns the number of registered sources.
func (r *Registry) Len() int { return len(r.ids) }

// Adapter returns the adapter registered under id.
func (r *Registry) Adapter(id string) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// Capabilities returns the declared capabilities of source id.
func (r *Registry) Capabilities(id string) []Capability {
	return r.caps[id]
}

// Capable returns, in sorted order, the IDs of sources that can answer c.
func (r *Registry) Capable(c types.Criterion) []string {
	var out []string
	for _, id := range r.ids {
		for _, capab := range r.caps[id] {
			if capab.Covers(c) {
				out = append(out, id)
				break
			}
		}
	}
	return out
}

// Without returns a new registry with the given sources removed.
func (r *Registry) Without(ids ...string) *Registry {
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	out := &Registry{
		adapters: make(map[string]Adapter, len(r.adapters)),
		caps:     make(map[string][]Capability, len(r.caps)),
	}
	for _, id := range r.ids {
		if drop[id] {
			continue
		}
		out.ids = append(out.ids, id)
		out.adapters[id] = r.adapters[id]
		out.caps[id] = r.caps[id]
	}
	return out
}
