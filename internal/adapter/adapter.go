// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package adapter defines the attribute source boundary. Each independently
// owned data store (academic records, demographics, geography) sits behind an
// Adapter that declares which (attribute, operator) pairs it can answer and
// translates criteria into its native query.
package adapter

import (
	"context"
	"sort"
	"strings"

	"github.com/pdiddy/donor-match/pkg/types"
)

// Adapter queries a single attribute source. Implementations must return a
// *SourceError (or an error wrapping one of the Err* kinds) on failure so
// the executor can classify it for the manifest.
type Adapter interface {
	ID() string
	Capabilities() []Capability
	Query(ctx context.Context, criteria []types.Criterion) ([]types.SourceResult, error)
}

// Capability is one (attribute, operator) pair a source can answer.
type Capability struct {
	Attribute string         `json:"attribute" yaml:"attribute"`
	Operator  types.Operator `json:"operator" yaml:"operator"`
}

func (c Capability) String() string {
	return c.Attribute + ":" + string(c.Operator)
}

// Covers reports whether the capability answers the criterion.
func (c Capability) Covers(cr types.Criterion) bool {
	return strings.EqualFold(c.Attribute, cr.Attribute) && c.Operator == cr.Operator
}

// CapabilitiesFromConfig flattens a config capability table into a sorted
// slice.
func CapabilitiesFromConfig(table map[string][]types.Operator) []Capability {
	var caps []Capability
	for attr, ops := range table {
		for _, op := range ops {
			caps = append(caps, Capability{Attribute: strings.ToLower(attr), Operator: op})
		}
	}
	sortCapabilities(caps)
	return caps
}

func sortCapabilities(caps []Capability) {
	sort.Slice(caps, func(i, j int) bool {
		if caps[i].Attribute != caps[j].Attribute {
			return caps[i].Attribute < caps[j].Attribute
		}
		return caps[i].Operator < caps[j].Operator
	})
}

// capabilitySet is the common Capabilities implementation embedded by the
// concrete adapters.
type capabilitySet struct {
	id   string
	caps []Capability
}

func newCapabilitySet(id string, table map[string][]types.Operator) capabilitySet {
	return capabilitySet{id: id, caps: CapabilitiesFromConfig(table)}
}

func (s capabilitySet) ID() string { return s.id }

func (s capabilitySet) Capabilities() []Capability {
	out := make([]Capability, len(s.caps))
	copy(out, s.caps)
	return out
}

// check rejects criteria outside the declared capabilities.
func (s capabilitySet) check(criteria []types.Criterion) error {
	if len(criteria) == 0 {
		return Malformed(s.id, "no criteria")
	}
	for _, c := range criteria {
		covered := false
		for _, capab := range s.caps {
			if capab.Covers(c) {
				covered = true
				break
			}
		}
		if !covered {
			return Malformed(s.id, "criterion %s (%s) not supported", c.ID, c)
		}
	}
	return nil
}
