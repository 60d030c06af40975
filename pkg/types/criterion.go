// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Operator selects how a criterion's value is compared against a student
// attribute.
type Operator string

const (
	OpEquals   Operator = "equals"
	OpContains Operator = "contains"
	OpRange    Operator = "range"
	OpNear     Operator = "near"
)

// Operators lists every operator in declaration order.
var Operators = []Operator{OpEquals, OpContains, OpRange, OpNear}

// Valid reports whether op is one of the known operators.
func (op Operator) Valid() bool {
	switch op {
	case OpEquals, OpContains, OpRange, OpNear:
		return true
	}
	return false
}

// ParseOperator converts a string to an Operator, case-insensitively.
func ParseOperator(s string) (Operator, error) {
	op := Operator(strings.ToLower(strings.TrimSpace(s)))
	if !op.Valid() {
		return "", fmt.Errorf("unknown operator %q", s)
	}
	return op, nil
}

// DefaultWeight is applied to criteria that arrive without a positive weight.
const DefaultWeight = 1.0

// Value is the typed literal a criterion compares against. Which fields are
// meaningful depends on the operator: Text for equals and contains, Min/Max
// for range, Lat/Lon/RadiusKm for near.
type Value struct {
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// Min and Max bound a range criterion inclusively. Either may be nil
	// for an open-ended range.
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	Lat      float64 `json:"lat,omitempty" yaml:"lat,omitempty"`
	Lon      float64 `json:"lon,omitempty" yaml:"lon,omitempty"`
	RadiusKm float64 `json:"radius_km,omitempty" yaml:"radius_km,omitempty"`
}

// String renders the value in the CLI criterion syntax.
func (v Value) String() string {
	switch {
	case v.Min != nil || v.Max != nil:
		lo, hi := "", ""
		if v.Min != nil {
			lo = strconv.FormatFloat(*v.Min, 'g', -1, 64)
		}
		if v.Max != nil {
			hi = strconv.FormatFloat(*v.Max, 'g', -1, 64)
		}
		return lo + ".." + hi
	case v.RadiusKm > 0:
		return fmt.Sprintf("%g,%g,%g", v.Lat, v.Lon, v.RadiusKm)
	default:
		return v.Text
	}
}

// Criterion is one atomic filter condition within a donor's search request.
type Criterion struct {
	// ID identifies the criterion within a single request. The planner
	// assigns "c<index>" when it is left empty.
	ID string `json:"id" yaml:"id,omitempty"`

	// Attribute is the student attribute key, e.g. "major" or "city".
	Attribute string `json:"attribute" yaml:"attribute"`

	Operator Operator `json:"operator" yaml:"operator"`
	Value    Value    `json:"value" yaml:"value"`

	// Weight scales this criterion's contribution to the relevance score.
	// Zero means "unspecified" and is replaced by DefaultWeight.
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// String renders the criterion for logs and tables.
func (c Criterion) String() string {
	return fmt.Sprintf("%s %s %s", c.Attribute, c.Operator, c.Value)
}

// Validate checks the criterion is well formed. It does not check whether
// any source can answer it; that is the planner's job.
func (c Criterion) Validate() error {
	if strings.TrimSpace(c.Attribute) == "" {
		return fmt.Errorf("criterion %q: attribute is required", c.ID)
	}
	if !c.Operator.Valid() {
		return fmt.Errorf("criterion %q: unknown operator %q", c.ID, c.Operator)
	}
	if c.Weight < 0 || !finite(c.Weight) {
		return fmt.Errorf("criterion %q: weight must be a positive number, got %g", c.ID, c.Weight)
	}
	switch c.Operator {
	case OpEquals, OpContains:
		if strings.TrimSpace(c.Value.Text) == "" {
			return fmt.Errorf("criterion %q: %s requires a text value", c.ID, c.Operator)
		}
	case OpRange:
		if c.Value.Min == nil && c.Value.Max == nil {
			return fmt.Errorf("criterion %q: range requires min or max", c.ID)
		}
		if (c.Value.Min != nil && math.IsNaN(*c.Value.Min)) || (c.Value.Max != nil && math.IsNaN(*c.Value.Max)) {
			return fmt.Errorf("criterion %q: range bounds must be numbers", c.ID)
		}
		if c.Value.Min != nil && c.Value.Max != nil && *c.Value.Min > *c.Value.Max {
			return fmt.Errorf("criterion %q: range min %g exceeds max %g", c.ID, *c.Value.Min, *c.Value.Max)
		}
	case OpNear:
		if c.Value.RadiusKm <= 0 || !finite(c.Value.RadiusKm) {
			return fmt.Errorf("criterion %q: near requires a positive radius_km", c.ID)
		}
		if !finite(c.Value.Lat) || !finite(c.Value.Lon) || math.Abs(c.Value.Lat) > 90 || math.Abs(c.Value.Lon) > 180 {
			return fmt.Errorf("criterion %q: near requires a valid lat,lon", c.ID)
		}
	}
	return nil
}

// SourceQuery is the subset of a request's criteria routed to one source.
type SourceQuery struct {
	SourceID string      `json:"source_id" yaml:"source_id"`
	Criteria []Criterion `json:"criteria" yaml:"criteria"`
}

// CriterionIDs returns the IDs of the query's criteria in order.
func (q SourceQuery) CriterionIDs() []string {
	ids := make([]string, len(q.Criteria))
	for i, c := range q.Criteria {
		ids[i] = c.ID
	}
	return ids
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
