// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package planner decomposes a structured search request into per-source
// sub-queries using the registry's declared capabilities.
package planner

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/pdiddy/donor-match/internal/adapter"
	"github.com/pdiddy/donor-match/pkg/types"
)

// ErrNoQueryableCriteria is returned when no registered source can answer
// any criterion of the request.
var ErrNoQueryableCriteria = errors.New("no queryable criteria")

// Plan is the outcome of planning one request.
type Plan struct {
	// Criteria holds every requested criterion with IDs and weights
	// normalized, in request order.
	Criteria []types.Criterion

	// Queries holds one SourceQuery per capable source, sorted by source ID.
	Queries []types.SourceQuery

	// Unsupported holds IDs of criteria no source can answer, in request order.
	Unsupported []string

	// Routes maps each queryable criterion ID to the sources it was sent to.
	Routes map[string][]string
}

// Queryable returns the criteria that were routed to at least one source.
func (p Plan) Queryable() []types.Criterion {
	out := make([]types.Criterion, 0, len(p.Criteria))
	for _, c := range p.Criteria {
		if _, ok := p.Routes[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

// Normalize validates criteria and fills in missing IDs ("c<index>") and
// weights (types.DefaultWeight). IDs must be unique within the request.
func Normalize(criteria []types.Criterion) ([]types.Criterion, error) {
	out := make([]types.Criterion, len(criteria))
	seen := make(map[string]bool, len(criteria))
	for i, c := range criteria {
		if c.ID == "" {
			c.ID = "c" + strconv.Itoa(i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("duplicate criterion id %q", c.ID)
		}
		seen[c.ID] = true
		if err := c.Validate(); err != nil {
			return nil, err
		}
		if c.Weight == 0 {
			c.Weight = types.DefaultWeight
		}
		out[i] = c
	}
	return out, nil
}

// Build routes every criterion to each source able to answer it and groups
// the routed criteria into one SourceQuery per source. The output depends
// only on the request and the registry. If nothing is routable it returns
// the plan (with Unsupported filled) and ErrNoQueryableCriteria.
func Build(criteria []types.Criterion, reg *adapter.Registry) (Plan, error) {
	normalized, err := Normalize(criteria)
	if err != nil {
		return Plan{}, err
	}

	plan := Plan{
		Criteria: normalized,
		Routes:   make(map[string][]string),
	}
	perSource := make(map[string][]types.Criterion)

	for _, c := range normalized {
		sources := reg.Capable(c)
		if len(sources) == 0 {
			plan.Unsupported = append(plan.Unsupported, c.ID)
			continue
		}
		plan.Routes[c.ID] = sources
		for _, id := range sources {
			perSource[id] = append(perSource[id], c)
		}
	}

	// reg.IDs() is sorted, so the query order is stable.
	for _, id := range reg.IDs() {
		if cs, ok := perSource[id]; ok {
			plan.Queries = append(plan.Queries, types.SourceQuery{SourceID: id, Criteria: cs})
		}
	}

	if len(plan.Queries) == 0 {
		return plan, ErrNoQueryableCriteria
	}
	return plan, nil
}
