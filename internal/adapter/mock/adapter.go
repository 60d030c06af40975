// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mock provides a scriptable adapter for tests: fixed results,
// injected errors, artificial latency, and call counting.
package mock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/pdiddy/donor-match/internal/adapter"
	"github.com/pdiddy/donor-match/pkg/types"
)

// Adapter is a fake attribute source.
type Adapter struct {
	SourceID string
	Caps     []adapter.Capability

	// Results are returned as-is on success.
	Results []types.SourceResult

	// Err, when set, is returned instead of results.
	Err error

	// Delay is slept before answering. The sleep honours ctx unless
	// IgnoreContext is set.
	Delay         time.Duration
	IgnoreContext bool

	calls atomic.Int32
}

var _ adapter.Adapter = (*Adapter)(nil)

// New creates a fake source answering equals on each attribute.
func New(id string, attributes ...string) *Adapter {
	a := &Adapter{SourceID: id}
	for _, attr := range attributes {
		a.Caps = append(a.Caps, adapter.Capability{Attribute: attr, Operator: types.OpEquals})
	}
	return a
}

// Returning sets the results and returns the adapter for chaining.
func (a *Adapter) Returning(results ...types.SourceResult) *Adapter {
	a.Results = results
	return a
}

// Failing sets the error and returns the adapter for chaining.
func (a *Adapter) Failing(err error) *Adapter {
	a.Err = err
	return a
}

// Sleeping sets the delay and returns the adapter for chaining.
func (a *Adapter) Sleeping(d time.Duration, ignoreContext bool) *Adapter {
	a.Delay = d
	a.IgnoreContext = ignoreContext
	return a
}

func (a *Adapter) ID() string { return a.SourceID }

func (a *Adapter) Capabilities() []adapter.Capability {
	out := make([]adapter.Capability, len(a.Caps))
	copy(out, a.Caps)
	return out
}

// Calls returns how many times Query was invoked.
func (a *Adapter) Calls() int { return int(a.calls.Load()) }

func (a *Adapter) Query(ctx context.Context, _ []types.Criterion) ([]types.SourceResult, error) {
	a.calls.Add(1)
	if a.Delay > 0 {
		if a.IgnoreContext {
			time.Sleep(a.Delay)
		} else {
			select {
			case <-ctx.Done():
				return nil, adapter.FromContext(a.SourceID, ctx.Err())
			case <-time.After(a.Delay):
			}
		}
	}
	if a.Err != nil {
		return nil, a.Err
	}
	out := make([]types.SourceResult, len(a.Results))
	copy(out, a.Results)
	return out, nil
}

// Hit builds a SourceResult for tests.
func Hit(source, student string, confidence float64, criteria ...string) types.SourceResult {
	return types.SourceResult{
		SourceID:   source,
		StudentID:  student,
		Satisfied:  criteria,
		Confidence: confidence,
		FetchedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
