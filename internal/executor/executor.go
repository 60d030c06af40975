// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package executor dispatches per-source sub-queries concurrently and
// gathers whatever results arrive within the per-source timeout and the
// overall budget. Source failures never abort the batch; they are recorded
// in the manifest.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/pdiddy/donor-match/internal/adapter"
	"github.com/pdiddy/donor-match/pkg/types"
)

// Limits bounds one scatter-gather run.
type Limits struct {
	// SourceTimeout bounds each dispatch independently.
	SourceTimeout time.Duration

	// Budget bounds the whole run. Dispatches still pending when it
	// elapses are cancelled and reported as BudgetExceeded.
	Budget time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.SourceTimeout <= 0 {
		l.SourceTimeout = types.DefaultSourceTimeout
	}
	if l.Budget <= 0 {
		l.Budget = types.DefaultBudget
	}
	return l
}

// Executor runs scatter-gather batches on a worker pool shared by all
// requests. All per-request state lives inside Execute.
type Executor struct {
	pool    *ants.Pool
	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures an Executor.
type Option func(*Executor) error

// WithPoolSize sets the number of dispatch workers.
// Default is types.DefaultPoolSize.
func WithPoolSize(size int) Option {
	return func(e *Executor) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if e.pool != nil {
			e.pool.Release()
		}
		e.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "executor")
		return nil
	}
}

// WithMetrics records dispatch outcomes and latencies.
func WithMetrics(m *Metrics) Option {
	return func(e *Executor) error {
		e.metrics = m
		return nil
	}
}

// New creates an executor.
func New(opts ...Option) (*Executor, error) {
	pool, err := ants.NewPool(types.DefaultPoolSize)
	if err != nil {
		return nil, err
	}
	e := &Executor{
		pool:   pool,
		logger: slog.Default().With("component", "executor"),
		now:    time.Now,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			e.pool.Release()
			return nil, err
		}
	}
	return e, nil
}

// Release stops the worker pool.
func (e *Executor) Release() {
	e.pool.Release()
}

// Metrics returns the executor's metrics, or nil.
func (e *Executor) Metrics() *Metrics {
	return e.metrics
}

// Execute dispatches every query to its adapter in parallel and returns the
// collected results, in query order, with a manifest describing which
// sources succeeded and which failed. It returns as soon as every dispatch
// has finished or the budget has elapsed, whichever comes first.
func (e *Executor) Execute(ctx context.Context, reg *adapter.Registry, queries []types.SourceQuery, limits Limits) ([]types.SourceResult, types.SearchManifest) {
	limits = limits.withDefaults()
	start := e.now()

	budgetCtx, cancel := context.WithTimeout(ctx, limits.Budget)
	defer cancel()

	acc := newAccumulator(queries)
	allDone := make(chan struct{})
	pending := make(chan struct{}, len(queries))

	// Submit blocks while the shared pool is saturated, so submission runs
	// beside the budget select rather than ahead of it.
	go func() {
		for i, q := range queries {
			a, ok := reg.Adapter(q.SourceID)
			switch {
			case !ok:
				acc.fail(i, types.FailureUnavailable, "source not registered")
				pending <- struct{}{}
				continue
			case budgetCtx.Err() != nil:
				pending <- struct{}{}
				continue
			}
			i, q := i, q
			err := e.pool.Submit(func() {
				defer func() { pending <- struct{}{} }()
				e.dispatch(budgetCtx, acc, i, q, a, limits.SourceTimeout)
			})
			if err != nil {
				acc.fail(i, types.FailureUnavailable, fmt.Sprintf("dispatch rejected: %v", err))
				pending <- struct{}{}
			}
		}
	}()

	go func() {
		for range queries {
			<-pending
		}
		close(allDone)
	}()

	select {
	case <-allDone:
	case <-budgetCtx.Done():
	}

	reason := "overall budget exceeded"
	if ctx.Err() != nil {
		reason = "request cancelled"
	}
	slots := acc.seal(reason)

	var results []types.SourceResult
	manifest := types.NewManifest("")
	for i, s := range slots {
		id := queries[i].SourceID
		if s.failure != nil {
			manifest.FailedSources[id] = *s.failure
			if s.failure.Kind == types.FailureBudgetExceeded {
				e.metrics.observeDispatch(id, string(types.FailureBudgetExceeded), e.now().Sub(start))
				e.logger.Warn("source cancelled by budget", "source", id, "budget", limits.Budget)
			}
			continue
		}
		manifest.SucceededSources = append(manifest.SucceededSources, id)
		results = append(results, s.results...)
	}
	manifest.Partial = len(manifest.FailedSources) > 0
	manifest.Elapsed = e.now().Sub(start)

	e.logger.Debug("scatter-gather complete",
		"sources", len(queries), "succeeded", len(manifest.SucceededSources),
		"failed", len(manifest.FailedSources), "results", len(results),
		"elapsed", manifest.Elapsed)
	return results, manifest
}

type reply struct {
	results []types.SourceResult
	err     error
}

// dispatch runs one adapter call under its own deadline. The adapter runs in
// a separate goroutine so an adapter that ignores its context still times
// out. Nothing is written to acc once the budget context is done.
func (e *Executor) dispatch(budgetCtx context.Context, acc *accumulator, i int, q types.SourceQuery, a adapter.Adapter, timeout time.Duration) {
	if budgetCtx.Err() != nil {
		return
	}

	srcCtx, cancel := context.WithTimeout(budgetCtx, timeout)
	defer cancel()

	start := e.now()
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: adapter.Unavailable(q.SourceID, fmt.Errorf("adapter panic: %v", r))}
			}
		}()
		res, err := a.Query(srcCtx, q.Criteria)
		ch <- reply{results: res, err: err}
	}()

	var r reply
	select {
	case r = <-ch:
	case <-srcCtx.Done():
		r = reply{err: srcCtx.Err()}
	}
	elapsed := e.now().Sub(start)

	if budgetCtx.Err() != nil {
		return
	}

	if r.err == nil {
		clean := sanitize(q, r.results, e.now())
		if acc.succeed(i, clean) {
			e.metrics.observeDispatch(q.SourceID, "ok", elapsed)
		}
		return
	}

	kind := classify(r.err)
	if acc.fail(i, kind, r.err.Error()) {
		e.metrics.observeDispatch(q.SourceID, string(kind), elapsed)
		e.logger.Warn("source failed", "source", q.SourceID, "kind", kind, "elapsed", elapsed, "err", r.err)
	}
}

// classify maps an adapter error onto a manifest failure kind. Errors that
// do not carry a kind are treated as the source being unavailable.
func classify(err error) types.FailureKind {
	switch {
	case errors.Is(err, adapter.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return types.FailureTimeout
	case errors.Is(err, adapter.ErrMalformedQuery):
		return types.FailureMalformedQuery
	default:
		return types.FailureUnavailable
	}
}

// sanitize enforces the adapter contract on returned results: only criteria
// that were sent to the source count, confidence is clamped into [0, 1], and
// the source ID is the one the query was addressed to.
func sanitize(q types.SourceQuery, results []types.SourceResult, now time.Time) []types.SourceResult {
	asked := make(map[string]bool, len(q.Criteria))
	for _, c := range q.Criteria {
		asked[c.ID] = true
	}

	out := make([]types.SourceResult, 0, len(results))
	for _, r := range results {
		if r.StudentID == "" {
			continue
		}
		seen := make(map[string]bool, len(r.Satisfied))
		var satisfied []string
		for _, id := range r.Satisfied {
			if asked[id] && !seen[id] {
				seen[id] = true
				satisfied = append(satisfied, id)
			}
		}
		if len(satisfied) == 0 {
			continue
		}
		conf := r.Confidence
		if math.IsNaN(conf) {
			conf = 0
		}
		r.Confidence = math.Max(0, math.Min(1, conf))
		r.Satisfied = satisfied
		r.SourceID = q.SourceID
		if r.FetchedAt.IsZero() {
			r.FetchedAt = now
		}
		out = append(out, r)
	}
	return out
}
