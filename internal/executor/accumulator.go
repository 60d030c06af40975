// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package executor

import (
	"sync"

	"github.com/pdiddy/donor-match/pkg/types"
)

type slot struct {
	done    bool
	results []types.SourceResult
	failure *types.SourceFailure
}

// accumulator holds one slot per source. Each slot is written at most once,
// and nothing is written after seal.
type accumulator struct {
	mu     sync.Mutex
	sealed bool
	slots  []slot
}

func newAccumulator(queries []types.SourceQuery) *accumulator {
	return &accumulator{slots: make([]slot, len(queries))}
}

func (a *accumulator) succeed(i int, results []types.SourceResult) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed || a.slots[i].done {
		return false
	}
	a.slots[i] = slot{done: true, results: results}
	return true
}

func (a *accumulator) fail(i int, kind types.FailureKind, msg string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.sealed || a.slots[i].done {
		return false
	}
	a.slots[i] = slot{done: true, failure: &types.SourceFailure{Kind: kind, Message: msg}}
	return true
}

// seal marks every unfinished slot BudgetExceeded, forbids further writes,
// and returns a snapshot of the slots.
func (a *accumulator) seal(reason string) []slot {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sealed = true
	out := make([]slot, len(a.slots))
	for i, s := range a.slots {
		if !s.done {
			s = slot{done: true, failure: &types.SourceFailure{Kind: types.FailureBudgetExceeded, Message: reason}}
			a.slots[i] = s
		}
		out[i] = s
	}
	return out
}
