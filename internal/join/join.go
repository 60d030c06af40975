// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package join merges per-source results into one candidate per student.
package join

import (
	"sort"

	"github.com/pdiddy/donor-match/pkg/types"
)

// Join groups results by student ID. A criterion satisfied by any source
// counts as satisfied; its evidence is the highest-confidence source, ties
// going to the most recently fetched and then to the smaller source ID.
//
// queryable lists the criteria eligible for scoring: requested criteria
// minus unsupported and unanswered ones. Results citing any other criterion
// ID contribute nothing for it, and a student left with no satisfied
// criterion produces no candidate. Missing is queryable minus satisfied.
// Output is sorted by student ID and does not depend on input order.
func Join(results []types.SourceResult, queryable []types.Criterion) []types.CandidateProfile {
	eligible := make(map[string]bool, len(queryable))
	for _, c := range queryable {
		eligible[c.ID] = true
	}

	byStudent := make(map[string]map[string]types.Satisfaction)
	for _, r := range results {
		for _, id := range r.Satisfied {
			if !eligible[id] {
				continue
			}
			sat, ok := byStudent[r.StudentID]
			if !ok {
				sat = make(map[string]types.Satisfaction)
				byStudent[r.StudentID] = sat
			}
			ev := types.Satisfaction{SourceID: r.SourceID, Confidence: r.Confidence, FetchedAt: r.FetchedAt}
			if cur, ok := sat[id]; !ok || better(ev, cur) {
				sat[id] = ev
			}
		}
	}

	candidates := make([]types.CandidateProfile, 0, len(byStudent))
	for student, sat := range byStudent {
		cp := types.CandidateProfile{StudentID: student, Satisfied: sat}
		for _, c := range queryable {
			if _, ok := sat[c.ID]; !ok {
				cp.Missing = append(cp.Missing, c.ID)
			}
		}
		sort.Strings(cp.Missing)
		candidates = append(candidates, cp)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].StudentID < candidates[j].StudentID
	})
	return candidates
}

// better reports whether a should replace b as a criterion's evidence.
func better(a, b types.Satisfaction) bool {
	if a.Confidence != b.Confidence {
		return a.Confidence > b.Confidence
	}
	if !a.FetchedAt.Equal(b.FetchedAt) {
		return a.FetchedAt.After(b.FetchedAt)
	}
	return a.SourceID < b.SourceID
}

// Filter keeps candidates in include (when non-empty) and drops those in
// exclude.
func Filter(candidates []types.CandidateProfile, include, exclude []string) []types.CandidateProfile {
	if len(include) == 0 && len(exclude) == 0 {
		return candidates
	}
	in := toSet(include)
	out := toSet(exclude)
	kept := candidates[:0:0]
	for _, c := range candidates {
		if len(in) > 0 && !in[c.StudentID] {
			continue
		}
		if out[c.StudentID] {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

func toSet(ids []string) map[string]bool {
	s := make(map[string]bool, len(ids))
	for _, id := range ids {
		s[id] = true
	}
	return s
}
