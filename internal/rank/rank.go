// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank scores joined candidates against the request and produces a
// deterministic total order.
package rank

import (
	"math"
	"sort"

	"github.com/pdiddy/donor-match/pkg/types"
)

// Score computes weighted confidence coverage:
//
//	Σ_{satisfied c} weight(c) × confidence(c)  /  Σ_{queryable c} weight(c)
//
// The result lies in [0, 1]. Satisfied criteria outside queryable are
// ignored, as are weights that are not positive and finite.
func Score(c types.CandidateProfile, queryable []types.Criterion) float64 {
	// Weights are scaled by the largest so that huge weights cannot
	// overflow the sums.
	var top float64
	for _, cr := range queryable {
		if valid(cr.Weight) && cr.Weight > top {
			top = cr.Weight
		}
	}
	if top == 0 {
		return 0
	}

	var num, den float64
	for _, cr := range queryable {
		if !valid(cr.Weight) {
			continue
		}
		w := cr.Weight / top
		den += w
		if ev, ok := c.Satisfied[cr.ID]; ok && !math.IsNaN(ev.Confidence) {
			num += w * math.Max(0, math.Min(1, ev.Confidence))
		}
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func valid(w float64) bool {
	return w > 0 && !math.IsInf(w, 0)
}

// Rank scores every candidate, drops those scoring zero, and sorts the rest
// by descending score, then by more satisfied criteria, then by ascending
// student ID. The returned order is a pure function of the candidate set.
func Rank(candidates []types.CandidateProfile, queryable []types.Criterion) []types.CandidateProfile {
	ranked := make([]types.CandidateProfile, 0, len(candidates))
	for _, c := range candidates {
		c.Score = Score(c, queryable)
		if c.Score <= 0 {
			continue
		}
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})
	return ranked
}

// Less reports whether a ranks ahead of b.
func Less(a, b types.CandidateProfile) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if len(a.Satisfied) != len(b.Satisfied) {
		return len(a.Satisfied) > len(b.Satisfied)
	}
	return a.StudentID < b.StudentID
}
