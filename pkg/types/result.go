// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"sort"
	"time"
)

// SourceResult is one student match reported by a single adapter call.
// It is immutable once returned by the adapter.
type SourceResult struct {
	SourceID  string `json:"source_id" yaml:"source_id"`
	StudentID string `json:"student_id" yaml:"student_id"`

	// Satisfied holds the IDs of the criteria this student met at this source.
	Satisfied []string `json:"satisfied" yaml:"satisfied"`

	// Confidence is the source's certainty in the match, in [0, 1].
	Confidence float64 `json:"confidence" yaml:"confidence"`

	FetchedAt time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// Satisfaction records which source vouched for a criterion and how strongly.
type Satisfaction struct {
	SourceID   string    `json:"source_id" yaml:"source_id"`
	Confidence float64   `json:"confidence" yaml:"confidence"`
	FetchedAt  time.Time `json:"fetched_at" yaml:"fetched_at"`
}

// CandidateProfile is a student provisionally matched against a request.
type CandidateProfile struct {
	StudentID string `json:"student_id" yaml:"student_id"`

	// Satisfied maps criterion ID to the best evidence for it.
	Satisfied map[string]Satisfaction `json:"satisfied" yaml:"satisfied"`

	// Missing lists queryable criteria with no evidence for this student,
	// sorted.
	Missing []string `json:"missing,omitempty" yaml:"missing,omitempty"`

	Score float64 `json:"score" yaml:"score"`
}

// SatisfiedIDs returns the satisfied criterion IDs in sorted order.
func (c CandidateProfile) SatisfiedIDs() []string {
	ids := make([]string, 0, len(c.Satisfied))
	for id := range c.Satisfied {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// FailureKind classifies why a source did not contribute to a search.
type FailureKind string

const (
	FailureTimeout        FailureKind = "Timeout"
	FailureUnavailable    FailureKind = "Unavailable"
	FailureMalformedQuery FailureKind = "MalformedQuery"
	FailureBudgetExceeded FailureKind = "BudgetExceeded"
)

// SourceFailure describes a failed source in the manifest.
type SourceFailure struct {
	Kind    FailureKind `json:"kind" yaml:"kind"`
	Message string      `json:"message,omitempty" yaml:"message,omitempty"`
}

// NoteNoQueryableCriteria is set on a manifest when planning found no
// criterion any registered source can answer.
const NoteNoQueryableCriteria = "NoQueryableCriteria"

// SearchManifest reports which sources contributed to a search and which
// did not. Every response carries one, including successful ones.
type SearchManifest struct {
	RequestID string `json:"request_id" yaml:"request_id"`

	SucceededSources []string                 `json:"succeeded_sources" yaml:"succeeded_sources"`
	FailedSources    map[string]SourceFailure `json:"failed_sources" yaml:"failed_sources"`

	// Partial is true whenever FailedSources is non-empty.
	Partial bool `json:"partial" yaml:"partial"`

	// Unsupported lists criteria no registered source can answer.
	Unsupported []string `json:"unsupported,omitempty" yaml:"unsupported,omitempty"`

	// Unanswered lists criteria whose every planned source failed.
	Unanswered []string `json:"unanswered,omitempty" yaml:"unanswered,omitempty"`

	Note    string        `json:"note,omitempty" yaml:"note,omitempty"`
	Elapsed time.Duration `json:"elapsed" yaml:"elapsed"`
}

// NewManifest returns an empty manifest with initialized collections.
func NewManifest(requestID string) SearchManifest {
	return SearchManifest{
		RequestID:        requestID,
		SucceededSources: []string{},
		FailedSources:    map[string]SourceFailure{},
	}
}

// Degraded reports whether any source failed.
func (m SearchManifest) Degraded() bool {
	return len(m.FailedSources) > 0
}

// FailedIDs returns the failed source IDs in sorted order.
func (m SearchManifest) FailedIDs() []string {
	ids := make([]string, 0, len(m.FailedSources))
	for id := range m.FailedSources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
