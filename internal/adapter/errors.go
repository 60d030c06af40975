// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrUnavailable means the source could not be reached or failed internally.
	ErrUnavailable = errors.New("source unavailable")

	// ErrMalformedQuery means the source rejected the criteria.
	ErrMalformedQuery = errors.New("malformed query")

	// ErrTimeout means the source did not answer before its deadline.
	ErrTimeout = errors.New("source timeout")

	// ErrDuplicateSource is returned when two adapters share an ID.
	ErrDuplicateSource = errors.New("duplicate source id")
)

// SourceError wraps a failure from one source with its classification.
type SourceError struct {
	Source string
	Kind   error
	Err    error
}

func (e *SourceError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Source, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *SourceError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Unavailable builds an ErrUnavailable SourceError.
func Unavailable(source string, err error) error {
	return &SourceError{Source: source, Kind: ErrUnavailable, Err: err}
}

// Malformed builds an ErrMalformedQuery SourceError.
func Malformed(source, format string, args ...any) error {
	return &SourceError{Source: source, Kind: ErrMalformedQuery, Err: fmt.Errorf(format, args...)}
}

// Timeout builds an ErrTimeout SourceError.
func Timeout(source string, err error) error {
	return &SourceError{Source: source, Kind: ErrTimeout, Err: err}
}

// FromContext classifies a context error raised inside an adapter. Deadline
// expiry is a timeout; anything else (cancellation) is reported as the raw
// context error so the executor can attribute it to the budget.
func FromContext(source string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(source, err)
	}
	return err
}
