// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package match is the single entry point for donor searches. It drives
// planning, scatter-gather, joining and ranking, and returns one page of
// ranked candidates with a manifest describing degraded sources.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/donor-match/internal/adapter"
	"github.com/pdiddy/donor-match/internal/executor"
	"github.com/pdiddy/donor-match/internal/join"
	"github.com/pdiddy/donor-match/internal/planner"
	"github.com/pdiddy/donor-match/internal/rank"
	"github.com/pdiddy/donor-match/pkg/types"
)

var (
	// ErrInvalidPagination is returned when page or page size is out of range.
	ErrInvalidPagination = errors.New("invalid pagination")

	// ErrInvalidCriteria is returned when a criterion is malformed.
	ErrInvalidCriteria = errors.New("invalid criteria")

	// ErrNoQueryableCriteria is returned, together with an empty page and a
	// populated manifest, when no registered source can answer any criterion.
	ErrNoQueryableCriteria = planner.ErrNoQueryableCriteria
)

// Request is a structured donor search.
type Request struct {
	Criteria []types.Criterion `json:"criteria" yaml:"criteria"`
	Page     int               `json:"page" yaml:"page"`
	PageSize int               `json:"page_size" yaml:"page_size"`

	// Include, when non-empty, restricts results to these student IDs.
	Include []string `json:"include_students,omitempty" yaml:"include_students,omitempty"`

	// Exclude removes these student IDs from results.
	Exclude []string `json:"exclude_students,omitempty" yaml:"exclude_students,omitempty"`
}

// Response is one page of ranked candidates.
type Response struct {
	Candidates []types.CandidateProfile `json:"candidates" yaml:"candidates"`
	Manifest   types.SearchManifest     `json:"manifest" yaml:"manifest"`

	// Total is the number of ranked candidates across all pages.
	Total    int `json:"total" yaml:"total"`
	Page     int `json:"page" yaml:"page"`
	PageSize int `json:"page_size" yaml:"page_size"`
}

// RegistryProvider returns the registry snapshot to use for one request.
type RegistryProvider interface {
	Current() *adapter.Registry
}

type fixedRegistry struct{ reg *adapter.Registry }

func (f fixedRegistry) Current() *adapter.Registry { return f.reg }

// Fixed wraps a registry that never changes.
func Fixed(reg *adapter.Registry) RegistryProvider {
	return fixedRegistry{reg: reg}
}

// Service is the matchmaking facade.
type Service struct {
	registry RegistryProvider
	exec     *executor.Executor
	cfg      types.MatchConfig
	logger   *slog.Logger
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger.With("component", "match")
	}
}

// WithRequestIDs overrides request ID generation.
func WithRequestIDs(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// NewService creates the facade.
func NewService(registry RegistryProvider, exec *executor.Executor, cfg types.MatchConfig, opts ...Option) *Service {
	s := &Service{
		registry: registry,
		exec:     exec,
		cfg:      cfg.WithDefaults(),
		logger:   slog.Default().With("component", "match"),
		newID:    func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs the full pipeline for req. Only request-level problems are
// returned as errors (ErrInvalidPagination, ErrInvalidCriteria,
// ErrNoQueryableCriteria); source failures are reported in the manifest of
// an otherwise successful response. With ErrNoQueryableCriteria the
// response is still populated: an empty page and a manifest carrying the
// note and the unsupported criteria.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	manifest := types.NewManifest(s.newID())
	resp := Response{
		Candidates: []types.CandidateProfile{},
		Manifest:   manifest,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}

	if err := s.validatePage(req.Page, req.PageSize); err != nil {
		s.exec.Metrics().ObserveSearch("invalid")
		return resp, err
	}

	reg := s.registry.Current()
	if reg == nil {
		reg, _ = adapter.NewRegistry()
	}

	plan, err := planner.Build(req.Criteria, reg)
	resp.Manifest.Unsupported = plan.Unsupported
	switch {
	case errors.Is(err, planner.ErrNoQueryableCriteria):
		resp.Manifest.Note = types.NoteNoQueryableCriteria
		resp.Manifest.Elapsed = time.Since(start)
		s.exec.Metrics().ObserveSearch("no_queryable_criteria")
		s.logger.Info("no queryable criteria", "request_id", manifest.RequestID, "unsupported", plan.Unsupported)
		return resp, err
	case err != nil:
		s.exec.Metrics().ObserveSearch("invalid")
		return resp, fmt.Errorf("%w: %v", ErrInvalidCriteria, err)
	}

	results, execManifest := s.exec.Execute(ctx, reg, plan.Queries, executor.Limits{
		SourceTimeout: s.cfg.SourceTimeout,
		Budget:        s.cfg.Budget,
	})
	resp.Manifest.SucceededSources = execManifest.SucceededSources
	resp.Manifest.FailedSources = execManifest.FailedSources
	resp.Manifest.Partial = execManifest.Partial
	resp.Manifest.Unanswered = unanswered(plan, execManifest)

	queryable := scorable(plan, resp.Manifest.Unanswered)
	candidates := join.Join(results, queryable)
	candidates = join.Filter(candidates, req.Include, req.Exclude)
	ranked := rank.Rank(candidates, queryable)

	resp.Total = len(ranked)
	resp.Candidates = paginate(ranked, req.Page, req.PageSize)
	resp.Manifest.Elapsed = time.Since(start)

	outcome := "ok"
	if resp.Manifest.Partial {
		outcome = "partial"
	}
	s.exec.Metrics().ObserveSearch(outcome)
	s.logger.Debug("search complete",
		"request_id", resp.Manifest.RequestID, "criteria", len(plan.Criteria),
		"sources", len(plan.Queries), "failed", len(resp.Manifest.FailedSources),
		"total", resp.Total, "page", req.Page, "elapsed", resp.Manifest.Elapsed)
	return resp, nil
}

func (s *Service) validatePage(page, pageSize int) error {
	if page <= 0 {
		return fmt.Errorf("%w: page must be >= 1, got %d", ErrInvalidPagination, page)
	}
	if pageSize <= 0 {
		return fmt.Errorf("%w: page_size must be >= 1, got %d", ErrInvalidPagination, pageSize)
	}
	if pageSize > s.cfg.MaxPageSize {
		return fmt.Errorf("%w: page_size must be <= %d, got %d", ErrInvalidPagination, s.cfg.MaxPageSize, pageSize)
	}
	return nil
}

// unanswered lists criteria whose every routed source failed.
func unanswered(plan planner.Plan, m types.SearchManifest) []string {
	var out []string
	for _, c := range plan.Criteria {
		sources, ok := plan.Routes[c.ID]
		if !ok {
			continue
		}
		failed := 0
		for _, id := range sources {
			if _, bad := m.FailedSources[id]; bad {
				failed++
			}
		}
		if failed == len(sources) {
			out = append(out, c.ID)
		}
	}
	return out
}

// scorable returns the queryable criteria that at least one source answered.
func scorable(plan planner.Plan, unanswered []string) []types.Criterion {
	skip := make(map[string]bool, len(unanswered))
	for _, id := range unanswered {
		skip[id] = true
	}
	var out []types.Criterion
	for _, c := range plan.Queryable() {
		if !skip[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

func paginate(ranked []types.CandidateProfile, page, pageSize int) []types.CandidateProfile {
	// Compare page numbers first; (page-1)*pageSize can overflow.
	if page-1 > len(ranked)/pageSize {
		return []types.CandidateProfile{}
	}
	start := (page - 1) * pageSize
	if start >= len(ranked) {
		return []types.CandidateProfile{}
	}
	end := start + pageSize
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[start:end]
}
