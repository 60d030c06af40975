// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/donor-match/pkg/types"
)

// FixtureFile is the on-disk shape of a static record file.
type FixtureFile struct {
	Records []Record `yaml:"records"`
}

// StaticAdapter answers criteria from an in-memory record set. It backs
// small reference tables loaded from YAML and serves as a deterministic
// fake in tests.
type StaticAdapter struct {
	capabilitySet
	records []Record
	now     func() time.Time
}

// NewStaticAdapter creates a static adapter over records.
func NewStaticAdapter(id string, caps map[string][]types.Operator, records []Record) *StaticAdapter {
	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].StudentID < sorted[j].StudentID })
	return &StaticAdapter{
		capabilitySet: newCapabilitySet(id, caps),
		records:       sorted,
		now:           time.Now,
	}
}

// LoadFixtures reads every YAML file matching the doublestar pattern and
// returns the concatenated records.
func LoadFixtures(pattern string) ([]Record, error) {
	paths, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("expanding fixture pattern %q: %w", pattern, err)
	}
	sort.Strings(paths)

	var records []Record
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading fixture file: %w", err)
		}
		var ff FixtureFile
		if err := yaml.Unmarshal(data, &ff); err != nil {
			return nil, fmt.Errorf("parsing fixture file %s: %w", p, err)
		}
		for i, r := range ff.Records {
			if r.StudentID == "" {
				return nil, fmt.Errorf("fixture file %s: record %d has no student_id", p, i)
			}
		}
		records = append(records, ff.Records...)
	}
	return records, nil
}

// Records returns a copy of the adapter's records.
func (a *StaticAdapter) Records() []Record {
	out := make([]Record, len(a.records))
	copy(out, a.records)
	return out
}

// Query evaluates criteria against every record.
func (a *StaticAdapter) Query(ctx context.Context, criteria []types.Criterion) ([]types.SourceResult, error) {
	if err := a.check(criteria); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, FromContext(a.id, err)
	}

	now := a.now()
	var results []types.SourceResult
	for _, r := range a.records {
		if res, ok := evaluate(a.id, r, criteria, now); ok {
			results = append(results, res)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, FromContext(a.id, err)
	}
	return results, nil
}
