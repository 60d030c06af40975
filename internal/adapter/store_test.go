// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/donor-match/pkg/types"
)

var geoCaps = map[string][]types.Operator{
	"city":     {types.OpEquals, types.OpContains},
	"location": {types.OpNear},
}

func geoRecords() []Record {
	return []Record{
		{StudentID: "S1", Confidence: 0.8, Attributes: map[string][]string{"city": {"Chicago"}, "location": {"41.8781,-87.6298"}}},
		{StudentID: "S2", Attributes: map[string][]string{"city": {"Evanston"}, "location": {"42.0451,-87.6877"}}},
		{StudentID: "S4", Attributes: map[string][]string{"city": {"New York"}, "location": {"40.7128,-74.0060"}}},
	}
}

func geoCriteria() []types.Criterion {
	return []types.Criterion{
		eq("c0", "city", "chicago"),
		{ID: "c1", Attribute: "location", Operator: types.OpNear, Value: types.Value{Lat: 41.8781, Lon: -87.6298, RadiusKm: 30}},
	}
}

// assertGeoResults checks the expected outcome shared by every storage adapter.
func assertGeoResults(t *testing.T, results []types.SourceResult, source string) {
	t.Helper()
	require.Len(t, results, 2)

	assert.Equal(t, "S1", results[0].StudentID)
	assert.ElementsMatch(t, []string{"c0", "c1"}, results[0].Satisfied)
	assert.InDelta(t, 0.8, results[0].Confidence, 1e-9)
	assert.Equal(t, source, results[0].SourceID)

	assert.Equal(t, "S2", results[1].StudentID)
	assert.Equal(t, []string{"c1"}, results[1].Satisfied)
	assert.InDelta(t, 1.0, results[1].Confidence, 1e-9)
}

// --- fixtures ---

func TestLoadFixtures(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "geo", "il"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geo", "il", "chicago.yaml"), []byte(`records:
  - student_id: S1
    confidence: 0.8
    attributes:
      city: [Chicago]
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geo", "ny.yaml"), []byte(`records:
  - student_id: S4
    attributes:
      city: [New York]
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "geo", "notes.txt"), []byte("ignored"), 0o644))

	records, err := LoadFixtures(filepath.Join(dir, "geo", "**", "*.yaml"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "S1", records[0].StudentID)
	assert.Equal(t, []string{"Chicago"}, records[0].Attributes["city"])
	assert.Equal(t, "S4", records[1].StudentID)
}

func TestLoadFixturesRejectsMissingStudentID(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(`records:
  - attributes:
      city: [Chicago]
`), 0o644))

	_, err := LoadFixtures(filepath.Join(dir, "*.yaml"))
	assert.ErrorContains(t, err, "no student_id")
}

func TestStaticAdapterGeo(t *testing.T) {
	a := NewStaticAdapter("geographic", geoCaps, geoRecords())
	results, err := a.Query(context.Background(), geoCriteria())
	require.NoError(t, err)
	assertGeoResults(t, results, "geographic")
}

// --- sqlite ---

func TestSQLiteAdapterQuery(t *testing.T) {
	a, err := OpenSQLite("geographic", filepath.Join(t.TempDir(), "geo", "geo.db"), geoCaps)
	require.NoError(t, err)
	defer a.Close()

	n, err := a.Load(context.Background(), geoRecords())
	require.NoError(t, err)
	assert.Equal(t, 6, n)

	results, err := a.Query(context.Background(), geoCriteria())
	require.NoError(t, err)
	assertGeoResults(t, results, "geographic")
}

func TestSQLiteAdapterLoadIsIdempotent(t *testing.T) {
	a, err := OpenSQLite("geographic", filepath.Join(t.TempDir(), "geo.db"), geoCaps)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Load(context.Background(), geoRecords())
	require.NoError(t, err)
	_, err = a.Load(context.Background(), geoRecords())
	require.NoError(t, err)

	results, err := a.Query(context.Background(), []types.Criterion{
		{ID: "c0", Attribute: "city", Operator: types.OpContains, Value: types.Value{Text: "york"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "S4", results[0].StudentID)
}

func TestSQLiteAdapterNumericEquals(t *testing.T) {
	a, err := OpenSQLite("academic", filepath.Join(t.TempDir(), "acad.db"), map[string][]types.Operator{"year": {types.OpEquals}})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Load(context.Background(), []Record{
		{StudentID: "S1", Attributes: map[string][]string{"year": {"2.0"}}},
		{StudentID: "S2", Attributes: map[string][]string{"year": {"3"}}},
	})
	require.NoError(t, err)

	results, err := a.Query(context.Background(), []types.Criterion{eq("c0", "year", "2")})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "S1", results[0].StudentID)
}

func TestSQLiteAdapterCancelled(t *testing.T) {
	a, err := OpenSQLite("geographic", filepath.Join(t.TempDir(), "geo.db"), geoCaps)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = a.Query(ctx, geoCriteria())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSQLiteAdapterMatchesStatic(t *testing.T) {
	records := []Record{
		{StudentID: "S1", Attributes: map[string][]string{"city": {"São Paulo"}}},
		{StudentID: "S2", Attributes: map[string][]string{"city": {"New  York"}}},
		{StudentID: "S3", Attributes: map[string][]string{"city": {"  ÉVORA "}}},
		{StudentID: "S4", Attributes: map[string][]string{"city": {"Chicago"}}},
	}
	static := NewStaticAdapter("geographic", geoCaps, records)
	db, err := OpenSQLite("geographic", filepath.Join(t.TempDir(), "geo.db"), geoCaps)
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Load(context.Background(), records)
	require.NoError(t, err)

	tests := []struct {
		name string
		c    types.Criterion
		want []string
	}{
		{"equals folds non-ascii case", eq("c0", "city", "SÃO PAULO"), []string{"S1"}},
		{"equals collapses whitespace", eq("c0", "city", "new york"), []string{"S2"}},
		{"equals trims", eq("c0", "city", "évora"), []string{"S3"}},
		{"contains non-ascii", types.Criterion{ID: "c0", Attribute: "city", Operator: types.OpContains, Value: types.Value{Text: "ão"}}, []string{"S1"}},
		{"contains across collapsed space", types.Criterion{ID: "c0", Attribute: "city", Operator: types.OpContains, Value: types.Value{Text: "w y"}}, []string{"S2"}},
	}
	ids := func(rs []types.SourceResult) []string {
		out := []string{}
		for _, r := range rs {
			out = append(out, r.StudentID)
		}
		return out
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fromStatic, err := static.Query(context.Background(), []types.Criterion{tt.c})
			require.NoError(t, err)
			fromSQLite, err := db.Query(context.Background(), []types.Criterion{tt.c})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(fromStatic))
			assert.Equal(t, tt.want, ids(fromSQLite))
		})
	}
}

// --- badger ---

func TestBadgerAdapterQuery(t *testing.T) {
	a, err := OpenBadger("geographic", "", geoCaps)
	require.NoError(t, err)
	defer a.Close()

	n, err := a.Load(context.Background(), geoRecords())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	results, err := a.Query(context.Background(), geoCriteria())
	require.NoError(t, err)
	assertGeoResults(t, results, "geographic")
}

func TestBadgerAdapterRejectsUnsupported(t *testing.T) {
	a, err := OpenBadger("geographic", "", geoCaps)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Query(context.Background(), []types.Criterion{eq("c0", "major", "STEM")})
	assert.ErrorIs(t, err, ErrMalformedQuery)
}
