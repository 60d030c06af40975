// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/donor-match/pkg/types"
)

func f(v float64) *float64 { return &v }

func eq(id, attr, text string) types.Criterion {
	return types.Criterion{ID: id, Attribute: attr, Operator: types.OpEquals, Value: types.Value{Text: text}}
}

var academicCaps = map[string][]types.Operator{
	"major": {types.OpEquals, types.OpContains},
	"gpa":   {types.OpRange},
}

func sampleRecords() []Record {
	return []Record{
		{StudentID: "S2", Confidence: 0.7, Attributes: map[string][]string{"major": {"Biology"}, "gpa": {"3.1"}}},
		{StudentID: "S1", Confidence: 0.9, Attributes: map[string][]string{"major": {"STEM", "Mathematics"}, "gpa": {"3.8"}}},
		{StudentID: "S3", Attributes: map[string][]string{"Major": {"Art History"}, "gpa": {"n/a"}}},
	}
}

// --- matcher ---

func TestMatches(t *testing.T) {
	chicago := "41.8781,-87.6298"
	evanston := "42.0451,-87.6877"
	nyc := "40.7128,-74.0060"

	tests := []struct {
		name   string
		c      types.Criterion
		values []string
		want   bool
	}{
		{"equals case-insensitive", eq("c0", "major", "stem"), []string{"STEM"}, true},
		{"equals collapses whitespace", eq("c0", "city", "New  York"), []string{" new york "}, true},
		{"equals numeric", eq("c0", "year", "2"), []string{"2.0"}, true},
		{"equals miss", eq("c0", "major", "Art"), []string{"Art History"}, false},
		{"equals any of multi-valued", eq("c0", "major", "Mathematics"), []string{"Physics", "Mathematics"}, true},
		{"contains", types.Criterion{Operator: types.OpContains, Value: types.Value{Text: "history"}}, []string{"Art History"}, true},
		{"contains miss", types.Criterion{Operator: types.OpContains, Value: types.Value{Text: "chem"}}, []string{"Biology"}, false},
		{"range inside", types.Criterion{Operator: types.OpRange, Value: types.Value{Min: f(3.0), Max: f(4.0)}}, []string{"3.5"}, true},
		{"range inclusive bound", types.Criterion{Operator: types.OpRange, Value: types.Value{Min: f(3.5)}}, []string{"3.5"}, true},
		{"range outside", types.Criterion{Operator: types.OpRange, Value: types.Value{Max: f(3.0)}}, []string{"3.5"}, false},
		{"range non-numeric", types.Criterion{Operator: types.OpRange, Value: types.Value{Min: f(0)}}, []string{"n/a"}, false},
		{"near within radius", types.Criterion{Operator: types.OpNear, Value: types.Value{Lat: 41.8781, Lon: -87.6298, RadiusKm: 25}}, []string{evanston}, true},
		{"near same point", types.Criterion{Operator: types.OpNear, Value: types.Value{Lat: 41.8781, Lon: -87.6298, RadiusKm: 1}}, []string{chicago}, true},
		{"near too far", types.Criterion{Operator: types.OpNear, Value: types.Value{Lat: 41.8781, Lon: -87.6298, RadiusKm: 100}}, []string{nyc}, false},
		{"near bad point", types.Criterion{Operator: types.OpNear, Value: types.Value{RadiusKm: 100}}, []string{"chicago"}, false},
		{"no values", eq("c0", "major", "STEM"), nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.c, tt.values))
		})
	}
}

func TestHaversine(t *testing.T) {
	// Chicago to New York is roughly 1145 km.
	d := Haversine(41.8781, -87.6298, 40.7128, -74.0060)
	assert.InDelta(t, 1145, d, 10)
	assert.InDelta(t, 0, Haversine(10, 10, 10, 10), 1e-9)
}

// --- capabilities and registry ---

func TestCapabilitiesFromConfigSorted(t *testing.T) {
	caps := CapabilitiesFromConfig(map[string][]types.Operator{
		"City":  {types.OpEquals},
		"major": {types.OpEquals, types.OpContains},
	})
	want := []Capability{
		{Attribute: "city", Operator: types.OpEquals},
		{Attribute: "major", Operator: types.OpContains},
		{Attribute: "major", Operator: types.OpEquals},
	}
	assert.Equal(t, want, caps)
}

func TestRegistryCapableSortedByID(t *testing.T) {
	geo := NewStaticAdapter("geo", map[string][]types.Operator{"city": {types.OpEquals}}, nil)
	census := NewStaticAdapter("census", map[string][]types.Operator{"city": {types.OpEquals}}, nil)
	acad := NewStaticAdapter("academic", academicCaps, nil)

	reg, err := NewRegistry(geo, acad, census)
	require.NoError(t, err)

	assert.Equal(t, []string{"academic", "census", "geo"}, reg.IDs())
	assert.Equal(t, []string{"census", "geo"}, reg.Capable(eq("c0", "CITY", "Chicago")))
	assert.Empty(t, reg.Capable(types.Criterion{Attribute: "city", Operator: types.OpNear}))

	without := reg.Without("geo")
	assert.Equal(t, []string{"census"}, without.Capable(eq("c0", "city", "Chicago")))
	assert.Equal(t, 3, reg.Len(), "Without must not mutate the original")
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	a := NewStaticAdapter("geo", nil, nil)
	b := NewStaticAdapter("geo", nil, nil)
	_, err := NewRegistry(a, b)
	assert.ErrorIs(t, err, ErrDuplicateSource)
}

// --- errors ---

func TestSourceErrorClassification(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Unavailable("geo", cause)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Contains(t, err.Error(), "geo")

	var se *SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "geo", se.Source)

	assert.ErrorIs(t, Malformed("geo", "bad %s", "value"), ErrMalformedQuery)
	assert.ErrorIs(t, FromContext("geo", context.DeadlineExceeded), ErrTimeout)
	assert.Equal(t, context.Canceled, FromContext("geo", context.Canceled))
}

// --- static adapter ---

func TestStaticAdapterQuery(t *testing.T) {
	a := NewStaticAdapter("academic", academicCaps, sampleRecords())

	results, err := a.Query(context.Background(), []types.Criterion{
		eq("c0", "major", "STEM"),
		{ID: "c1", Attribute: "gpa", Operator: types.OpRange, Value: types.Value{Min: f(3.0)}},
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "S1", results[0].StudentID)
	assert.Equal(t, []string{"c0", "c1"}, results[0].Satisfied)
	assert.Equal(t, 0.9, results[0].Confidence)
	assert.Equal(t, "academic", results[0].SourceID)
	assert.False(t, results[0].FetchedAt.IsZero())

	assert.Equal(t, "S2", results[1].StudentID)
	assert.Equal(t, []string{"c1"}, results[1].Satisfied)
}

func TestStaticAdapterDefaultConfidence(t *testing.T) {
	a := NewStaticAdapter("academic", academicCaps, sampleRecords())
	results, err := a.Query(context.Background(), []types.Criterion{
		{ID: "c0", Attribute: "major", Operator: types.OpContains, Value: types.Value{Text: "history"}},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "S3", results[0].StudentID)
	assert.Equal(t, 1.0, results[0].Confidence)
}

func TestStaticAdapterRejectsUnsupportedCriterion(t *testing.T) {
	a := NewStaticAdapter("academic", academicCaps, sampleRecords())
	_, err := a.Query(context.Background(), []types.Criterion{eq("c0", "city", "Chicago")})
	assert.ErrorIs(t, err, ErrMalformedQuery)

	_, err = a.Query(context.Background(), nil)
	assert.ErrorIs(t, err, ErrMalformedQuery)
}

func TestStaticAdapterHonoursContext(t *testing.T) {
	a := NewStaticAdapter("academic", academicCaps, sampleRecords())

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	_, err := a.Query(ctx, []types.Criterion{eq("c0", "major", "STEM")})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestRecordConfidence(t *testing.T) {
	assert.Equal(t, 1.0, Record{}.confidence(), "zero reads as unset")
	assert.Equal(t, 0.4, Record{Confidence: 0.4}.confidence())
	assert.Equal(t, 1.0, Record{Confidence: 3}.confidence())
}
