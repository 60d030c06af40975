// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/donor-match/pkg/types"
)

func ptr(f float64) *float64 { return &f }

func TestParseCriterion(t *testing.T) {
	tests := []struct {
		in   string
		want types.Criterion
	}{
		{"major=STEM", types.Criterion{Attribute: "major", Operator: types.OpEquals, Value: types.Value{Text: "STEM"}}},
		{"major=STEM:2", types.Criterion{Attribute: "major", Operator: types.OpEquals, Value: types.Value{Text: "STEM"}, Weight: 2}},
		{"city~chicago", types.Criterion{Attribute: "city", Operator: types.OpContains, Value: types.Value{Text: "chicago"}}},
		{"gpa:3.5..4", types.Criterion{Attribute: "gpa", Operator: types.OpRange, Value: types.Value{Min: ptr(3.5), Max: ptr(4)}}},
		{"gpa:3.5..", types.Criterion{Attribute: "gpa", Operator: types.OpRange, Value: types.Value{Min: ptr(3.5)}}},
		{"income:..50000:1.5", types.Criterion{Attribute: "income", Operator: types.OpRange, Value: types.Value{Max: ptr(50000)}, Weight: 1.5}},
		{"location@41.88,-87.63,25", types.Criterion{Attribute: "location", Operator: types.OpNear,
			Value: types.Value{Lat: 41.88, Lon: -87.63, RadiusKm: 25}}},
		{"location@41.88,-87.63,25:3", types.Criterion{Attribute: "location", Operator: types.OpNear,
			Value: types.Value{Lat: 41.88, Lon: -87.63, RadiusKm: 25}, Weight: 3}},
		{" first_gen = yes ", types.Criterion{Attribute: "first_gen", Operator: types.OpEquals, Value: types.Value{Text: "yes"}}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseCriterion(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCriterionErrors(t *testing.T) {
	tests := []struct {
		in     string
		errMsg string
	}{
		{"STEM", "expected key=value"},
		{"=STEM", "expected key=value"},
		{"major=", "requires a text value"},
		{"gpa:3.5", "range must be lo..hi"},
		{"gpa:..", "range requires min or max"},
		{"gpa:4..3", "exceeds max"},
		{"gpa:abc..4", "range min"},
		{"location@41.88,-87.63", "near must be lat,lon,km"},
		{"location@41.88,-87.63,0", "positive radius_km"},
		{"location@north,-87.63,5", "invalid syntax"},
		{"major=STEM:NaN", "weight must be a positive number"},
		{"major=STEM:+Inf", "weight must be a positive number"},
		{"location@95,-87.63,5", "valid lat,lon"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := parseCriterion(tt.in)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestParseCriteria(t *testing.T) {
	got, err := parseCriteria([]string{"major=STEM:2", "city=Chicago"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "major", got[0].Attribute)
	assert.Equal(t, "city", got[1].Attribute)

	_, err = parseCriteria([]string{"major=STEM", "bogus"})
	assert.Error(t, err)
}
