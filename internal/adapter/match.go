// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/donor-match/pkg/types"
)

const earthRadiusKm = 6371.0

// Matches reports whether any of values satisfies c. Multi-valued attributes
// (a double major, several activities) match when at least one value does.
func Matches(c types.Criterion, values []string) bool {
	for _, v := range values {
		if matchOne(c, v) {
			return true
		}
	}
	return false
}

func matchOne(c types.Criterion, value string) bool {
	switch c.Operator {
	case types.OpEquals:
		return equalValues(value, c.Value.Text)
	case types.OpContains:
		needle := normalize(c.Value.Text)
		return needle != "" && strings.Contains(normalize(value), needle)
	case types.OpRange:
		n, ok := parseNumber(value)
		if !ok {
			return false
		}
		return InRange(n, c.Value.Min, c.Value.Max)
	case types.OpNear:
		lat, lon, ok := ParsePoint(value)
		if !ok {
			return false
		}
		return Haversine(lat, lon, c.Value.Lat, c.Value.Lon) <= c.Value.RadiusKm
	}
	return false
}

func equalValues(a, b string) bool {
	x, okA := parseNumber(a)
	y, okB := parseNumber(b)
	if okA && okB {
		return x == y
	}
	return normalize(a) == normalize(b)
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	return n, err == nil
}

func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// InRange reports whether n lies in the inclusive range [min, max]. A nil
// bound is open.
func InRange(n float64, min, max *float64) bool {
	if min != nil && n < *min {
		return false
	}
	if max != nil && n > *max {
		return false
	}
	return true
}

// ParsePoint parses a "lat,lon" attribute value.
func ParsePoint(s string) (lat, lon float64, ok bool) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return 0, 0, false
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return 0, 0, false
	}
	lon, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// Haversine returns the great-circle distance in kilometres.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLon := (lon2 - lon1) * rad
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Min(1, math.Sqrt(a)))
}

// Record is one student's attributes as held by a record-oriented source.
type Record struct {
	StudentID string `json:"student_id" yaml:"student_id"`

	// Confidence is the source's trust in this record. Zero means unset
	// and reads as 1.0; values above 1 are capped.
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`

	Attributes map[string][]string `json:"attributes" yaml:"attributes"`
}

// Values returns the record's values for attribute, matched
// case-insensitively.
func (r Record) Values(attribute string) []string {
	if v, ok := r.Attributes[attribute]; ok {
		return v
	}
	for k, v := range r.Attributes {
		if strings.EqualFold(k, attribute) {
			return v
		}
	}
	return nil
}

func (r Record) confidence() float64 {
	if r.Confidence <= 0 {
		return 1.0
	}
	return math.Min(r.Confidence, 1.0)
}

// evaluate scores a record against criteria and returns the result, or false
// when the record satisfies none of them.
func evaluate(source string, r Record, criteria []types.Criterion, now time.Time) (types.SourceResult, bool) {
	var satisfied []string
	for _, c := range criteria {
		if Matches(c, r.Values(c.Attribute)) {
			satisfied = append(satisfied, c.ID)
		}
	}
	if len(satisfied) == 0 {
		return types.SourceResult{}, false
	}
	return types.SourceResult{
		SourceID:   source,
		StudentID:  r.StudentID,
		Satisfied:  satisfied,
		Confidence: r.confidence(),
		FetchedAt:  now,
	}, true
}

// sortResults orders results by student ID so adapters return stable output.
func sortResults(results []types.SourceResult) {
	sort.Slice(results, func(i, j int) bool {
		return results[i].StudentID < results[j].StudentID
	})
}
