// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/donor-match/pkg/types"
)

// parseCriterion reads the compact command-line criterion syntax:
//
//	key=value        equals
//	key~value        contains
//	key:lo..hi       range (either bound may be empty)
//	key@lat,lon,km   near
//
// Any form may end in :weight, e.g. major=STEM:2.
func parseCriterion(s string) (types.Criterion, error) {
	s = strings.TrimSpace(s)
	op := strings.IndexAny(s, "=~:@")
	if op <= 0 {
		return types.Criterion{}, fmt.Errorf("criterion %q: expected key=value, key~value, key:lo..hi or key@lat,lon,km", s)
	}

	c := types.Criterion{Attribute: strings.TrimSpace(s[:op])}
	rest := s[op+1:]

	if i := strings.LastIndex(rest, ":"); i >= 0 {
		if w, err := strconv.ParseFloat(rest[i+1:], 64); err == nil {
			c.Weight = w
			rest = rest[:i]
		}
	}

	switch s[op] {
	case '=':
		c.Operator = types.OpEquals
		c.Value.Text = strings.TrimSpace(rest)
	case '~':
		c.Operator = types.OpContains
		c.Value.Text = strings.TrimSpace(rest)
	case ':':
		c.Operator = types.OpRange
		lo, hi, ok := strings.Cut(rest, "..")
		if !ok {
			return types.Criterion{}, fmt.Errorf("criterion %q: range must be lo..hi", s)
		}
		var err error
		if c.Value.Min, err = optionalFloat(lo); err != nil {
			return types.Criterion{}, fmt.Errorf("criterion %q: range min: %w", s, err)
		}
		if c.Value.Max, err = optionalFloat(hi); err != nil {
			return types.Criterion{}, fmt.Errorf("criterion %q: range max: %w", s, err)
		}
	case '@':
		c.Operator = types.OpNear
		parts := strings.Split(rest, ",")
		if len(parts) != 3 {
			return types.Criterion{}, fmt.Errorf("criterion %q: near must be lat,lon,km", s)
		}
		nums := make([]float64, 3)
		for i, p := range parts {
			n, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return types.Criterion{}, fmt.Errorf("criterion %q: %w", s, err)
			}
			nums[i] = n
		}
		c.Value.Lat, c.Value.Lon, c.Value.RadiusKm = nums[0], nums[1], nums[2]
	}

	if err := c.Validate(); err != nil {
		return types.Criterion{}, fmt.Errorf("criterion %q: %w", s, err)
	}
	return c, nil
}

func optionalFloat(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func parseCriteria(args []string) ([]types.Criterion, error) {
	out := make([]types.Criterion, 0, len(args))
	for _, a := range args {
		c, err := parseCriterion(a)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
