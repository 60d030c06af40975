// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/pdiddy/donor-match/pkg/types"
)

// WireRequest is the JSON body sent to remote attribute services over HTTP
// and NATS.
type WireRequest struct {
	Source   string            `json:"source"`
	Criteria []types.Criterion `json:"criteria"`
}

// WireMatch is one student match in a remote response.
type WireMatch struct {
	StudentID  string   `json:"student_id"`
	Satisfied  []string `json:"satisfied"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// WireError lets a remote service reject a query in-band.
type WireError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// WireResponse is the JSON body returned by remote attribute services.
type WireResponse struct {
	Results []WireMatch `json:"results"`
	Error   *WireError  `json:"error,omitempty"`
}

// decodeWire parses a remote response body into source results.
func decodeWire(source string, data []byte, now time.Time) ([]types.SourceResult, error) {
	var wr WireResponse
	if err := json.Unmarshal(data, &wr); err != nil {
		return nil, Unavailable(source, fmt.Errorf("parsing response: %w", err))
	}
	if wr.Error != nil {
		return nil, wireError(source, wr.Error)
	}

	results := make([]types.SourceResult, 0, len(wr.Results))
	for _, m := range wr.Results {
		conf := 1.0
		if m.Confidence != nil {
			conf = *m.Confidence
		}
		results = append(results, types.SourceResult{
			SourceID:   source,
			StudentID:  m.StudentID,
			Satisfied:  m.Satisfied,
			Confidence: conf,
			FetchedAt:  now,
		})
	}
	sortResults(results)
	return results, nil
}

func wireError(source string, we *WireError) error {
	switch we.Kind {
	case "malformed", "MalformedQuery":
		return Malformed(source, "%s", we.Message)
	case "timeout", "Timeout":
		return Timeout(source, fmt.Errorf("%s", we.Message))
	default:
		return Unavailable(source, fmt.Errorf("%s: %s", we.Kind, we.Message))
	}
}
