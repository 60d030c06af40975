// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pdiddy/donor-match/internal/httputil"
	"github.com/pdiddy/donor-match/pkg/types"
)

// maxResponseBytes bounds how much of a remote response is read.
const maxResponseBytes = 8 << 20

// HTTPAdapter queries a remote attribute service that accepts a WireRequest
// via POST and returns a WireResponse.
type HTTPAdapter struct {
	capabilitySet
	URL        string
	Client     *http.Client
	UserAgent  string
	Token      string
	MaxRetries int
	now        func() time.Time
}

// NewHTTPAdapter creates an adapter for the service at url.
func NewHTTPAdapter(id, url string, caps map[string][]types.Operator, cfg types.HTTPConfig) *HTTPAdapter {
	return &HTTPAdapter{
		capabilitySet: newCapabilitySet(id, caps),
		URL:           url,
		Client:        &http.Client{Timeout: cfg.Timeout},
		UserAgent:     cfg.UserAgent,
		MaxRetries:    cfg.MaxRetries,
		now:           time.Now,
	}
}

// Query posts the criteria and classifies the response.
func (a *HTTPAdapter) Query(ctx context.Context, criteria []types.Criterion) ([]types.SourceResult, error) {
	if err := a.check(criteria); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, FromContext(a.id, err)
	}

	body, err := json.Marshal(WireRequest{Source: a.id, Criteria: criteria})
	if err != nil {
		return nil, Malformed(a.id, "encoding request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.URL, bytes.NewReader(body))
	if err != nil {
		return nil, Malformed(a.id, "creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.UserAgent != "" {
		req.Header.Set("User-Agent", a.UserAgent)
	}
	if a.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, a.Client, req, a.MaxRetries)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, FromContext(a.id, ctxErr)
		}
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, Timeout(a.id, err)
		}
		return nil, Unavailable(a.id, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, FromContext(a.id, ctxErr)
		}
		return nil, Unavailable(a.id, fmt.Errorf("reading response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		// The body may carry a WireError with a better message.
		if _, werr := decodeWire(a.id, data, a.now()); werr != nil && errors.Is(werr, ErrMalformedQuery) {
			return nil, werr
		}
		return nil, Malformed(a.id, "service returned HTTP %d", resp.StatusCode)
	case resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout:
		return nil, Timeout(a.id, fmt.Errorf("service returned HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, Unavailable(a.id, fmt.Errorf("service returned HTTP %d", resp.StatusCode))
	}

	if err := ctx.Err(); err != nil {
		return nil, FromContext(a.id, err)
	}
	return decodeWire(a.id, data, a.now())
}
