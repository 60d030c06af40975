// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared by the remote attribute
// source adapters.
package httputil

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"
)

// RetryBaseDelay is the first backoff interval on a retryable response.
// Tests override this to avoid real sleeps.
var RetryBaseDelay = 200 * time.Millisecond

// MaxRetryDelay caps a single backoff wait, including Retry-After hints.
var MaxRetryDelay = 5 * time.Second

const defaultMaxRetries = 2

// Retryable reports whether a status code is worth retrying: the source is
// rate limiting (429) or temporarily overloaded (503).
func Retryable(status int) bool {
	return status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable
}

// DoWithRetry sends req and retries on 429 and 503 with exponential backoff
// starting at RetryBaseDelay. A Retry-After header given in seconds replaces
// the computed delay. Both are capped at MaxRetryDelay.
//
// When maxRetries is 0 the default (2) is used. The request body, if any,
// is buffered so it can be replayed. If ctx ends during a wait the function
// returns ctx.Err(). After exhausting retries the last retryable response is
// returned so the caller can classify it.
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, maxRetries int) (*http.Response, error) {
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		req.Body.Close()
		if err != nil {
			return nil, err
		}
		body = b
	}

	for attempt := 0; ; attempt++ {
		r := req.Clone(ctx)
		if body != nil {
			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
		}

		resp, err := client.Do(r)
		if err != nil {
			return nil, err
		}
		if !Retryable(resp.StatusCode) || attempt >= maxRetries {
			return resp, nil
		}

		wait := backoff(attempt, resp.Header.Get("Retry-After"))
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		slog.Default().Debug("retrying source request",
			"url", req.URL.Redacted(), "status", resp.StatusCode,
			"attempt", attempt+1, "max", maxRetries, "wait", wait)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
}

func backoff(attempt int, retryAfter string) time.Duration {
	wait := RetryBaseDelay << attempt
	if secs, err := strconv.Atoi(retryAfter); err == nil && secs >= 0 {
		wait = time.Duration(secs) * time.Second
	}
	if wait > MaxRetryDelay {
		wait = MaxRetryDelay
	}
	return wait
}
