// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/donor-match/internal/httputil"
	"github.com/pdiddy/donor-match/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
}

var demoCaps = map[string][]types.Operator{"gender": {types.OpEquals}}

func newTestHTTPAdapter(url string) *HTTPAdapter {
	return NewHTTPAdapter("demographic", url, demoCaps, types.HTTPConfig{
		Timeout:    5 * time.Second,
		UserAgent:  "test/0.1",
		MaxRetries: 1,
	})
}

// --- HTTP adapter ---

func TestHTTPAdapterQuery(t *testing.T) {
	var got WireRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "test/0.1", r.Header.Get("User-Agent"))
		assert.Equal(t, "Bearer s3cret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"results":[
			{"student_id":"S9","satisfied":["c0"]},
			{"student_id":"S1","satisfied":["c0"],"confidence":0.6}
		]}`))
	}))
	defer ts.Close()

	a := newTestHTTPAdapter(ts.URL)
	a.Token = "s3cret"

	results, err := a.Query(context.Background(), []types.Criterion{eq("c0", "gender", "female")})
	require.NoError(t, err)

	assert.Equal(t, "demographic", got.Source)
	require.Len(t, got.Criteria, 1)
	assert.Equal(t, "female", got.Criteria[0].Value.Text)

	require.Len(t, results, 2)
	assert.Equal(t, "S1", results[0].StudentID)
	assert.Equal(t, 0.6, results[0].Confidence)
	assert.Equal(t, "S9", results[1].StudentID)
	assert.Equal(t, 1.0, results[1].Confidence)
	assert.Equal(t, "demographic", results[1].SourceID)
}

func TestHTTPAdapterErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"bad request", http.StatusBadRequest, `{"error":{"kind":"malformed","message":"unknown attribute"}}`, ErrMalformedQuery},
		{"unprocessable without body", http.StatusUnprocessableEntity, ``, ErrMalformedQuery},
		{"gateway timeout", http.StatusGatewayTimeout, ``, ErrTimeout},
		{"server error", http.StatusInternalServerError, ``, ErrUnavailable},
		{"overloaded after retries", http.StatusServiceUnavailable, ``, ErrUnavailable},
		{"in-band error on 200", http.StatusOK, `{"error":{"kind":"timeout","message":"upstream slow"}}`, ErrTimeout},
		{"garbage body", http.StatusOK, `not json`, ErrUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := newTestHTTPAdapter(ts.URL).Query(context.Background(), []types.Criterion{eq("c0", "gender", "female")})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestHTTPAdapterDeadline(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := newTestHTTPAdapter(ts.URL).Query(ctx, []types.Criterion{eq("c0", "gender", "female")})
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestHTTPAdapterUnreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	_, err := newTestHTTPAdapter(url).Query(context.Background(), []types.Criterion{eq("c0", "gender", "female")})
	assert.ErrorIs(t, err, ErrUnavailable)
}

// --- NATS adapter ---

type fakeRequester struct {
	subject string
	data    []byte
	reply   []byte
	err     error
}

func (f *fakeRequester) RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error) {
	f.subject = msg.Subject
	f.data = msg.Data
	if f.err != nil {
		return nil, f.err
	}
	return &nats.Msg{Data: f.reply}, nil
}

func TestNATSAdapterQuery(t *testing.T) {
	fr := &fakeRequester{reply: []byte(`{"results":[{"student_id":"S1","satisfied":["c0"],"confidence":0.75}]}`)}
	a := NewNATSAdapter("demographic", "attributes.demographic", fr, demoCaps)

	results, err := a.Query(context.Background(), []types.Criterion{eq("c0", "gender", "female")})
	require.NoError(t, err)

	assert.Equal(t, "attributes.demographic", fr.subject)
	var req WireRequest
	require.NoError(t, json.Unmarshal(fr.data, &req))
	assert.Equal(t, "demographic", req.Source)

	require.Len(t, results, 1)
	assert.Equal(t, "S1", results[0].StudentID)
	assert.Equal(t, 0.75, results[0].Confidence)
}

func TestNATSAdapterErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		reply string
		want  error
	}{
		{"timeout", nats.ErrTimeout, "", ErrTimeout},
		{"no responders", nats.ErrNoResponders, "", ErrUnavailable},
		{"connection closed", nats.ErrConnectionClosed, "", ErrUnavailable},
		{"in-band malformed", nil, `{"error":{"kind":"MalformedQuery","message":"bad radius"}}`, ErrMalformedQuery},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fr := &fakeRequester{err: tt.err, reply: []byte(tt.reply)}
			a := NewNATSAdapter("demographic", "attributes.demographic", fr, demoCaps)
			_, err := a.Query(context.Background(), []types.Criterion{eq("c0", "gender", "female")})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
