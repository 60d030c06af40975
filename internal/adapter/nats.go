// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pdiddy/donor-match/pkg/types"
)

// Requester is the slice of *nats.Conn the NATS adapter needs.
type Requester interface {
	RequestMsgWithContext(ctx context.Context, msg *nats.Msg) (*nats.Msg, error)
}

// NATSAdapter queries an attribute microservice over NATS request/reply.
// The payloads are the same WireRequest/WireResponse JSON used over HTTP.
type NATSAdapter struct {
	capabilitySet
	subject string
	conn    Requester
	closer  func()
	now     func() time.Time
}

// NewNATSAdapter wraps an existing connection.
func NewNATSAdapter(id, subject string, conn Requester, caps map[string][]types.Operator) *NATSAdapter {
	return &NATSAdapter{
		capabilitySet: newCapabilitySet(id, caps),
		subject:       subject,
		conn:          conn,
		now:           time.Now,
	}
}

// DialNATS connects to url and returns an adapter that owns the connection.
func DialNATS(id, url, subject, token string, caps map[string][]types.Operator) (*NATSAdapter, error) {
	opts := []nats.Option{
		nats.Name("donor-match/" + id),
		nats.MaxReconnects(-1),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", url, err)
	}
	a := NewNATSAdapter(id, subject, nc, caps)
	a.closer = nc.Close
	return a, nil
}

// Close closes the connection if the adapter owns it.
func (a *NATSAdapter) Close() error {
	if a.closer != nil {
		a.closer()
	}
	return nil
}

// Query sends the criteria on the adapter's subject and waits for a reply.
func (a *NATSAdapter) Query(ctx context.Context, criteria []types.Criterion) ([]types.SourceResult, error) {
	if err := a.check(criteria); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, FromContext(a.id, err)
	}

	data, err := json.Marshal(WireRequest{Source: a.id, Criteria: criteria})
	if err != nil {
		return nil, Malformed(a.id, "encoding request: %v", err)
	}

	msg := nats.NewMsg(a.subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")

	reply, err := a.conn.RequestMsgWithContext(ctx, msg)
	if err != nil {
		switch {
		case ctx.Err() != nil:
			return nil, FromContext(a.id, ctx.Err())
		case errors.Is(err, nats.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			return nil, Timeout(a.id, err)
		case errors.Is(err, nats.ErrNoResponders):
			return nil, Unavailable(a.id, fmt.Errorf("no responders on %s", a.subject))
		default:
			return nil, Unavailable(a.id, err)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, FromContext(a.id, err)
	}
	return decodeWire(a.id, reply.Data, a.now())
}
