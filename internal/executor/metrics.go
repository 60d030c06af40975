// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package executor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for the matchmaking pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	dispatches *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	searches   *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "donor_match",
			Name:      "source_dispatches_total",
			Help:      "Source sub-query dispatches by source and outcome.",
		}, []string{"source", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "donor_match",
			Name:      "source_latency_seconds",
			Help:      "Time from dispatch to answer or failure per source.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"source"}),
		searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "donor_match",
			Name:      "searches_total",
			Help:      "Search requests by outcome (ok, partial, no_queryable_criteria, invalid).",
		}, []string{"outcome"}),
	}
	for _, c := range []prometheus.Collector{m.dispatches, m.latency, m.searches} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeDispatch(source, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.dispatches.WithLabelValues(source, outcome).Inc()
	m.latency.WithLabelValues(source).Observe(elapsed.Seconds())
}

// ObserveSearch counts one search request by outcome.
func (m *Metrics) ObserveSearch(outcome string) {
	if m == nil {
		return
	}
	m.searches.WithLabelValues(outcome).Inc()
}
