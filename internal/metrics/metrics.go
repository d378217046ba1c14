// Package metrics provides Prometheus-compatible instrumentation for the
// kernel: record writes, task/cycle transitions, and event bus dispatch
// latency, namespaced "gitgov".
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector records kernel-level operational metrics. Nil-safe: every
// method is a no-op on a nil *Collector, so adapters can hold an optional
// *Collector field without a presence check at every call site.
//
// Metrics exposed (all namespaced "gitgov"):
//
//  1. records_written_total (counter): records persisted, by kind.
//  2. transitions_total (counter): task/cycle status transitions, by
//     entity kind, from-status, to-status, and outcome (ok/rejected).
//  3. bus_dispatch_seconds (histogram): time spent in one Bus.Publish call,
//     by event type.
//  4. signature_verifications_total (counter): signature checks performed
//     during record validation, by outcome (ok/failed).
type Collector struct {
	recordsWritten  *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	busDispatch     *prometheus.HistogramVec
	sigVerification *prometheus.CounterVec
}

// New creates and registers the kernel's metrics with registry. Pass
// prometheus.DefaultRegisterer for the global registry, or a fresh
// prometheus.NewRegistry() for test isolation.
func New(registry prometheus.Registerer) *Collector {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &Collector{
		recordsWritten: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gitgov",
			Name:      "records_written_total",
			Help:      "Records persisted to the content store, by kind.",
		}, []string{"kind"}),
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gitgov",
			Name:      "transitions_total",
			Help:      "Task/cycle status transitions attempted, by entity kind, from, to, and outcome.",
		}, []string{"entity", "from", "to", "outcome"}),
		busDispatch: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gitgov",
			Name:      "bus_dispatch_seconds",
			Help:      "Time spent dispatching one event to all subscribers, by event type.",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"event_type"}),
		sigVerification: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gitgov",
			Name:      "signature_verifications_total",
			Help:      "Signature verifications performed during record validation, by outcome.",
		}, []string{"outcome"}),
	}
}

// RecordWritten increments the records_written_total counter for kind.
func (c *Collector) RecordWritten(kind string) {
	if c == nil {
		return
	}
	c.recordsWritten.WithLabelValues(kind).Inc()
}

// Transition increments the transitions_total counter.
func (c *Collector) Transition(entity, from, to, outcome string) {
	if c == nil {
		return
	}
	c.transitions.WithLabelValues(entity, from, to, outcome).Inc()
}

// BusDispatch records the duration of one Bus.Publish call for eventType.
func (c *Collector) BusDispatch(eventType string, d time.Duration) {
	if c == nil {
		return
	}
	c.busDispatch.WithLabelValues(eventType).Observe(d.Seconds())
}

// SignatureVerification increments the signature_verifications_total
// counter for outcome ("ok" or "failed").
func (c *Collector) SignatureVerification(outcome string) {
	if c == nil {
		return
	}
	c.sigVerification.WithLabelValues(outcome).Inc()
}
