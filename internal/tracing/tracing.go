// Package tracing provides an OpenTelemetry-backed observer for the event
// bus: each published event becomes a short span named after its type.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/gitgovernance/core/internal/eventbus"
)

// SpanObserver creates one OpenTelemetry span per dispatched event. Spans
// are point-in-time (created and immediately ended) rather than
// long-lived, since bus dispatch is synchronous and has already completed
// by the time the observer runs.
type SpanObserver struct {
	tracer trace.Tracer
}

// NewSpanObserver wraps tracer (e.g. otel.Tracer("gitgov-core")) as a bus
// observer.
func NewSpanObserver(tracer trace.Tracer) *SpanObserver {
	return &SpanObserver{tracer: tracer}
}

// Observe records event as a span named after its type, with Source,
// Timestamp, and every Payload entry as attributes. If Payload contains an
// "error" string, the span's status is set to error.
func (o *SpanObserver) Observe(event eventbus.Event) {
	_, span := o.tracer.Start(context.Background(), event.Type)
	defer span.End()

	span.SetAttributes(
		attribute.String("source", event.Source),
		attribute.String("timestamp", event.Timestamp.Format("2006-01-02T15:04:05.000Z07:00")),
	)
	for k, v := range event.Payload {
		span.SetAttributes(attribute.String("payload."+k, fmt.Sprintf("%v", v)))
	}
	if errMsg, ok := event.Payload["error"].(string); ok && errMsg != "" {
		span.SetStatus(codes.Error, errMsg)
		span.RecordError(fmt.Errorf("%s", errMsg))
	}
}

// Subscribe registers o as a wildcard handler on bus, returning the
// subscription so callers can unsubscribe during shutdown.
func (o *SpanObserver) Subscribe(bus *eventbus.Bus) eventbus.Subscription {
	return bus.Subscribe(eventbus.Wildcard, func(e eventbus.Event) {
		o.Observe(e)
	})
}
