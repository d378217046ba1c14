// Package eventbus implements the in-process typed publish/subscribe bus
// that decouples adapters from reactive handlers.
package eventbus

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gitgovernance/core/internal/metrics"
)

// Event carries one occurrence dispatched through the bus. Payload holds
// the event-specific fields for its Type (e.g. task.status.changed
// carries taskId/oldStatus/newStatus/actorId).
type Event struct {
	Type      string
	Timestamp time.Time
	Source    string
	Payload   map[string]any
}

// Wildcard is the subscription type that receives every event regardless
// of its Type.
const Wildcard = "*"

// Handler processes one Event. A Handler must not call Bus.Publish
// synchronously from within itself in a way that expects ordering against
// its own dispatch; re-entrant publishes are delivered like any other
// publish (see Bus.Publish).
type Handler func(Event)

// Subscription is the opaque handle returned by Subscribe; pass its ID to
// Unsubscribe to cancel delivery.
type Subscription struct {
	ID string
}

type subscriber struct {
	id      string
	handler Handler
}

// Bus is an in-process, synchronous, typed pub/sub dispatcher. Publish
// dispatches to every subscription whose type matches the event, then to
// every Wildcard subscription, on the publisher's own goroutine; each group
// runs in subscription registration order. A handler that panics is isolated: the bus recovers,
// logs, and continues delivering to the remaining handlers.
//
// Bus has no back-pressure, persistence, or retry. Handlers that need
// durability must append their own effects via adapter calls.
type Bus struct {
	mu      sync.Mutex
	subs    map[string][]subscriber // event type (or Wildcard) -> ordered subscribers
	nextID  uint64
	Logger  *log.Logger        // defaults to log.Default() when nil
	Metrics *metrics.Collector // optional; nil-safe, records bus_dispatch_seconds
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{subs: make(map[string][]subscriber)}
}

// Subscribe registers handler for eventType (or Wildcard for all events),
// returning a Subscription whose ID cancels delivery via Unsubscribe.
func (b *Bus) Subscribe(eventType string, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := fmt.Sprintf("sub-%d", b.nextID)
	b.subs[eventType] = append(b.subs[eventType], subscriber{id: id, handler: handler})
	return Subscription{ID: id}
}

// Unsubscribe cancels the subscription with the given id, if present.
func (b *Bus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for eventType, subs := range b.subs {
		for i, s := range subs {
			if s.id == id {
				b.subs[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish dispatches event synchronously, in publication order, to every
// subscriber registered for event.Type plus every Wildcard subscriber
// (typed subscribers run first, then wildcard subscribers, each group in
// registration order). A handler panic is recovered, logged, and does not
// prevent delivery to the remaining handlers.
func (b *Bus) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	start := time.Now()

	b.mu.Lock()
	typed := append([]subscriber(nil), b.subs[event.Type]...)
	wild := append([]subscriber(nil), b.subs[Wildcard]...)
	b.mu.Unlock()

	for _, s := range typed {
		b.deliver(s, event)
	}
	for _, s := range wild {
		b.deliver(s, event)
	}

	b.Metrics.BusDispatch(event.Type, time.Since(start))
}

func (b *Bus) deliver(s subscriber, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger().Printf("eventbus: handler %s panicked on %s: %v", s.id, event.Type, r)
		}
	}()
	s.handler(event)
}

func (b *Bus) logger() *log.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return log.Default()
}

// ClearSubscriptions removes every subscription. It exists for test
// teardown only; production code should use Unsubscribe for individual
// subscriptions.
func (b *Bus) ClearSubscriptions() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = make(map[string][]subscriber)
}

// WaitForIdle is a forward-compatible no-op: this Bus always delivers
// synchronously, so by the time Publish returns every handler has already
// run. The method is kept so a future asynchronous, out-of-process fan-out
// implementation can satisfy the same interface without breaking callers
// that already wait for idle.
func (b *Bus) WaitForIdle() error {
	return nil
}
