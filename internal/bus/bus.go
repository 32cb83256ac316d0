// Package bus provides the in-process event fanout used when commands
// finish. It is the single-process stand-in for the Kafka publisher and
// backs tests that assert on delivery order.
package bus

import (
	"sync"
	"time"
)

// Event is the envelope delivered to subscribers.
type Event struct {
	Type        string
	Payload     any
	PublishedAt time.Time
}

// Subscriber receives events synchronously on the publisher's goroutine.
// Slow subscribers slow publishing down; anything heavier belongs behind
// its own channel.
type Subscriber func(Event)

// Unsubscribe removes a subscription.
type Unsubscribe func()

// MemoryBus fans events out to subscribers by event type. The wildcard
// type "*" receives everything.
type MemoryBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]Subscriber
	clock  func() time.Time
}

// MemoryBusOption configures a MemoryBus.
type MemoryBusOption func(*MemoryBus)

// WithBusClock overrides the timestamp source.
func WithBusClock(clock func() time.Time) MemoryBusOption {
	return func(b *MemoryBus) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// NewMemoryBus creates an empty bus.
func NewMemoryBus(opts ...MemoryBusOption) *MemoryBus {
	b := &MemoryBus{
		subs:  make(map[string]map[int]Subscriber),
		clock: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// Subscribe registers fn for the given event type. Use "*" to receive
// every event.
func (b *MemoryBus) Subscribe(eventType string, fn Subscriber) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[eventType] == nil {
		b.subs[eventType] = make(map[int]Subscriber)
	}
	b.subs[eventType][id] = fn

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[eventType], id)
	}
}

// Publish delivers one event to every matching subscriber. The signature
// matches the command pipeline's publish sink so the bus can be wired in
// directly.
func (b *MemoryBus) Publish(eventType string, payload any) {
	event := Event{Type: eventType, Payload: payload, PublishedAt: b.clock()}

	b.mu.RLock()
	targets := make([]Subscriber, 0, len(b.subs[eventType])+len(b.subs["*"]))
	for _, fn := range b.subs[eventType] {
		targets = append(targets, fn)
	}
	for _, fn := range b.subs["*"] {
		targets = append(targets, fn)
	}
	b.mu.RUnlock()

	for _, fn := range targets {
		fn(event)
	}
}
