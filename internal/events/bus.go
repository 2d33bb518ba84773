// Package events provides a typed publish/subscribe bus for autoplay
// lifecycle events.
package events

import (
	"sync"
	"time"
)

// Type identifies an event kind.
type Type string

const (
	TrackFound    Type = "track_found"
	TrackNotFound Type = "track_not_found"
	Success       Type = "success"
	Error         Type = "error"
	ProviderError Type = "provider_error"
	RateLimited   Type = "rate_limited"
	Timeout       Type = "timeout"

	// Wildcard subscribes to every event type.
	Wildcard Type = "*"
)

// Event is the uniform payload broadcast on the bus.
type Event struct {
	Type      Type
	Timestamp time.Time
	Source    string
	Track     any
	Result    any
	Err       error
	Metadata  map[string]any
}

// Handler receives emitted events.
type Handler func(Event)

// Subscription identifies a registered handler for later removal.
type Subscription struct {
	typ Type
	id  int
}

type subscriber struct {
	fn   Handler
	once bool
}

// Bus is a broadcast fan-out. Zero-listener emission is a no-op. Handlers
// run synchronously on the emitting goroutine, outside the bus lock.
type Bus struct {
	mu      sync.Mutex
	nextID  int
	subs    map[Type]map[int]*subscriber
	enabled bool
}

func NewBus() *Bus {
	return &Bus{
		subs:    make(map[Type]map[int]*subscriber),
		enabled: true,
	}
}

// SetEnabled toggles emission. Subscriptions survive a disable/enable cycle.
func (b *Bus) SetEnabled(enabled bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enabled = enabled
}

func (b *Bus) Enabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.enabled
}

// Subscribe registers a handler for a single event type.
func (b *Bus) Subscribe(typ Type, fn Handler) Subscription {
	return b.add(typ, fn, false)
}

// SubscribeAll registers a handler for every event type.
func (b *Bus) SubscribeAll(fn Handler) Subscription {
	return b.add(Wildcard, fn, false)
}

// Once registers a handler that is removed after its first invocation.
func (b *Bus) Once(typ Type, fn Handler) Subscription {
	return b.add(typ, fn, true)
}

func (b *Bus) add(typ Type, fn Handler, once bool) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[typ] == nil {
		b.subs[typ] = make(map[int]*subscriber)
	}
	b.subs[typ][id] = &subscriber{fn: fn, once: once}
	return Subscription{typ: typ, id: id}
}

// Unsubscribe removes a previously registered handler. Unknown
// subscriptions are ignored.
func (b *Bus) Unsubscribe(sub Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.typ]; ok {
		delete(set, sub.id)
	}
}

// ListenerCount returns the number of handlers registered for a type,
// wildcard subscribers excluded.
func (b *Bus) ListenerCount(typ Type) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[typ])
}

// Emit broadcasts an event to type and wildcard subscribers. A zero
// Timestamp is filled in.
func (b *Bus) Emit(e Event) {
	b.mu.Lock()
	if !b.enabled {
		b.mu.Unlock()
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}

	handlers := make([]Handler, 0, len(b.subs[e.Type])+len(b.subs[Wildcard]))
	for _, typ := range []Type{e.Type, Wildcard} {
		for id, s := range b.subs[typ] {
			handlers = append(handlers, s.fn)
			if s.once {
				delete(b.subs[typ], id)
			}
		}
	}
	b.mu.Unlock()

	for _, fn := range handlers {
		fn(e)
	}
}
