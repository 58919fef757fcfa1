// Package eventbus is a small synchronous observer subject: a fixed
// notification point with a dynamic set of subscribers, fanned out without
// ever holding a lock during delivery.
package eventbus

import (
	"sync"
	"sync/atomic"
)

// Event is one provider lifecycle notification.
type Event struct {
	Kind  string
	Queue string
	Data  any
}

// Handler receives events published to a Bus. Handlers run synchronously
// on the publisher's goroutine and must not block.
type Handler func(Event)

// subscription pairs a Handler with a stable identity, since Go function
// values cannot be compared for equality; Subscribe's unsubscribe closure
// removes by identity instead of by value.
type subscription struct {
	id int64
	h  Handler
}

// Bus fans an Event out to every subscribed Handler. The subscriber list
// is copy-on-write: Subscribe allocates a new slice and swaps it in, so
// Publish never takes a lock.
type Bus struct {
	mu       sync.Mutex   // serializes Subscribe/unsubscribe swaps; never taken by Publish
	handlers atomic.Value // []subscription
	nextID   atomic.Int64
}

// New returns a ready-to-use Bus with no subscribers.
func New() *Bus {
	b := &Bus{}
	b.handlers.Store([]subscription{})
	return b
}

// Subscribe registers h to receive every future Publish call. It returns
// an unsubscribe function.
func (b *Bus) Subscribe(h Handler) (unsubscribe func()) {
	id := b.nextID.Add(1)

	b.mu.Lock()
	old := b.handlers.Load().([]subscription)
	next := make([]subscription, len(old)+1)
	copy(next, old)
	next[len(old)] = subscription{id: id, h: h}
	b.handlers.Store(next)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		old := b.handlers.Load().([]subscription)
		next := make([]subscription, 0, len(old))
		for _, s := range old {
			if s.id != id {
				next = append(next, s)
			}
		}
		b.handlers.Store(next)
	}
}

// Publish delivers evt to every currently subscribed Handler, in
// subscription order.
func (b *Bus) Publish(evt Event) {
	for _, s := range b.handlers.Load().([]subscription) {
		s.h(evt)
	}
}
