// Package eventsub provides a small typed publish/subscribe hub.
//
// Transport SDKs register callbacks with on(event, handler)-style APIs that
// make it easy to leak handlers. Hub pairs every subscriber with an
// unsubscribe function returned at the call site, so the code that created a
// subscription owns its disposal.
package eventsub

import "sync"

// Hub fans out values of type T to subscribers. Publish delivers
// synchronously, in subscription order. The zero value is ready to use.
type Hub[T any] struct {
	mu     sync.Mutex
	nextID int
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id int
	fn func(T)
}

// Subscribe registers fn and returns a function that removes it.
// The returned function is idempotent.
func (h *Hub[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	h.subs = append(h.subs, subscriber[T]{id: id, fn: fn})

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		for i, s := range h.subs {
			if s.id == id {
				h.subs = append(h.subs[:i], h.subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers v to every current subscriber. Subscribers added or
// removed during delivery do not affect the in-flight publish.
func (h *Hub[T]) Publish(v T) {
	h.mu.Lock()
	subs := make([]subscriber[T], len(h.subs))
	copy(subs, h.subs)
	h.mu.Unlock()

	for _, s := range subs {
		s.fn(v)
	}
}

// Len returns the number of active subscribers.
func (h *Hub[T]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
