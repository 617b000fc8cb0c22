// Package livequery fans complete result snapshots out to subscribers.
//
// Every publish carries the whole result set, never a diff, so a consumer
// that falls behind only needs the most recent value. Each subscription
// therefore buffers exactly one snapshot and a newer publish replaces an
// unread one.
package livequery

import (
	"context"
	"sync"
)

// Hub groups subscriptions by key (an owner ID, a session ID).
// It is safe for concurrent use.
type Hub[K comparable, V any] struct {
	mu   sync.Mutex
	subs map[K]map[*Subscription[V]]struct{}
}

// NewHub creates an empty Hub.
func NewHub[K comparable, V any]() *Hub[K, V] {
	return &Hub[K, V]{subs: make(map[K]map[*Subscription[V]]struct{})}
}

// Subscribe registers a new subscription under key. The subscription is
// cancelled when ctx is done or when Cancel is called, whichever is first.
func (h *Hub[K, V]) Subscribe(ctx context.Context, key K) *Subscription[V] {
	sub := &Subscription[V]{
		ch:   make(chan V, 1),
		done: make(chan struct{}),
	}
	sub.detach = func() { h.remove(key, sub) }

	h.mu.Lock()
	set, ok := h.subs[key]
	if !ok {
		set = make(map[*Subscription[V]]struct{})
		h.subs[key] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	stop := context.AfterFunc(ctx, sub.Cancel)
	sub.mu.Lock()
	sub.stop = stop
	sub.mu.Unlock()
	return sub
}

// Publish delivers v to every live subscription under key and returns how
// many received it.
func (h *Hub[K, V]) Publish(key K, v V) int {
	h.mu.Lock()
	targets := make([]*Subscription[V], 0, len(h.subs[key]))
	for sub := range h.subs[key] {
		targets = append(targets, sub)
	}
	h.mu.Unlock()

	delivered := 0
	for _, sub := range targets {
		if sub.Send(v) {
			delivered++
		}
	}
	return delivered
}

// Subscribers returns the number of live subscriptions under key.
func (h *Hub[K, V]) Subscribers(key K) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}

func (h *Hub[K, V]) remove(key K, sub *Subscription[V]) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.subs[key]
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, key)
	}
}

// Subscription is a cancellable, lazily consumed sequence of snapshots.
type Subscription[V any] struct {
	ch     chan V
	done   chan struct{}
	once   sync.Once
	detach func()
	stop   func() bool

	mu     sync.Mutex
	closed bool
}

// C returns the snapshot channel. It is closed after Cancel.
func (s *Subscription[V]) C() <-chan V {
	return s.ch
}

// Done is closed once the subscription has been cancelled.
func (s *Subscription[V]) Done() <-chan struct{} {
	return s.done
}

// Cancel detaches the subscription from its hub and closes its channels.
// Calling it more than once is a no-op.
func (s *Subscription[V]) Cancel() {
	s.once.Do(func() {
		s.detach()

		s.mu.Lock()
		stop := s.stop
		s.closed = true
		close(s.done)
		close(s.ch)
		s.mu.Unlock()

		if stop != nil {
			stop()
		}
	})
}

// Send delivers v to this subscription alone, replacing an unread snapshot
// if there is one. It reports false once the subscription is cancelled.
func (s *Subscription[V]) Send(v V) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	select {
	case s.ch <- v:
		return true
	default:
	}

	// Drop the stale snapshot. Senders hold s.mu, so the slot stays free.
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
	return true
}
