// Package router implements the per-guild single-consumer event router
// that links the gateway's voice-server-update dispatches to whichever
// voice connection is waiting on them: a mutex-guarded map from key to a
// channel sender, with a non-blocking registration path.
package router

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// ErrNoWaiter is returned by SendEvent when no one is registered for the
// given key. It is not fatal; callers generally just log it.
var ErrNoWaiter = errors.New("router: no waiter registered for key")

// ErrWaiterGone is returned by SendEvent when the registered channel has
// already been drained and abandoned (its buffer is full because nobody
// is reading it anymore).
var ErrWaiterGone = errors.New("router: waiter channel is full or gone")

// Router is a mapping from a comparable key to a single-consumer channel
// of values of type V. Each guild has at most one live entry at a time, as
// required by the data model invariant.
type Router[K comparable, V any] struct {
	Log zerolog.Logger

	mu     sync.Mutex
	routes map[K]chan V
}

// New constructs an empty Router.
func New[K comparable, V any]() *Router[K, V] {
	return &Router[K, V]{
		Log:    zerolog.Nop(),
		routes: make(map[K]chan V),
	}
}

// Register installs a fresh buffered channel for key, replacing (and
// abandoning) any prior entry. The critical section here never blocks on
// I/O or another goroutine, so registration cannot stall behind a slow
// consumer.
func (r *Router[K, V]) Register(key K) <-chan V {
	ch := make(chan V, 1)

	r.mu.Lock()
	r.routes[key] = ch
	r.mu.Unlock()

	return ch
}

// Unregister removes the entry for key if it is still the channel that was
// last registered. It is safe to call after the waiter has already
// consumed its value or given up.
func (r *Router[K, V]) Unregister(key K, ch <-chan V) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.routes[key]; ok && (<-chan V)(existing) == ch {
		delete(r.routes, key)
	}
}

// SendEvent delivers value to the waiter registered under key, if any.
func (r *Router[K, V]) SendEvent(key K, value V) error {
	r.mu.Lock()
	ch, ok := r.routes[key]
	r.mu.Unlock()

	if !ok {
		r.Log.Debug().Interface("key", key).Msg("router: unrouted event")
		return ErrNoWaiter
	}

	select {
	case ch <- value:
		return nil
	default:
		return ErrWaiterGone
	}
}
