/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package inflight tracks outstanding fetches per key, so that concurrent requests
// for the same key share a single fetch.
package inflight

import "sync"

// Result is the outcome of a fetch delivered to every waiter.
type Result[V any] struct {
	Value V
	Err   error
}

type entry[V any] struct {
	waiters []chan Result[V]
}

// Registry holds in-flight entries keyed by K.
// The zero value is ready to use.
type Registry[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
}

// Join attaches the caller to the in-flight entry for the key, creating it if there is none.
// leader is true for the caller that created the entry; it must start the fetch and call Resolve when it completes.
// The returned channel receives exactly one Result, for the leader as well.
func (r *Registry[K, V]) Join(key K) (wait <-chan Result[V], leader bool) {
	ch := make(chan Result[V], 1)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.entries == nil {
		r.entries = make(map[K]*entry[V])
	}
	if e, ok := r.entries[key]; ok {
		e.waiters = append(e.waiters, ch)
		return ch, false
	}
	r.entries[key] = &entry[V]{waiters: []chan Result[V]{ch}}
	return ch, true
}

// Resolve removes the entry for the key and delivers the result to all its waiters in the order they joined.
// It returns the number of notified waiters. Resolving an unknown key is a no-op.
func (r *Registry[K, V]) Resolve(key K, value V, err error) int {
	r.mu.Lock()
	e, ok := r.entries[key]
	delete(r.entries, key)
	r.mu.Unlock()

	if !ok {
		return 0
	}
	res := Result[V]{Value: value, Err: err}
	for _, ch := range e.waiters {
		ch <- res // buffered, never blocks
		close(ch)
	}
	return len(e.waiters)
}

// Len returns the number of in-flight keys.
func (r *Registry[K, V]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
