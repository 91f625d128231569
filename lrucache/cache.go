/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"container/list"
	"fmt"
	"math"
	"sync"
	"time"
)

type cacheEntry[K comparable, V any] struct {
	key       K
	value     V
	expiresAt time.Time
}

func (e *cacheEntry[K, V]) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// LRUCache represents an LRU cache with expiration mechanism and Prometheus metrics.
// All methods are safe for concurrent use.
type LRUCache[K comparable, V any] struct {
	maxEntries int
	ttl        time.Duration
	now        func() time.Time

	mu      sync.Mutex
	lruList *list.List          // front is the most recently used entry
	cache   map[K]*list.Element // value is a lruList element
	hits    uint64
	misses  uint64

	metricsCollector MetricsCollector
}

// Options represents options for the cache.
type Options struct {
	// DefaultTTL is the TTL for the cache entries. Zero means entries never expire.
	DefaultTTL time.Duration

	// Now returns the current time. time.Now is used if nil.
	Now func() time.Time
}

// Stats is a point-in-time snapshot of the cache counters.
type Stats struct {
	Hits       uint64 `json:"hits"`
	Misses     uint64 `json:"misses"`
	Size       int    `json:"size"`
	MaxSize    int    `json:"maxSize"`
	TTLSeconds int    `json:"ttlSeconds"`
}

// New creates a new LRUCache with the provided maximum number of entries and metrics collector.
func New[K comparable, V any](maxEntries int, metricsCollector MetricsCollector) (*LRUCache[K, V], error) {
	return NewWithOpts[K, V](maxEntries, metricsCollector, Options{})
}

// NewWithOpts creates a new LRUCache with the provided maximum number of entries, metrics collector, and options.
// Metrics collector can be nil, in this case, metrics will be disabled.
func NewWithOpts[K comparable, V any](maxEntries int, metricsCollector MetricsCollector, opts Options) (*LRUCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("maxEntries must be greater than 0")
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("defaultTTL must be greater or equal to 0 (no expiration)")
	}
	if metricsCollector == nil {
		metricsCollector = disabledMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &LRUCache[K, V]{
		maxEntries:       maxEntries,
		ttl:              opts.DefaultTTL,
		now:              opts.Now,
		lruList:          list.New(),
		cache:            make(map[K]*list.Element),
		metricsCollector: metricsCollector,
	}, nil
}

// Get returns a value from the cache by the provided key.
// A hit promotes the entry to the most recently used position. Expired entries are removed and reported as a miss.
func (c *LRUCache[K, V]) Get(key K) (value V, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.get(key)
}

// Has reports whether a non-expired entry exists for the key.
// Unlike Get, it changes neither the recency order nor the hit/miss counters.
func (c *LRUCache[K, V]) Has(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.peek(key, c.now())
	return ok
}

// Add adds a value to the cache with the provided key.
// Overwriting an existing key refreshes its value, expiration and recency.
// If the cache is full, the least recently used entries are evicted.
func (c *LRUCache[K, V]) Add(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.add(key, value, c.now())
}

// AddIfAbsent adds a value only if there is no non-expired entry for the key.
// It returns true if the value was added.
func (c *LRUCache[K, V]) AddIfAbsent(key K, value V) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if _, ok := c.peek(key, now); ok {
		return false
	}
	c.add(key, value, now)
	return true
}

// GetOrAdd returns a value from the cache by the provided key.
// If the key does not exist, it adds a new value returned by valueProvider.
func (c *LRUCache[K, V]) GetOrAdd(key K, valueProvider func() V) (value V, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if value, exists = c.get(key); exists {
		return value, true
	}
	value = valueProvider()
	c.add(key, value, c.now())
	return value, false
}

// Remove removes a value from the cache by the provided key.
func (c *LRUCache[K, V]) Remove(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return false
	}
	c.removeElement(elem)
	c.metricsCollector.SetAmount(len(c.cache))
	return true
}

// Purge clears the cache and resets hit/miss counters.
// Removed entries are not counted as evictions.
func (c *LRUCache[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache = make(map[K]*list.Element)
	c.lruList.Init()
	c.hits, c.misses = 0, 0
	c.metricsCollector.SetAmount(0)
}

// Resize changes the cache size and returns the number of evicted entries.
func (c *LRUCache[K, V]) Resize(size int) (evicted int) {
	if size <= 0 {
		return 0
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.maxEntries = size
	if evicted = c.evict(size); evicted > 0 {
		c.metricsCollector.AddEvictions(evicted)
	}
	c.metricsCollector.SetAmount(len(c.cache))
	return evicted
}

// SweepStale removes all expired entries regardless of access and returns their number.
func (c *LRUCache[K, V]) SweepStale() (removed int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for elem := c.lruList.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*cacheEntry[K, V]).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	if removed > 0 {
		c.metricsCollector.SetAmount(len(c.cache))
		c.metricsCollector.AddExpirations(removed)
	}
	return removed
}

// Len returns the number of items in the cache (expired but not yet removed entries included).
func (c *LRUCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache)
}

// Stats returns a snapshot of the cache counters.
func (c *LRUCache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:       c.hits,
		Misses:     c.misses,
		Size:       len(c.cache),
		MaxSize:    c.maxEntries,
		TTLSeconds: int(math.Round(c.ttl.Seconds())),
	}
}

func (c *LRUCache[K, V]) get(key K) (value V, ok bool) {
	entry, ok := c.peek(key, c.now())
	if !ok {
		c.misses++
		c.metricsCollector.IncMisses()
		return value, false
	}
	c.lruList.MoveToFront(c.cache[key])
	c.hits++
	c.metricsCollector.IncHits()
	return entry.value, true
}

// peek looks the entry up without touching recency and counters, removing it if expired.
func (c *LRUCache[K, V]) peek(key K, now time.Time) (*cacheEntry[K, V], bool) {
	elem, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry[K, V])
	if entry.expired(now) {
		c.removeElement(elem)
		c.metricsCollector.SetAmount(len(c.cache))
		c.metricsCollector.AddExpirations(1)
		return nil, false
	}
	return entry, true
}

func (c *LRUCache[K, V]) add(key K, value V, now time.Time) {
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = now.Add(c.ttl)
	}
	entry := &cacheEntry[K, V]{key: key, value: value, expiresAt: expiresAt}

	if elem, ok := c.cache[key]; ok {
		elem.Value = entry
		c.lruList.MoveToFront(elem)
		return
	}

	if evicted := c.evict(c.maxEntries - 1); evicted > 0 {
		c.metricsCollector.AddEvictions(evicted)
	}
	c.cache[key] = c.lruList.PushFront(entry)
	c.metricsCollector.SetAmount(len(c.cache))
}

// evict removes the least recently used entries one by one until no more than limit entries remain.
func (c *LRUCache[K, V]) evict(limit int) (evicted int) {
	for len(c.cache) > limit {
		elem := c.lruList.Back()
		if elem == nil {
			break
		}
		c.removeElement(elem)
		evicted++
	}
	return evicted
}

func (c *LRUCache[K, V]) removeElement(elem *list.Element) {
	c.lruList.Remove(elem)
	delete(c.cache, elem.Value.(*cacheEntry[K, V]).key)
}
