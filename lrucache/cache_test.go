/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lrucache

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testMetrics struct {
	Amount      int
	Hits        int
	Misses      int
	Evictions   int
	Expirations int
}

func assertMetrics(t *testing.T, want testMetrics, pm *PrometheusMetrics) {
	t.Helper()
	assert.Equal(t, want.Amount, int(testutil.ToFloat64(pm.EntriesAmount)), "amount")
	assert.Equal(t, want.Hits, int(testutil.ToFloat64(pm.HitsTotal)), "hits")
	assert.Equal(t, want.Misses, int(testutil.ToFloat64(pm.MissesTotal)), "misses")
	assert.Equal(t, want.Evictions, int(testutil.ToFloat64(pm.EvictionsTotal)), "evictions")
	assert.Equal(t, want.Expirations, int(testutil.ToFloat64(pm.ExpirationsTotal)), "expirations")
}

func TestNew(t *testing.T) {
	_, err := New[string, int](0, nil)
	require.Error(t, err)

	_, err = NewWithOpts[string, int](10, nil, Options{DefaultTTL: -time.Second})
	require.Error(t, err)

	cache, err := New[string, int](10, nil)
	require.NoError(t, err)
	require.Equal(t, Stats{MaxSize: 10}, cache.Stats())
}

func TestLRUCache(t *testing.T) {
	tests := []struct {
		name        string
		maxEntries  int
		fn          func(t *testing.T, cache *LRUCache[string, int], clock *fakeClock)
		wantMetrics testMetrics
	}{
		{
			name:       "attempt to get not existing keys",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, int], _ *fakeClock) {
				for _, key := range []string{"a", "b", "c"} {
					_, found := cache.Get(key)
					require.False(t, found)
				}
				require.Equal(t, uint64(3), cache.Stats().Misses)
			},
			wantMetrics: testMetrics{Misses: 3},
		},
		{
			name:       "add entries and get them",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, int], _ *fakeClock) {
				cache.Add("a", 1)
				cache.Add("b", 2)
				val, found := cache.Get("a")
				require.True(t, found)
				require.Equal(t, 1, val)
				val, found = cache.Get("b")
				require.True(t, found)
				require.Equal(t, 2, val)
				require.Equal(t, Stats{Hits: 2, Size: 2, MaxSize: 10, TTLSeconds: 60}, cache.Stats())
			},
			wantMetrics: testMetrics{Amount: 2, Hits: 2},
		},
		{
			name:       "least recently used entry is evicted",
			maxEntries: 2,
			fn: func(t *testing.T, cache *LRUCache[string, int], _ *fakeClock) {
				cache.Add("a", 1)
				cache.Add("b", 2)
				_, found := cache.Get("a")
				require.True(t, found)
				cache.Add("c", 3)

				require.True(t, cache.Has("a"))
				require.False(t, cache.Has("b"))
				require.True(t, cache.Has("c"))
				require.Equal(t, 2, cache.Len())
			},
			wantMetrics: testMetrics{Amount: 2, Hits: 1, Evictions: 1},
		},
		{
			name:       "overwriting existing key does not evict",
			maxEntries: 2,
			fn: func(t *testing.T, cache *LRUCache[string, int], _ *fakeClock) {
				cache.Add("a", 1)
				cache.Add("b", 2)
				cache.Add("a", 10)
				cache.Add("c", 3) // "b" is the oldest now

				val, found := cache.Get("a")
				require.True(t, found)
				require.Equal(t, 10, val)
				require.False(t, cache.Has("b"))
			},
			wantMetrics: testMetrics{Amount: 2, Hits: 1, Evictions: 1},
		},
		{
			name:       "expired entry is a miss and is removed",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, int], clock *fakeClock) {
				cache.Add("a", 1)
				clock.Advance(time.Minute)
				_, found := cache.Get("a") // exactly at expiration, still visible
				require.True(t, found)
				clock.Advance(time.Millisecond)
				_, found = cache.Get("a")
				require.False(t, found)
				require.Equal(t, 0, cache.Len())
			},
			wantMetrics: testMetrics{Hits: 1, Misses: 1, Expirations: 1},
		},
		{
			name:       "overwrite refreshes expiration",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, int], clock *fakeClock) {
				cache.Add("a", 1)
				clock.Advance(50 * time.Second)
				cache.Add("a", 2)
				clock.Advance(50 * time.Second)
				val, found := cache.Get("a")
				require.True(t, found)
				require.Equal(t, 2, val)
			},
			wantMetrics: testMetrics{Amount: 1, Hits: 1},
		},
		{
			name:       "has changes neither counters nor recency",
			maxEntries: 2,
			fn: func(t *testing.T, cache *LRUCache[string, int], _ *fakeClock) {
				cache.Add("a", 1)
				cache.Add("b", 2)
				require.True(t, cache.Has("a"))
				require.False(t, cache.Has("x"))
				cache.Add("c", 3) // "a" is still the oldest
				require.False(t, cache.Has("a"))
				require.Equal(t, uint64(0), cache.Stats().Hits)
				require.Equal(t, uint64(0), cache.Stats().Misses)
			},
			wantMetrics: testMetrics{Amount: 2, Evictions: 1},
		},
		{
			name:       "add if absent",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, int], clock *fakeClock) {
				require.True(t, cache.AddIfAbsent("a", 1))
				require.False(t, cache.AddIfAbsent("a", 2))
				clock.Advance(2 * time.Minute)
				require.True(t, cache.AddIfAbsent("a", 3))
				val, found := cache.Get("a")
				require.True(t, found)
				require.Equal(t, 3, val)
			},
			wantMetrics: testMetrics{Amount: 1, Hits: 1, Expirations: 1},
		},
		{
			name:       "get or add",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, int], _ *fakeClock) {
				val, exists := cache.GetOrAdd("a", func() int { return 1 })
				require.False(t, exists)
				require.Equal(t, 1, val)
				val, exists = cache.GetOrAdd("a", func() int { return 2 })
				require.True(t, exists)
				require.Equal(t, 1, val)
			},
			wantMetrics: testMetrics{Amount: 1, Hits: 1, Misses: 1},
		},
		{
			name:       "remove",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, int], _ *fakeClock) {
				cache.Add("a", 1)
				require.True(t, cache.Remove("a"))
				require.False(t, cache.Remove("a"))
				require.False(t, cache.Has("a"))
			},
			wantMetrics: testMetrics{},
		},
		{
			name:       "purge resets counters",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, int], _ *fakeClock) {
				cache.Add("a", 1)
				cache.Get("a")
				cache.Get("b")
				cache.Purge()
				require.Equal(t, Stats{MaxSize: 10, TTLSeconds: 60}, cache.Stats())
			},
			wantMetrics: testMetrics{Hits: 1, Misses: 1},
		},
		{
			name:       "sweep stale removes only expired entries",
			maxEntries: 10,
			fn: func(t *testing.T, cache *LRUCache[string, int], clock *fakeClock) {
				cache.Add("a", 1)
				cache.Add("b", 2)
				clock.Advance(30 * time.Second)
				cache.Add("c", 3)
				clock.Advance(30 * time.Second)
				require.Equal(t, 0, cache.SweepStale())
				clock.Advance(time.Second)
				require.Equal(t, 2, cache.SweepStale())
				require.Equal(t, 1, cache.Len())
				require.True(t, cache.Has("c"))
				require.Equal(t, 0, cache.SweepStale())
			},
			wantMetrics: testMetrics{Amount: 1, Expirations: 2},
		},
		{
			name:       "resize",
			maxEntries: 5,
			fn: func(t *testing.T, cache *LRUCache[string, int], _ *fakeClock) {
				for i := 0; i < 5; i++ {
					cache.Add(strconv.Itoa(i), i)
				}
				require.Equal(t, 3, cache.Resize(2))
				require.True(t, cache.Has("3"))
				require.True(t, cache.Has("4"))
				require.Equal(t, 0, cache.Resize(0))
				require.Equal(t, 2, cache.Stats().MaxSize)
			},
			wantMetrics: testMetrics{Amount: 2, Evictions: 3},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			pm := NewPrometheusMetrics()
			cache, err := NewWithOpts[string, int](tt.maxEntries, pm, Options{DefaultTTL: time.Minute, Now: clock.Now})
			require.NoError(t, err)
			tt.fn(t, cache, clock)
			assertMetrics(t, tt.wantMetrics, pm)
		})
	}
}

// A cache of size 2 holding 1 and 2, with 1 read, evicts 2 when 3 is added.
func TestLRUCache_EvictionScenario(t *testing.T) {
	cache, err := NewWithOpts[int, string](2, nil, Options{DefaultTTL: time.Minute})
	require.NoError(t, err)

	cache.Add(1, "one")
	cache.Add(2, "two")
	_, ok := cache.Get(1)
	require.True(t, ok)
	cache.Add(3, "three")

	_, ok = cache.Get(2)
	require.False(t, ok)
	stats := cache.Stats()
	require.Equal(t, 2, stats.Size)
	require.Equal(t, uint64(1), stats.Hits)
	require.Equal(t, uint64(1), stats.Misses)
}

func TestLRUCache_Concurrency(t *testing.T) {
	cache, err := New[int, int](50, nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				cache.Add(base*100+j, j)
				cache.Get(base*100 + j)
			}
		}(i)
	}
	wg.Wait()
	require.Equal(t, 50, cache.Len())
	require.Equal(t, uint64(1000), cache.Stats().Hits+cache.Stats().Misses)
}
