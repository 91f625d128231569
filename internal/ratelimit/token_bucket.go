/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type callerState struct {
	mu       sync.Mutex
	short    *rate.Limiter
	long     *rate.Limiter
	lastSeen time.Time
	evicted  bool
}

// DualTokenBucketLimiter keeps a pair of token buckets per caller key.
// Buckets start full and are refilled lazily from the elapsed time on every access.
type DualTokenBucketLimiter struct {
	short Rate
	long  Rate
	now   func() time.Time

	mu      sync.RWMutex
	callers map[string]*callerState
}

// NewDualTokenBucketLimiter creates a new dual token bucket limiter.
// The capacity of each bucket equals the Count of its rate and is refilled at Count per Duration.
func NewDualTokenBucketLimiter(short, long Rate, now func() time.Time) *DualTokenBucketLimiter {
	if now == nil {
		now = time.Now
	}
	return &DualTokenBucketLimiter{
		short:   short,
		long:    long,
		now:     now,
		callers: make(map[string]*callerState),
	}
}

// Allow admits the request if both buckets of the caller hold at least one token, debiting one from each.
// Otherwise, it returns the time until every starved bucket gets a token.
func (l *DualTokenBucketLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	now := l.now()
	for {
		if allow, retryAfter, ok := l.take(l.getOrCreate(key, now), now); ok {
			return allow, retryAfter, nil
		}
	}
}

// take debits the caller state. ok is false if the state was evicted before it got locked.
func (l *DualTokenBucketLimiter) take(state *callerState, now time.Time) (allow bool, retryAfter time.Duration, ok bool) {
	state.mu.Lock()
	defer state.mu.Unlock()

	if state.evicted {
		return false, 0, false
	}
	state.lastSeen = now
	shortTokens := state.short.TokensAt(now)
	longTokens := state.long.TokensAt(now)
	if shortTokens >= 1 && longTokens >= 1 {
		state.short.AllowN(now, 1)
		state.long.AllowN(now, 1)
		return true, 0, true
	}

	for _, b := range []struct {
		tokens float64
		rate   Rate
	}{{shortTokens, l.short}, {longTokens, l.long}} {
		if b.tokens >= 1 {
			continue
		}
		// Seconds until the missing fraction of a token is refilled.
		secs := math.Ceil((1 - b.tokens) * b.rate.Duration.Seconds() / float64(b.rate.Count))
		if wait := time.Duration(secs) * time.Second; wait > retryAfter {
			retryAfter = wait
		}
	}
	return false, max(retryAfter, MinRetryAfter), true
}

// EvictIdle drops callers not seen for longer than maxIdle.
func (l *DualTokenBucketLimiter) EvictIdle(now time.Time, maxIdle time.Duration) (evicted int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, state := range l.callers {
		state.mu.Lock()
		if now.Sub(state.lastSeen) > maxIdle {
			state.evicted = true
			delete(l.callers, key)
			evicted++
		}
		state.mu.Unlock()
	}
	return evicted
}

// Len returns the number of tracked callers.
func (l *DualTokenBucketLimiter) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.callers)
}

func (l *DualTokenBucketLimiter) getOrCreate(key string, now time.Time) *callerState {
	l.mu.RLock()
	state, ok := l.callers[key]
	l.mu.RUnlock()
	if ok {
		return state
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if state, ok = l.callers[key]; ok {
		return state
	}
	state = &callerState{
		short:    newBucket(l.short, now),
		long:     newBucket(l.long, now),
		lastSeen: now,
	}
	l.callers[key] = state
	return state
}

func newBucket(r Rate, now time.Time) *rate.Limiter {
	lim := rate.NewLimiter(rate.Limit(float64(r.Count)/r.Duration.Seconds()), r.Count)
	lim.SetLimitAt(now, lim.Limit()) // anchors the lazy refill at the creation time
	return lim
}
