/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/RussellLuo/slidingwindow"

	"github.com/acronis/go-recordcache/lrucache"
)

// SlidingWindowLimiter implements sliding window rate limiting algorithm.
// Per-key windows are kept in an LRU cache, so the least recently seen callers are dropped first.
type SlidingWindowLimiter struct {
	keys    *lrucache.LRUCache[string, *slidingwindow.Limiter]
	maxRate Rate
}

// NewSlidingWindowLimiter creates a new sliding window rate limiter.
func NewSlidingWindowLimiter(maxRate Rate, maxKeys int) (*SlidingWindowLimiter, error) {
	keys, err := lrucache.New[string, *slidingwindow.Limiter](maxKeys, nil)
	if err != nil {
		return nil, fmt.Errorf("new LRU in-memory store for keys: %w", err)
	}
	return &SlidingWindowLimiter{keys: keys, maxRate: maxRate}, nil
}

// Allow checks if the request should be allowed based on the rate limit.
func (l *SlidingWindowLimiter) Allow(_ context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	lim, _ := l.keys.GetOrAdd(key, l.newWindow)
	if lim.Allow() {
		return true, 0, nil
	}
	now := time.Now()
	retryAfter = now.Truncate(l.maxRate.Duration).Add(l.maxRate.Duration).Sub(now)
	return false, retryAfter, nil
}

// Len returns the number of tracked keys.
func (l *SlidingWindowLimiter) Len() int {
	return l.keys.Len()
}

func (l *SlidingWindowLimiter) newWindow() *slidingwindow.Limiter {
	lim, _ := slidingwindow.NewLimiter(
		l.maxRate.Duration, int64(l.maxRate.Count), func() (slidingwindow.Window, slidingwindow.StopFunc) {
			return slidingwindow.NewLocalWindow()
		})
	return lim
}
