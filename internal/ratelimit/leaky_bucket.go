/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
)

// DualLeakyBucketLimiter implements GCRA (Generic Cell Rate Algorithm), a leaky bucket variant, over two windows.
// More details and good explanation of this alg is provided here: https://brandur.org/rate-limiting#gcra.
// Each window admits Count requests at once and then one request per Duration/Count.
// A request is admitted only if both windows allow it, and only then is it debited from both.
type DualLeakyBucketLimiter struct {
	short gcraWindow
	long  gcraWindow

	// mu makes check-then-debit over both windows atomic.
	mu sync.Mutex
}

// NewDualLeakyBucketLimiter creates a new dual leaky bucket rate limiter.
// Keys of each window are kept in an LRU store of maxKeys size.
func NewDualLeakyBucketLimiter(short, long Rate, maxKeys int) (*DualLeakyBucketLimiter, error) {
	shortLimiter, err := newGCRALimiter(short, maxKeys)
	if err != nil {
		return nil, fmt.Errorf("short window: %w", err)
	}
	longLimiter, err := newGCRALimiter(long, maxKeys)
	if err != nil {
		return nil, fmt.Errorf("long window: %w", err)
	}
	return &DualLeakyBucketLimiter{short: shortLimiter, long: longLimiter}, nil
}

type gcraWindow struct {
	limiter  *throttled.GCRARateLimiterCtx
	limit    int
	interval time.Duration // between two requests at the sustained rate
}

func newGCRALimiter(r Rate, maxKeys int) (gcraWindow, error) {
	gcraStore, err := memstore.NewCtx(maxKeys)
	if err != nil {
		return gcraWindow{}, fmt.Errorf("new in-memory store: %w", err)
	}
	reqQuota := throttled.RateQuota{
		MaxRate:  throttled.PerDuration(r.Count, r.Duration),
		MaxBurst: r.Count - 1,
	}
	gcraLimiter, err := throttled.NewGCRARateLimiterCtx(gcraStore, reqQuota)
	if err != nil {
		return gcraWindow{}, fmt.Errorf("new GCRA rate limiter: %w", err)
	}
	return gcraWindow{limiter: gcraLimiter, limit: r.Count, interval: r.Duration / time.Duration(r.Count)}, nil
}

// Allow checks if the request should be allowed based on both rate limits.
func (l *DualLeakyBucketLimiter) Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	shortWait, err := l.short.wait(ctx, key)
	if err != nil {
		return false, 0, fmt.Errorf("short window: %w", err)
	}
	longWait, err := l.long.wait(ctx, key)
	if err != nil {
		return false, 0, fmt.Errorf("long window: %w", err)
	}
	if wait := max(shortWait, longWait); wait > 0 {
		return false, wait, nil
	}

	for _, w := range []gcraWindow{l.short, l.long} {
		if _, _, err = w.limiter.RateLimitCtx(ctx, key, 1); err != nil {
			return false, 0, fmt.Errorf("GCRA rate limit for key %q: %w", key, err)
		}
	}
	return true, 0, nil
}

// wait peeks at the window state without updating it and returns the time until one more request fits.
func (w gcraWindow) wait(ctx context.Context, key string) (time.Duration, error) {
	_, res, err := w.limiter.RateLimitCtx(ctx, key, 0)
	if err != nil {
		return 0, fmt.Errorf("GCRA rate limit for key %q: %w", key, err)
	}
	if res.Remaining >= 1 {
		return 0, nil
	}
	// The window is full until its oldest request leaks out.
	return max(res.ResetAfter-time.Duration(w.limit-1)*w.interval, time.Nanosecond), nil
}
