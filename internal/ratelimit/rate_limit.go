/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/vasayxtx/go-glob"
)

// MinRetryAfter is the smallest retry hint reported for a denied request.
const MinRetryAfter = time.Second

// DefaultMaxKeys is the default number of keys tracked by the leaky bucket and sliding window algorithms.
const DefaultMaxKeys = 10000

// Rate describes the frequency of requests.
type Rate struct {
	Count    int
	Duration time.Duration
}

// Limiter interface defines the rate limiting contract.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
}

// Alg represents a type for specifying rate-limiting algorithm.
type Alg string

// Supported rate-limiting algorithms.
const (
	AlgTokenBucket   Alg = "token_bucket"
	AlgLeakyBucket   Alg = "leaky_bucket"
	AlgSlidingWindow Alg = "sliding_window"
)

// Params contains parameters for creating CallerLimiter.
type Params struct {
	Alg Alg

	// ShortWindow bounds bursts: its Count is the burst capacity.
	ShortWindow Rate

	// LongWindow bounds the sustained rate.
	LongWindow Rate

	// MaxKeys limits the number of tracked keys for the leaky bucket and sliding window algorithms.
	MaxKeys int

	// ExcludedKeys is a list of glob patterns. Caller keys matching any of them are never limited.
	ExcludedKeys []string

	// Now returns the current time for the token bucket algorithm. time.Now is used if nil.
	Now func() time.Time
}

type idleEvicter interface {
	EvictIdle(now time.Time, maxIdle time.Duration) int
}

type keysCounter interface {
	Len() int
}

// CallerLimiter admits or denies requests per caller key using the configured algorithm.
type CallerLimiter struct {
	limiter  Limiter
	excluded []func(string) bool
}

// New creates a new CallerLimiter.
func New(params Params) (*CallerLimiter, error) {
	if params.Alg == "" {
		params.Alg = AlgTokenBucket
	}
	if params.MaxKeys <= 0 {
		params.MaxKeys = DefaultMaxKeys
	}
	if err := validateRate(params.ShortWindow); err != nil {
		return nil, fmt.Errorf("short window: %w", err)
	}
	if err := validateRate(params.LongWindow); err != nil {
		return nil, fmt.Errorf("long window: %w", err)
	}

	var limiter Limiter
	var err error
	switch params.Alg {
	case AlgTokenBucket:
		limiter = NewDualTokenBucketLimiter(params.ShortWindow, params.LongWindow, params.Now)
	case AlgLeakyBucket:
		limiter, err = NewDualLeakyBucketLimiter(params.ShortWindow, params.LongWindow, params.MaxKeys)
	case AlgSlidingWindow:
		limiter, err = NewSlidingWindowLimiter(params.LongWindow, params.MaxKeys)
	default:
		return nil, fmt.Errorf("unknown rate limiting algorithm %q", params.Alg)
	}
	if err != nil {
		return nil, err
	}

	excluded := make([]func(string) bool, 0, len(params.ExcludedKeys))
	for _, pattern := range params.ExcludedKeys {
		excluded = append(excluded, glob.Compile(pattern))
	}
	return &CallerLimiter{limiter: limiter, excluded: excluded}, nil
}

// Allow checks whether a request of the caller should be admitted.
// For denied requests, retryAfter is rounded up to whole seconds and is never less than MinRetryAfter.
func (l *CallerLimiter) Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error) {
	for _, match := range l.excluded {
		if match(key) {
			return true, 0, nil
		}
	}
	allow, retryAfter, err = l.limiter.Allow(ctx, key)
	if err != nil || allow {
		return allow, 0, err
	}
	return false, roundRetryAfter(retryAfter), nil
}

// EvictIdle drops state of callers not seen for longer than maxIdle and returns their number.
// Zero maxIdle disables eviction. Algorithms that bound their keys by MaxKeys don't support it.
func (l *CallerLimiter) EvictIdle(now time.Time, maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}
	if e, ok := l.limiter.(idleEvicter); ok {
		return e.EvictIdle(now, maxIdle)
	}
	return 0
}

// Len returns the number of tracked caller keys.
func (l *CallerLimiter) Len() int {
	if c, ok := l.limiter.(keysCounter); ok {
		return c.Len()
	}
	return 0
}

func validateRate(r Rate) error {
	if r.Count <= 0 {
		return fmt.Errorf("count must be positive")
	}
	if r.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	return nil
}

func roundRetryAfter(d time.Duration) time.Duration {
	secs := math.Ceil(d.Seconds())
	if d := time.Duration(secs) * time.Second; d > MinRetryAfter {
		return d
	}
	return MinRetryAfter
}
