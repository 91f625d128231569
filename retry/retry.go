/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package retry runs operations with exponential backoff.
// It's used for collaborator-side setup (e.g. waiting for a database to become reachable),
// lookups of records are never retried.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// IsRetryable defines a func that can tell if error is retryable as opposed to persistent.
type IsRetryable func(error) bool

// RetryableFunc is function that does some work and can be potentially retried.
type RetryableFunc func(ctx context.Context) error

// Policy describes exponential backoff between attempts.
type Policy struct {
	// InitialInterval is the delay after the first failed attempt. It grows with 1.5 multiplier.
	InitialInterval time.Duration

	// MaxInterval caps the delay between attempts. Zero means the backoff library default.
	MaxInterval time.Duration

	// MaxRetries limits the number of retries. Zero means retrying until the context is done.
	MaxRetries int
}

// DefaultPolicy is used when no policy is configured.
var DefaultPolicy = Policy{InitialInterval: 100 * time.Millisecond, MaxInterval: 2 * time.Second, MaxRetries: 5}

// NewBackOff creates a fresh backoff.BackOff for the policy.
func (p Policy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0
	var bf backoff.BackOff = eb
	if p.MaxRetries > 0 {
		bf = backoff.WithMaxRetries(eb, uint64(p.MaxRetries))
	}
	bf.Reset()
	return bf
}

// Do executes fn with retry according to policy p and with respect to context ctx.
// IsRetryable defines which errors lead to retry attempt (can be nil for any error).
// Notify can be used to receive notification on every retry with error and backoff delay
// (can be nil if no notifications required).
func Do(ctx context.Context, p Policy, isRetryable IsRetryable, notify backoff.Notify, fn RetryableFunc) error {
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	return backoff.RetryNotify(func() error {
		err := fn(bctx.Context())
		if err != nil && isRetryable != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, bctx, notify)
}
