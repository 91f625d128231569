/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		wantErr string
	}{
		{
			name:   "default algorithm",
			params: Params{ShortWindow: testShortWindow, LongWindow: testLongWindow},
		},
		{
			name:   "leaky bucket",
			params: Params{Alg: AlgLeakyBucket, ShortWindow: testShortWindow, LongWindow: testLongWindow},
		},
		{
			name:   "sliding window",
			params: Params{Alg: AlgSlidingWindow, ShortWindow: testShortWindow, LongWindow: testLongWindow, MaxKeys: 10},
		},
		{
			name:    "unknown algorithm",
			params:  Params{Alg: "fixed_window", ShortWindow: testShortWindow, LongWindow: testLongWindow},
			wantErr: `unknown rate limiting algorithm "fixed_window"`,
		},
		{
			name:    "zero short window",
			params:  Params{LongWindow: testLongWindow},
			wantErr: "short window: count must be positive",
		},
		{
			name:    "zero long window duration",
			params:  Params{ShortWindow: testShortWindow, LongWindow: Rate{Count: 1}},
			wantErr: "long window: duration must be positive",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter, err := New(tt.params)
			if tt.wantErr != "" {
				require.EqualError(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, limiter)
		})
	}
}

func TestCallerLimiter_Allow(t *testing.T) {
	for _, alg := range []Alg{AlgTokenBucket, AlgLeakyBucket, AlgSlidingWindow} {
		t.Run(string(alg), func(t *testing.T) {
			limiter, err := New(Params{
				Alg:          alg,
				ShortWindow:  Rate{Count: 2, Duration: time.Minute},
				LongWindow:   Rate{Count: 2, Duration: time.Minute},
				ExcludedKeys: []string{"127.0.0.*", "::1"},
			})
			require.NoError(t, err)
			ctx := context.Background()

			for i := 0; i < 2; i++ {
				allow, retryAfter, err := limiter.Allow(ctx, "10.0.0.1")
				require.NoError(t, err)
				require.True(t, allow)
				require.Equal(t, time.Duration(0), retryAfter)
			}
			allow, retryAfter, err := limiter.Allow(ctx, "10.0.0.1")
			require.NoError(t, err)
			require.False(t, allow)
			require.GreaterOrEqual(t, retryAfter, MinRetryAfter)
			require.Equal(t, time.Duration(0), retryAfter%time.Second, "retry after is rounded to seconds")

			for i := 0; i < 10; i++ {
				allow, _, err = limiter.Allow(ctx, "127.0.0.1")
				require.NoError(t, err)
				require.True(t, allow, "excluded keys are never limited")
				allow, _, err = limiter.Allow(ctx, "::1")
				require.NoError(t, err)
				require.True(t, allow, "excluded keys are never limited")
			}
		})
	}
}

func TestCallerLimiter_LeakyBucketWindows(t *testing.T) {
	ctx := context.Background()
	remaining := func(t *testing.T, w gcraWindow, key string) int {
		t.Helper()
		_, res, err := w.limiter.RateLimitCtx(ctx, key, 0)
		require.NoError(t, err)
		return res.Remaining
	}

	t.Run("short window limits bursts", func(t *testing.T) {
		limiter, err := New(Params{
			Alg:         AlgLeakyBucket,
			ShortWindow: Rate{Count: 2, Duration: time.Minute},
			LongWindow:  Rate{Count: 10, Duration: time.Hour},
		})
		require.NoError(t, err)
		gcra, ok := limiter.limiter.(*DualLeakyBucketLimiter)
		require.True(t, ok)

		for i := 0; i < 2; i++ {
			allow, _, err := limiter.Allow(ctx, "10.0.0.1")
			require.NoError(t, err)
			require.True(t, allow)
		}
		allow, retryAfter, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.False(t, allow)
		require.Equal(t, 30*time.Second, retryAfter)
		require.Equal(t, 8, remaining(t, gcra.long, "10.0.0.1"), "denied request is not debited from the long window")
	})

	t.Run("long window limits sustained rate", func(t *testing.T) {
		limiter, err := New(Params{
			Alg:         AlgLeakyBucket,
			ShortWindow: Rate{Count: 5, Duration: 10 * time.Second},
			LongWindow:  Rate{Count: 3, Duration: time.Hour},
		})
		require.NoError(t, err)
		gcra, ok := limiter.limiter.(*DualLeakyBucketLimiter)
		require.True(t, ok)

		for i := 0; i < 3; i++ {
			allow, _, err := limiter.Allow(ctx, "10.0.0.1")
			require.NoError(t, err)
			require.True(t, allow)
		}
		allow, retryAfter, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		require.False(t, allow)
		require.Equal(t, 20*time.Minute, retryAfter)
		require.Equal(t, 2, remaining(t, gcra.short, "10.0.0.1"), "denied request is not debited from the short window")

		allow, _, err = limiter.Allow(ctx, "10.0.0.2")
		require.NoError(t, err)
		require.True(t, allow, "windows are tracked per key")
	})
}

func TestCallerLimiter_EvictIdle(t *testing.T) {
	clock := newTestClock()
	limiter, err := New(Params{ShortWindow: testShortWindow, LongWindow: testLongWindow, Now: clock.Now})
	require.NoError(t, err)

	_, _, err = limiter.Allow(context.Background(), "10.0.0.1")
	require.NoError(t, err)
	require.Equal(t, 1, limiter.Len())

	clock.Advance(time.Hour)
	assert.Equal(t, 0, limiter.EvictIdle(clock.Now(), 0), "zero idle window disables eviction")
	assert.Equal(t, 1, limiter.EvictIdle(clock.Now(), 10*time.Minute))
	assert.Equal(t, 0, limiter.Len())
}

func TestCallerLimiter_LenForSlidingWindow(t *testing.T) {
	limiter, err := New(Params{Alg: AlgSlidingWindow, ShortWindow: testShortWindow, LongWindow: testLongWindow, MaxKeys: 2})
	require.NoError(t, err)
	for _, key := range []string{"a", "b", "c"} {
		_, _, err = limiter.Allow(context.Background(), key)
		require.NoError(t, err)
	}
	require.Equal(t, 2, limiter.Len())
	require.Equal(t, 0, limiter.EvictIdle(time.Now(), time.Nanosecond))
}

func TestRoundRetryAfter(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want time.Duration
	}{
		{0, time.Second},
		{-time.Second, time.Second},
		{300 * time.Millisecond, time.Second},
		{time.Second, time.Second},
		{1100 * time.Millisecond, 2 * time.Second},
		{59*time.Second + time.Nanosecond, time.Minute},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, roundRetryAfter(tt.in), "input %s", tt.in)
	}
}
