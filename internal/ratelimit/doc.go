/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides per-caller admission control.
//
// The default algorithm is a dual token bucket: every caller key owns a short-window bucket
// that bounds bursts and a long-window bucket that bounds the sustained rate.
// A request is admitted only when both buckets hold a token.
// Leaky bucket (GCRA) and sliding window algorithms are available as alternatives.
//
// Caller state is created lazily on the first request. Idle callers may be dropped
// with EvictIdle, which is expected to be called periodically by the owner.
package ratelimit
