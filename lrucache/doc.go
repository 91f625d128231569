/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package lrucache provides in-memory cache with LRU eviction policy, per-entry expiration, and Prometheus metrics.
//
// Expired entries are invisible to readers immediately, but they occupy memory until they are accessed
// or until SweepStale is called. Scheduling of SweepStale is up to the owner of the cache.
package lrucache
