/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package lookup

import (
	"math"
	"time"

	"go.uber.org/atomic"
)

// ResponseTimes accumulates the number of served requests and their total duration.
type ResponseTimes struct {
	total    atomic.Int64
	totalDur atomic.Duration
}

// Observe records one served request.
func (rt *ResponseTimes) Observe(d time.Duration) {
	rt.total.Inc()
	rt.totalDur.Add(d)
}

// TotalRequests returns the number of observed requests.
func (rt *ResponseTimes) TotalRequests() int64 {
	return rt.total.Load()
}

// AvgMillis returns the average response time in milliseconds rounded to 2 decimal places.
func (rt *ResponseTimes) AvgMillis() float64 {
	total := rt.total.Load()
	if total == 0 {
		return 0
	}
	avg := float64(rt.totalDur.Load()) / float64(time.Millisecond) / float64(total)
	return math.Round(avg*100) / 100
}
