/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/log/logtest"
)

func TestNew(t *testing.T) {
	_, err := New(0)
	require.EqualError(t, err, "concurrency should be positive, got 0")

	d, err := New(DefaultConcurrency)
	require.NoError(t, err)
	require.Equal(t, 0, d.Running())
	require.Equal(t, 0, d.Queued())
}

func TestDispatcher_BoundedConcurrencyAndFIFO(t *testing.T) {
	const concurrency = 4
	const jobsNum = 12

	metrics := NewPrometheusMetrics("")
	d, err := NewWithOpts(concurrency, Opts{MetricsCollector: metrics})
	require.NoError(t, err)

	var mu sync.Mutex
	var started []int
	var current, maxCurrent int32
	release := make(chan struct{})
	done := make(chan int, jobsNum)

	for i := 0; i < jobsNum; i++ {
		i := i
		require.NoError(t, d.Submit(func() error {
			n := atomic.AddInt32(&current, 1)
			for {
				m := atomic.LoadInt32(&maxCurrent)
				if n <= m || atomic.CompareAndSwapInt32(&maxCurrent, m, n) {
					break
				}
			}
			mu.Lock()
			started = append(started, i)
			mu.Unlock()
			<-release
			atomic.AddInt32(&current, -1)
			return nil
		}, func(err error) {
			assert.NoError(t, err)
			done <- i
		}))
	}

	require.Eventually(t, func() bool { return d.Running() == concurrency }, time.Second, 5*time.Millisecond)
	require.Equal(t, jobsNum-concurrency, d.Queued())
	require.Equal(t, concurrency, int(testutil.ToFloat64(metrics.JobsRunning)))
	require.Equal(t, jobsNum-concurrency, int(testutil.ToFloat64(metrics.JobsQueued)))

	// Release jobs one by one, so queued ones must start strictly in submission order.
	startedNum := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(started)
	}
	for i := 0; i < jobsNum; i++ {
		release <- struct{}{}
		<-done
		wantStarted := min(concurrency+i+1, jobsNum)
		require.Eventually(t, func() bool { return startedNum() == wantStarted }, time.Second, time.Millisecond)
	}
	d.Close()

	require.LessOrEqual(t, int(maxCurrent), concurrency)
	require.Len(t, started, jobsNum)
	for i := concurrency; i < jobsNum; i++ {
		require.Equal(t, i, started[i], "queued jobs start in FIFO order")
	}
	require.Equal(t, 0, d.Running())
	require.Equal(t, 0, d.Queued())
	require.Equal(t, jobsNum, int(testutil.ToFloat64(metrics.JobsTotal.WithLabelValues(JobResultOK))))
}

func TestDispatcher_JobErrorAndPanic(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	metrics := NewPrometheusMetrics("")
	d, err := NewWithOpts(1, Opts{Logger: logRecorder, MetricsCollector: metrics})
	require.NoError(t, err)

	errJob := errors.New("store is unavailable")
	results := make(chan error, 3)
	require.NoError(t, d.Submit(func() error { return errJob }, func(err error) { results <- err }))
	require.NoError(t, d.Submit(func() error { panic("boom") }, func(err error) { results <- err }))
	require.NoError(t, d.Submit(func() error { return nil }, func(err error) { results <- err }))
	d.Close()

	require.ErrorIs(t, <-results, errJob)
	var panicErr *PanicError
	require.ErrorAs(t, <-results, &panicErr)
	require.Equal(t, "boom", panicErr.Value)
	require.NoError(t, <-results, "a panicked job frees its slot")

	entry, found := logRecorder.FindEntry("panic in dispatched job: boom")
	require.True(t, found)
	require.Equal(t, log.LevelError, entry.Level)

	require.Equal(t, 1, int(testutil.ToFloat64(metrics.JobsTotal.WithLabelValues(JobResultOK))))
	require.Equal(t, 1, int(testutil.ToFloat64(metrics.JobsTotal.WithLabelValues(JobResultError))))
	require.Equal(t, 1, int(testutil.ToFloat64(metrics.JobsTotal.WithLabelValues(JobResultPanic))))
}

func TestDispatcher_PanicInDoneCallback(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	d, err := NewWithOpts(1, Opts{Logger: logRecorder})
	require.NoError(t, err)

	results := make(chan error, 1)
	require.NoError(t, d.Submit(func() error { return nil }, func(error) { panic("callback failed") }))
	require.NoError(t, d.Submit(func() error { return nil }, func(err error) { results <- err }))

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close hung after a panic in the done callback")
	}
	require.NoError(t, <-results, "the queued job runs in the freed slot")
	require.Equal(t, 0, d.Running())

	entry, found := logRecorder.FindEntry("panic in dispatched job callback: callback failed")
	require.True(t, found)
	require.Equal(t, log.LevelError, entry.Level)
}

func TestDispatcher_Close(t *testing.T) {
	d, err := New(1)
	require.NoError(t, err)

	var finished int32
	release := make(chan struct{})
	for i := 0; i < 3; i++ {
		require.NoError(t, d.Submit(func() error {
			<-release
			atomic.AddInt32(&finished, 1)
			return nil
		}, nil))
	}

	closed := make(chan struct{})
	go func() {
		d.Close()
		close(closed)
	}()
	require.Eventually(t, func() bool {
		return errors.Is(d.Submit(func() error { return nil }, nil), ErrDispatcherClosed)
	}, time.Second, time.Millisecond)

	close(release)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close did not wait for queued jobs")
	}
	require.Equal(t, int32(3), atomic.LoadInt32(&finished))
}
