/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"bytes"
	"container/list"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/acronis/go-recordcache/log"
)

// DefaultConcurrency is the default number of simultaneously running jobs.
const DefaultConcurrency = 4

// ErrDispatcherClosed is returned by Submit after Close has been called.
var ErrDispatcherClosed = errors.New("dispatcher is closed")

// Job is a unit of work executed by Dispatcher.
type Job func() error

// DoneFunc receives the error returned by the job. It's called from the goroutine that ran the job.
type DoneFunc func(err error)

type queuedJob struct {
	job  Job
	done DoneFunc
}

// Opts represents options for Dispatcher.
type Opts struct {
	// Logger is used for reporting panics in jobs. Disabled logger is used if nil.
	Logger log.FieldLogger

	// MetricsCollector is used for collecting metrics. Metrics are disabled if nil.
	MetricsCollector MetricsCollector
}

// Dispatcher executes jobs with bounded concurrency.
type Dispatcher struct {
	concurrency int
	logger      log.FieldLogger
	metrics     MetricsCollector

	mu      sync.Mutex
	running int
	queue   *list.List // of queuedJob, front is the oldest
	closed  bool
	wg      sync.WaitGroup
}

// New creates a new Dispatcher that runs at most concurrency jobs at a time.
func New(concurrency int) (*Dispatcher, error) {
	return NewWithOpts(concurrency, Opts{})
}

// NewWithOpts creates a new Dispatcher with the provided options.
func NewWithOpts(concurrency int, opts Opts) (*Dispatcher, error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency should be positive, got %d", concurrency)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	return &Dispatcher{
		concurrency: concurrency,
		logger:      opts.Logger,
		metrics:     opts.MetricsCollector,
		queue:       list.New(),
	}, nil
}

// Submit starts the job if a slot is free or puts it at the end of the queue otherwise.
// done, if not nil, is called with the job result. A panic in the job is reported to done as *PanicError.
func (d *Dispatcher) Submit(job Job, done DoneFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}
	d.wg.Add(1)
	qj := queuedJob{job: job, done: done}
	if d.running < d.concurrency {
		d.running++
		d.metrics.SetRunning(d.running)
		go d.run(qj)
		return nil
	}
	d.queue.PushBack(qj)
	d.metrics.SetQueued(d.queue.Len())
	return nil
}

// Running returns the number of currently running jobs.
func (d *Dispatcher) Running() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Queued returns the number of jobs waiting for a free slot.
func (d *Dispatcher) Queued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Len()
}

// Close rejects further submissions and waits until all running and queued jobs are finished.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) run(qj queuedJob) {
	for {
		d.complete(qj.done, d.execute(qj.job))
		d.wg.Done()

		var ok bool
		if qj, ok = d.next(); !ok {
			return
		}
	}
}

// next hands the freed slot to the oldest queued job, if any.
func (d *Dispatcher) next() (queuedJob, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	front := d.queue.Front()
	if front == nil {
		d.running--
		d.metrics.SetRunning(d.running)
		return queuedJob{}, false
	}
	d.queue.Remove(front)
	d.metrics.SetQueued(d.queue.Len())
	return front.Value.(queuedJob), true
}

// complete hands the job result to done. A panic in done is logged, so the slot is still released.
func (d *Dispatcher) complete(done DoneFunc, err error) {
	if done == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			panicErr := newPanicError(p)
			d.logger.Error(fmt.Sprintf("panic in dispatched job callback: %+v", p), log.Bytes("stack", panicErr.Stack))
		}
	}()
	done(err)
}

func (d *Dispatcher) execute(job Job) (err error) {
	defer func() {
		if p := recover(); p != nil {
			panicErr := newPanicError(p)
			d.logger.Error(fmt.Sprintf("panic in dispatched job: %+v", p), log.Bytes("stack", panicErr.Stack))
			err = panicErr
			d.metrics.IncJobs(JobResultPanic)
			return
		}
		if err != nil {
			d.metrics.IncJobs(JobResultError)
			return
		}
		d.metrics.IncJobs(JobResultOK)
	}()
	return job()
}

// PanicError is an error that represents a panic value and stack trace.
type PanicError struct {
	Value interface{}
	Stack []byte
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", p.Value)
}

// Unwrap returns the panic value if it's an error.
func (p *PanicError) Unwrap() error {
	err, ok := p.Value.(error)
	if !ok {
		return nil
	}
	return err
}

func newPanicError(v interface{}) *PanicError {
	stack := debug.Stack()

	// The first line of the stack trace is "goroutine N [status]:", it's useless here.
	if line := bytes.IndexByte(stack, '\n'); line >= 0 {
		stack = stack[line+1:]
	}
	return &PanicError{Value: v, Stack: stack}
}
