/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package lookup serves user records through a per-caller rate limiter, an LRU cache with TTL,
// in-flight deduplication of concurrent lookups and a bounded-concurrency dispatcher of store calls.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/acronis/go-recordcache/internal/dispatch"
	"github.com/acronis/go-recordcache/internal/inflight"
	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/lrucache"
	"github.com/acronis/go-recordcache/recordstore"
)

// Source tells where a record was served from.
type Source string

// Record sources.
const (
	SourceCache Source = "cache"
	SourceStore Source = "db"
)

// Result is a looked up record tagged with its source.
type Result struct {
	Source Source             `json:"source"`
	Record recordstore.Record `json:"user"`
}

// CreateRequest contains fields of a new record.
type CreateRequest struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

// Status is a snapshot of the service state.
type Status struct {
	Cache             lrucache.Stats `json:"cache"`
	InFlightCount     int            `json:"inFlightCount"`
	DispatcherRunning int            `json:"dispatcherRunning"`
	DispatcherQueued  int            `json:"dispatcherQueued"`
	LimiterCallers    int            `json:"limiterCallers"`
	TotalRequests     int64          `json:"totalRequests"`
	AvgResponseTimeMs float64        `json:"avgResponseTimeMs"`
}

// SweepResult contains numbers of entries removed by a maintenance pass.
type SweepResult struct {
	StaleCacheEntries int
	IdleCallers       int
}

// Limiter admits requests per caller key.
type Limiter interface {
	Allow(ctx context.Context, key string) (allow bool, retryAfter time.Duration, err error)
	EvictIdle(now time.Time, maxIdle time.Duration) int
	Len() int
}

// Opts represents options for Service.
type Opts struct {
	// LimiterIdleTTL is the idle window after which caller state is dropped by Sweep. Zero disables it.
	LimiterIdleTTL time.Duration

	// ResponseTimes is used in Status. A new instance is created if nil.
	ResponseTimes *ResponseTimes

	Logger log.FieldLogger
}

// Service serves records.
type Service struct {
	limiter        Limiter
	cache          *lrucache.LRUCache[int64, recordstore.Record]
	inFlight       inflight.Registry[int64, recordstore.Record]
	dispatcher     *dispatch.Dispatcher
	store          recordstore.Store
	validate       *validator.Validate
	respTimes      *ResponseTimes
	limiterIdleTTL time.Duration
	logger         log.FieldLogger
}

// New creates a new Service. All dependencies are owned by the caller.
func New(
	limiter Limiter,
	cache *lrucache.LRUCache[int64, recordstore.Record],
	dispatcher *dispatch.Dispatcher,
	store recordstore.Store,
	opts Opts,
) *Service {
	if opts.ResponseTimes == nil {
		opts.ResponseTimes = &ResponseTimes{}
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	return &Service{
		limiter:        limiter,
		cache:          cache,
		dispatcher:     dispatcher,
		store:          store,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
		respTimes:      opts.ResponseTimes,
		limiterIdleTTL: opts.LimiterIdleTTL,
		logger:         opts.Logger,
	}
}

// Get returns the record by id from the cache or, on a miss, from the store.
// Concurrent misses for the same id share a single store call. Canceling ctx stops only the waiting of this caller.
func (s *Service) Get(ctx context.Context, callerKey string, id int64) (Result, error) {
	if err := s.admit(ctx, callerKey); err != nil {
		return Result{}, err
	}
	if rec, ok := s.cache.Get(id); ok {
		return Result{Source: SourceCache, Record: rec}, nil
	}
	rec, err := s.fetch(ctx, id)
	if err != nil {
		return Result{}, err
	}
	return Result{Source: SourceStore, Record: rec}, nil
}

func (s *Service) fetch(ctx context.Context, id int64) (recordstore.Record, error) {
	wait, leader := s.inFlight.Join(id)
	if leader {
		s.startFetch(context.WithoutCancel(ctx), id)
	}
	select {
	case res := <-wait:
		if res.Err != nil {
			return recordstore.Record{}, fmt.Errorf("fetch record %d: %w", id, res.Err)
		}
		return res.Value, nil
	case <-ctx.Done():
		return recordstore.Record{}, ctx.Err()
	}
}

func (s *Service) startFetch(ctx context.Context, id int64) {
	var rec recordstore.Record
	job := func() (err error) {
		rec, err = s.store.FetchByID(ctx, id)
		return err
	}
	done := func(err error) {
		if err == nil {
			s.cache.AddIfAbsent(id, rec)
		} else if !errors.Is(err, recordstore.ErrNotFound) {
			s.logger.Error(fmt.Sprintf("failed to fetch record %d", id), log.Error(err))
		}
		s.inFlight.Resolve(id, rec, err)
	}
	if err := s.dispatcher.Submit(job, done); err != nil {
		s.inFlight.Resolve(id, recordstore.Record{}, err)
	}
}

// Create validates and stores a new record, then puts it into the cache.
func (s *Service) Create(ctx context.Context, callerKey string, req CreateRequest) (recordstore.Record, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return recordstore.Record{}, err
	}
	if err := s.admit(ctx, callerKey); err != nil {
		return recordstore.Record{}, err
	}
	rec, err := s.store.Create(ctx, req.Name, req.Email)
	if err != nil {
		return recordstore.Record{}, fmt.Errorf("create record: %w", err)
	}
	s.cache.Add(rec.ID, rec)
	return rec, nil
}

func (s *Service) validateCreateRequest(req CreateRequest) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate create request: %w", err)
	}
	for _, fieldErr := range fieldErrs {
		if fieldErr.Tag() == "required" {
			return &ValidationError{Message: "name and email are required"}
		}
	}
	return &ValidationError{Message: "email must be a valid email address"}
}

// List returns all records from the store.
func (s *Service) List(ctx context.Context, callerKey string) ([]recordstore.Record, error) {
	if err := s.admit(ctx, callerKey); err != nil {
		return nil, err
	}
	records, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	return records, nil
}

// ClearCache removes all cached records and resets hit/miss counters.
func (s *Service) ClearCache(ctx context.Context, callerKey string) error {
	if err := s.admit(ctx, callerKey); err != nil {
		return err
	}
	s.cache.Purge()
	return nil
}

// Status returns a snapshot of the cache, in-flight, dispatcher and limiter state.
func (s *Service) Status(ctx context.Context, callerKey string) (Status, error) {
	if err := s.admit(ctx, callerKey); err != nil {
		return Status{}, err
	}
	return Status{
		Cache:             s.cache.Stats(),
		InFlightCount:     s.inFlight.Len(),
		DispatcherRunning: s.dispatcher.Running(),
		DispatcherQueued:  s.dispatcher.Queued(),
		LimiterCallers:    s.limiter.Len(),
		TotalRequests:     s.respTimes.TotalRequests(),
		AvgResponseTimeMs: s.respTimes.AvgMillis(),
	}, nil
}

// Sweep removes expired cache entries and state of idle callers.
func (s *Service) Sweep(now time.Time) SweepResult {
	return SweepResult{
		StaleCacheEntries: s.cache.SweepStale(),
		IdleCallers:       s.limiter.EvictIdle(now, s.limiterIdleTTL),
	}
}

// ResponseTimes returns the response time accumulator used in Status.
func (s *Service) ResponseTimes() *ResponseTimes {
	return s.respTimes
}

func (s *Service) admit(ctx context.Context, callerKey string) error {
	allow, retryAfter, err := s.limiter.Allow(ctx, callerKey)
	if err != nil {
		return fmt.Errorf("rate limit caller %q: %w", callerKey, err)
	}
	if !allow {
		return &RateLimitError{RetryAfter: retryAfter}
	}
	return nil
}
