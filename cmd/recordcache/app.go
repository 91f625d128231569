/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/acronis/go-recordcache/httpapi"
	"github.com/acronis/go-recordcache/httpserver"
	"github.com/acronis/go-recordcache/internal/dispatch"
	"github.com/acronis/go-recordcache/internal/ratelimit"
	"github.com/acronis/go-recordcache/log"
	"github.com/acronis/go-recordcache/lookup"
	"github.com/acronis/go-recordcache/lrucache"
	"github.com/acronis/go-recordcache/profserver"
	"github.com/acronis/go-recordcache/recordstore"
	"github.com/acronis/go-recordcache/restapi"
	"github.com/acronis/go-recordcache/service"
)

const metricsNamespace = "recordcache"

const healthCheckComponentStore = "store"

type pinger interface {
	Ping(ctx context.Context) error
}

type app struct {
	unit       service.Unit
	httpServer *httpserver.HTTPServer
	lookup     *lookup.Service
	closers    []func()
}

// close releases resources used by request handlers. It must be called after the unit has been stopped.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(cfg *AppConfig, logger log.FieldLogger, reg *prometheus.Registry) (a *app, err error) {
	a = &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	limiter, err := ratelimit.New(cfg.RateLimit.Params())
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}

	cacheMetrics := lrucache.NewPrometheusMetricsWithOpts(lrucache.PrometheusMetricsOpts{Namespace: metricsNamespace})
	cache, err := lrucache.NewWithOpts[int64, recordstore.Record](
		cfg.Cache.MaxSize, cacheMetrics, lrucache.Options{DefaultTTL: time.Duration(cfg.Cache.TTL)})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	dispatcherMetrics := dispatch.NewPrometheusMetrics(metricsNamespace)
	dispatcher, err := dispatch.NewWithOpts(cfg.Dispatcher.Concurrency, dispatch.Opts{
		Logger:           logger.With(log.String("component", "dispatcher")),
		MetricsCollector: dispatcherMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create dispatcher: %w", err)
	}
	a.closers = append(a.closers, dispatcher.Close)

	store, err := openStore(cfg.Store, logger)
	if err != nil {
		return nil, err
	}
	if sqlStore, ok := store.(*recordstore.SQLStore); ok {
		a.closers = append(a.closers, func() {
			if closeErr := sqlStore.Close(); closeErr != nil {
				logger.Error("failed to close sqlite database", log.Error(closeErr))
			}
		})
	}

	a.lookup = lookup.New(limiter, cache, dispatcher, store, lookup.Opts{
		LimiterIdleTTL: time.Duration(cfg.RateLimit.IdleTTL),
		Logger:         logger,
	})

	callerKey := httpapi.RemoteAddrCallerKey
	if cfg.RateLimit.TrustForwardedFor {
		callerKey = httpapi.ForwardedForCallerKey
	}
	handler := httpapi.New(a.lookup, httpapi.Opts{CallerKey: callerKey, Logger: logger})

	restapi.MustInitAndRegisterMetrics(reg, metricsNamespace)
	a.closers = append(a.closers, func() { restapi.UnregisterMetrics(reg) })

	a.httpServer = httpserver.New(cfg.Server, logger, httpserver.Opts{
		ServiceNameInURL:   httpapi.ServiceNameInURL,
		APIRoutes:          map[httpserver.APIVersion]httpserver.APIRoute{1: handler.Routes},
		RootRoutes:         handler.Routes,
		ErrorDomain:        httpapi.ErrorDomain,
		HealthCheck:        newHealthCheck(store),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		MetricsRegisterer:  reg,
		HTTPRequestMetrics: httpserver.HTTPRequestMetricsOpts{Namespace: metricsNamespace},
	})

	// The worker unit also owns registration of the cache and dispatcher metrics.
	var worker service.Worker = service.WorkerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	if sweepInterval := time.Duration(cfg.Cache.SweepInterval); sweepInterval > 0 {
		worker = service.NewPeriodicWorkerWithOpts(
			service.WorkerFunc(newSweepFunc(a.lookup, logger)), sweepInterval,
			logger.With(log.String("worker", "sweeper")), service.PeriodicWorkerOpts{InitialDelay: sweepInterval})
	}
	workerUnit := service.NewWorkerUnitWithOpts(worker, service.WorkerUnitOpts{
		MetricsRegisterer: service.NewCollectorsRegisterer(reg, cacheMetrics, dispatcherMetrics),
	})
	units := []service.Unit{a.httpServer, workerUnit}
	if cfg.ProfServer.Enabled {
		units = append(units, profserver.New(cfg.ProfServer, logger.With(log.String("server", "prof"))))
	}
	a.unit = service.NewCompositeUnit(units...)
	return a, nil
}

func openStore(cfg *recordstore.Config, logger log.FieldLogger) (recordstore.Store, error) {
	switch cfg.Driver {
	case recordstore.DriverSQLite:
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s, err := recordstore.OpenSQLStore(ctx, cfg.DSN, recordstore.SQLStoreOpts{
			Latency: time.Duration(cfg.Latency),
			Logger:  logger,
		})
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return s, nil
	default:
		return recordstore.NewMemoryStore(time.Duration(cfg.Latency)), nil
	}
}

func newSweepFunc(svc *lookup.Service, logger log.FieldLogger) func(ctx context.Context) error {
	return func(_ context.Context) error {
		res := svc.Sweep(time.Now())
		if res.StaleCacheEntries > 0 {
			logger.Infof("removed %d stale cache entries", res.StaleCacheEntries)
		}
		if res.IdleCallers > 0 {
			logger.Infof("removed %d idle rate limit callers", res.IdleCallers)
		}
		return nil
	}
}

func newHealthCheck(store recordstore.Store) httpserver.HealthCheck {
	p, ok := store.(pinger)
	if !ok {
		return nil
	}
	return func(ctx context.Context) (httpserver.HealthCheckResult, error) {
		status := httpserver.HealthCheckStatusOK
		if err := p.Ping(ctx); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			status = httpserver.HealthCheckStatusFail
		}
		return httpserver.HealthCheckResult{healthCheckComponentStore: status}, nil
	}
}
