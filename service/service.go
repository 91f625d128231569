/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service runs the process: it starts a Unit, waits for a shutdown signal (or a fatal error)
// and then stops the Unit gracefully.
package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/acronis/go-recordcache/log"
)

// Opts represents options for Service.
type Opts struct {
	// ShutdownSignals are signals that trigger a graceful stop. SIGINT and SIGTERM are used by default.
	ShutdownSignals []os.Signal

	// AfterStop is called once the unit has been stopped (e.g. to release resources the unit's handlers were using).
	AfterStop func()
}

// Service is the top-level runner of the process.
type Service struct {
	Unit    Unit
	Signals chan os.Signal
	Logger  log.FieldLogger
	Opts    Opts
}

// New creates a new Service that stops on SIGINT and SIGTERM.
func New(logger log.FieldLogger, unit Unit) *Service {
	return NewWithOpts(logger, unit, Opts{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(logger log.FieldLogger, unit Unit, opts Opts) *Service {
	if len(opts.ShutdownSignals) == 0 {
		opts.ShutdownSignals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}
	}
	return &Service{Unit: unit, Signals: make(chan os.Signal, 1), Logger: logger, Opts: opts}
}

// Start runs the service and blocks until it is stopped.
func (s *Service) Start() error {
	return s.StartContext(context.Background())
}

// StartContext runs the service and blocks until the context is canceled,
// a shutdown signal is received or the unit reports a fatal error.
func (s *Service) StartContext(ctx context.Context) error {
	if mr, ok := s.Unit.(MetricsRegisterer); ok {
		mr.MustRegisterMetrics()
		defer mr.UnregisterMetrics()
	}
	if s.Opts.AfterStop != nil {
		defer s.Opts.AfterStop()
	}

	signal.Notify(s.Signals, s.Opts.ShutdownSignals...)
	defer signal.Stop(s.Signals)

	fatalError := make(chan error, 1)
	go s.Unit.Start(fatalError)

	select {
	case err := <-fatalError:
		s.Logger.Error("service fatal error", log.Error(err))
		return fmt.Errorf("fatal error: %w", err)
	case <-ctx.Done():
		s.Logger.Info("context is canceled, service will be stopped")
	case sig := <-s.Signals:
		s.Logger.Info("service got signal", log.String("signal", sig.String()))
	}

	if err := s.Unit.Stop(true); err != nil {
		return fmt.Errorf("stop service gracefully: %w", err)
	}
	s.Logger.Info("service stopped")
	return nil
}
