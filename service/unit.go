/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import "github.com/prometheus/client_golang/prometheus"

// Unit is a part of the service that may be started and stopped (HTTP server, periodic maintenance, etc.).
type Unit interface {
	// Start runs the unit and blocks until it finishes.
	// Errors that make further work impossible are sent to fatalErr.
	Start(fatalErr chan<- error)

	// Stop stops the unit. A graceful stop lets in-progress work finish.
	Stop(gracefully bool) error
}

// MetricsRegisterer is implemented by units that own metrics.
// Service registers them before start and unregisters after stop.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}

// CollectorsRegisterer is a MetricsRegisterer for a fixed set of Prometheus collectors.
// It lets components that are not units themselves (cache, dispatcher) be registered by the service.
type CollectorsRegisterer struct {
	Registerer prometheus.Registerer
	Collectors []prometheus.Collector
}

var _ MetricsRegisterer = CollectorsRegisterer{}

// NewCollectorsRegisterer creates a new CollectorsRegisterer. Nil collectors are skipped.
func NewCollectorsRegisterer(reg prometheus.Registerer, collectors ...prometheus.Collector) CollectorsRegisterer {
	cr := CollectorsRegisterer{Registerer: reg}
	for _, c := range collectors {
		if c != nil {
			cr.Collectors = append(cr.Collectors, c)
		}
	}
	return cr
}

// MustRegisterMetrics registers all collectors and panics if any error occurs.
func (cr CollectorsRegisterer) MustRegisterMetrics() {
	cr.Registerer.MustRegister(cr.Collectors...)
}

// UnregisterMetrics unregisters all collectors.
func (cr CollectorsRegisterer) UnregisterMetrics() {
	for _, c := range cr.Collectors {
		cr.Registerer.Unregister(c)
	}
}
