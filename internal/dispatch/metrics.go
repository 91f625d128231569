/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import "github.com/prometheus/client_golang/prometheus"

// Job results used as values of the "result" label.
const (
	JobResultOK    = "ok"
	JobResultError = "error"
	JobResultPanic = "panic"
)

// MetricsCollector represents a collector of Dispatcher metrics.
type MetricsCollector interface {
	SetRunning(n int)
	SetQueued(n int)
	IncJobs(result string)
}

// PrometheusMetrics represents Prometheus metrics for Dispatcher.
type PrometheusMetrics struct {
	JobsRunning prometheus.Gauge
	JobsQueued  prometheus.Gauge
	JobsTotal   *prometheus.CounterVec
}

// NewPrometheusMetrics creates a new instance of PrometheusMetrics.
func NewPrometheusMetrics(namespace string) *PrometheusMetrics {
	return &PrometheusMetrics{
		JobsRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatcher_jobs_running",
			Help:      "Number of currently running jobs.",
		}),
		JobsQueued: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dispatcher_jobs_queued",
			Help:      "Number of jobs waiting for a free slot.",
		}),
		JobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatcher_jobs_total",
			Help:      "Number of finished jobs.",
		}, []string{"result"}),
	}
}

// Describe sends the super-set of all possible descriptors of metrics collected by this Collector.
func (pm *PrometheusMetrics) Describe(ch chan<- *prometheus.Desc) {
	pm.JobsRunning.Describe(ch)
	pm.JobsQueued.Describe(ch)
	pm.JobsTotal.Describe(ch)
}

// Collect is called by the Prometheus registry when collecting metrics.
func (pm *PrometheusMetrics) Collect(ch chan<- prometheus.Metric) {
	pm.JobsRunning.Collect(ch)
	pm.JobsQueued.Collect(ch)
	pm.JobsTotal.Collect(ch)
}

// SetRunning sets the number of running jobs.
func (pm *PrometheusMetrics) SetRunning(n int) {
	pm.JobsRunning.Set(float64(n))
}

// SetQueued sets the number of queued jobs.
func (pm *PrometheusMetrics) SetQueued(n int) {
	pm.JobsQueued.Set(float64(n))
}

// IncJobs increments the number of finished jobs with the given result.
func (pm *PrometheusMetrics) IncJobs(result string) {
	pm.JobsTotal.WithLabelValues(result).Inc()
}

type disabledMetrics struct{}

func (disabledMetrics) SetRunning(int) {}
func (disabledMetrics) SetQueued(int)  {}
func (disabledMetrics) IncJobs(string) {}
