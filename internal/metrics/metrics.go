// Package metrics exposes the service's Prometheus collectors on a private
// registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultPrefix is prepended to every metric name.
const DefaultPrefix = "fittrack"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	authzDecisions  *prometheus.CounterVec
	assignments     *prometheus.CounterVec
	swaps           *prometheus.CounterVec
	conflictRetries *prometheus.CounterVec
	archiveFailures prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New(prefix string) *Metrics {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	reg := prometheus.NewRegistry()

	m := &Metrics{registry: reg}

	m.authzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_authz_decisions_total",
			Help: "Authorization decisions by resource type, action and outcome",
		},
		[]string{"resource", "action", "outcome"},
	)
	m.assignments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_assignments_total",
			Help: "Workout and diet assignment attempts by outcome",
		},
		[]string{"domain", "outcome"},
	)
	m.swaps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_swap_requests_total",
			Help: "Exercise and meal swap requests by outcome",
		},
		[]string{"domain", "outcome"},
	)
	m.conflictRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "_conflict_retries_total",
			Help: "Optimistic concurrency retries by operation",
		},
		[]string{"operation"},
	)
	m.archiveFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: prefix + "_history_archive_failures_total",
			Help: "Assignment records that could not be written to object storage",
		},
	)
	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	reg.MustRegister(
		m.authzDecisions,
		m.assignments,
		m.swaps,
		m.conflictRetries,
		m.archiveFailures,
		m.requestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) AuthzDecision(resource, action, outcome string) {
	if m == nil {
		return
	}
	m.authzDecisions.WithLabelValues(resource, action, outcome).Inc()
}

func (m *Metrics) Assignment(domain, outcome string) {
	if m == nil {
		return
	}
	m.assignments.WithLabelValues(domain, outcome).Inc()
}

func (m *Metrics) Swap(domain, outcome string) {
	if m == nil {
		return
	}
	m.swaps.WithLabelValues(domain, outcome).Inc()
}

func (m *Metrics) ConflictRetry(operation string) {
	if m == nil {
		return
	}
	m.conflictRetries.WithLabelValues(operation).Inc()
}

func (m *Metrics) ArchiveFailure() {
	if m == nil {
		return
	}
	m.archiveFailures.Inc()
}

func (m *Metrics) ObserveRequest(method, route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}
