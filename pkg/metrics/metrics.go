// Package metrics exposes Prometheus metrics for idea streams and the
// persistence worker pool.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session outcomes.
const (
	OutcomeCompleted     = "completed"
	OutcomeUpstreamError = "upstream_error"
	OutcomeClientGone    = "client_gone"
)

// Metrics holds the collectors of one server. Each instance owns its
// registry so that several servers, as in tests, do not collide.
type Metrics struct {
	registry *prometheus.Registry

	sessionsActive  prometheus.Gauge
	sessionsTotal   *prometheus.CounterVec
	sessionDuration *prometheus.HistogramVec
	fragmentsTotal  prometheus.Counter
	jobsTotal       *prometheus.CounterVec
	jobsDropped     prometheus.Counter
}

// New registers every collector, plus the Go and process collectors, on a
// fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		/* Stream metrics */
		sessionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ideas_stream_sessions_active",
			Help: "Number of idea streams currently being served",
		}),
		sessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ideas_stream_sessions_total",
			Help: "Total number of idea streams by outcome",
		}, []string{"outcome"}),
		sessionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ideas_stream_session_duration_seconds",
			Help:    "Idea stream duration in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		}, []string{"outcome"}),
		fragmentsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "ideas_stream_fragments_total",
			Help: "Total number of fragments written to clients",
		}),

		/* Worker metrics */
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ideas_worker_jobs_total",
			Help: "Total number of persistence jobs by status",
		}, []string{"status"}),
		jobsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "ideas_worker_jobs_dropped_total",
			Help: "Total number of persistence jobs dropped because the queue was full",
		}),
	}
}

// StartSession records a new stream and returns the function that records
// its end with the given outcome.
func (m *Metrics) StartSession() func(outcome string) {
	start := time.Now()
	m.sessionsActive.Inc()

	return func(outcome string) {
		m.sessionsActive.Dec()
		m.sessionsTotal.WithLabelValues(outcome).Inc()
		m.sessionDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
	}
}

// Fragment counts one fragment written to a client.
func (m *Metrics) Fragment() {
	m.fragmentsTotal.Inc()
}

// JobDone counts a finished persistence job; status is "ok" or "error".
func (m *Metrics) JobDone(status string) {
	m.jobsTotal.WithLabelValues(status).Inc()
}

// JobDropped counts a persistence job rejected by a full queue.
func (m *Metrics) JobDropped() {
	m.jobsDropped.Inc()
}

// Registry returns the registry the collectors are registered on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
