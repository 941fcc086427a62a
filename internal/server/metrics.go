package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/agbru/tilemanifest/internal/metrics"
)

// Metrics holds the server's Prometheus collectors. Each instance owns its
// registry, so several servers (and tests) can coexist in one process.
type Metrics struct {
	registry       *prometheus.Registry
	handler        http.Handler
	activeRequests prometheus.Gauge
	requestsTotal  *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec

	// Probes records the outcome of every /exists answer.
	Probes *metrics.ProbeMetrics
}

// NewMetrics creates the collectors and their exposition handler.
func NewMetrics() *Metrics {
	reg := metrics.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		handler:  metrics.Handler(reg),
		activeRequests: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Name:      "active_requests",
			Help:      "HTTP requests currently being served.",
		}),
		requestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "requests_total",
			Help:      "HTTP requests by path and status code.",
		}, []string{"path", "code"}),
		requestLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metrics.Namespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by path.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		Probes: metrics.NewProbeMetrics(reg, "server"),
	}
}

// Registry returns the registry backing the metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// IncrementActiveRequests marks a request as started.
func (m *Metrics) IncrementActiveRequests() { m.activeRequests.Inc() }

// DecrementActiveRequests marks a request as finished.
func (m *Metrics) DecrementActiveRequests() { m.activeRequests.Dec() }

// knownPaths bounds the cardinality of the path label.
var knownPaths = map[string]bool{ExistsPath: true, MetricsPath: true, HealthPath: true}

// RecordRequest counts a completed request. Unknown paths share one label.
func (m *Metrics) RecordRequest(path string, code int, elapsed time.Duration) {
	if !knownPaths[path] {
		path = "other"
	}
	m.requestsTotal.WithLabelValues(path, strconv.Itoa(code)).Inc()
	m.requestLatency.WithLabelValues(path).Observe(elapsed.Seconds())
}

// WritePrometheus serves the exposition format.
func (m *Metrics) WritePrometheus(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware tracks active requests, counts and latency.
func (s *Server) metricsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.metrics.IncrementActiveRequests()
		defer s.metrics.DecrementActiveRequests()

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		s.metrics.RecordRequest(r.URL.Path, rec.status, time.Since(start))
	}
}
