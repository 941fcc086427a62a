package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/agbru/tilemanifest/internal/tile"
)

// Namespace prefixes every metric exported by this program.
const Namespace = "tilemanifest"

// Probe outcome label values.
const (
	OutcomeFound   = "found"
	OutcomeMissing = "missing"
	OutcomeError   = "error"
)

// ProbeMetrics tracks existence probe calls. It satisfies manifest.Observer,
// so a builder can report into it directly.
type ProbeMetrics struct {
	probes   *prometheus.CounterVec
	inFlight prometheus.Gauge
	duration prometheus.Histogram
}

// NewProbeMetrics registers probe collectors on reg under the given
// subsystem ("builder" for the client side, "server" for the exists
// service).
func NewProbeMetrics(reg prometheus.Registerer, subsystem string) *ProbeMetrics {
	f := promauto.With(reg)
	return &ProbeMetrics{
		probes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "probes_total",
			Help:      "Existence probes by outcome.",
		}, []string{"outcome"}),
		inFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "probes_in_flight",
			Help:      "Existence probes currently outstanding.",
		}),
		duration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: subsystem,
			Name:      "probe_duration_seconds",
			Help:      "Existence probe latency.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
}

// ProbeStarted marks a probe as outstanding.
func (m *ProbeMetrics) ProbeStarted(tile.Coord) { m.inFlight.Inc() }

// ProbeFinished records the outcome and latency of a probe.
func (m *ProbeMetrics) ProbeFinished(_ tile.Coord, exists bool, err error, elapsed time.Duration) {
	m.inFlight.Dec()
	m.duration.Observe(elapsed.Seconds())
	m.probes.WithLabelValues(Outcome(exists, err)).Inc()
}

// Outcome maps a probe answer to its label value.
func Outcome(exists bool, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case exists:
		return OutcomeFound
	}
	return OutcomeMissing
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the exposition format for g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
