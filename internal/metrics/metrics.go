package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exports share and capture counters on a private registry.
type Metrics struct {
	registry *prometheus.Registry
	shares   *prometheus.CounterVec
	captures *prometheus.CounterVec
	sessions prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		shares: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bubblepop",
			Name:      "share_events_total",
			Help:      "Share statistics counters by event name.",
		}, []string{"event"}),
		captures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bubblepop",
			Name:      "captures_total",
			Help:      "Screenshot capture attempts by outcome.",
		}, []string{"outcome"}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bubblepop",
			Name:      "bridge_sessions",
			Help:      "Connected bridge sessions.",
		}),
	}
	m.registry.MustRegister(m.shares, m.captures, m.sessions)
	return m
}

// Record increments the share counter for event. It satisfies the sharing
// statistics recorder.
func (m *Metrics) Record(event string) {
	m.shares.WithLabelValues(event).Inc()
}

// RecordCapture counts a capture attempt as "success" or "error".
func (m *Metrics) RecordCapture(ok bool) {
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.captures.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SessionOpened() { m.sessions.Inc() }
func (m *Metrics) SessionClosed() { m.sessions.Dec() }

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
