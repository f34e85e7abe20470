// Package metrics exposes the dashboard's Prometheus instruments on a private registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tradedash/internal/normalize"
)

const namespace = "tradedash"

type Metrics struct {
	registry *prometheus.Registry

	degraded  *prometheus.CounterVec
	events    *prometheus.CounterVec
	fetches   *prometheus.HistogramVec
	connected prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		degraded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "degraded_payloads_total",
			Help:      "Payloads that could not be normalized and degraded to empty results",
		}, []string{"kind", "reason"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_events_total",
			Help:      "Push channel events received by type",
		}, []string{"event"}),
		fetches: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of request/response calls to the telemetry server",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"endpoint", "outcome"}),
		connected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "push_connected",
			Help:      "1 while the push channel is connected",
		}),
	}
}

// Degraded implements normalize.Diagnostics.
func (m *Metrics) Degraded(kind normalize.Kind, reason string) {
	m.degraded.WithLabelValues(string(kind), reason).Inc()
}

func (m *Metrics) ObserveEvent(event string) {
	m.events.WithLabelValues(event).Inc()
}

func (m *Metrics) ObserveFetch(endpoint, outcome string, elapsed time.Duration) {
	m.fetches.WithLabelValues(endpoint, outcome).Observe(elapsed.Seconds())
}

func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.connected.Set(1)
		return
	}
	m.connected.Set(0)
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
