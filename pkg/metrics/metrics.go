// Package metrics exposes prometheus collectors for the chat gateway and the
// web sessions. Collectors live on a private registry so several servers (and
// tests) can coexist in one process.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "apoteker"

// Gateway request outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeEmpty     = "empty"
	OutcomeTransport = "transport"
	OutcomeTimeout   = "timeout"
)

// Metrics bundles every collector. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	registry *prometheus.Registry

	gatewayRequests *prometheus.CounterVec
	gatewayDuration prometheus.Histogram
	turnsAppended   *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

// New creates the collectors and registers them, together with the Go and
// process collectors, on a fresh registry.
func New() *Metrics {
	r := prometheus.NewRegistry()
	r.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Metrics{
		registry: r,
		gatewayRequests: promauto.With(r).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_requests_total",
				Help:      "Model requests by outcome.",
			},
			[]string{"outcome"},
		),
		gatewayDuration: promauto.With(r).NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_request_duration_seconds",
				Help:      "Wall-clock time spent waiting for the model.",
				Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
			},
		),
		turnsAppended: promauto.With(r).NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_turns_appended_total",
				Help:      "Turns recorded in session histories by role.",
			},
			[]string{"role"},
		),
		activeSessions: promauto.With(r).NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "sessions_active",
				Help:      "Chat sessions currently held in memory.",
			},
		),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveGateway records one model request.
func (m *Metrics) ObserveGateway(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequests.WithLabelValues(outcome).Inc()
	m.gatewayDuration.Observe(elapsed.Seconds())
}

// TurnAppended records a turn added to a history.
func (m *Metrics) TurnAppended(role string) {
	if m == nil {
		return
	}
	m.turnsAppended.WithLabelValues(role).Inc()
}

// SetActiveSessions records the number of live sessions.
func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
