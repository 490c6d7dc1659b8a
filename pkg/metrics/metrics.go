// Package metrics provides Prometheus metrics for the idea gate and the
// conversation engine
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ValidationsTotal     *prometheus.CounterVec
	RemoteCallsTotal     *prometheus.CounterVec
	RemoteCallDuration   *prometheus.HistogramVec
	TurnsTotal           *prometheus.CounterVec
	StaleResultsTotal    *prometheus.CounterVec
	PointChanges         prometheus.Histogram
	SessionsStoppedTotal prometheus.Counter
}

// New creates a Metrics with its own registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		ValidationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrinkle_validations_total",
				Help: "Idea validation decisions",
			},
			[]string{"source", "result"},
		),
		RemoteCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrinkle_remote_calls_total",
				Help: "Remote function invocations",
			},
			[]string{"function", "status"},
		),
		RemoteCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wrinkle_remote_call_duration_seconds",
				Help:    "Duration of remote function invocations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"function"},
		),
		TurnsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrinkle_turns_total",
				Help: "Processed conversation turns by outcome",
			},
			[]string{"outcome"},
		),
		StaleResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrinkle_stale_results_total",
				Help: "Remote results dropped because a newer request was active",
			},
			[]string{"component"},
		),
		PointChanges: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wrinkle_point_change",
				Help:    "Wrinkle point deltas awarded per turn",
				Buckets: prometheus.LinearBuckets(-10, 2, 11),
			},
		),
		SessionsStoppedTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wrinkle_sessions_stopped_total",
				Help: "Sessions stopped after too many off-topic turns",
			},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveValidation(source, result string) {
	if m == nil {
		return
	}
	m.ValidationsTotal.WithLabelValues(source, result).Inc()
}

func (m *Metrics) ObserveRemoteCall(function string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.RemoteCallsTotal.WithLabelValues(function, status).Inc()
	m.RemoteCallDuration.WithLabelValues(function).Observe(seconds)
}

func (m *Metrics) ObserveTurn(outcome string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStale(component string) {
	if m == nil {
		return
	}
	m.StaleResultsTotal.WithLabelValues(component).Inc()
}

func (m *Metrics) ObservePointChange(delta int) {
	if m == nil {
		return
	}
	m.PointChanges.Observe(float64(delta))
}

func (m *Metrics) ObserveSessionStopped() {
	if m == nil {
		return
	}
	m.SessionsStoppedTotal.Inc()
}
