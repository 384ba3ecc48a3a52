package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors for the engine.
type Metrics struct {
	registry *prometheus.Registry

	StepsTotal            *prometheus.CounterVec
	StepDuration          *prometheus.HistogramVec
	StepErrorsTotal       *prometheus.CounterVec
	ModelCallsTotal       prometheus.Counter
	ToolCallsTotal        *prometheus.CounterVec
	CheckpointsSavedTotal prometheus.Counter
	RunsTotal             *prometheus.CounterVec
}

// New creates and registers all collectors on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		StepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_steps_total",
				Help: "Total number of node transitions executed",
			},
			[]string{"node"},
		),
		StepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rewind_step_duration_seconds",
				Help:    "Duration of node transitions in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"node"},
		),
		StepErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_step_errors_total",
				Help: "Total number of failed node transitions",
			},
			[]string{"node"},
		),
		ModelCallsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewind_model_calls_total",
				Help: "Total number of language model invocations",
			},
		),
		ToolCallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_tool_calls_total",
				Help: "Total number of tool invocations",
			},
			[]string{"tool_name"},
		),
		CheckpointsSavedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "rewind_checkpoints_saved_total",
				Help: "Total number of checkpoints written to the store",
			},
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rewind_runs_total",
				Help: "Total number of runs by outcome",
			},
			[]string{"status"},
		),
	}

	registry.MustRegister(
		m.StepsTotal,
		m.StepDuration,
		m.StepErrorsTotal,
		m.ModelCallsTotal,
		m.ToolCallsTotal,
		m.CheckpointsSavedTotal,
		m.RunsTotal,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry (for /metrics).
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
