// Package observability provides Prometheus metrics and OpenTelemetry
// tracing for the playbook engine.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// RUN METRICS
// =============================================================================

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playbook_runs_total",
			Help: "Total number of playbook generation runs",
		},
		[]string{"status"}, // status: completed_successfully, budget_exhausted, context_cancelled, fatal_error, max_agent_hops_exceeded
	)

	runDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playbook_run_duration_seconds",
			Help:    "Playbook run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"status"},
	)

	reflectionCycles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "playbook_reflection_cycles",
			Help:    "Reflection cycles executed per run",
			Buckets: []float64{0, 1, 2, 3, 4, 5},
		},
	)
)

// =============================================================================
// STAGE METRICS
// =============================================================================

var (
	stageExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playbook_stage_executions_total",
			Help: "Total number of stage executions",
		},
		[]string{"stage", "status"}, // status: completed, failed
	)

	stageDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playbook_stage_duration_seconds",
			Help:    "Stage execution duration in seconds",
			Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)
)

// =============================================================================
// LLM METRICS
// =============================================================================

var (
	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playbook_llm_calls_total",
			Help: "Total number of LLM API calls",
		},
		[]string{"provider", "model", "outcome"}, // outcome: success, degraded, fatal
	)

	llmDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playbook_llm_duration_seconds",
			Help:    "LLM call duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"provider", "model"},
	)
)

// =============================================================================
// PUBLIC API
// =============================================================================

// RecordRun records run-level metrics after a run reaches a terminal state.
func RecordRun(status string, duration time.Duration) {
	runsTotal.WithLabelValues(status).Inc()
	runDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordReflectionCycles records how many reflection cycles a run executed.
func RecordReflectionCycles(cycles int) {
	reflectionCycles.Observe(float64(cycles))
}

// RecordStageExecution records stage metrics after a stage pass completes.
func RecordStageExecution(stage string, status string, duration time.Duration) {
	stageExecutionsTotal.WithLabelValues(stage, status).Inc()
	stageDurationSeconds.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordLLMCall records LLM call metrics after a completion returns.
func RecordLLMCall(provider string, model string, outcome string, duration time.Duration) {
	llmCallsTotal.WithLabelValues(provider, model, outcome).Inc()
	llmDurationSeconds.WithLabelValues(provider, model).Observe(duration.Seconds())
}
