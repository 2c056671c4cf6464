package observability

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tripmazer/wayfarer/pkg/domain"
)

const namespace = "wayfarer"

// Metrics holds the planner collectors.
type Metrics struct {
	Runs          *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	ToolCalls     *prometheus.CounterVec
	ToolDuration  *prometheus.HistogramVec
	Retries       *prometheus.CounterVec
	Phases        *prometheus.CounterVec
	BudgetSavings *prometheus.CounterVec
	Utilization   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Planning runs by outcome.",
		}, []string{"failed"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of planning runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool executions by tool and outcome.",
		}, []string{"tool", "is_error"}),
		ToolDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_duration_seconds",
			Help:      "Duration of tool executions, retries included.",
		}, []string{"tool"}),
		Retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retries_total",
			Help:      "Retries after an upstream overload, by operation.",
		}, []string{"operation"}),
		Phases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_entries_total",
			Help:      "State machine phase entries.",
		}, []string{"phase"}),
		BudgetSavings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "budget_savings_total",
			Help:      "Unused allocation moved to later tools, in run currency units.",
		}, []string{"tool"}),
		Utilization: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "budget_utilization_ratio",
			Help:      "Estimated spend over total budget at the end of a run.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
	}
	reg.MustRegister(m.Runs, m.RunDuration, m.ToolCalls, m.ToolDuration, m.Retries, m.Phases, m.BudgetSavings, m.Utilization)
	return m
}

// Hooks records metrics from engine events.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnPhaseEnter: func(ctx context.Context, e *domain.PhaseEvent) {
			m.Phases.WithLabelValues(e.Phase.String()).Inc()
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			tool := string(e.Tool)
			m.ToolCalls.WithLabelValues(tool, strconv.FormatBool(e.IsError)).Inc()
			m.ToolDuration.WithLabelValues(tool).Observe(e.Duration.Seconds())
			if e.Savings > 0 {
				m.BudgetSavings.WithLabelValues(tool).Add(e.Savings)
			}
		},
		OnRetry: func(ctx context.Context, e *domain.RetryEvent) {
			m.Retries.WithLabelValues(e.Operation).Inc()
		},
		OnRunComplete: func(ctx context.Context, e *domain.RunEvent) {
			m.Runs.WithLabelValues(strconv.FormatBool(e.Failed)).Inc()
			m.RunDuration.Observe(e.Duration.Seconds())
			if e.Budget > 0 && !e.Failed {
				m.Utilization.Observe(e.Spent / e.Budget)
			}
		},
	}
}
