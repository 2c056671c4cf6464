package observability_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/observability"
)

func TestMetrics_Hooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observability.NewMetrics(reg)
	hooks := m.Hooks()
	ctx := context.Background()

	hooks.OnPhaseEnter(ctx, &domain.PhaseEvent{Phase: domain.PhaseToolExecuting})
	hooks.OnPhaseEnter(ctx, &domain.PhaseEvent{Phase: domain.PhaseToolExecuting})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{Tool: domain.ToolLodging, Duration: time.Second, Savings: 1500})
	hooks.OnToolReturn(ctx, &domain.ToolEvent{Tool: domain.ToolTransport, IsError: true})
	hooks.OnRetry(ctx, &domain.RetryEvent{Operation: "tool:lodging"})
	hooks.OnRunComplete(ctx, &domain.RunEvent{Duration: 3 * time.Second, Spent: 15000, Budget: 30000})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Phases.WithLabelValues("TOOL_EXECUTING")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("lodging", "false")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ToolCalls.WithLabelValues("transport", "true")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(m.BudgetSavings.WithLabelValues("lodging")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Retries.WithLabelValues("tool:lodging")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("false")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.Utilization))
}

func TestMergeWithLoggingHooks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	m := observability.NewMetrics(prometheus.NewRegistry())

	hooks := domain.MergeHooks(m.Hooks(), observability.LoggingHooks(logger))
	hooks.OnRetry(context.Background(), &domain.RetryEvent{EventBase: domain.EventBase{RunID: "r1"}, Operation: "extract", Attempt: 1})
	// OnToolCall is only set on the logging side.
	hooks.OnToolCall(context.Background(), &domain.ToolEvent{Tool: domain.ToolDining})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Retries.WithLabelValues("extract")))
	assert.Contains(t, buf.String(), "run_id=r1")
	assert.Contains(t, buf.String(), "tool=dining")
}
