package observability

import (
	"context"
	"log/slog"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// LoggingHooks writes one structured line per tool call, retry and run end.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnToolCall: func(ctx context.Context, e *domain.ToolEvent) {
			logger.Info("tool_call", "run_id", e.RunID, "tool", e.Tool, "budget", e.Budget)
		},
		OnToolReturn: func(ctx context.Context, e *domain.ToolEvent) {
			logger.Info("tool_return",
				"run_id", e.RunID,
				"tool", e.Tool,
				"is_error", e.IsError,
				"spent", e.Spent,
				"savings", e.Savings,
				"duration", e.Duration,
			)
		},
		OnRetry: func(ctx context.Context, e *domain.RetryEvent) {
			logger.Warn("retry", "run_id", e.RunID, "op", e.Operation, "attempt", e.Attempt, "delay", e.Delay, "err", e.Err)
		},
		OnRunComplete: func(ctx context.Context, e *domain.RunEvent) {
			logger.Info("run_complete", "run_id", e.RunID, "failed", e.Failed, "duration", e.Duration, "spent", e.Spent)
		},
	}
}
