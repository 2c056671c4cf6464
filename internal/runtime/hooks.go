package runtime

import (
	"context"
	"time"

	"github.com/tripmazer/wayfarer/internal/budget"
	"github.com/tripmazer/wayfarer/pkg/domain"
)

func (r *run) base(t domain.EventType) domain.EventBase {
	return domain.EventBase{Timestamp: r.engine.clock(), Type: t, RunID: r.state.RunID}
}

func (r *run) enter(ctx context.Context, phase domain.Phase) {
	r.logger.Debug("phase entered", "phase", phase, "step", r.state.Step)
	if h := r.engine.hooks.OnPhaseEnter; h != nil {
		h(ctx, &domain.PhaseEvent{EventBase: r.base(domain.EventPhaseEnter), Phase: phase, Step: r.state.Step})
	}
}

func (r *run) fireToolCall(ctx context.Context, tool domain.ToolName, budgetHint float64) {
	if h := r.engine.hooks.OnToolCall; h != nil {
		h(ctx, &domain.ToolEvent{EventBase: r.base(domain.EventToolCall), Tool: tool, Budget: budgetHint})
	}
}

func (r *run) fireToolReturn(ctx context.Context, res domain.ToolResult, o budget.Outcome) {
	if h := r.engine.hooks.OnToolReturn; h != nil {
		h(ctx, &domain.ToolEvent{
			EventBase: r.base(domain.EventToolReturn),
			Tool:      res.Tool,
			Budget:    o.Allocated,
			IsError:   res.IsError,
			Duration:  res.Duration,
			Spent:     o.Spent,
			Savings:   o.Savings,
		})
	}
}

// onRetry counts retries on the run state and forwards them to the hooks.
func (r *run) onRetry(ctx context.Context, op string, attempt int, delay time.Duration, err error) {
	r.state.RetryCount++
	if h := r.engine.hooks.OnRetry; h != nil {
		h(ctx, &domain.RetryEvent{
			EventBase: r.base(domain.EventRetry),
			Operation: op,
			Attempt:   attempt,
			Delay:     delay,
			Err:       err.Error(),
		})
	}
}

func (r *run) fireRunComplete(ctx context.Context, failed bool, elapsed time.Duration, spent float64) {
	if h := r.engine.hooks.OnRunComplete; h != nil {
		h(ctx, &domain.RunEvent{
			EventBase: r.base(domain.EventRunComplete),
			Failed:    failed,
			Duration:  elapsed,
			Spent:     spent,
			Budget:    r.state.TotalBudget,
		})
	}
}
