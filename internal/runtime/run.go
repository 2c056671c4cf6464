package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tripmazer/wayfarer/internal/budget"
	"github.com/tripmazer/wayfarer/internal/extract"
	"github.com/tripmazer/wayfarer/internal/report"
	"github.com/tripmazer/wayfarer/internal/routing"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/retry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Progress checkpoints. Tools share the range between progressBudget and
// progressCombine in proportion to how many have finished.
const (
	progressPreferences = 10
	progressBudget      = 20
	progressToolsSpan   = 70
	progressCombine     = 95
	progressDone        = 100
)

// contextExcerptLimit bounds the itinerary excerpt handed to the dining tool.
const contextExcerptLimit = 1500

// run is the per-request orchestrator object. It owns state exclusively.
type run struct {
	engine *Engine
	state  *domain.PlanState
	sink   domain.ProgressSink
	caller *retry.Caller
	logger *slog.Logger
	start  time.Time
}

func (e *Engine) newRun(query string, sink domain.ProgressSink) *run {
	id := e.newID()
	r := &run{
		engine: e,
		state:  domain.NewPlanState(id, query).WithClock(e.clock),
		sink:   sink,
		logger: e.logger.With("run_id", id),
		start:  e.clock(),
	}
	r.state.StartedAt = r.start
	r.caller = e.caller.With(retry.OnRetry(r.onRetry))
	return r
}

func (r *run) execute(ctx context.Context) (*domain.RunResult, error) {
	ctx, span := r.engine.tracer.Start(ctx, "wayfarer.plan",
		trace.WithAttributes(attribute.String("run_id", r.state.RunID)))
	defer span.End()

	r.logger.Info("planning run started")

	if strings.TrimSpace(r.state.Query) == "" {
		return r.fail(ctx, span, domain.ErrEmptyQuery)
	}

	// INPUT_PROCESSED
	r.enter(ctx, domain.PhaseInputProcessed)
	if err := r.processInput(ctx); err != nil {
		return r.fail(ctx, span, err)
	}
	r.emit(ctx, domain.StatusProcessing, domain.StepPreferences,
		fmt.Sprintf("Planning %s for %d traveler(s), order %v", r.state.Destination, r.state.Travelers, r.state.ExecutionOrder),
		progressPreferences, r.state.Preferences, nil)

	// BUDGET_ALLOCATED
	r.enter(ctx, domain.PhaseBudgetAllocated)
	r.engine.allocator.Apply(r.state)
	r.logger.Debug("budget allocated", "total", r.state.TotalBudget, "allocation", r.state.Allocation)
	r.emit(ctx, domain.StatusProcessing, domain.StepBudget,
		fmt.Sprintf("Allocated %s%.2f across %d tools", r.state.Currency, r.state.TotalBudget, len(r.state.ExecutionOrder)),
		progressBudget, r.state.Allocation, nil)

	for !r.state.IsExecutionComplete() {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, span, err)
		}
		tool, _ := r.state.CurrentTool()

		// TOOL_EXECUTING
		r.enter(ctx, domain.PhaseToolExecuting)
		r.emit(ctx, domain.StatusProcessing, string(tool),
			fmt.Sprintf("Running %s with a budget of %s%.2f", tool, r.state.Currency, r.state.Allocation[tool]),
			r.toolProgress(), nil, nil)

		res := r.executeTool(ctx, tool)
		if res.IsError && ctx.Err() != nil {
			return r.fail(ctx, span, ctx.Err())
		}
		r.state.Results[tool] = res
		r.state.MarkCompleted(tool)

		// SPEND_TRACKED
		r.enter(ctx, domain.PhaseSpendTracked)
		outcome := r.engine.reallocator.Track(r.state, tool, res)
		r.logger.Debug("spend tracked", "tool", tool, "spent", outcome.Spent, "savings", outcome.Savings)
		r.fireToolReturn(ctx, res, outcome)
		r.state.Advance()

		status := domain.StatusCompleted
		if res.IsError {
			status = domain.StatusError
		}
		info := budget.Info(r.state, outcome)
		r.emit(ctx, status, string(tool), outcome.Describe(r.state.Currency), r.toolProgress(), res, &info)
	}

	// COMBINING
	r.enter(ctx, domain.PhaseCombining)
	r.emit(ctx, domain.StatusProcessing, domain.StepCombine, "Combining results", progressCombine, nil, nil)
	elapsed := r.engine.clock().Sub(r.start)
	summary := report.Summarize(r.state, elapsed)
	combined := report.Combine(r.state, summary)

	// FORMATTED
	r.enter(ctx, domain.PhaseFormatted)
	result := &domain.RunResult{
		RunID:                r.state.RunID,
		CombinedResult:       combined,
		ExecutionSummary:     &summary,
		ExecutionTimeSeconds: elapsed.Seconds(),
		CreatedAt:            r.engine.clock(),
	}
	r.emit(ctx, domain.StatusCompleted, domain.StepFinal, "Trip plan ready", progressDone, result, nil)

	span.SetAttributes(
		attribute.Float64("budget.total", r.state.TotalBudget),
		attribute.Float64("budget.spent", summary.TotalSpent),
		attribute.Int("retries", r.state.RetryCount),
	)
	r.logger.Info("planning run finished",
		"duration", elapsed,
		"spent", summary.TotalSpent,
		"errors", len(summary.Errors),
		"warnings", len(summary.Warnings),
	)
	r.fireRunComplete(ctx, false, elapsed, summary.TotalSpent)
	return result, nil
}

// processInput fills the run inputs from the query and fixes the execution order.
// Only cancellation makes it fail: extraction problems fall back to heuristics.
func (r *run) processInput(ctx context.Context) error {
	s := r.state
	var prefs domain.Preferences

	if r.engine.extractor == nil {
		prefs = extract.Fallback(s.Query)
	} else {
		var err error
		prefs, _, err = retry.Call(ctx, r.caller, "extract", func(ctx context.Context) (domain.Preferences, error) {
			return r.engine.extractor.Extract(ctx, s.Query)
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			r.logger.Warn("preference extraction failed, using keyword fallback", "err", err)
			s.AddWarning("preference extraction failed (%v), keyword fallback used", err)
			prefs = extract.Fallback(s.Query)
		}
	}

	s.Preferences = prefs
	s.TotalBudget = prefs.Budget
	s.Currency = prefs.Currency
	s.Origin = prefs.Origin
	s.Destination = prefs.Destination
	s.Travelers = max(prefs.Travelers, 1)
	s.StartDate, s.EndDate = extract.SplitDates(prefs.Dates)

	res := routing.Resolve(prefs.RoutingOrder, prefs.Dining)
	for _, w := range res.Warnings {
		s.AddWarning("%s", w)
	}
	s.ExecutionOrder = res.Order
	return nil
}

func (r *run) executeTool(ctx context.Context, tool domain.ToolName) domain.ToolResult {
	req := r.request(tool)
	budgetHint := r.state.Allocation[tool]

	ctx, span := r.engine.tracer.Start(ctx, "wayfarer.tool",
		trace.WithAttributes(attribute.String("tool", string(tool)), attribute.Float64("budget", budgetHint)))
	defer span.End()

	r.fireToolCall(ctx, tool, budgetHint)
	r.logger.Info("tool started", "tool", tool, "step", r.state.Step, "budget", budgetHint)

	start := r.engine.clock()
	var (
		out      string
		attempts int
		err      error
	)
	fn, ok := r.engine.registry.Lookup(tool)
	switch {
	case !ok:
		err = fmt.Errorf("%w: %s", domain.ErrUnknownTool, tool)
	default:
		if err = req.Validate(); err == nil {
			out, attempts, err = retry.Call(ctx, r.caller, "tool:"+string(tool), func(ctx context.Context) (string, error) {
				return fn(ctx, req)
			})
		}
	}

	res := domain.ToolResult{
		Tool:     tool,
		Output:   out,
		Attempts: attempts,
		Duration: r.engine.clock().Sub(start),
	}
	span.SetAttributes(attribute.Int("attempts", attempts))

	if err != nil {
		res.IsError = true
		res.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() == nil {
			r.state.AddError("%s failed: %v", tool, err)
			r.logger.Error("tool failed", "tool", tool, "attempts", attempts, "err", err)
		}
		return res
	}

	if attempts > 1 {
		res.Notes = append(res.Notes, fmt.Sprintf("succeeded after %d attempts", attempts))
	}
	r.logger.Info("tool finished", "tool", tool, "attempts", attempts, "duration", res.Duration)
	return res
}

// request narrows the run state to what one tool needs. The raw query is
// never forwarded.
func (r *run) request(tool domain.ToolName) domain.ToolRequest {
	s := r.state
	req := domain.ToolRequest{
		Tool:          tool,
		Origin:        s.Origin,
		Destination:   s.Destination,
		StartDate:     s.StartDate,
		EndDate:       s.EndDate,
		Travelers:     s.Travelers,
		Budget:        s.Allocation[tool],
		Currency:      s.Currency,
		International: s.Preferences.International,
		Interests:     s.Preferences.Interests,
		Dietary:       s.Preferences.Dietary,
	}
	if tool == domain.ToolDining {
		if it, ok := s.Results[domain.ToolItinerary]; ok && !it.IsError {
			req.Context = excerpt(it.Output, contextExcerptLimit)
		}
	}
	return req
}

func (r *run) fail(ctx context.Context, span trace.Span, err error) (*domain.RunResult, error) {
	elapsed := r.engine.clock().Sub(r.start)
	r.state.AddError("run aborted: %v", err)

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.logger.Error("planning run aborted", "err", err, "step", r.state.Step)

	summary := report.Summarize(r.state, elapsed)
	result := &domain.RunResult{
		RunID:                r.state.RunID,
		Error:                err.Error(),
		ExecutionSummary:     &summary,
		ExecutionTimeSeconds: elapsed.Seconds(),
		CreatedAt:            r.engine.clock(),
	}

	// The sink still hears about the failure even if ctx is already done.
	r.emit(context.WithoutCancel(ctx), domain.StatusError, domain.StepFinal, err.Error(), r.toolProgress(), result, nil)
	r.fireRunComplete(ctx, true, elapsed, summary.TotalSpent)

	return result, fmt.Errorf("planning run %s aborted: %w", r.state.RunID, err)
}

func (r *run) toolProgress() int {
	n := len(r.state.ExecutionOrder)
	if n == 0 {
		return progressBudget
	}
	done := len(r.state.Completed)
	return progressBudget + progressToolsSpan*done/n
}

func (r *run) emit(ctx context.Context, status domain.ProgressStatus, step, msg string, progress int, data any, info *domain.BudgetInfo) {
	if r.sink == nil {
		return
	}
	r.sink(ctx, domain.ProgressEvent{
		Status:     status,
		Step:       step,
		Message:    msg,
		Progress:   progress,
		Data:       data,
		BudgetInfo: info,
	})
}

func excerpt(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	cut := limit
	// Back off to a rune boundary.
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
