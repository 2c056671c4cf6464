// Package runtime implements the planning state machine: preferences are
// extracted, the budget is split, tools run one by one with spend tracking
// after each, and the results are combined into one report.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tripmazer/wayfarer/internal/budget"
	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/ports"
	"github.com/tripmazer/wayfarer/pkg/registry"
	"github.com/tripmazer/wayfarer/pkg/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/tripmazer/wayfarer/internal/runtime"

// Engine drives planning runs. It holds only immutable collaborators; every
// run gets its own PlanState, so one Engine serves concurrent runs.
type Engine struct {
	registry    *registry.Registry
	extractor   ports.Extractor
	caller      *retry.Caller
	allocator   *budget.Allocator
	reallocator *budget.Reallocator
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	tracer      trace.Tracer
	clock       func() time.Time
	newID       func() string
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithRetry sets the caller wrapping extraction and tool calls.
func WithRetry(c *retry.Caller) EngineOption {
	return func(e *Engine) {
		if c != nil {
			e.caller = c
		}
	}
}

// WithBudget sets the allocation and reallocation constants.
func WithBudget(cfg budget.Config) EngineOption {
	return func(e *Engine) {
		e.allocator = budget.NewAllocator(cfg)
		e.reallocator = budget.NewReallocator(cfg)
	}
}

// WithTracerProvider sets the OpenTelemetry provider. Defaults to the global one.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) {
		e.tracer = tp.Tracer(tracerName)
	}
}

// WithClock replaces the time source.
func WithClock(clock func() time.Time) EngineOption {
	return func(e *Engine) {
		e.clock = clock
	}
}

// WithIDGenerator replaces the run ID generator (uuid by default).
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *Engine) {
		e.newID = fn
	}
}

// NewEngine creates an engine. extractor may be nil, in which case
// preferences always come from keyword heuristics.
func NewEngine(reg *registry.Registry, extractor ports.Extractor, opts ...EngineOption) *Engine {
	cfg := budget.DefaultConfig()
	e := &Engine{
		registry:    reg,
		extractor:   extractor,
		allocator:   budget.NewAllocator(cfg),
		reallocator: budget.NewReallocator(cfg),
		logger:      logging.NewNop(),
		tracer:      otel.GetTracerProvider().Tracer(tracerName),
		clock:       time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.caller == nil {
		e.caller = retry.New(retry.DefaultConfig(), retry.WithLogger(e.logger))
	}
	return e
}

// Plan runs the state machine to completion (blocking mode).
//
// The returned RunResult is never nil. When the run aborts (empty query,
// cancellation) the error is returned as well and the result carries the
// error variant with the partial summary.
func (e *Engine) Plan(ctx context.Context, query string) (*domain.RunResult, error) {
	return e.PlanStream(ctx, query, nil)
}

// PlanStream is Plan with a progress sink (incremental mode). The sink is
// called synchronously at each transition; nil disables progress events.
func (e *Engine) PlanStream(ctx context.Context, query string, sink domain.ProgressSink) (*domain.RunResult, error) {
	r := e.newRun(query, sink)
	return r.execute(ctx)
}

// InvokeTool runs one tool directly, through the same registry and retry
// wrapper the planner uses.
func (e *Engine) InvokeTool(ctx context.Context, tool domain.ToolName, req domain.ToolRequest) (domain.ToolResult, error) {
	if !tool.IsKnown() {
		return domain.ToolResult{}, fmt.Errorf("%w: %s", domain.ErrUnknownTool, tool)
	}
	req.Tool = tool
	if err := req.Validate(); err != nil {
		return domain.ToolResult{}, err
	}

	ctx, span := e.tracer.Start(ctx, "wayfarer.tool",
		trace.WithAttributes(attribute.String("tool", string(tool)), attribute.Float64("budget", req.Budget)))
	defer span.End()

	start := e.clock()
	out, attempts, err := retry.Call(ctx, e.caller, "tool:"+string(tool), func(ctx context.Context) (string, error) {
		return e.registry.Execute(ctx, tool, req)
	})
	res := domain.ToolResult{Tool: tool, Output: out, Attempts: attempts, Duration: e.clock().Sub(start)}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	return res, nil
}

// Tools lists the registered tools.
func (e *Engine) Tools() []domain.ToolName {
	return e.registry.Names()
}
