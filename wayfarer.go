package wayfarer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tripmazer/wayfarer/internal/budget"
	"github.com/tripmazer/wayfarer/internal/extract"
	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/internal/runtime"
	"github.com/tripmazer/wayfarer/pkg/adapters/memory"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/ports"
	"github.com/tripmazer/wayfarer/pkg/registry"
	"github.com/tripmazer/wayfarer/pkg/retry"
	"github.com/tripmazer/wayfarer/pkg/tools"
	"go.opentelemetry.io/otel/trace"
)

// Version is the release of the library and the CLI.
const Version = "0.4.0"

// ErrNoTools is returned by New when neither a completer nor any tool was configured.
var ErrNoTools = errors.New("no planning tools configured")

// Engine is the high-level entry point for the wayfarer library.
// It wraps the internal runtime and keeps finished runs in a RunStore.
type Engine struct {
	runtime     *runtime.Engine
	registry    *registry.Registry
	completer   ports.Completer
	extractor   ports.Extractor
	store       ports.RunStore
	hooks       domain.LifecycleHooks
	logger      *slog.Logger
	retryCfg    *retry.Config
	runtimeOpts []runtime.EngineOption
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithCompleter sets the chat-completion backend. It drives preference
// extraction and the built-in planning tools.
func WithCompleter(c ports.Completer) Option {
	return func(e *Engine) {
		e.completer = c
	}
}

// WithExtractor overrides the preference extractor built from the completer.
func WithExtractor(x ports.Extractor) Option {
	return func(e *Engine) {
		e.extractor = x
	}
}

// WithTool registers a custom tool implementation. It replaces the built-in
// one of the same name.
func WithTool(name domain.ToolName, fn registry.ToolFunction) Option {
	return func(e *Engine) {
		e.registry.Register(name, fn)
	}
}

// WithStore sets where finished runs are kept.
func WithStore(s ports.RunStore) Option {
	return func(e *Engine) {
		e.store = s
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithRetry sets the retry policy for extraction and tool calls.
func WithRetry(cfg retry.Config) Option {
	return func(e *Engine) {
		e.retryCfg = &cfg
	}
}

// WithBudget sets the allocation constants.
func WithBudget(cfg budget.Config) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithBudget(cfg))
	}
}

// WithTracerProvider sets the OpenTelemetry provider used for run and tool spans.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, runtime.WithTracerProvider(tp))
	}
}

// WithRuntimeOptions passes options straight to the internal runtime.
func WithRuntimeOptions(opts ...runtime.EngineOption) Option {
	return func(e *Engine) {
		e.runtimeOpts = append(e.runtimeOpts, opts...)
	}
}

// New initializes a new Engine.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{
		registry: registry.NewRegistry(),
		logger:   logging.NewNop(),
	}

	for _, opt := range opts {
		opt(eng)
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	// Tools registered with WithTool override the built-in ones.
	if eng.completer != nil {
		builtin := registry.NewRegistry()
		tools.New(eng.completer, tools.WithLogger(eng.logger)).Register(builtin)
		for _, name := range eng.registry.Names() {
			fn, _ := eng.registry.Lookup(name)
			builtin.Register(name, fn)
		}
		eng.registry = builtin
		if eng.extractor == nil {
			eng.extractor = extract.New(eng.completer, extract.WithLogger(eng.logger))
		}
	}
	if len(eng.registry.Names()) == 0 {
		return nil, ErrNoTools
	}
	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	runtimeOpts := []runtime.EngineOption{
		runtime.WithLogger(eng.logger),
		runtime.WithLifecycleHooks(eng.hooks),
	}
	if eng.retryCfg != nil {
		runtimeOpts = append(runtimeOpts, runtime.WithRetry(retry.New(*eng.retryCfg, retry.WithLogger(eng.logger))))
	}
	runtimeOpts = append(runtimeOpts, eng.runtimeOpts...)

	eng.runtime = runtime.NewEngine(eng.registry, eng.extractor, runtimeOpts...)
	return eng, nil
}

// Plan runs a full planning request and stores the result.
// A non-nil error means the run aborted; the returned result still describes it.
func (e *Engine) Plan(ctx context.Context, query string) (*domain.RunResult, error) {
	return e.PlanStream(ctx, query, nil)
}

// PlanStream is Plan with progress reporting.
func (e *Engine) PlanStream(ctx context.Context, query string, sink domain.ProgressSink) (*domain.RunResult, error) {
	res, runErr := e.runtime.PlanStream(ctx, query, sink)
	if err := e.store.Save(context.WithoutCancel(ctx), res); err != nil {
		e.logger.Error("failed to store run", "run_id", res.RunID, "err", err)
	}
	return res, runErr
}

// InvokeTool runs one tool directly.
func (e *Engine) InvokeTool(ctx context.Context, name string, req domain.ToolRequest) (domain.ToolResult, error) {
	tool, err := domain.ParseToolName(name)
	if err != nil {
		return domain.ToolResult{}, err
	}
	if _, ok := e.registry.Lookup(tool); !ok {
		return domain.ToolResult{}, fmt.Errorf("%w: %s is not registered", domain.ErrUnknownTool, tool)
	}
	return e.runtime.InvokeTool(ctx, tool, req)
}

// Run returns a stored run result.
func (e *Engine) Run(ctx context.Context, id string) (*domain.RunResult, error) {
	return e.store.Load(ctx, id)
}

// Tools lists the registered tools.
func (e *Engine) Tools() []domain.ToolName {
	return e.registry.Names()
}
