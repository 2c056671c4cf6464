package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tripmazer/wayfarer/internal/runtime"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/registry"
	"github.com/tripmazer/wayfarer/pkg/retry"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type extractorFunc func(ctx context.Context, query string) (domain.Preferences, error)

func (f extractorFunc) Extract(ctx context.Context, query string) (domain.Preferences, error) {
	return f(ctx, query)
}

func fixedPrefs(order ...string) extractorFunc {
	return func(ctx context.Context, query string) (domain.Preferences, error) {
		return domain.Preferences{
			Budget:       30000,
			Currency:     "₹",
			Dates:        "01-02-2026 to 05-02-2026",
			Origin:       "Mumbai",
			Destination:  "Goa",
			Travelers:    1,
			RoutingOrder: order,
		}, nil
	}
}

func staticTool(out string) registry.ToolFunction {
	return func(ctx context.Context, req domain.ToolRequest) (string, error) {
		return out, nil
	}
}

func newRegistry(tools map[domain.ToolName]registry.ToolFunction) *registry.Registry {
	reg := registry.NewRegistry()
	for name, fn := range tools {
		reg.Register(name, fn)
	}
	return reg
}

func fastRetry(opts ...retry.Option) *retry.Caller {
	opts = append([]retry.Option{retry.WithSleep(func(ctx context.Context, d time.Duration) error { return ctx.Err() })}, opts...)
	return retry.New(retry.DefaultConfig(), opts...)
}

func defaultTools() map[domain.ToolName]registry.ToolFunction {
	return map[domain.ToolName]registry.ToolFunction{
		domain.ToolItinerary: staticTool("Day 1: Baga beach. Total ₹8,000"),
		domain.ToolTransport: staticTool("Flight 6E-123 ₹5,000"),
		domain.ToolLodging:   staticTool("Sea View Inn ₹7,000 for the stay"),
		domain.ToolDining:    staticTool("Fisherman's Wharf ₹900"),
	}
}

func TestEngine_PlanScenario(t *testing.T) {
	engine := runtime.NewEngine(newRegistry(defaultTools()), fixedPrefs("itinerary", "transport", "lodging"),
		runtime.WithRetry(fastRetry()))

	res, err := engine.Plan(context.Background(), "5 days in Goa from Mumbai, ₹30000")
	require.NoError(t, err)
	require.False(t, res.Failed())
	require.NotNil(t, res.ExecutionSummary)

	sum := res.ExecutionSummary
	assert.Equal(t, []domain.ToolName{domain.ToolItinerary, domain.ToolTransport, domain.ToolLodging}, sum.ExecutionOrder)
	assert.Equal(t, sum.ExecutionOrder, sum.CompletedTools)
	assert.InDelta(t, 12000, sum.InitialAllocation[domain.ToolItinerary], 0.01)
	assert.InDelta(t, 9000, sum.InitialAllocation[domain.ToolTransport], 0.01)

	// itinerary spent 8000: 4000 split over transport and lodging.
	// transport spent 5000 of 11000: 6000 moved to lodging.
	assert.InDelta(t, 8000, sum.Allocation[domain.ToolItinerary], 0.01)
	assert.InDelta(t, 5000, sum.Allocation[domain.ToolTransport], 0.01)
	assert.InDelta(t, 17000, sum.Allocation[domain.ToolLodging], 0.01)
	assert.InDelta(t, 20000, sum.TotalSpent, 0.01)
	assert.InDelta(t, 10000, sum.RemainingBudget, 0.01)
	assert.Empty(t, sum.Errors)

	for tool, spent := range sum.Spent {
		assert.LessOrEqual(t, spent, sum.Allocation[tool]+1e-9, tool)
	}

	assert.Contains(t, res.CombinedResult, "# Trip Plan: Mumbai to Goa")
	assert.Contains(t, res.CombinedResult, "Sea View Inn")
	assert.NotEmpty(t, res.RunID)
}

func TestEngine_RoutingCorrection(t *testing.T) {
	engine := runtime.NewEngine(newRegistry(defaultTools()), fixedPrefs("lodging", "itinerary", "transport"),
		runtime.WithRetry(fastRetry()))

	res, err := engine.Plan(context.Background(), "Goa trip")
	require.NoError(t, err)

	sum := res.ExecutionSummary
	assert.Equal(t, []domain.ToolName{domain.ToolLodging, domain.ToolTransport, domain.ToolItinerary}, sum.ExecutionOrder)
	require.Len(t, sum.Warnings, 1)
	assert.Contains(t, sum.Warnings[0], "transport moved")
}

func TestEngine_NonRetryableToolFailure(t *testing.T) {
	tools := defaultTools()
	calls := 0
	tools[domain.ToolTransport] = func(ctx context.Context, req domain.ToolRequest) (string, error) {
		calls++
		return "", errors.New("search API returned 400")
	}
	engine := runtime.NewEngine(newRegistry(tools), fixedPrefs("itinerary", "transport", "lodging"),
		runtime.WithRetry(fastRetry()))

	res, err := engine.Plan(context.Background(), "Goa trip")
	require.NoError(t, err)

	sum := res.ExecutionSummary
	assert.Equal(t, 1, calls, "non-retryable errors are not retried")
	assert.Contains(t, sum.CompletedTools, domain.ToolTransport)
	assert.Len(t, sum.CompletedTools, 3, "the run continues after a tool failure")
	require.Len(t, sum.Errors, 1)
	assert.Contains(t, sum.Errors[0], "transport failed")
	assert.Zero(t, sum.Spent[domain.ToolTransport])
	assert.Contains(t, res.CombinedResult, "**Error:** search API returned 400")
}

func TestEngine_OverloadRetried(t *testing.T) {
	tools := defaultTools()
	calls := 0
	tools[domain.ToolLodging] = func(ctx context.Context, req domain.ToolRequest) (string, error) {
		calls++
		if calls <= 2 {
			return "", fmt.Errorf("%w: 529", retry.ErrOverloaded)
		}
		return "Beach hut ₹2,000", nil
	}

	var retries []*domain.RetryEvent
	hooks := domain.LifecycleHooks{
		OnRetry: func(ctx context.Context, e *domain.RetryEvent) { retries = append(retries, e) },
	}
	engine := runtime.NewEngine(newRegistry(tools), fixedPrefs("itinerary", "transport", "lodging"),
		runtime.WithRetry(fastRetry()), runtime.WithLifecycleHooks(hooks))

	res, err := engine.Plan(context.Background(), "Goa trip")
	require.NoError(t, err)

	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, res.ExecutionSummary.RetryCount)
	assert.Empty(t, res.ExecutionSummary.Errors)
	require.Len(t, retries, 2)
	assert.Equal(t, "tool:lodging", retries[0].Operation)
	assert.Equal(t, res.RunID, retries[0].RunID)
}

func TestEngine_OverloadExhausted(t *testing.T) {
	tools := defaultTools()
	calls := 0
	tools[domain.ToolItinerary] = func(ctx context.Context, req domain.ToolRequest) (string, error) {
		calls++
		return "", retry.ErrOverloaded
	}
	engine := runtime.NewEngine(newRegistry(tools), fixedPrefs("itinerary", "transport", "lodging"),
		runtime.WithRetry(fastRetry()))

	res, err := engine.Plan(context.Background(), "Goa trip")
	require.NoError(t, err)

	assert.Equal(t, 4, calls)
	assert.Equal(t, 3, res.ExecutionSummary.RetryCount)
	assert.Len(t, res.ExecutionSummary.Errors, 1)
	assert.Contains(t, res.ExecutionSummary.CompletedTools, domain.ToolItinerary)
}

func TestEngine_ExtractionFallback(t *testing.T) {
	failing := extractorFunc(func(ctx context.Context, query string) (domain.Preferences, error) {
		return domain.Preferences{}, errors.New("invalid api key")
	})
	engine := runtime.NewEngine(newRegistry(defaultTools()), failing, runtime.WithRetry(fastRetry()))

	res, err := engine.Plan(context.Background(), "Plan a trip to Tokyo from Delhi for a couple, budget ₹200000, hotel stay please")
	require.NoError(t, err)

	sum := res.ExecutionSummary
	assert.Equal(t, "₹", sum.Currency)
	assert.InDelta(t, 200000, sum.TotalBudget, 1e-9)
	assert.Equal(t, domain.ToolLodging, sum.ExecutionOrder[0])
	require.NotEmpty(t, sum.Warnings)
	assert.Contains(t, sum.Warnings[0], "keyword fallback")
}

func TestEngine_NoExtractor(t *testing.T) {
	engine := runtime.NewEngine(newRegistry(defaultTools()), nil, runtime.WithRetry(fastRetry()))

	res, err := engine.Plan(context.Background(), "weekend somewhere")
	require.NoError(t, err)

	sum := res.ExecutionSummary
	assert.InDelta(t, 30000, sum.TotalBudget, 1e-9, "non-positive budget clamps to the floor")
	assert.Equal(t, domain.DefaultExecutionOrder, sum.ExecutionOrder)
}

func TestEngine_EmptyQuery(t *testing.T) {
	engine := runtime.NewEngine(newRegistry(defaultTools()), nil)

	res, err := engine.Plan(context.Background(), "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	require.NotNil(t, res)
	assert.True(t, res.Failed())
	assert.NotNil(t, res.ExecutionSummary)
	assert.Empty(t, res.CombinedResult)
}

func TestEngine_CancellationIsFatal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tools := defaultTools()
	tools[domain.ToolTransport] = func(ctx context.Context, req domain.ToolRequest) (string, error) {
		cancel()
		return "", ctx.Err()
	}
	lodgingCalled := false
	tools[domain.ToolLodging] = func(ctx context.Context, req domain.ToolRequest) (string, error) {
		lodgingCalled = true
		return "", nil
	}
	engine := runtime.NewEngine(newRegistry(tools), fixedPrefs("itinerary", "transport", "lodging"),
		runtime.WithRetry(fastRetry()))

	res, err := engine.Plan(ctx, "Goa trip")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, res.Failed())
	assert.False(t, lodgingCalled)
	assert.Equal(t, []domain.ToolName{domain.ToolItinerary}, res.ExecutionSummary.CompletedTools)
	assert.Greater(t, res.ExecutionTimeSeconds, -1.0)
}

func TestEngine_ProgressEvents(t *testing.T) {
	engine := runtime.NewEngine(newRegistry(defaultTools()), fixedPrefs("itinerary", "transport", "lodging"),
		runtime.WithRetry(fastRetry()))

	var events []domain.ProgressEvent
	res, err := engine.PlanStream(context.Background(), "Goa trip", func(ctx context.Context, ev domain.ProgressEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	assert.Equal(t, domain.StepPreferences, events[0].Step)
	assert.Equal(t, 10, events[0].Progress)
	assert.Equal(t, domain.StepBudget, events[1].Step)
	assert.Equal(t, 20, events[1].Progress)

	last := events[len(events)-1]
	assert.Equal(t, domain.StatusCompleted, last.Status)
	assert.Equal(t, domain.StepFinal, last.Step)
	assert.Equal(t, 100, last.Progress)
	assert.Same(t, res, last.Data)

	prev := 0
	withBudget := 0
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Progress, prev, "progress must not go backwards")
		prev = ev.Progress
		if ev.BudgetInfo != nil {
			withBudget++
			assert.LessOrEqual(t, ev.BudgetInfo.Used, ev.BudgetInfo.Allocated+1e-9)
		}
	}
	assert.Equal(t, 3, withBudget, "one ledger snapshot per tool")

	// 2 setup events, 2 per tool, combine and final.
	assert.Len(t, events, 2+2*3+2)
}

func TestEngine_LifecycleHooks(t *testing.T) {
	var phases []string
	var calls, returns []domain.ToolName
	var complete *domain.RunEvent

	hooks := domain.LifecycleHooks{
		OnPhaseEnter:  func(ctx context.Context, e *domain.PhaseEvent) { phases = append(phases, e.Phase.String()) },
		OnToolCall:    func(ctx context.Context, e *domain.ToolEvent) { calls = append(calls, e.Tool) },
		OnToolReturn:  func(ctx context.Context, e *domain.ToolEvent) { returns = append(returns, e.Tool) },
		OnRunComplete: func(ctx context.Context, e *domain.RunEvent) { complete = e },
	}
	engine := runtime.NewEngine(newRegistry(defaultTools()), fixedPrefs("transport", "lodging"),
		runtime.WithRetry(fastRetry()), runtime.WithLifecycleHooks(hooks))

	_, err := engine.Plan(context.Background(), "Goa trip")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"INPUT_PROCESSED", "BUDGET_ALLOCATED",
		"TOOL_EXECUTING", "SPEND_TRACKED",
		"TOOL_EXECUTING", "SPEND_TRACKED",
		"COMBINING", "FORMATTED",
	}, phases)
	assert.Equal(t, []domain.ToolName{domain.ToolTransport, domain.ToolLodging}, calls)
	assert.Equal(t, calls, returns)
	require.NotNil(t, complete)
	assert.False(t, complete.Failed)
}

func TestEngine_ToolRequestIsNarrowed(t *testing.T) {
	const query = "SECRET raw request text with ₹30000"
	var seen []domain.ToolRequest
	record := func(out string) registry.ToolFunction {
		return func(ctx context.Context, req domain.ToolRequest) (string, error) {
			seen = append(seen, req)
			return out, nil
		}
	}
	tools := map[domain.ToolName]registry.ToolFunction{
		domain.ToolItinerary: record("Day 1: Fort Aguada walk"),
		domain.ToolTransport: record("Train ₹900"),
		domain.ToolLodging:   record("Hostel ₹800"),
		domain.ToolDining:    record("Vinayak ₹400"),
	}
	prefs := func(ctx context.Context, q string) (domain.Preferences, error) {
		return domain.Preferences{
			Budget: 30000, Currency: "₹", Destination: "Goa", Travelers: 2, Dining: true,
			RoutingOrder: []string{"itinerary", "transport", "lodging"}, Dietary: "vegetarian",
		}, nil
	}
	engine := runtime.NewEngine(newRegistry(tools), extractorFunc(prefs), runtime.WithRetry(fastRetry()))

	_, err := engine.Plan(context.Background(), query)
	require.NoError(t, err)

	require.Len(t, seen, 4)
	for _, req := range seen {
		assert.Equal(t, "Goa", req.Destination)
		assert.Equal(t, 2, req.Travelers)
		assert.Greater(t, req.Budget, 0.0)
		assert.NotContains(t, fmt.Sprintf("%+v", req), "SECRET")
	}
	dining := seen[3]
	assert.Equal(t, domain.ToolDining, dining.Tool)
	assert.Equal(t, "vegetarian", dining.Dietary)
	assert.Equal(t, "Day 1: Fort Aguada walk", dining.Context)
}

func TestEngine_Tracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))

	engine := runtime.NewEngine(newRegistry(defaultTools()), fixedPrefs("itinerary", "transport", "lodging"),
		runtime.WithRetry(fastRetry()), runtime.WithTracerProvider(tp))

	_, err := engine.Plan(context.Background(), "Goa trip")
	require.NoError(t, err)

	names := map[string]int{}
	for _, s := range sr.Ended() {
		names[s.Name()]++
	}
	assert.Equal(t, 1, names["wayfarer.plan"])
	assert.Equal(t, 3, names["wayfarer.tool"])
}

func TestEngine_ConcurrentRunsAreIsolated(t *testing.T) {
	engine := runtime.NewEngine(newRegistry(defaultTools()), fixedPrefs("itinerary", "transport", "lodging"),
		runtime.WithRetry(fastRetry()))

	const n = 8
	results := make([]*domain.RunResult, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := engine.Plan(context.Background(), "Goa trip")
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	ids := map[string]bool{}
	for _, res := range results {
		require.NotNil(t, res)
		ids[res.RunID] = true
		assert.InDelta(t, 20000, res.ExecutionSummary.TotalSpent, 0.01)
		assert.Equal(t, 0, strings.Count(res.CombinedResult, "**Error:**"))
	}
	assert.Len(t, ids, n)
}

func TestEngine_InvokeTool(t *testing.T) {
	engine := runtime.NewEngine(newRegistry(defaultTools()), nil, runtime.WithRetry(fastRetry()))
	ctx := context.Background()

	res, err := engine.InvokeTool(ctx, domain.ToolLodging, domain.ToolRequest{Destination: "Goa", Travelers: 1, Budget: 5000})
	require.NoError(t, err)
	assert.Equal(t, domain.ToolLodging, res.Tool)
	assert.Contains(t, res.Output, "Sea View Inn")
	assert.Equal(t, 1, res.Attempts)

	_, err = engine.InvokeTool(ctx, domain.ToolName("flights"), domain.ToolRequest{Destination: "Goa", Travelers: 1, Budget: 5000})
	assert.ErrorIs(t, err, domain.ErrUnknownTool)

	_, err = engine.InvokeTool(ctx, domain.ToolLodging, domain.ToolRequest{Travelers: 1, Budget: 5000})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	assert.Len(t, engine.Tools(), 4)
}
