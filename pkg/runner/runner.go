package runner

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/pkg/domain"
)

// Planner is the part of the engine the runner needs.
type Planner interface {
	PlanStream(ctx context.Context, query string, sink domain.ProgressSink) (*domain.RunResult, error)
}

// Runner executes one planning run and reports it through a Handler.
type Runner struct {
	planner Planner

	// Handler presents progress and the result. Defaults to a TextHandler on stdout.
	Handler Handler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// Timeout bounds the whole run. Zero means no limit.
	Timeout time.Duration
}

// New creates a Runner for planner.
func New(planner Planner, opts ...Option) *Runner {
	r := &Runner{planner: planner}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdout)
	}
	if r.Logger == nil {
		r.Logger = logging.NewNop()
	}
	return r
}

// Run sanitizes query, plans it and hands the result to the handler.
// The RunResult is nil only when the query was rejected before planning.
func (r *Runner) Run(ctx context.Context, query string) (*domain.RunResult, error) {
	clean, err := SanitizeInput(query)
	if err != nil {
		return nil, fmt.Errorf("query rejected: %w", err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	sink := func(ctx context.Context, ev domain.ProgressEvent) {
		if err := r.Handler.Progress(ctx, ev); err != nil {
			r.Logger.Warn("progress output failed", "step", ev.Step, "err", err)
		}
	}

	res, runErr := r.planner.PlanStream(ctx, clean, sink)
	if res != nil {
		if err := r.Handler.Result(context.WithoutCancel(ctx), res); err != nil && runErr == nil {
			return res, fmt.Errorf("writing result: %w", err)
		}
	}
	return res, runErr
}
