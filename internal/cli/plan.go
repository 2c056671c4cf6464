package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/tripmazer/wayfarer/internal/presentation/graph"
	"github.com/tripmazer/wayfarer/internal/presentation/tui"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/runner"
)

// PlanOptions controls how a CLI planning run is presented.
type PlanOptions struct {
	JSON  bool
	Quiet bool
	// Raw disables Markdown rendering even on a terminal.
	Raw bool
	// Graph appends a Mermaid diagram of the run.
	Graph bool
}

// RunPlan plans query and writes the outcome to out.
func RunPlan(ctx context.Context, app *App, query string, out io.Writer, opts PlanOptions) (*domain.RunResult, error) {
	r := runner.New(app.Engine,
		runner.WithHandler(newHandler(out, opts)),
		runner.WithLogger(app.Logger),
		runner.WithTimeout(app.Config.Server.RunTimeout),
	)
	res, err := r.Run(ctx, query)
	if opts.Graph && !opts.JSON && res != nil && res.ExecutionSummary != nil {
		fmt.Fprintf(out, "\n```mermaid\n%s```\n", graph.GenerateMermaid(res.ExecutionSummary))
	}
	return res, err
}

func newHandler(out io.Writer, opts PlanOptions) runner.Handler {
	if opts.JSON {
		return runner.NewJSONHandler(out)
	}
	textOpts := []runner.TextHandlerOption{runner.WithQuiet(opts.Quiet)}
	if !opts.Raw && tui.IsTerminal(out) {
		textOpts = append(textOpts, runner.WithRenderer(tui.NewRenderer(tui.Width(out, 100))))
	}
	return runner.NewTextHandler(out, textOpts...)
}
