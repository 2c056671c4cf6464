package runner

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// TextHandler implements the standard text-based interface.
type TextHandler struct {
	Writer   io.Writer
	Renderer ContentRenderer
	// Quiet suppresses progress lines; only the report is printed.
	Quiet bool
}

// TextHandlerOption defines configuration for TextHandler.
type TextHandlerOption func(*TextHandler)

// WithRenderer configures the content renderer.
func WithRenderer(renderer ContentRenderer) TextHandlerOption {
	return func(h *TextHandler) {
		h.Renderer = renderer
	}
}

// WithQuiet hides progress lines.
func WithQuiet(quiet bool) TextHandlerOption {
	return func(h *TextHandler) {
		h.Quiet = quiet
	}
}

// NewTextHandler creates a handler for standard text output.
func NewTextHandler(w io.Writer, opts ...TextHandlerOption) *TextHandler {
	if w == nil {
		w = os.Stdout
	}
	h := &TextHandler{Writer: w}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *TextHandler) Progress(ctx context.Context, ev domain.ProgressEvent) error {
	if h.Quiet {
		return nil
	}
	marker := " "
	if ev.Status == domain.StatusError {
		marker = "!"
	}
	if _, err := fmt.Fprintf(h.Writer, "%s[%3d%%] %-11s %s\n", marker, ev.Progress, ev.Step, ev.Message); err != nil {
		return err
	}
	if b := ev.BudgetInfo; b != nil {
		_, err := fmt.Fprintf(h.Writer, "        used %.2f of %.2f, %.2f left (%.1f%%)\n",
			b.Used, b.Allocated, b.Remaining, b.UtilizationPercent)
		return err
	}
	return nil
}

func (h *TextHandler) Result(ctx context.Context, res *domain.RunResult) error {
	if res.Failed() {
		_, err := fmt.Fprintf(h.Writer, "\nPlanning failed after %.1fs: %s\n", res.ExecutionTimeSeconds, res.Error)
		return err
	}
	output := res.CombinedResult
	if h.Renderer != nil {
		if rendered, err := h.Renderer(output); err == nil {
			output = rendered
		}
	}
	_, err := fmt.Fprintln(h.Writer, strings.TrimSpace(output))
	return err
}
