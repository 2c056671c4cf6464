package runner

import (
	"context"
	"errors"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// Handler presents a run to the user.
// This allows switching between Text (CLI) and JSON (structured) modes.
type Handler interface {
	// Progress is called synchronously for each progress event.
	Progress(ctx context.Context, ev domain.ProgressEvent) error

	// Result is called once with the final result, failed or not.
	Result(ctx context.Context, res *domain.RunResult) error
}

// ContentRenderer turns the Markdown report into terminal output.
type ContentRenderer func(markdown string) (string, error)

// MultiHandler fans events out to several handlers, in order.
// The first error is returned but every handler is still called.
func MultiHandler(handlers ...Handler) Handler {
	return multiHandler(handlers)
}

type multiHandler []Handler

func (m multiHandler) Progress(ctx context.Context, ev domain.ProgressEvent) error {
	var errs []error
	for _, h := range m {
		errs = append(errs, h.Progress(ctx, ev))
	}
	return errors.Join(errs...)
}

func (m multiHandler) Result(ctx context.Context, res *domain.RunResult) error {
	var errs []error
	for _, h := range m {
		errs = append(errs, h.Result(ctx, res))
	}
	return errors.Join(errs...)
}
