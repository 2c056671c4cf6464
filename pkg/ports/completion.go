package ports

import (
	"context"

	"github.com/tripmazer/wayfarer/pkg/domain"
)

// CompletionRequest is a single-turn chat completion.
type CompletionRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	// MaxTokens caps the response length. Zero leaves it to the adapter.
	MaxTokens int
}

// Completer is the completion service used for extraction and by the tools.
// Implementations must wrap retry.ErrOverloaded (or implement
// retry.Overloader) when the upstream reports a transient overload, so the
// orchestrator can retry; every other error is treated as permanent.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req CompletionRequest) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return f(ctx, req)
}

// Extractor derives structured preferences from the raw user query.
// An error means the caller should fall back to keyword heuristics.
type Extractor interface {
	Extract(ctx context.Context, query string) (domain.Preferences, error)
}
