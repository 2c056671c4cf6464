package middleware

import (
	"context"
	"fmt"
	"regexp"

	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/ports"
)

// Mask replaces every redacted match.
const Mask = "***"

// DefaultRedactPatterns catch e-mail addresses and phone numbers that a
// traveller may paste into a request and that end up echoed in the plan.
var DefaultRedactPatterns = []string{
	`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`,
	`\+\d[\d\s\-]{7,}\d`,
	`\b[6-9]\d{9}\b`,
}

type redactMiddleware struct {
	next     ports.RunStore
	patterns []*regexp.Regexp
}

// NewRedactMiddleware creates a middleware that masks text matching any of
// patterns in the stored plan, errors and warnings. The caller's result is
// not modified.
func NewRedactMiddleware(patternStrings []string) (Middleware, error) {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid redact pattern %q: %w", p, err)
		}
		patterns[i] = re
	}
	return func(next ports.RunStore) ports.RunStore {
		return &redactMiddleware{next: next, patterns: patterns}
	}, nil
}

func (m *redactMiddleware) Save(ctx context.Context, result *domain.RunResult) error {
	cloned := *result
	cloned.CombinedResult = m.mask(result.CombinedResult)
	cloned.Error = m.mask(result.Error)
	if result.ExecutionSummary != nil {
		sum := *result.ExecutionSummary
		sum.Errors = m.maskAll(sum.Errors)
		sum.Warnings = m.maskAll(sum.Warnings)
		cloned.ExecutionSummary = &sum
	}
	return m.next.Save(ctx, &cloned)
}

func (m *redactMiddleware) Load(ctx context.Context, runID string) (*domain.RunResult, error) {
	return m.next.Load(ctx, runID)
}

func (m *redactMiddleware) Delete(ctx context.Context, runID string) error {
	return m.next.Delete(ctx, runID)
}

func (m *redactMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *redactMiddleware) mask(s string) string {
	for _, p := range m.patterns {
		s = p.ReplaceAllString(s, Mask)
	}
	return s
}

func (m *redactMiddleware) maskAll(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = m.mask(s)
	}
	return out
}
