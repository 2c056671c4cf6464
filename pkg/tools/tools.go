// Package tools implements the four planning tools on top of a completion
// service. Each tool turns a narrowed domain.ToolRequest into a prompt and
// returns the completion text unchanged.
package tools

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/ports"
	"github.com/tripmazer/wayfarer/pkg/registry"
)

// DefaultTemperature is used for every tool call.
const DefaultTemperature = 0.2

// Planner groups the completion-backed tools.
type Planner struct {
	completer   ports.Completer
	temperature float64
	logger      *slog.Logger
}

// Option configures the Planner.
type Option func(*Planner)

// WithTemperature overrides DefaultTemperature.
func WithTemperature(t float64) Option {
	return func(p *Planner) {
		p.temperature = t
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Planner) {
		p.logger = logger
	}
}

// New creates a Planner.
func New(completer ports.Completer, opts ...Option) *Planner {
	p := &Planner{
		completer:   completer,
		temperature: DefaultTemperature,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Register adds every tool to reg.
func (p *Planner) Register(reg *registry.Registry) {
	reg.Register(domain.ToolTransport, p.Transport)
	reg.Register(domain.ToolLodging, p.Lodging)
	reg.Register(domain.ToolItinerary, p.Itinerary)
	reg.Register(domain.ToolDining, p.Dining)
}

// Transport searches ways to reach the destination.
func (p *Planner) Transport(ctx context.Context, req domain.ToolRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Find transport from %s to %s.\n", or(req.Origin, "the traveler's home city"), req.Destination)
	writeCommon(&b, req)
	if req.International {
		b.WriteString("This is an international trip: mention visa or passport requirements briefly.\n")
	}
	return p.call(ctx, req.Tool, transportPrompt, b.String())
}

// Lodging searches places to stay.
func (p *Planner) Lodging(ctx context.Context, req domain.ToolRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Find places to stay in %s.\n", req.Destination)
	writeCommon(&b, req)
	return p.call(ctx, req.Tool, lodgingPrompt, b.String())
}

// Itinerary plans the days at the destination.
func (p *Planner) Itinerary(ctx context.Context, req domain.ToolRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan the days in %s.\n", req.Destination)
	writeCommon(&b, req)
	if len(req.Interests) > 0 {
		fmt.Fprintf(&b, "Interests: %s.\n", strings.Join(req.Interests, ", "))
	}
	return p.call(ctx, req.Tool, itineraryPrompt, b.String())
}

// Dining recommends restaurants, near the itinerary when one is given.
func (p *Planner) Dining(ctx context.Context, req domain.ToolRequest) (string, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommend restaurants in %s.\n", req.Destination)
	writeCommon(&b, req)
	if req.Dietary != "" {
		fmt.Fprintf(&b, "Dietary preference: %s.\n", req.Dietary)
	}
	if req.Context != "" {
		fmt.Fprintf(&b, "\nPlanned itinerary:\n%s\n", req.Context)
	}
	return p.call(ctx, req.Tool, diningPrompt, b.String())
}

func (p *Planner) call(ctx context.Context, tool domain.ToolName, system, user string) (string, error) {
	p.logger.Debug("tool prompt built", "tool", tool, "prompt_len", len(user))
	out, err := p.completer.Complete(ctx, ports.CompletionRequest{
		SystemPrompt: system,
		UserPrompt:   user,
		Temperature:  p.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("%s search failed: %w", tool, err)
	}
	return out, nil
}

func writeCommon(b *strings.Builder, req domain.ToolRequest) {
	if req.StartDate != "" {
		fmt.Fprintf(b, "Dates: %s", req.StartDate)
		if req.EndDate != "" {
			fmt.Fprintf(b, " to %s", req.EndDate)
		}
		b.WriteString(".\n")
	}
	fmt.Fprintf(b, "Travelers: %d.\n", req.Travelers)
	fmt.Fprintf(b, "Budget: %s%.0f for all travelers.\n", req.Currency, req.Budget)
}

func or(v, fallback string) string {
	if strings.TrimSpace(v) == "" || v == "Not specified" {
		return fallback
	}
	return v
}
