// Package extract turns a free-text trip request into domain.Preferences,
// through a completion service when one is available and through keyword
// heuristics otherwise.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/ports"
)

// ErrMalformed is returned when the completion reply holds no usable JSON object.
var ErrMalformed = errors.New("malformed extraction reply")

// Temperature used for extraction calls.
const Temperature = 0.1

// CompletionExtractor implements ports.Extractor on top of a Completer.
type CompletionExtractor struct {
	completer ports.Completer
	logger    *slog.Logger
}

// Option configures the CompletionExtractor.
type Option func(*CompletionExtractor)

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *CompletionExtractor) {
		e.logger = logger
	}
}

// New creates an extractor backed by completer.
func New(completer ports.Completer, opts ...Option) *CompletionExtractor {
	e := &CompletionExtractor{
		completer: completer,
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract asks the completion service for the preferences and fills the
// gaps of its answer from the query itself.
func (e *CompletionExtractor) Extract(ctx context.Context, query string) (domain.Preferences, error) {
	reply, err := e.completer.Complete(ctx, ports.CompletionRequest{
		SystemPrompt: systemPrompt,
		UserPrompt:   userPromptPrefix + query,
		Temperature:  Temperature,
	})
	if err != nil {
		return domain.Preferences{}, fmt.Errorf("extraction call failed: %w", err)
	}

	prefs, err := Parse(reply)
	if err != nil {
		e.logger.Debug("extraction reply rejected", "err", err, "reply_len", len(reply))
		return domain.Preferences{}, err
	}

	Complete(&prefs, query)
	return prefs, nil
}

// Parse locates the JSON object inside a completion reply and decodes it.
// Decoding is weakly typed: "2" travelers or "₹30,000" budgets are accepted.
func Parse(reply string) (domain.Preferences, error) {
	var prefs domain.Preferences

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return prefs, fmt.Errorf("%w: no JSON object", ErrMalformed)
	}

	var raw map[string]any
	if err := json.Unmarshal([]byte(reply[start:end+1]), &raw); err != nil {
		return prefs, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &prefs,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			moneyHook,
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return prefs, err
	}
	if err := dec.Decode(raw); err != nil {
		return prefs, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return prefs, nil
}

// moneyHook accepts amounts written with currency signs or digit grouping.
func moneyHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to.Kind() != reflect.Float64 {
		return data, nil
	}
	s := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, data.(string))
	s = strings.TrimLeft(s, ".")
	if s == "" {
		return 0.0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// Complete fills missing fields with defaults and with what the keyword
// heuristics can read from the query.
func Complete(p *domain.Preferences, query string) {
	hint := Fallback(query)

	if p.Budget <= 0 {
		p.Budget = hint.Budget
	}
	if strings.TrimSpace(p.Currency) == "" {
		p.Currency = hint.Currency
	}
	if strings.TrimSpace(p.Dates) == "" {
		p.Dates = hint.Dates
	}
	if strings.TrimSpace(p.Origin) == "" {
		p.Origin = hint.Origin
	}
	if strings.TrimSpace(p.Destination) == "" {
		p.Destination = hint.Destination
	}
	if p.Travelers < 1 {
		p.Travelers = hint.Travelers
	}
	if len(p.RoutingOrder) == 0 {
		p.RoutingOrder = hint.RoutingOrder
	}
	if len(p.Interests) == 0 {
		p.Interests = hint.Interests
	}
	if p.Dietary == "" {
		p.Dietary = hint.Dietary
	}
	p.Dining = p.Dining || hint.Dining
	p.International = p.International || hint.International
}
