// Package retry provides the single retry wrapper applied to every call that
// reaches a volatile upstream (completion service, search tools).
//
// Only errors recognized as transient overload are retried. Anything else, or
// the last overload error once attempts run out, is returned unchanged.
package retry

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/tripmazer/wayfarer/internal/logging"
)

// ErrOverloaded marks an upstream that is temporarily overloaded.
// Adapters wrap it (fmt.Errorf("%w: ...", retry.ErrOverloaded)) so callers can
// classify the failure with errors.Is.
var ErrOverloaded = errors.New("upstream overloaded")

// Overloader is implemented by errors that know whether they are transient.
type Overloader interface {
	Overloaded() bool
}

// Classifier decides whether err is worth another attempt.
type Classifier func(err error) bool

// IsOverloaded is the default Classifier. It recognizes ErrOverloaded, errors
// implementing Overloader and the textual "overloaded" signature some
// completion services put in the message body.
func IsOverloaded(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrOverloaded) {
		return true
	}
	var o Overloader
	if errors.As(err, &o) {
		return o.Overloaded()
	}
	return strings.Contains(strings.ToLower(err.Error()), "overloaded")
}

// Config parameterizes the backoff schedule.
type Config struct {
	MaxRetries   int           `yaml:"max_retries" toml:"max_retries"`
	InitialDelay time.Duration `yaml:"initial_delay" toml:"initial_delay"`
	Multiplier   float64       `yaml:"multiplier" toml:"multiplier"`
	// MaxDelay caps a single sleep. Zero means uncapped.
	MaxDelay time.Duration `yaml:"max_delay" toml:"max_delay"`
	Jitter   bool          `yaml:"jitter" toml:"jitter"`
}

// DefaultConfig returns 3 retries starting at 2s and doubling.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   3,
		InitialDelay: 2 * time.Second,
		Multiplier:   2,
	}
}

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// RetryFunc observes a retry right before the caller sleeps.
type RetryFunc func(ctx context.Context, op string, attempt int, delay time.Duration, err error)

// Caller wraps calls with bounded, overload-only retries.
type Caller struct {
	cfg      Config
	classify Classifier
	sleep    SleepFunc
	random   func() float64
	onRetry  []RetryFunc
	logger   *slog.Logger
}

// Option defines a functional option for configuring the Caller.
type Option func(*Caller)

// WithClassifier replaces IsOverloaded.
func WithClassifier(c Classifier) Option {
	return func(r *Caller) {
		r.classify = c
	}
}

// WithSleep replaces the context-aware sleep. Tests use it to skip real waits.
func WithSleep(s SleepFunc) Option {
	return func(r *Caller) {
		r.sleep = s
	}
}

// WithRandom sets the jitter source (values in [0,1)).
func WithRandom(fn func() float64) Option {
	return func(r *Caller) {
		r.random = fn
	}
}

// OnRetry registers an observer for retries. Observers accumulate.
func OnRetry(fn RetryFunc) Option {
	return func(r *Caller) {
		r.onRetry = append(r.onRetry, fn)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Caller) {
		r.logger = logger
	}
}

// New creates a Caller. Zero-valued config fields fall back to DefaultConfig,
// except MaxRetries where a negative value disables retries.
func New(cfg Config, opts ...Option) *Caller {
	def := DefaultConfig()
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}

	c := &Caller{
		cfg:      cfg,
		classify: IsOverloaded,
		sleep:    sleepContext,
		random:   rand.Float64,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// With returns a copy of the Caller with extra options applied.
// The orchestrator uses it to attach per-run retry observers.
func (c *Caller) With(opts ...Option) *Caller {
	clone := *c
	clone.onRetry = append([]RetryFunc(nil), c.onRetry...)
	for _, opt := range opts {
		opt(&clone)
	}
	return &clone
}

// Config returns the effective configuration.
func (c *Caller) Config() Config {
	return c.cfg
}

// Do invokes fn, retrying on overload. It returns the number of invocations
// made and the last error. op names the call in logs and retry events.
func (c *Caller) Do(ctx context.Context, op string, fn func(context.Context) error) (int, error) {
	delay := c.cfg.InitialDelay
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return attempts, err
		}

		attempts++
		err := fn(ctx)
		if err == nil {
			return attempts, nil
		}

		if !c.classify(err) || attempts > c.cfg.MaxRetries {
			return attempts, err
		}

		wait := c.effectiveDelay(delay)
		c.logger.Warn("upstream overloaded, retrying",
			"op", op,
			"attempt", attempts,
			"delay", wait,
			"err", err,
		)
		for _, observe := range c.onRetry {
			observe(ctx, op, attempts, wait, err)
		}

		if sleepErr := c.sleep(ctx, wait); sleepErr != nil {
			return attempts, sleepErr
		}
		delay = time.Duration(float64(delay) * c.cfg.Multiplier)
	}
}

// Call is the value-returning form of Caller.Do.
func Call[T any](ctx context.Context, c *Caller, op string, fn func(context.Context) (T, error)) (T, int, error) {
	var out T
	attempts, err := c.Do(ctx, op, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, attempts, err
}

func (c *Caller) effectiveDelay(d time.Duration) time.Duration {
	if c.cfg.MaxDelay > 0 && d > c.cfg.MaxDelay {
		d = c.cfg.MaxDelay
	}
	if c.cfg.Jitter {
		d = time.Duration(float64(d) * (0.5 + c.random()*0.5))
	}
	return d
}

// Backoff returns the un-jittered delay before retry n (1-based).
func (c Config) Backoff(n int) time.Duration {
	if n < 1 {
		return 0
	}
	d := time.Duration(float64(c.InitialDelay) * math.Pow(c.Multiplier, float64(n-1)))
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
