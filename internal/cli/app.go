// Package cli wires configuration into a ready-to-use planner for the
// wayfarer commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/tripmazer/wayfarer"
	"github.com/tripmazer/wayfarer/internal/config"
	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/pkg/adapters/completion"
	"github.com/tripmazer/wayfarer/pkg/adapters/memory"
	"github.com/tripmazer/wayfarer/pkg/adapters/process"
	"github.com/tripmazer/wayfarer/pkg/adapters/redis"
	"github.com/tripmazer/wayfarer/pkg/domain"
	"github.com/tripmazer/wayfarer/pkg/observability"
	"github.com/tripmazer/wayfarer/pkg/persistence/middleware"
	"github.com/tripmazer/wayfarer/pkg/ports"
)

// App bundles the engine with the infrastructure built around it.
type App struct {
	Engine   *wayfarer.Engine
	Config   config.Config
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry

	closers []func() error
}

// AppOption customizes NewApp.
type AppOption func(*appOptions)

type appOptions struct {
	completer ports.Completer
	logger    *slog.Logger
}

// WithCompleter replaces the HTTP completion client.
func WithCompleter(c ports.Completer) AppOption {
	return func(o *appOptions) {
		o.completer = c
	}
}

// WithLogger replaces the logger built from the log section.
func WithLogger(l *slog.Logger) AppOption {
	return func(o *appOptions) {
		o.logger = l
	}
}

// NewApp builds the engine described by cfg.
func NewApp(ctx context.Context, cfg config.Config, opts ...AppOption) (*App, error) {
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			return nil, err
		}
		logger = logging.New(level, cfg.Log.Format)
	}

	app := &App{Config: cfg, Logger: logger}

	completer := o.completer
	if completer == nil {
		client, err := completion.New(cfg.Completion, completion.WithLogger(logger))
		if errors.Is(err, completion.ErrNotConfigured) {
			return nil, fmt.Errorf("%w: set PERPLEXITY_API_KEY or completion.api_key", err)
		}
		if err != nil {
			return nil, err
		}
		completer = client
	}

	store, err := app.openStore(ctx)
	if err != nil {
		return nil, err
	}

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	app.Metrics = observability.NewMetrics(app.Registry)

	hooks := app.Metrics.Hooks()
	if logger.Enabled(ctx, slog.LevelDebug) {
		hooks = domain.MergeHooks(hooks, observability.LoggingHooks(logger))
	}

	engineOpts := []wayfarer.Option{
		wayfarer.WithCompleter(completer),
		wayfarer.WithStore(store),
		wayfarer.WithLogger(logger),
		wayfarer.WithLifecycleHooks(hooks),
		wayfarer.WithRetry(cfg.Retry),
		wayfarer.WithBudget(cfg.Budget),
	}
	engineOpts = append(engineOpts, commandTools(cfg.Tools, logger)...)

	app.Engine, err = wayfarer.New(engineOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// commandTools turns configured commands into tool overrides.
func commandTools(cfg config.ToolsConfig, logger *slog.Logger) []wayfarer.Option {
	if len(cfg.Commands) == 0 {
		return nil
	}
	runner := process.NewRunner(
		process.WithCommands(cfg.Commands),
		process.WithTimeout(cfg.Timeout),
		process.WithBaseDir(cfg.Dir),
	)
	var opts []wayfarer.Option
	for _, tool := range process.Tools(cfg.Commands) {
		fn, _ := runner.Tool(tool)
		opts = append(opts, wayfarer.WithTool(tool, fn))
		logger.Debug("tool replaced by command", "tool", tool)
	}
	return opts
}

func (a *App) openStore(ctx context.Context) (ports.RunStore, error) {
	store, err := a.openDriver(ctx)
	if err != nil {
		return nil, err
	}
	mws, err := storeMiddleware(a.Config.Store)
	if err != nil {
		a.Close()
		return nil, err
	}
	return middleware.Chain(store, mws...), nil
}

// storeMiddleware redacts before it encrypts, so sealed runs are masked too.
func storeMiddleware(cfg config.StoreConfig) ([]middleware.Middleware, error) {
	var mws []middleware.Middleware
	if cfg.Redact {
		mw, err := middleware.NewRedactMiddleware(middleware.DefaultRedactPatterns)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	if cfg.EncryptionKey != "" {
		enc := middleware.EncryptionConfig{}
		var err error
		if enc.ActiveKey, err = middleware.ParseKey(cfg.EncryptionKey); err != nil {
			return nil, fmt.Errorf("store encryption key: %w", err)
		}
		for _, k := range cfg.FallbackKeys {
			key, err := middleware.ParseKey(k)
			if err != nil {
				return nil, fmt.Errorf("store fallback key: %w", err)
			}
			enc.FallbackKeys = append(enc.FallbackKeys, key)
		}
		mw, err := middleware.NewEncryptionMiddleware(enc)
		if err != nil {
			return nil, err
		}
		mws = append(mws, mw)
	}
	return mws, nil
}

func (a *App) openDriver(ctx context.Context) (ports.RunStore, error) {
	cfg := a.Config.Store
	switch cfg.Driver {
	case config.StoreRedis:
		opts := []redis.Option{redis.WithTTL(cfg.TTL)}
		if cfg.Prefix != "" {
			opts = append(opts, redis.WithPrefix(cfg.Prefix))
		}
		store := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, opts...)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis store unavailable at %s: %w", cfg.RedisAddr, err)
		}
		a.closers = append(a.closers, store.Close)
		a.Logger.Debug("using redis run store", "addr", cfg.RedisAddr, "ttl", cfg.TTL)
		return store, nil
	default:
		return memory.NewStore(memory.WithTTL(cfg.TTL)), nil
	}
}

// Close releases store connections.
func (a *App) Close() error {
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c())
	}
	a.closers = nil
	return errors.Join(errs...)
}
