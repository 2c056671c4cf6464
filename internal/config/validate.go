package config

import (
	"fmt"
	"strings"

	"github.com/tripmazer/wayfarer/internal/budget"
	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/pkg/persistence/middleware"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Server.Addr == "" {
		add("server.addr", "must not be empty")
	}
	if c.Server.ShutdownTimeout < 0 {
		add("server.shutdown_timeout", "cannot be negative")
	}
	if c.Server.RunTimeout < 0 {
		add("server.run_timeout", "cannot be negative")
	}

	if c.Completion.RequestsPerMinute < 0 {
		add("completion.requests_per_minute", "cannot be negative")
	}
	if c.Completion.Timeout < 0 {
		add("completion.timeout", "cannot be negative")
	}

	if c.Retry.MaxRetries < 0 {
		add("retry.max_retries", "cannot be negative")
	}
	if c.Retry.InitialDelay <= 0 {
		add("retry.initial_delay", "must be positive")
	}
	if c.Retry.Multiplier < 1 {
		add("retry.multiplier", "must be at least 1, got %v", c.Retry.Multiplier)
	}

	if c.Budget.Floor < 0 {
		add("budget.floor", "cannot be negative")
	}
	if c.Budget.MinShare < 0 || c.Budget.MinShare >= 1 {
		add("budget.min_share", "must be in [0, 1), got %v", c.Budget.MinShare)
	}
	if c.Budget.SpendFallback < 0 || c.Budget.SpendFallback > 1 {
		add("budget.spend_fallback", "must be in [0, 1], got %v", c.Budget.SpendFallback)
	}
	switch c.Budget.Strategy {
	case "", budget.StrategyEven, budget.StrategyPriority:
	default:
		add("budget.strategy", "invalid strategy '%s', must be one of: even, priority", c.Budget.Strategy)
	}
	for tool, w := range c.Budget.Weights {
		if !tool.IsKnown() {
			add("budget.weights", "unknown tool '%s'", tool)
		} else if w < 0 {
			add("budget.weights."+string(tool), "cannot be negative")
		}
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreRedis:
		if c.Store.RedisAddr == "" {
			add("store.redis_addr", "required when store.driver is redis")
		}
	default:
		add("store.driver", "invalid driver '%s', must be one of: memory, redis", c.Store.Driver)
	}
	if c.Store.TTL < 0 {
		add("store.ttl", "cannot be negative")
	}
	if c.Store.EncryptionKey != "" {
		if _, err := middleware.ParseKey(c.Store.EncryptionKey); err != nil {
			add("store.encryption_key", "%v", err)
		}
	}
	for i, k := range c.Store.FallbackKeys {
		if _, err := middleware.ParseKey(k); err != nil {
			add(fmt.Sprintf("store.fallback_keys[%d]", i), "%v", err)
		}
	}
	if len(c.Store.FallbackKeys) > 0 && c.Store.EncryptionKey == "" {
		add("store.fallback_keys", "require store.encryption_key")
	}

	for i, cmd := range c.Tools.Commands {
		if err := cmd.Validate(); err != nil {
			add(fmt.Sprintf("tools.commands[%d]", i), "%v", err)
		}
	}
	if c.Tools.Timeout < 0 {
		add("tools.timeout", "cannot be negative")
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		add("log.level", "%v", err)
	}
	switch c.Log.Format {
	case logging.FormatText, logging.FormatJSON:
	default:
		add("log.format", "invalid format '%s', must be one of: text, json", c.Log.Format)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}
