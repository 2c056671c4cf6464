// Package config loads wayfarer settings from a YAML or TOML file and the
// environment.
//
// Precedence, lowest first: built-in defaults, the file, environment
// variables. Command-line flags are applied by the caller on top.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/tripmazer/wayfarer/internal/budget"
	"github.com/tripmazer/wayfarer/internal/logging"
	"github.com/tripmazer/wayfarer/pkg/adapters/completion"
	"github.com/tripmazer/wayfarer/pkg/adapters/process"
	"github.com/tripmazer/wayfarer/pkg/retry"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// Config is the full application configuration.
type Config struct {
	Server     ServerConfig      `yaml:"server" toml:"server"`
	Completion completion.Config `yaml:"completion" toml:"completion"`
	Retry      retry.Config      `yaml:"retry" toml:"retry"`
	Budget     budget.Config     `yaml:"budget" toml:"budget"`
	Store      StoreConfig       `yaml:"store" toml:"store"`
	Tools      ToolsConfig       `yaml:"tools" toml:"tools"`
	Log        LogConfig         `yaml:"log" toml:"log"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr" toml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
	// RunTimeout bounds a single planning run. Zero means no limit.
	RunTimeout time.Duration `yaml:"run_timeout" toml:"run_timeout"`
	Metrics    bool          `yaml:"metrics" toml:"metrics"`
}

// StoreConfig selects where finished runs are kept.
type StoreConfig struct {
	Driver        string        `yaml:"driver" toml:"driver"`
	TTL           time.Duration `yaml:"ttl" toml:"ttl"`
	RedisAddr     string        `yaml:"redis_addr" toml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password" toml:"redis_password"`
	RedisDB       int           `yaml:"redis_db" toml:"redis_db"`
	Prefix        string        `yaml:"prefix" toml:"prefix"`
	// EncryptionKey is a base64 AES-256 key. When set, runs are sealed
	// before they reach the driver.
	EncryptionKey string   `yaml:"encryption_key" toml:"encryption_key"`
	FallbackKeys  []string `yaml:"fallback_keys" toml:"fallback_keys"`
	// Redact masks e-mail addresses and phone numbers in stored runs.
	Redact bool `yaml:"redact" toml:"redact"`
}

// ToolsConfig replaces built-in planning tools with local commands.
type ToolsConfig struct {
	Commands []process.Command `yaml:"commands" toml:"commands"`
	// Timeout bounds a single command run. Zero means no limit.
	Timeout time.Duration `yaml:"timeout" toml:"timeout"`
	// Dir is the working directory of the commands.
	Dir string `yaml:"dir" toml:"dir"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string         `yaml:"level" toml:"level"`
	Format logging.Format `yaml:"format" toml:"format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
			RunTimeout:      5 * time.Minute,
			Metrics:         true,
		},
		Completion: completion.Config{
			BaseURL: completion.DefaultBaseURL,
			Model:   completion.DefaultModel,
			Timeout: completion.DefaultTimeout,
		},
		Retry:  retry.DefaultConfig(),
		Budget: budget.DefaultConfig(),
		Store: StoreConfig{
			Driver: StoreMemory,
			TTL:    24 * time.Hour,
		},
		Tools: ToolsConfig{
			Timeout: 2 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: logging.FormatText,
		},
	}
}

// Load reads path (optional) and the process environment.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an injectable environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
		if err := Decode(&cfg, data, filepath.Ext(path)); err != nil {
			return cfg, fmt.Errorf("failed to decode %s: %w", path, err)
		}
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Decode merges data into cfg. ext selects the format (".yaml", ".yml" or ".toml").
func Decode(cfg *Config, data []byte, ext string) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		return nil
	case ".toml":
		md, err := toml.Decode(string(data), cfg)
		if err != nil {
			return err
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("unknown keys: %v", undecoded)
		}
		return nil
	}
	return fmt.Errorf("unsupported config format %q", ext)
}

type envVar struct {
	name  string
	apply func(cfg *Config, v string) error
}

var envVars = []envVar{
	{"WAYFARER_ADDR", func(c *Config, v string) error { c.Server.Addr = v; return nil }},
	{"WAYFARER_LOG_LEVEL", func(c *Config, v string) error { c.Log.Level = v; return nil }},
	{"WAYFARER_LOG_FORMAT", func(c *Config, v string) error { c.Log.Format = logging.Format(v); return nil }},
	{"WAYFARER_STORE", func(c *Config, v string) error { c.Store.Driver = v; return nil }},
	{"WAYFARER_REDIS_ADDR", func(c *Config, v string) error { c.Store.RedisAddr = v; return nil }},
	{"WAYFARER_REDIS_PASSWORD", func(c *Config, v string) error { c.Store.RedisPassword = v; return nil }},
	{"WAYFARER_STORE_KEY", func(c *Config, v string) error { c.Store.EncryptionKey = v; return nil }},
	{"WAYFARER_COMPLETION_URL", func(c *Config, v string) error { c.Completion.BaseURL = v; return nil }},
	{"WAYFARER_MODEL", func(c *Config, v string) error { c.Completion.Model = v; return nil }},
	{"PERPLEXITY_API_KEY", func(c *Config, v string) error { c.Completion.APIKey = v; return nil }},
	// Takes precedence over PERPLEXITY_API_KEY.
	{"WAYFARER_API_KEY", func(c *Config, v string) error { c.Completion.APIKey = v; return nil }},
	{"WAYFARER_RPM", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Completion.RequestsPerMinute = n
		return err
	}},
	{"WAYFARER_MAX_RETRIES", func(c *Config, v string) error {
		n, err := strconv.Atoi(v)
		c.Retry.MaxRetries = n
		return err
	}},
	{"WAYFARER_BUDGET_FLOOR", func(c *Config, v string) error {
		f, err := strconv.ParseFloat(v, 64)
		c.Budget.Floor = f
		return err
	}},
	{"WAYFARER_STORE_TTL", func(c *Config, v string) error {
		d, err := time.ParseDuration(v)
		c.Store.TTL = d
		return err
	}},
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	for _, ev := range envVars {
		v, ok := lookup(ev.name)
		if !ok || v == "" {
			continue
		}
		if err := ev.apply(cfg, v); err != nil {
			return fmt.Errorf("invalid %s: %w", ev.name, err)
		}
	}
	return nil
}
