// Package config loads evaluator settings from a TOML file, .env files and SHAPESCRIPT_*
// environment variables, in increasing order of precedence.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/robbyt/go-shapescript/engines/extism"
	"github.com/robbyt/go-shapescript/options"
	"github.com/robbyt/go-shapescript/platform/script/loader"
	"github.com/robbyt/go-shapescript/platform/script/loader/httpauth"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SHAPESCRIPT_"

var ErrInvalidConfig = errors.New("invalid configuration")

// Config represents the evaluator configuration.
type Config struct {
	Log     LogConfig         `toml:"log"`
	Limits  LimitsConfig      `toml:"limits"`
	Script  ScriptConfig      `toml:"script"`
	Fetch   FetchConfig       `toml:"fetch"`
	Plugins []PluginConfig    `toml:"plugins"`
	Remap   map[string]string `toml:"remap"` // Extra fault message => user text entries
}

// LogConfig selects the log handler.
type LogConfig struct {
	Level  string `toml:"level"`  // debug|info|warn|error
	Format string `toml:"format"` // text|json
}

// LimitsConfig bounds script execution.
type LimitsConfig struct {
	MaxSteps uint64 `toml:"max_steps"` // 0 disables the step limit
	Timeout  string `toml:"timeout"`   // Per call, e.g. "5s"; empty disables it
}

// ScriptConfig describes how scripts declare themselves.
type ScriptConfig struct {
	SchemaGlobal string `toml:"schema_global"`
}

// FetchConfig controls how scripts given as http(s) URLs are fetched.
type FetchConfig struct {
	Timeout  string `toml:"timeout"`  // Per request; empty disables it
	Token    string `toml:"token"`    // Sent as a bearer token
	Username string `toml:"username"` // Basic auth, ignored when Token is set
	Password string `toml:"password"`
	MaxBytes int64  `toml:"max_bytes"` // 0 disables the size cap
}

// PluginConfig loads one WASM capability plugin.
type PluginConfig struct {
	Name        string   `toml:"name"`
	Path        string   `toml:"path"`
	Exports     []string `toml:"exports"`
	MemoryPages uint32   `toml:"memory_pages"`
	WASI        *bool    `toml:"wasi"` // Defaults to true
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Log:    LogConfig{Level: "info", Format: "text"},
		Limits: LimitsConfig{Timeout: "10s"},
		Script: ScriptConfig{SchemaGlobal: options.DefaultSchemaGlobal},
		Fetch:  FetchConfig{Timeout: "30s", MaxBytes: 1 << 20},
	}
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Load reads path when it is not empty, loads envFiles (or .env when none are given and it
// exists), then applies SHAPESCRIPT_* overrides and validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := New()
	if path != "" {
		var err error
		if cfg, err = LoadFile(path); err != nil {
			return nil, err
		}
	}

	if len(envFiles) > 0 {
		if err := godotenv.Load(envFiles...); err != nil {
			return nil, fmt.Errorf("failed to load env files: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides settings from environment variables found through lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPrefix + "LOG_LEVEL"); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvPrefix + "LOG_FORMAT"); ok {
		c.Log.Format = v
	}
	if v, ok := lookup(EnvPrefix + "MAX_STEPS"); ok {
		n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_STEPS: %w", ErrInvalidConfig, EnvPrefix, err)
		}
		c.Limits.MaxSteps = n
	}
	if v, ok := lookup(EnvPrefix + "TIMEOUT"); ok {
		c.Limits.Timeout = v
	}
	if v, ok := lookup(EnvPrefix + "SCHEMA_GLOBAL"); ok {
		c.Script.SchemaGlobal = v
	}
	if v, ok := lookup(EnvPrefix + "FETCH_TOKEN"); ok {
		c.Fetch.Token = v
	}
	return nil
}

// Validate checks values that cannot be caught while decoding.
func (c *Config) Validate() error {
	if _, err := c.level(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log format %q", ErrInvalidConfig, c.Log.Format)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if _, err := c.FetchOptions(); err != nil {
		return err
	}
	seen := make(map[string]struct{}, len(c.Plugins))
	for i, p := range c.Plugins {
		if p.Name == "" || p.Path == "" {
			return fmt.Errorf("%w: plugin %d needs a name and a path", ErrInvalidConfig, i)
		}
		if len(p.Exports) == 0 {
			return fmt.Errorf("%w: plugin %q lists no exports", ErrInvalidConfig, p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: plugin %q listed twice", ErrInvalidConfig, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// Timeout returns the per-call timeout, zero when disabled.
func (c *Config) Timeout() (time.Duration, error) {
	if c.Limits.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Limits.Timeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: timeout %q", ErrInvalidConfig, c.Limits.Timeout)
	}
	return d, nil
}

// FetchOptions builds the HTTP loader options for script URLs.
func (c *Config) FetchOptions() (*loader.HTTPOptions, error) {
	opts := loader.DefaultHTTPOptions()
	opts.Timeout = 0
	if c.Fetch.Timeout != "" {
		d, err := time.ParseDuration(c.Fetch.Timeout)
		if err != nil || d < 0 {
			return nil, fmt.Errorf("%w: fetch timeout %q", ErrInvalidConfig, c.Fetch.Timeout)
		}
		opts.Timeout = d
	}
	if c.Fetch.MaxBytes < 0 {
		return nil, fmt.Errorf("%w: fetch max_bytes %d", ErrInvalidConfig, c.Fetch.MaxBytes)
	}
	opts.MaxBytes = c.Fetch.MaxBytes

	switch {
	case c.Fetch.Token != "":
		opts.Auth = httpauth.NewBearer(c.Fetch.Token)
	case c.Fetch.Username != "":
		opts.Auth = httpauth.NewBasic(c.Fetch.Username, c.Fetch.Password)
	}
	return opts, nil
}

func (c *Config) level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("%w: log level %q", ErrInvalidConfig, c.Log.Level)
	}
	return level, nil
}

// Handler builds the configured log handler writing to w.
func (c *Config) Handler(w io.Writer) (slog.Handler, error) {
	level, err := c.level()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.Log.Format == "json" {
		return slog.NewJSONHandler(w, opts), nil
	}
	return slog.NewTextHandler(w, opts), nil
}

// Options converts the configuration into evaluator options. Configured plugins are compiled
// here; the returned function closes them.
func (c *Config) Options(
	ctx context.Context,
	handler slog.Handler,
) ([]options.Option, func(context.Context) error, error) {
	opts := []options.Option{
		options.WithLogHandler(handler),
		options.WithMaxSteps(c.Limits.MaxSteps),
		options.WithSchemaGlobal(c.Script.SchemaGlobal),
	}
	if len(c.Remap) > 0 {
		opts = append(opts, options.WithFaultRemap(c.Remap))
	}

	var loaded []*extism.Plugin
	closeAll := func(ctx context.Context) error {
		var errs []error
		for _, p := range loaded {
			errs = append(errs, p.Close(ctx))
		}
		return errors.Join(errs...)
	}

	for _, pc := range c.Plugins {
		settings := extism.DefaultSettings()
		settings.MemoryLimitPages = pc.MemoryPages
		if pc.WASI != nil {
			settings.EnableWASI = *pc.WASI
		}
		p, err := extism.Load(ctx, handler, pc.Name, pc.Path, pc.Exports, settings)
		if err != nil {
			_ = closeAll(ctx)
			return nil, nil, err
		}
		loaded = append(loaded, p)
		opts = append(opts, options.WithPlugin(pc.Name, p))
	}
	return opts, closeAll, nil
}
