package options

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/robbyt/go-shapescript/platform/capability"
	"github.com/robbyt/go-shapescript/platform/sandbox"
	"github.com/robbyt/go-shapescript/platform/script/loader"
)

var (
	ErrNoFactory      = errors.New("no sandbox factory specified")
	ErrNoDialect      = errors.New("no capability dialect specified")
	ErrNilPlugin      = errors.New("plugin is nil")
	ErrSchemaGlobal   = errors.New("schema global name is not an identifier")
	ErrInvalidRemap   = errors.New("fault remap entry is empty")
	ErrPluginConflict = errors.New("plugin name conflicts with the allow-list")
)

// Config holds all configuration for creating an evaluator
type Config struct {
	// Logger for the evaluator and its sandbox
	handler slog.Handler
	// Capabilities scripts may load, not counting plugins
	allowList capability.AllowList
	// Extra capability packages keyed by allow-list name
	plugins map[string]capability.Plugin
	// Execution step limit per run or invocation, 0 for none
	maxSteps uint64
	// Extra fault signature to user text entries
	remap map[string]string
	// Builds the sandbox backing the execution context
	factory sandbox.Factory
	// Renders allow-list declarations in the sandbox's language
	dialect capability.Dialect
	// Global holding the declared parameter list
	schemaGlobal string
	// Optional source of the script text
	loader loader.Loader
}

// Option is a function that modifies Config
type Option func(*Config) error

// WithLogHandler sets the log handler for the evaluator
func WithLogHandler(handler slog.Handler) Option {
	return func(c *Config) error {
		if handler != nil {
			c.handler = handler
		}
		return nil
	}
}

// WithAllowList replaces the capability allow-list
func WithAllowList(list capability.AllowList) Option {
	return func(c *Config) error {
		if err := list.Validate(); err != nil {
			return err
		}
		c.allowList = list
		return nil
	}
}

// WithPlugin makes p loadable under name. The plugin is added to the allow-list as a plugin entry.
func WithPlugin(name string, p capability.Plugin) Option {
	return func(c *Config) error {
		if p == nil {
			return fmt.Errorf("%w: %s", ErrNilPlugin, name)
		}
		if name == "" {
			return capability.ErrEmptyName
		}
		if c.plugins == nil {
			c.plugins = make(map[string]capability.Plugin)
		}
		c.plugins[name] = p
		return nil
	}
}

// WithMaxSteps limits how many execution steps a single run or handler invocation may take
func WithMaxSteps(steps uint64) Option {
	return func(c *Config) error {
		c.maxSteps = steps
		return nil
	}
}

// WithFaultRemap adds fault signature to user text entries on top of the built-in ones
func WithFaultRemap(extra map[string]string) Option {
	return func(c *Config) error {
		for k, v := range extra {
			if k == "" || v == "" {
				return fmt.Errorf("%w: %q => %q", ErrInvalidRemap, k, v)
			}
		}
		if c.remap == nil {
			c.remap = make(map[string]string, len(extra))
		}
		maps.Copy(c.remap, extra)
		return nil
	}
}

// WithSandboxFactory sets the engine backing the evaluator and the dialect its header is written in
func WithSandboxFactory(factory sandbox.Factory, dialect capability.Dialect) Option {
	return func(c *Config) error {
		if factory == nil {
			return ErrNoFactory
		}
		if dialect == nil {
			return ErrNoDialect
		}
		c.factory = factory
		c.dialect = dialect
		return nil
	}
}

// WithSchemaGlobal sets the global the parameter list is read from
func WithSchemaGlobal(name string) Option {
	return func(c *Config) error {
		if !isIdentifier(name) {
			return fmt.Errorf("%w: %q", ErrSchemaGlobal, name)
		}
		c.schemaGlobal = name
		return nil
	}
}

// WithLoader sets where the evaluator loads its script from
func WithLoader(l loader.Loader) Option {
	return func(c *Config) error {
		if l != nil {
			c.loader = l
		}
		return nil
	}
}

// Validate performs basic validation on the configuration
func (c *Config) Validate() error {
	if c.factory == nil {
		return ErrNoFactory
	}
	if c.dialect == nil {
		return ErrNoDialect
	}
	if !isIdentifier(c.schemaGlobal) {
		return fmt.Errorf("%w: %q", ErrSchemaGlobal, c.schemaGlobal)
	}
	for name := range c.plugins {
		if c.allowList.Allows(name) {
			return fmt.Errorf("%w: %s", ErrPluginConflict, name)
		}
	}
	return c.GetAllowList().Validate()
}

// GetHandler returns the configured log handler
func (c *Config) GetHandler() slog.Handler {
	return c.handler
}

// SetHandler sets the log handler
func (c *Config) SetHandler(handler slog.Handler) {
	c.handler = handler
}

// GetAllowList returns the allow-list with one plugin entry per configured plugin, in name order.
func (c *Config) GetAllowList() capability.AllowList {
	if len(c.plugins) == 0 {
		return c.allowList
	}
	names := slices.Sorted(maps.Keys(c.plugins))
	extra := make([]capability.Entry, 0, len(names))
	for _, name := range names {
		extra = append(extra, capability.Entry{Name: name, Kind: capability.KindPlugin})
	}
	return c.allowList.With(extra...)
}

// GetPlugins returns a copy of the configured plugins
func (c *Config) GetPlugins() map[string]capability.Plugin {
	return maps.Clone(c.plugins)
}

// GetMaxSteps returns the execution step limit
func (c *Config) GetMaxSteps() uint64 {
	return c.maxSteps
}

// GetFaultRemap returns a copy of the extra remap entries
func (c *Config) GetFaultRemap() map[string]string {
	return maps.Clone(c.remap)
}

// GetSandboxFactory returns the configured sandbox factory
func (c *Config) GetSandboxFactory() sandbox.Factory {
	return c.factory
}

// GetDialect returns the configured capability dialect
func (c *Config) GetDialect() capability.Dialect {
	return c.dialect
}

// GetSchemaGlobal returns the name of the schema global
func (c *Config) GetSchemaGlobal() string {
	return c.schemaGlobal
}

// GetLoader returns the configured script loader, nil when none was set
func (c *Config) GetLoader() loader.Loader {
	return c.loader
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && '0' <= r && r <= '9':
		default:
			return false
		}
	}
	return !strings.HasPrefix(s, "__")
}
