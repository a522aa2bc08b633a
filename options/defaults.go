package options

import (
	"log/slog"
	"os"

	"github.com/robbyt/go-shapescript/platform/capability"
)

// DefaultSchemaGlobal is the global a script declares its parameters in.
const DefaultSchemaGlobal = "uiParams"

// DefaultConfig initializes a Config with sensible defaults. It has no sandbox factory; the
// engine constructors supply one.
func DefaultConfig() *Config {
	return &Config{
		handler:      DefaultHandler(),
		allowList:    capability.Default(),
		schemaGlobal: DefaultSchemaGlobal,
	}
}

// DefaultHandler returns the default logging handler
func DefaultHandler() slog.Handler {
	return slog.NewTextHandler(os.Stdout, nil)
}

// WithDefaults applies default values to any config properties that are unset
func WithDefaults() Option {
	return func(c *Config) error {
		if c.handler == nil {
			c.handler = DefaultHandler()
		}
		if c.allowList.Version == "" && len(c.allowList.Entries) == 0 {
			c.allowList = capability.Default()
		}
		if c.schemaGlobal == "" {
			c.schemaGlobal = DefaultSchemaGlobal
		}
		return nil
	}
}
