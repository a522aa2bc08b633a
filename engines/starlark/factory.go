package starlark

import (
	"fmt"
	"log/slog"

	"github.com/robbyt/go-shapescript/platform/capability"
	"github.com/robbyt/go-shapescript/platform/sandbox"
)

// Config configures the sandboxes a factory builds.
type Config struct {
	Handler   slog.Handler
	AllowList capability.AllowList
	// MaxSteps stops any single run or invocation after this many execution steps. Zero means
	// no limit.
	MaxSteps uint64
	// Plugins are extra capability packages, keyed by the allow-list name they load under.
	Plugins map[string]capability.Plugin
}

// NewFactory returns a sandbox.Factory building Starlark sandboxes from cfg.
func NewFactory(cfg Config) sandbox.Factory {
	return func(reporter sandbox.Reporter) (sandbox.Sandbox, error) {
		if reporter == nil {
			return nil, fmt.Errorf("reporter is nil")
		}
		return newSandbox(&cfg, reporter)
	}
}

// Dialect declares each allow-listed entry with a load statement binding the entry's name.
type Dialect struct{}

var _ capability.Dialect = Dialect{}

func (Dialect) Declare(e capability.Entry) string {
	return fmt.Sprintf("load(%q, %q)", e.Name, e.Name)
}
