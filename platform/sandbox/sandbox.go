// Package sandbox defines the narrow interface between the evaluation driver and a scripting
// engine. The driver never touches engine values directly: it runs a script, reads a global,
// resolves and invokes handlers, and stores wrapped parameters in an argument container.
package sandbox

import (
	"context"

	"github.com/robbyt/go-shapescript/platform/params"
)

// Handler is an engine-specific callable resolved from the script's globals.
type Handler interface {
	// Name returns the name the handler was resolved by.
	Name() string
}

// Args is the shared, mutable argument container passed to every handler invocation.
type Args interface {
	// Set stores a wrapped value under name, replacing any previous value.
	Set(name string, value any) error
	// Reset removes every entry.
	Reset() error
	// Len returns the number of entries.
	Len() int
}

// Sandbox is a persistent scripting environment. Implementations are not safe for concurrent use.
type Sandbox interface {
	// Run executes a complete script body, replacing the environment's globals. A script fault is
	// returned as a *Fault.
	Run(ctx context.Context, script string) error

	// ReadGlobal returns a global converted to plain Go values (nil, bool, int64, float64, string,
	// []any, map[string]any).
	ReadGlobal(name string) (value any, found bool, err error)

	// ResolveHandler finds a callable global by name.
	ResolveHandler(name string) (Handler, bool)

	// Invoke calls h with args as its only argument. A script fault is returned as a *Fault. The
	// result is converted where the engine knows how; a shape comes back as a geometry.Shape.
	Invoke(ctx context.Context, h Handler, args Args) (any, error)

	// Args returns the environment's shared argument container.
	Args() Args

	// Wrap produces the engine-visible adapter for a parameter.
	Wrap(p params.Parameter) (any, error)

	// Checkpoint captures globals and the argument container. Calling the returned function puts
	// both back as they were.
	Checkpoint() (restore func() error, err error)

	// Close releases engine resources. The sandbox cannot be used afterwards.
	Close() error
}

// Reporter receives output a script produces while it runs.
type Reporter interface {
	// Report records a non-fatal fault report.
	Report(f *Fault)
	// Print records a line of script log output.
	Print(msg string)
}

// Factory builds a new Sandbox that sends script output to reporter.
type Factory func(reporter Reporter) (Sandbox, error)
