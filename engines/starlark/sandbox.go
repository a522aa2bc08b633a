package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync/atomic"

	"github.com/robbyt/go-shapescript/engines/starlark/internal"
	"github.com/robbyt/go-shapescript/internal/helpers"
	"github.com/robbyt/go-shapescript/platform/capability"
	"github.com/robbyt/go-shapescript/platform/params"
	"github.com/robbyt/go-shapescript/platform/sandbox"
	starlarkLib "go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// ErrModuleNotAllowed is returned when a script loads a name that is not on the allow-list.
var ErrModuleNotAllowed = errors.New("module not allowed")

// Sandbox runs scripts in a Starlark environment whose only reachable host facilities are the
// allow-listed capability modules.
type Sandbox struct {
	logger   *slog.Logger
	reporter sandbox.Reporter
	allow    capability.AllowList
	modules  map[string]starlarkLib.Value
	maxSteps uint64
	fileOpts *syntax.FileOptions

	// predeclared is the Starlark universe without any capability modules.
	predeclared starlarkLib.StringDict
	globals     starlarkLib.StringDict
	args        *argsDict
	closed      bool
}

var _ sandbox.Sandbox = (*Sandbox)(nil)

func newSandbox(cfg *Config, reporter sandbox.Reporter) (*Sandbox, error) {
	_, logger := helpers.SetupLogger(cfg.Handler, "starlark", "Sandbox")

	modules := capabilityModules(cfg.Plugins)
	for _, e := range cfg.AllowList.Entries {
		if _, ok := modules[e.Name]; !ok {
			return nil, fmt.Errorf("allow-listed %s %q has no implementation", e.Kind, e.Name)
		}
	}

	return &Sandbox{
		logger:      logger,
		reporter:    reporter,
		allow:       cfg.AllowList,
		modules:     modules,
		maxSteps:    cfg.MaxSteps,
		fileOpts:    &syntax.FileOptions{},
		predeclared: maps.Clone(starlarkLib.Universe),
		globals:     starlarkLib.StringDict{},
		args:        newArgsDict(),
	}, nil
}

func (s *Sandbox) String() string {
	return "starlark.Sandbox"
}

// load is the allow-list gate: the only way a script reaches a capability module.
func (s *Sandbox) load(_ *starlarkLib.Thread, module string) (starlarkLib.StringDict, error) {
	if !s.allow.Allows(module) {
		return nil, fmt.Errorf("%w: %s", ErrModuleNotAllowed, module)
	}
	return starlarkLib.StringDict{module: s.modules[module]}, nil
}

// newThread prepares a thread for one run or invocation. The returned stop function must be
// called when the thread is done; stopped reports whether the run was stopped from outside.
func (s *Sandbox) newThread(ctx context.Context, name string) (
	thread *starlarkLib.Thread,
	stop func() bool,
	stopped func() bool,
) {
	logger := s.logger.WithGroup("thread")
	thread = &starlarkLib.Thread{
		Name: name,
		Print: func(t *starlarkLib.Thread, msg string) {
			logger.DebugContext(ctx, msg, "starlark-thread", t.Name)
			s.reporter.Print(msg)
		},
		Load: s.load,
	}
	thread.SetLocal(localReporter, s.reporter)
	thread.SetLocal(localContext, ctx)
	if s.maxSteps > 0 {
		thread.SetMaxExecutionSteps(s.maxSteps)
	}

	var cancelled atomic.Bool
	stop = context.AfterFunc(ctx, func() {
		cancelled.Store(true)
		thread.Cancel(sandbox.SignalTimeBudget)
	})
	stopped = func() bool {
		return cancelled.Load() || (s.maxSteps > 0 && thread.ExecutionSteps() >= s.maxSteps)
	}
	return thread, stop, stopped
}

// toFault converts an engine error into a fault report located in the script text.
func (s *Sandbox) toFault(err error, stopped bool) *sandbox.Fault {
	var evalErr *starlarkLib.EvalError
	if !errors.As(err, &evalErr) {
		return sandbox.NewFault(err.Error(), 0)
	}
	msg := evalErr.Msg
	if stopped {
		msg = sandbox.SignalTimeBudget
	}
	return sandbox.NewFault(msg, scriptLine(evalErr.CallStack))
}

// Run executes the script body. Its globals replace the previous ones only on success.
func (s *Sandbox) Run(ctx context.Context, script string) error {
	if s.closed {
		return sandbox.ErrClosed
	}
	logger := s.logger.WithGroup("Run")

	thread, stop, stopped := s.newThread(ctx, "run")
	defer stop()

	globals, err := starlarkLib.ExecFileOptions(s.fileOpts, thread, sandbox.ScriptName, script, s.predeclared)
	if err != nil {
		f := s.toFault(err, stopped())
		logger.DebugContext(ctx, "script failed", "error", f)
		return f
	}
	s.globals = globals
	logger.DebugContext(ctx, "script executed", "globals", len(globals))
	return nil
}

// ReadGlobal converts a global to plain Go values.
func (s *Sandbox) ReadGlobal(name string) (any, bool, error) {
	v, ok := s.globals[name]
	if !ok {
		return nil, false, nil
	}
	out, err := internal.ToGo(v)
	if err != nil {
		return nil, true, fmt.Errorf("global %q: %w", name, err)
	}
	return out, true, nil
}

type handler struct {
	name string
	fn   starlarkLib.Callable
}

func (h *handler) Name() string { return h.name }

// ResolveHandler finds a callable global defined by the script.
func (s *Sandbox) ResolveHandler(name string) (sandbox.Handler, bool) {
	fn, ok := s.globals[name].(starlarkLib.Callable)
	if !ok {
		return nil, false
	}
	return &handler{name: name, fn: fn}, true
}

// Invoke calls h(args). A returned Shape comes back as a geometry.Shape; other values are
// converted to plain Go values where possible and otherwise returned as Starlark values.
func (s *Sandbox) Invoke(ctx context.Context, h sandbox.Handler, args sandbox.Args) (any, error) {
	if s.closed {
		return nil, sandbox.ErrClosed
	}
	logger := s.logger.WithGroup("Invoke").With("handler", h.Name())

	sh, ok := h.(*handler)
	if !ok {
		return nil, fmt.Errorf("handler %q was not resolved by this sandbox", h.Name())
	}
	dict, ok := args.(*argsDict)
	if !ok {
		return nil, fmt.Errorf("argument container %T was not created by this sandbox", args)
	}

	thread, stop, stopped := s.newThread(ctx, h.Name())
	defer stop()

	result, err := starlarkLib.Call(thread, sh.fn, starlarkLib.Tuple{dict.d}, nil)
	if err != nil {
		f := s.toFault(err, stopped())
		logger.DebugContext(ctx, "handler failed", "error", f)
		return nil, f
	}

	if shape, ok := result.(*shapeValue); ok {
		return shape.shape, nil
	}
	if goVal, err := internal.ToGo(result); err == nil {
		return goVal, nil
	}
	return result, nil
}

func (s *Sandbox) Args() sandbox.Args {
	return s.args
}

func (s *Sandbox) Wrap(p params.Parameter) (any, error) {
	return wrapParameter(p)
}

// Checkpoint captures the current globals and argument entries.
func (s *Sandbox) Checkpoint() (func() error, error) {
	globals := s.globals
	entries := s.args.d.Items()
	return func() error {
		s.globals = globals
		return s.args.restore(entries)
	}, nil
}

func (s *Sandbox) Close() error {
	s.closed = true
	s.globals = nil
	return s.args.Reset()
}

// argsDict is the shared argument container, passed to handlers as a dict.
type argsDict struct {
	d *starlarkLib.Dict
}

var _ sandbox.Args = (*argsDict)(nil)

func newArgsDict() *argsDict {
	return &argsDict{d: starlarkLib.NewDict(8)}
}

func (a *argsDict) Set(name string, value any) error {
	v, err := internal.ToStarlark(value)
	if err != nil {
		return fmt.Errorf("argument %q: %w", name, err)
	}
	return a.d.SetKey(starlarkLib.String(name), v)
}

func (a *argsDict) Reset() error {
	return a.d.Clear()
}

func (a *argsDict) Len() int {
	return a.d.Len()
}

func (a *argsDict) restore(items []starlarkLib.Tuple) error {
	if err := a.d.Clear(); err != nil {
		return err
	}
	for _, kv := range items {
		if err := a.d.SetKey(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}
