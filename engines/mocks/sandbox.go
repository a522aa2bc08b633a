package mocks

import (
	"context"

	"github.com/robbyt/go-shapescript/platform/params"
	"github.com/robbyt/go-shapescript/platform/sandbox"
	"github.com/stretchr/testify/mock"
)

// Sandbox is a mock implementation of sandbox.Sandbox for testing purposes.
type Sandbox struct {
	mock.Mock
}

// Run is a mock implementation of the Run method.
func (m *Sandbox) Run(ctx context.Context, script string) error {
	args := m.Called(ctx, script)
	return args.Error(0)
}

// ReadGlobal is a mock implementation of the ReadGlobal method.
func (m *Sandbox) ReadGlobal(name string) (any, bool, error) {
	args := m.Called(name)
	return args.Get(0), args.Bool(1), args.Error(2)
}

// ResolveHandler is a mock implementation of the ResolveHandler method.
func (m *Sandbox) ResolveHandler(name string) (sandbox.Handler, bool) {
	args := m.Called(name)
	h, _ := args.Get(0).(sandbox.Handler)
	return h, args.Bool(1)
}

// Invoke is a mock implementation of the Invoke method.
func (m *Sandbox) Invoke(ctx context.Context, h sandbox.Handler, a sandbox.Args) (any, error) {
	args := m.Called(ctx, h, a)
	return args.Get(0), args.Error(1)
}

// Args is a mock implementation of the Args method.
func (m *Sandbox) Args() sandbox.Args {
	args := m.Called()
	a, _ := args.Get(0).(sandbox.Args)
	return a
}

// Wrap is a mock implementation of the Wrap method.
func (m *Sandbox) Wrap(p params.Parameter) (any, error) {
	args := m.Called(p)
	return args.Get(0), args.Error(1)
}

// Checkpoint is a mock implementation of the Checkpoint method.
func (m *Sandbox) Checkpoint() (func() error, error) {
	args := m.Called()
	restore, _ := args.Get(0).(func() error)
	return restore, args.Error(1)
}

// Close is a mock implementation of the Close method.
func (m *Sandbox) Close() error {
	args := m.Called()
	return args.Error(0)
}

// Handler is a sandbox.Handler that only carries a name.
type Handler string

// Name returns the handler name.
func (h Handler) Name() string {
	return string(h)
}

// Args is an in-memory sandbox.Args. It records every Set so tests can inspect what a handler
// would have received.
type Args struct {
	Values map[string]any
	Sets   []string
}

// NewArgs creates an empty argument container.
func NewArgs() *Args {
	return &Args{Values: make(map[string]any)}
}

func (a *Args) Set(name string, value any) error {
	a.Values[name] = value
	a.Sets = append(a.Sets, name)
	return nil
}

func (a *Args) Reset() error {
	clear(a.Values)
	return nil
}

func (a *Args) Len() int {
	return len(a.Values)
}
