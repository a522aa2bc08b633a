package shapescript

import (
	"github.com/robbyt/go-shapescript/platform/diagnostics"
	"github.com/robbyt/go-shapescript/platform/geometry"
	"github.com/robbyt/go-shapescript/platform/params"
	"github.com/robbyt/go-shapescript/platform/sandbox"
)

// ExecutionContext is the persistent state an evaluator keeps between calls: the sandbox with its
// shared argument container, the recorder its output goes to, the header line count fixed by the
// first full evaluation, and the last committed schema and shape.
type ExecutionContext struct {
	sandbox  sandbox.Sandbox
	recorder *diagnostics.Recorder
	header   int
	revision string
	schema   *params.Schema
	shape    geometry.Shape
}

func newExecutionContext(factory sandbox.Factory, recorder *diagnostics.Recorder) (*ExecutionContext, error) {
	sb, err := factory(recorder)
	if err != nil {
		return nil, err
	}
	return &ExecutionContext{sandbox: sb, recorder: recorder}, nil
}

// HeaderLines is the number of injected lines ahead of the user's script.
func (c *ExecutionContext) HeaderLines() int {
	return c.header
}

// Revision is the short digest of the script text the last full evaluation ran.
func (c *ExecutionContext) Revision() string {
	return c.revision
}

// Schema returns a copy of the committed schema.
func (c *ExecutionContext) Schema() *params.Schema {
	return c.schema.Clone()
}

// Shape returns the last shape main produced.
func (c *ExecutionContext) Shape() geometry.Shape {
	return c.shape
}

func (c *ExecutionContext) close() error {
	return c.sandbox.Close()
}
