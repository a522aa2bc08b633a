package shapescript

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robbyt/go-shapescript/internal/helpers"
	"github.com/robbyt/go-shapescript/platform/diagnostics"
	"github.com/robbyt/go-shapescript/platform/geometry"
	"github.com/robbyt/go-shapescript/platform/params"
	"github.com/robbyt/go-shapescript/platform/sandbox"
)

const mainHandler = "main"

// callError is a classified failure plus the text shown to the script author.
type callError struct {
	err  error
	text string
}

func (c *callError) Error() string { return c.text }

func (c *callError) Unwrap() error { return c.err }

func failf(kind error, format string, args ...any) *callError {
	text := fmt.Sprintf(format, args...)
	return &callError{err: fmt.Errorf("%w: %s", kind, text), text: text}
}

// outcome is what a successful call commits.
type outcome struct {
	header   int
	revision string
	schema   *params.Schema
	shape    geometry.Shape
	// refreshed is set when main ran during the call.
	refreshed bool
}

// Eval runs the whole script: it executes the script body, extracts the parameter schema, seeds
// the argument container with every parameter, applies overrides and calls main. On success the
// shape's bounds are written to bounds when it is not nil.
func (e *Evaluator) Eval(
	ctx context.Context,
	script string,
	bounds *geometry.Bounds,
	overrides params.Changes,
) *Result {
	logger := e.logger.WithGroup("Eval")
	start := time.Now()

	ec, fresh := e.ectx, false
	if ec == nil {
		var err error
		ec, err = newExecutionContext(e.factory, diagnostics.NewRecorder(e.handler))
		if err != nil {
			logger.ErrorContext(ctx, "unable to create execution context", "error", err)
			return e.failed(start, nil, &callError{
				err:  fmt.Errorf("%w: %w", ErrInvalidState, err),
				text: "Unable to create execution context: " + err.Error(),
			})
		}
		fresh = true
	}

	return e.transact(ctx, logger, start, ec, fresh, script, bounds, func() (*outcome, error) {
		return e.full(ctx, logger, ec, script, overrides)
	})
}

// Reeval applies changes to the schema of the last full evaluation and invokes each changed
// parameter's onChange handler in order. Main runs at most once per call. When no change routes
// to main, the result carries the previously retained shape and bounds is left alone.
func (e *Evaluator) Reeval(
	ctx context.Context,
	script string,
	bounds *geometry.Bounds,
	changes params.Changes,
) *Result {
	logger := e.logger.WithGroup("Reeval")
	start := time.Now()

	ec := e.ectx
	if ec == nil {
		logger.WarnContext(ctx, "re-evaluation without an execution context")
		return e.failed(start, nil, failf(ErrInvalidState,
			"Evaluation context is not initialized; run a full evaluation first"))
	}

	return e.transact(ctx, logger, start, ec, false, script, bounds, func() (*outcome, error) {
		return e.incremental(ctx, logger, ec, script, changes)
	})
}

// transact runs step against a checkpoint of ec. The outcome is committed only when step
// succeeds; otherwise the checkpoint is restored, or a context created for this call discarded.
func (e *Evaluator) transact(
	ctx context.Context,
	logger *slog.Logger,
	start time.Time,
	ec *ExecutionContext,
	fresh bool,
	script string,
	bounds *geometry.Bounds,
	step func() (*outcome, error),
) *Result {
	ec.recorder.Begin()

	restore, err := ec.sandbox.Checkpoint()
	if err != nil {
		logger.ErrorContext(ctx, "unable to checkpoint execution context", "error", err)
		e.discard(ctx, logger, ec, fresh, nil)
		return e.failed(start, ec, &callError{
			err:  fmt.Errorf("%w: %w", ErrInvalidState, err),
			text: "Unable to checkpoint execution context: " + err.Error(),
		})
	}

	out, err := step()
	if err != nil {
		logger.WarnContext(ctx, "evaluation failed", "error", err)
		res := e.failed(start, ec, err)
		e.discard(ctx, logger, ec, fresh, restore)
		return res
	}

	ec.header = out.header
	ec.revision = out.revision
	ec.schema = out.schema
	ec.shape = out.shape
	e.ectx = ec

	b := out.shape.Bounds()
	if bounds != nil && out.refreshed {
		bounds.Set(b)
	}

	res := &Result{
		Success:   true,
		Shape:     out.shape,
		Geometry:  out.shape.GeometryHandle(),
		Bounds:    &b,
		LogText:   ec.recorder.LogText(),
		ErrorText: e.translator.Text(ec.recorder.Faults(), out.header, script),
		Schema:    out.schema.Clone(),
		Elapsed:   time.Since(start),
	}
	logger.DebugContext(ctx, "evaluation complete",
		"elapsed", res.Elapsed, "params", out.schema.Len(), "mainInvoked", out.refreshed)
	return res
}

// discard undoes a failed call.
func (e *Evaluator) discard(
	ctx context.Context,
	logger *slog.Logger,
	ec *ExecutionContext,
	fresh bool,
	restore func() error,
) {
	if fresh {
		if err := ec.close(); err != nil {
			logger.WarnContext(ctx, "unable to close execution context", "error", err)
		}
		return
	}
	if restore == nil {
		return
	}
	if err := restore(); err != nil {
		logger.ErrorContext(ctx, "unable to restore execution context", "error", err)
	}
}

func (e *Evaluator) failed(start time.Time, ec *ExecutionContext, err error) *Result {
	res := &Result{Err: err, ErrorText: err.Error()}
	var ce *callError
	if errors.As(err, &ce) {
		res.Err = ce.err
		res.ErrorText = ce.text
	}
	if ec != nil {
		res.LogText = ec.recorder.LogText()
	}
	res.Elapsed = time.Since(start)
	return res
}

func (e *Evaluator) full(
	ctx context.Context,
	logger *slog.Logger,
	ec *ExecutionContext,
	script string,
	overrides params.Changes,
) (*outcome, error) {
	augmented, header := e.injector.Augment(script)

	if err := ec.sandbox.Run(ctx, augmented); err != nil {
		return nil, &callError{
			err:  fmt.Errorf("%w: %w", ErrScriptCompileFault, err),
			text: "Script failed to evaluate: " + sandbox.AsFault(err).Error(),
		}
	}

	schema, err := e.readSchema(ec.sandbox)
	if err != nil {
		return nil, &callError{err: err, text: "Invalid parameter declaration: " + err.Error()}
	}

	e.seed(ctx, logger, ec, schema)
	e.inject(ctx, logger, ec, schema, overrides)

	h, ok := ec.sandbox.ResolveHandler(mainHandler)
	if !ok {
		return nil, failf(ErrHandlerNotFound, "Cannot find function: %s", mainHandler)
	}
	value, err := e.invoke(ctx, ec, h, header, script)
	if err != nil {
		return nil, err
	}
	shape, err := asShape(h, value)
	if err != nil {
		return nil, err
	}

	return &outcome{
		header:    header,
		revision:  helpers.ShortDigest([]byte(script)),
		schema:    schema,
		shape:     shape,
		refreshed: true,
	}, nil
}

func (e *Evaluator) incremental(
	ctx context.Context,
	logger *slog.Logger,
	ec *ExecutionContext,
	script string,
	changes params.Changes,
) (*outcome, error) {
	if _, header := e.injector.Augment(script); header != ec.header {
		return nil, failf(ErrInvalidState,
			"Capability header changed from %d to %d lines; run a full evaluation", ec.header, header)
	}

	if rev := helpers.ShortDigest([]byte(script)); rev != ec.revision {
		logger.DebugContext(ctx, "script differs from the last full evaluation",
			"committed", ec.revision, "given", rev)
	}

	schema := ec.schema.Clone()
	e.inject(ctx, logger, ec, schema, changes)

	out := &outcome{header: ec.header, revision: ec.revision, schema: schema, shape: ec.shape}
	for _, ch := range changes {
		p, ok := schema.Get(ch.Name)
		if !ok {
			return nil, failf(ErrUnknownParameter, "Cannot find parameter: %s", ch.Name)
		}

		target := p.OnChange()
		h, ok := ec.sandbox.ResolveHandler(target)
		if !ok {
			return nil, failf(ErrHandlerNotFound, "Cannot find function: %s", target)
		}
		if target == mainHandler && out.refreshed {
			logger.DebugContext(ctx, "main already invoked", "param", ch.Name)
			continue
		}

		value, err := e.invoke(ctx, ec, h, ec.header, script)
		if err != nil {
			return nil, err
		}
		if target != mainHandler {
			continue
		}
		shape, err := asShape(h, value)
		if err != nil {
			return nil, err
		}
		out.shape = shape
		out.refreshed = true
	}
	return out, nil
}

// readSchema extracts the declared parameters. A script without the schema global has none.
func (e *Evaluator) readSchema(sb sandbox.Sandbox) (*params.Schema, error) {
	declared, found, err := sb.ReadGlobal(e.schemaGlobal)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidSchema, e.schemaGlobal, err)
	}
	if !found {
		return params.NewSchema(), nil
	}
	return params.Extract(declared)
}

// seed clears the argument container and stores every parameter's current value.
func (e *Evaluator) seed(ctx context.Context, logger *slog.Logger, ec *ExecutionContext, schema *params.Schema) {
	args := ec.sandbox.Args()
	if err := args.Reset(); err != nil {
		logger.WarnContext(ctx, "unable to reset arguments", "error", err)
	}
	for _, p := range schema.Parameters() {
		wrapped, err := ec.sandbox.Wrap(p)
		if err != nil {
			logger.WarnContext(ctx, "unable to wrap parameter", "name", p.Name(), "error", err)
			continue
		}
		if err := args.Set(p.Name(), wrapped); err != nil {
			logger.WarnContext(ctx, "unable to store parameter", "name", p.Name(), "error", err)
		}
	}
}

// inject coerces changes into schema and stores the wrapped results in the argument container.
func (e *Evaluator) inject(
	ctx context.Context,
	logger *slog.Logger,
	ec *ExecutionContext,
	schema *params.Schema,
	changes params.Changes,
) {
	if len(changes) == 0 {
		return
	}
	args := ec.sandbox.Args()
	for _, w := range params.Coerce(ctx, logger, schema, changes, ec.sandbox) {
		if err := args.Set(w.Name, w.Value); err != nil {
			logger.WarnContext(ctx, "unable to store parameter", "name", w.Name, "error", err)
		}
	}
}

func (e *Evaluator) invoke(
	ctx context.Context,
	ec *ExecutionContext,
	h sandbox.Handler,
	header int,
	script string,
) (any, error) {
	value, err := ec.sandbox.Invoke(ctx, h, ec.sandbox.Args())
	if err != nil {
		return nil, &callError{
			err:  fmt.Errorf("%w: %s: %w", ErrScriptRuntimeFault, h.Name(), err),
			text: e.translator.Translate(sandbox.AsFault(err), header, script),
		}
	}
	return value, nil
}

func asShape(h sandbox.Handler, value any) (geometry.Shape, error) {
	shape, ok := value.(geometry.Shape)
	if !ok || shape == nil {
		return nil, failf(ErrScriptRuntimeFault, "Function %s must return a Shape, got %T", h.Name(), value)
	}
	return shape, nil
}
