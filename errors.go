package shapescript

import (
	"errors"

	"github.com/robbyt/go-shapescript/platform/params"
)

// Failure classes carried in Result.Err.
var (
	// ErrInvalidState is returned when an incremental re-evaluation runs without a context
	// established by a full evaluation, or against a context it does not fit.
	ErrInvalidState = errors.New("invalid evaluator state")

	// ErrScriptCompileFault is returned when the script body fails to run.
	ErrScriptCompileFault = errors.New("script failed to evaluate")

	// ErrUnsupportedParameterType is returned when the schema declares an unrecognized type.
	ErrUnsupportedParameterType = params.ErrUnsupportedType

	// ErrInvalidSchema is returned when the declared parameter list is malformed.
	ErrInvalidSchema = params.ErrInvalidDescriptor

	// ErrHandlerNotFound is returned when main or an onChange target is not a function.
	ErrHandlerNotFound = errors.New("handler not found")

	// ErrUnknownParameter is returned when a re-evaluation names a parameter the schema lacks.
	ErrUnknownParameter = params.ErrUnknownParameter

	// ErrScriptRuntimeFault is returned when a handler raises, runs out of time, or returns
	// something other than a shape from main.
	ErrScriptRuntimeFault = errors.New("script runtime fault")

	// ErrDecodeFault marks an override value that cannot be decoded. It is logged and the entry
	// skipped; it never fails a call.
	ErrDecodeFault = params.ErrDecode
)
