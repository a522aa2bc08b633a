package sandbox

import (
	"errors"
	"fmt"
)

// ScriptName is the file name every script runs under. Fault locations refer to it, which is how
// diagnostics find the line of the failing statement.
const ScriptName = "<cmd>"

// SignalTimeBudget is the message of a fault raised when a run is stopped from outside, either by
// context cancellation or by an execution step limit.
const SignalTimeBudget = "execution stopped: time budget exhausted"

// ErrClosed is returned by a sandbox after Close.
var ErrClosed = errors.New("sandbox is closed")

// Fault is a report raised by script code, with an optional location inside the executed text.
type Fault struct {
	Message string
	// Line is the 1-based line in the executed text, 0 when unknown.
	Line int
}

// NewFault creates a fault report.
func NewFault(msg string, line int) *Fault {
	return &Fault{Message: msg, Line: line}
}

// Error renders the message with its internal location marker, e.g. "boom (<cmd>#12)".
func (f *Fault) Error() string {
	if f.Line <= 0 {
		return f.Message
	}
	return fmt.Sprintf("%s (%s#%d)", f.Message, ScriptName, f.Line)
}

// AsFault extracts a *Fault from err, wrapping anything else as a fault without a location.
func AsFault(err error) *Fault {
	if err == nil {
		return nil
	}
	var f *Fault
	if errors.As(err, &f) {
		return f
	}
	return &Fault{Message: err.Error()}
}
