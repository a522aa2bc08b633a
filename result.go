package shapescript

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/robbyt/go-shapescript/platform/geometry"
	"github.com/robbyt/go-shapescript/platform/params"
)

// Result is the outcome of one evaluation call.
type Result struct {
	Success bool
	// Shape is the value main returned. On a re-evaluation that did not route to main it is the
	// shape retained from the previous call.
	Shape geometry.Shape
	// Geometry is the shape's geometry handle.
	Geometry geometry.Source
	Bounds   *geometry.Bounds
	// LogText is the script output produced during the call.
	LogText string
	// ErrorText holds translated warnings on success and the failure message otherwise.
	ErrorText string
	// Schema is a snapshot of the committed schema, nil on failure.
	Schema  *params.Schema
	Elapsed time.Duration
	// Err classifies a failure; errors.Is works against the package sentinels.
	Err error
}

func (r *Result) String() string {
	if r.Success {
		return fmt.Sprintf("Result{Success: true, Bounds: %s, Elapsed: %s}", r.Bounds, r.Elapsed)
	}
	return fmt.Sprintf("Result{Success: false, Error: %q, Elapsed: %s}", r.ErrorText, r.Elapsed)
}

// Inspect returns the text a user should see: the error text, or the log text when there is none.
func (r *Result) Inspect() string {
	if r.ErrorText != "" {
		return r.ErrorText
	}
	return r.LogText
}

type resultJSON struct {
	Success   bool             `json:"success"`
	Geometry  *geometry.Node   `json:"geometry,omitempty"`
	Bounds    *geometry.Bounds `json:"bounds,omitempty"`
	Log       string           `json:"log,omitempty"`
	Error     string           `json:"error,omitempty"`
	Schema    *params.Schema   `json:"schema,omitempty"`
	ElapsedMS float64          `json:"elapsedMs"`
}

// MarshalJSON encodes the result with the geometry handle as a description tree.
func (r *Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(resultJSON{
		Success:   r.Success,
		Geometry:  geometry.Tree(r.Geometry),
		Bounds:    r.Bounds,
		Log:       r.LogText,
		Error:     r.ErrorText,
		Schema:    r.Schema,
		ElapsedMS: float64(r.Elapsed.Microseconds()) / 1000,
	})
}
