package params

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
)

// Change is one caller-supplied override: a parameter name and its JSON-encoded value.
type Change struct {
	Name  string
	Value string
}

// Changes is an ordered list of overrides. Order matters for incremental re-evaluation, where
// handlers run in the order the caller listed the changes.
type Changes []Change

// ChangesFromMap converts an unordered map into Changes sorted by name.
func ChangesFromMap(m map[string]string) Changes {
	out := make(Changes, 0, len(m))
	for name, value := range m {
		out = append(out, Change{Name: name, Value: value})
	}
	slices.SortFunc(out, func(a, b Change) int { return strings.Compare(a.Name, b.Name) })
	return out
}

// Names returns the changed names in order.
func (c Changes) Names() []string {
	names := make([]string, 0, len(c))
	for _, ch := range c {
		names = append(names, ch.Name)
	}
	return names
}

// Wrapper produces the engine-visible value for a parameter.
type Wrapper interface {
	Wrap(p Parameter) (any, error)
}

// Wrapped is a coerced override ready to be stored in the argument container.
type Wrapped struct {
	Name  string
	Value any
}

// Coerce decodes each change against its parameter in schema, updates that parameter in place and
// wraps it for the engine. Coercion is best effort: a change naming an unknown parameter, or one
// whose value cannot be decoded, is logged and skipped while the rest are still applied.
func Coerce(
	ctx context.Context,
	logger *slog.Logger,
	schema *Schema,
	changes Changes,
	wrapper Wrapper,
) []Wrapped {
	logger = logger.WithGroup("Coerce")
	out := make([]Wrapped, 0, len(changes))

	for _, ch := range changes {
		p, ok := schema.Get(ch.Name)
		if !ok {
			logger.WarnContext(ctx, "skipping override",
				"name", ch.Name, "error", ErrUnknownParameter, "known", schema.Names())
			continue
		}

		if err := Apply(p, ch.Value); err != nil {
			logger.WarnContext(ctx, "skipping override", "name", ch.Name, "json", ch.Value, "error", err)
			continue
		}

		wrapped, err := wrapper.Wrap(p)
		if err != nil {
			logger.WarnContext(ctx, "unable to wrap parameter", "name", ch.Name, "error", err)
			continue
		}
		out = append(out, Wrapped{Name: ch.Name, Value: wrapped})
	}
	return out
}

// Apply decodes raw according to p's type and stores it in p. For a Location only the parts
// present in raw are overwritten; parts missing from the update keep their previous value.
func Apply(p Parameter, raw string) error {
	switch v := p.(type) {
	case *Double:
		f, err := decodeFloat(raw)
		if err != nil {
			return err
		}
		v.Value = f

	case *String:
		s, err := decodeString(raw)
		if err != nil {
			return err
		}
		v.Value = s

	case *URI:
		s, err := decodeString(raw)
		if err != nil {
			return err
		}
		v.Value = s

	case *URIList:
		var list []string
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		v.Values = list

	case *Location:
		var m map[string]any
		d := json.NewDecoder(bytes.NewReader([]byte(raw)))
		d.UseNumber()
		if err := d.Decode(&m); err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		point, err := optionalVector(m, keyPoint)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		normal, err := optionalVector(m, keyNormal)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrDecode, err)
		}
		if point != nil {
			v.Point = point
		}
		if normal != nil {
			v.Normal = normal
		}

	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, p)
	}
	return nil
}

// decodeFloat accepts a JSON number, or a JSON string holding one.
func decodeFloat(raw string) (float64, error) {
	var f float64
	err := json.Unmarshal([]byte(raw), &f)
	if err == nil {
		return f, nil
	}
	var s string
	if json.Unmarshal([]byte(raw), &s) == nil {
		if parsed, perr := strconv.ParseFloat(s, 64); perr == nil {
			return parsed, nil
		}
	}
	return 0, fmt.Errorf("%w: %w", ErrDecode, err)
}

func decodeString(raw string) (string, error) {
	var s string
	if err := json.Unmarshal([]byte(raw), &s); err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return s, nil
}
