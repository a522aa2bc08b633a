package params

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/robbyt/go-shapescript/platform/geometry"
)

// Keys of a declared parameter descriptor.
const (
	keyName     = "name"
	keyDesc     = "desc"
	keyType     = "type"
	keyDefault  = "default"
	keyRangeMin = "rangeMin"
	keyRangeMax = "rangeMax"
	keyStep     = "step"
	keyOnChange = "onChange"
	keyPoint    = "point"
	keyNormal   = "normal"
)

// Extract builds a schema from the declared descriptor list. The list has already been converted
// from engine values into Go values: a []any of map[string]any. A nil declaration is an empty
// schema. A later descriptor with an already used name replaces the earlier one.
func Extract(declared any) (*Schema, error) {
	schema := NewSchema()
	if declared == nil {
		return schema, nil
	}

	list, ok := declared.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected a list of descriptors, got %T", ErrInvalidDescriptor, declared)
	}

	for i, entry := range list {
		desc, ok := entry.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: entry %d is %T, not a dict", ErrInvalidDescriptor, i, entry)
		}
		p, err := parseDescriptor(desc)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		schema.Put(p)
	}
	return schema, nil
}

func parseDescriptor(d map[string]any) (Parameter, error) {
	name, err := stringField(d, keyName)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: %q is required", ErrInvalidDescriptor, keyName)
	}
	desc, err := stringField(d, keyDesc)
	if err != nil {
		return nil, err
	}
	onChange, err := stringField(d, keyOnChange)
	if err != nil {
		return nil, err
	}
	declaredType, err := stringField(d, keyType)
	if err != nil {
		return nil, err
	}
	ptype, err := ParseType(declaredType)
	if err != nil {
		return nil, fmt.Errorf("parameter %q: %w", name, err)
	}

	def := d[keyDefault]
	switch ptype {
	case TypeDouble:
		p := NewDouble(name, desc, 0, math.Inf(-1), math.Inf(1), 1.0, onChange)
		for key, dst := range map[string]*float64{
			keyRangeMin: &p.RangeMin,
			keyRangeMax: &p.RangeMax,
			keyStep:     &p.Step,
			keyDefault:  &p.Value,
		} {
			v, ok := d[key]
			if !ok || v == nil {
				continue
			}
			f, err := ToFloat(v)
			if err != nil {
				return nil, fmt.Errorf("%w: parameter %q field %q: %w", ErrInvalidDescriptor, name, key, err)
			}
			*dst = f
		}
		return p, nil

	case TypeString, TypeURI:
		s, err := stringField(d, keyDefault)
		if err != nil {
			return nil, fmt.Errorf("parameter %q: %w", name, err)
		}
		if ptype == TypeURI {
			return NewURI(name, desc, s, onChange), nil
		}
		return NewString(name, desc, s, onChange), nil

	case TypeURIList:
		values, err := stringList(def)
		if err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %w", ErrInvalidDescriptor, name, err)
		}
		return NewURIList(name, desc, values, onChange), nil

	case TypeLocation:
		p := NewLocation(name, desc, nil, nil, onChange)
		if def == nil {
			return p, nil
		}
		m, ok := def.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: parameter %q default must be a dict, got %T", ErrInvalidDescriptor, name, def)
		}
		if p.Point, err = optionalVector(m, keyPoint); err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %w", ErrInvalidDescriptor, name, err)
		}
		if p.Normal, err = optionalVector(m, keyNormal); err != nil {
			return nil, fmt.Errorf("%w: parameter %q: %w", ErrInvalidDescriptor, name, err)
		}
		return p, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, ptype)
}

// stringField reads an optional string field. Absent and nil read as "".
func stringField(d map[string]any, key string) (string, error) {
	v, ok := d[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: field %q must be a string, got %T", ErrInvalidDescriptor, key, v)
	}
	return s, nil
}

func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string(nil), list...), nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d must be a string, got %T", i, item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected a list of strings, got %T", v)
}

// optionalVector reads m[key] as a vector. A missing or nil entry leaves the result unset.
func optionalVector(m map[string]any, key string) (*geometry.Vector3, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, nil
	}
	vec, err := ToVector3(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", key, err)
	}
	return &vec, nil
}

// ToFloat converts the numeric representations produced by engine converters and JSON decoding.
func ToFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

// ToVector3 accepts any of the equivalent 3-vector shapes: a fixed-size array, a slice of
// numbers, or a list of mixed numeric values.
func ToVector3(v any) (geometry.Vector3, error) {
	var out geometry.Vector3
	switch vec := v.(type) {
	case geometry.Vector3:
		return vec, nil
	case *geometry.Vector3:
		if vec == nil {
			return out, fmt.Errorf("%w: nil", ErrInvalidVector)
		}
		return *vec, nil
	case [3]float64:
		return geometry.Vector3(vec), nil
	case [3]int:
		return geometry.Vector3{float64(vec[0]), float64(vec[1]), float64(vec[2])}, nil
	case []float64:
		return vectorFrom(len(vec), func(i int) (float64, error) { return vec[i], nil })
	case []int:
		return vectorFrom(len(vec), func(i int) (float64, error) { return float64(vec[i]), nil })
	case []int64:
		return vectorFrom(len(vec), func(i int) (float64, error) { return float64(vec[i]), nil })
	case []any:
		return vectorFrom(len(vec), func(i int) (float64, error) { return ToFloat(vec[i]) })
	}
	return out, fmt.Errorf("%w: unhandled type %T", ErrInvalidVector, v)
}

func vectorFrom(n int, at func(int) (float64, error)) (geometry.Vector3, error) {
	var out geometry.Vector3
	if n != 3 {
		return out, fmt.Errorf("%w: expected 3 components, got %d", ErrInvalidVector, n)
	}
	for i := range out {
		f, err := at(i)
		if err != nil {
			return out, fmt.Errorf("%w: component %d: %w", ErrInvalidVector, i, err)
		}
		out[i] = f
	}
	return out, nil
}
