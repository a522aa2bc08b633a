package internal

import (
	"fmt"
	"sort"

	starlarkLib "go.starlark.net/starlark"
)

// ToGo converts a Starlark value into plain Go values: nil, bool, int64, float64, string, []any
// and map[string]any. Integers too large for int64 come back as float64.
func ToGo(v starlarkLib.Value) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch v := v.(type) {
	case starlarkLib.NoneType:
		return nil, nil
	case starlarkLib.Bool:
		return bool(v), nil
	case starlarkLib.Int:
		if i, ok := v.Int64(); ok {
			return i, nil
		}
		return float64(v.Float()), nil
	case starlarkLib.Float:
		return float64(v), nil
	case starlarkLib.String:
		return string(v), nil
	case starlarkLib.Tuple:
		return sequenceToGo(v)
	case *starlarkLib.List:
		return sequenceToGo(v)
	case *starlarkLib.Dict:
		dict := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			k, val := item[0], item[1]
			// JSON compatible keys
			kStr, ok := k.(starlarkLib.String)
			if !ok {
				kStr = starlarkLib.String(k.String())
			}
			vv, err := ToGo(val)
			if err != nil {
				return nil, fmt.Errorf("failed to convert dict value %q: %w", string(kStr), err)
			}
			dict[string(kStr)] = vv
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported Starlark type %s", v.Type())
	}
}

func sequenceToGo(seq starlarkLib.Indexable) ([]any, error) {
	list := make([]any, 0, seq.Len())
	for i := 0; i < seq.Len(); i++ {
		elem, err := ToGo(seq.Index(i))
		if err != nil {
			return nil, fmt.Errorf("failed to convert element %d: %w", i, err)
		}
		list = append(list, elem)
	}
	return list, nil
}

// ToStarlark converts plain Go values, as produced by JSON decoding, into Starlark values.
// Map keys are inserted in sorted order so the resulting dict iterates deterministically.
func ToStarlark(v any) (starlarkLib.Value, error) {
	if v == nil {
		return starlarkLib.None, nil
	}

	switch val := v.(type) {
	case starlarkLib.Value:
		return val, nil
	case bool:
		return starlarkLib.Bool(val), nil
	case int:
		return starlarkLib.MakeInt(val), nil
	case int64:
		return starlarkLib.MakeInt64(val), nil
	case float64:
		return starlarkLib.Float(val), nil
	case string:
		return starlarkLib.String(val), nil
	case []string:
		elements := make([]starlarkLib.Value, len(val))
		for i, s := range val {
			elements[i] = starlarkLib.String(s)
		}
		return starlarkLib.NewList(elements), nil
	case []any:
		elements := make([]starlarkLib.Value, len(val))
		for i, elem := range val {
			var err error
			elements[i], err = ToStarlark(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to convert list element: %w", err)
			}
		}
		return starlarkLib.NewList(elements), nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		dict := starlarkLib.NewDict(len(val))
		for _, k := range keys {
			starlarkVal, err := ToStarlark(val[k])
			if err != nil {
				return nil, fmt.Errorf("failed to convert dict value: %w", err)
			}
			if err := dict.SetKey(starlarkLib.String(k), starlarkVal); err != nil {
				return nil, fmt.Errorf("failed to set dict key: %w", err)
			}
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
