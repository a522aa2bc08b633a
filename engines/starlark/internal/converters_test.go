package internal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	starlarkLib "go.starlark.net/starlark"
)

func TestToGo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    starlarkLib.Value
		expected any
		wantErr  bool
	}{
		{
			name:     "nil value",
			input:    nil,
			expected: nil,
		},
		{
			name:     "none",
			input:    starlarkLib.None,
			expected: nil,
		},
		{
			name:     "bool",
			input:    starlarkLib.Bool(true),
			expected: true,
		},
		{
			name:     "int",
			input:    starlarkLib.MakeInt(42),
			expected: int64(42),
		},
		{
			name:     "big int becomes float",
			input:    starlarkLib.MakeUint64(math.MaxUint64),
			expected: float64(math.MaxUint64),
		},
		{
			name:     "float",
			input:    starlarkLib.Float(3.14),
			expected: 3.14,
		},
		{
			name:     "string",
			input:    starlarkLib.String("hello"),
			expected: "hello",
		},
		{
			name:     "tuple",
			input:    starlarkLib.Tuple{starlarkLib.MakeInt(1), starlarkLib.Float(2.5)},
			expected: []any{int64(1), 2.5},
		},
		{
			name: "nested list",
			input: starlarkLib.NewList([]starlarkLib.Value{
				starlarkLib.NewList([]starlarkLib.Value{starlarkLib.MakeInt(1)}),
			}),
			expected: []any{[]any{int64(1)}},
		},
		{
			name: "dict with non string key",
			input: func() *starlarkLib.Dict {
				d := starlarkLib.NewDict(2)
				require.NoError(t, d.SetKey(starlarkLib.String("name"), starlarkLib.String("r")))
				require.NoError(t, d.SetKey(starlarkLib.MakeInt(7), starlarkLib.None))
				return d
			}(),
			expected: map[string]any{"name": "r", "7": nil},
		},
		{
			name:    "function is unsupported",
			input:   starlarkLib.NewBuiltin("f", nil),
			wantErr: true,
		},
		{
			name: "unsupported nested value",
			input: starlarkLib.NewList([]starlarkLib.Value{
				starlarkLib.NewBuiltin("f", nil),
			}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ToGo(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.expected, result)
		})
	}
}

func TestToStarlark(t *testing.T) {
	t.Parallel()

	t.Run("json shaped values round trip", func(t *testing.T) {
		in := map[string]any{
			"b":    true,
			"n":    int64(3),
			"f":    1.5,
			"s":    "x",
			"list": []any{int64(1), "two", nil},
			"sub":  map[string]any{"k": []string{"a"}},
		}
		v, err := ToStarlark(in)
		require.NoError(t, err)

		back, err := ToGo(v)
		require.NoError(t, err)
		require.Equal(t, map[string]any{
			"b":    true,
			"n":    int64(3),
			"f":    1.5,
			"s":    "x",
			"list": []any{int64(1), "two", nil},
			"sub":  map[string]any{"k": []any{"a"}},
		}, back)
	})

	t.Run("dict keys are sorted", func(t *testing.T) {
		v, err := ToStarlark(map[string]any{"z": 1, "a": 2, "m": 3})
		require.NoError(t, err)
		d := v.(*starlarkLib.Dict)
		require.Equal(t, `{"a": 2, "m": 3, "z": 1}`, d.String())
	})

	t.Run("starlark values pass through", func(t *testing.T) {
		v, err := ToStarlark(starlarkLib.String("s"))
		require.NoError(t, err)
		require.Equal(t, starlarkLib.String("s"), v)
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := ToStarlark(struct{}{})
		require.Error(t, err)
	})
}
