package params

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/robbyt/go-shapescript/platform/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// nameWrapper wraps every parameter as its name, failing for names in fail.
type nameWrapper struct {
	fail map[string]bool
}

func (w nameWrapper) Wrap(p Parameter) (any, error) {
	if w.fail[p.Name()] {
		return nil, errors.New("wrap refused")
	}
	return "wrapped:" + p.Name(), nil
}

func testSchema() *Schema {
	pt := geometry.Vector3{1, 2, 3}
	n := geometry.Vector3{0, 0, 1}
	s := NewSchema()
	s.Put(NewDouble("radius", "", 5, 0, 10, 0.5, ""))
	s.Put(NewString("label", "", "a", "relabel"))
	s.Put(NewURI("image", "", "", ""))
	s.Put(NewURIList("layers", "", nil, ""))
	s.Put(NewLocation("pick", "", &pt, &n, "place"))
	return s
}

func TestApply(t *testing.T) {
	t.Parallel()

	t.Run("double from number and numeric string", func(t *testing.T) {
		s := testSchema()
		p, _ := s.Get("radius")
		require.NoError(t, Apply(p, "7.5"))
		assert.InDelta(t, 7.5, p.(*Double).Value, 0)
		require.NoError(t, Apply(p, `"2"`))
		assert.InDelta(t, 2.0, p.(*Double).Value, 0)
	})

	t.Run("double rejects text", func(t *testing.T) {
		s := testSchema()
		p, _ := s.Get("radius")
		require.ErrorIs(t, Apply(p, `"wide"`), ErrDecode)
		assert.InDelta(t, 5.0, p.(*Double).Value, 0)
	})

	t.Run("string requires a JSON string", func(t *testing.T) {
		s := testSchema()
		p, _ := s.Get("label")
		require.NoError(t, Apply(p, `"b"`))
		assert.Equal(t, "b", p.(*String).Value)
		require.ErrorIs(t, Apply(p, `b`), ErrDecode)
		assert.Equal(t, "b", p.(*String).Value)
	})

	t.Run("uri", func(t *testing.T) {
		s := testSchema()
		p, _ := s.Get("image")
		require.NoError(t, Apply(p, `"file:///x.png"`))
		assert.Equal(t, "file:///x.png", p.(*URI).Value)
	})

	t.Run("uri list", func(t *testing.T) {
		s := testSchema()
		p, _ := s.Get("layers")
		require.NoError(t, Apply(p, `["a","b"]`))
		assert.Equal(t, []string{"a", "b"}, p.(*URIList).Values)
		require.ErrorIs(t, Apply(p, `[1]`), ErrDecode)
	})

	t.Run("location keeps parts missing from the update", func(t *testing.T) {
		s := testSchema()
		p, _ := s.Get("pick")
		require.NoError(t, Apply(p, `{"point":[4,5,6]}`))
		loc := p.(*Location)
		assert.Equal(t, geometry.Vector3{4, 5, 6}, *loc.Point)
		assert.Equal(t, geometry.Vector3{0, 0, 1}, *loc.Normal)

		require.NoError(t, Apply(p, `{"normal":[1,0,0]}`))
		assert.Equal(t, geometry.Vector3{4, 5, 6}, *loc.Point)
		assert.Equal(t, geometry.Vector3{1, 0, 0}, *loc.Normal)
	})

	t.Run("location rejects malformed vectors", func(t *testing.T) {
		s := testSchema()
		p, _ := s.Get("pick")
		require.ErrorIs(t, Apply(p, `{"point":[4,5]}`), ErrDecode)
		require.ErrorIs(t, Apply(p, `[4,5,6]`), ErrDecode)
		assert.Equal(t, geometry.Vector3{1, 2, 3}, *p.(*Location).Point)
	})
}

func TestCoerce(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	logger := slog.New(slog.DiscardHandler)

	t.Run("unknown names are skipped", func(t *testing.T) {
		s := testSchema()
		out := Coerce(ctx, logger, s, Changes{{Name: "ghost", Value: `"1"`}}, nameWrapper{})
		assert.Empty(t, out)
		assert.Equal(t, testSchema().Descriptors(), s.Descriptors())
	})

	t.Run("bad values do not stop the rest", func(t *testing.T) {
		s := testSchema()
		changes := Changes{
			{Name: "radius", Value: `oops`},
			{Name: "label", Value: `"z"`},
			{Name: "ghost", Value: `1`},
			{Name: "radius", Value: `3`},
		}
		out := Coerce(ctx, logger, s, changes, nameWrapper{})
		require.Len(t, out, 2)
		assert.Equal(t, Wrapped{Name: "label", Value: "wrapped:label"}, out[0])
		assert.Equal(t, Wrapped{Name: "radius", Value: "wrapped:radius"}, out[1])

		p, _ := s.Get("radius")
		assert.InDelta(t, 3.0, p.(*Double).Value, 0)
	})

	t.Run("wrap failures are skipped", func(t *testing.T) {
		s := testSchema()
		out := Coerce(ctx, logger, s,
			Changes{{Name: "label", Value: `"x"`}, {Name: "radius", Value: `1`}},
			nameWrapper{fail: map[string]bool{"label": true}})
		require.Len(t, out, 1)
		assert.Equal(t, "radius", out[0].Name)
	})
}

func TestChangesFromMap(t *testing.T) {
	t.Parallel()

	changes := ChangesFromMap(map[string]string{"b": "2", "a": "1", "c": "3"})
	assert.Equal(t, []string{"a", "b", "c"}, changes.Names())
	assert.Equal(t, Change{Name: "a", Value: "1"}, changes[0])
	assert.Empty(t, ChangesFromMap(nil))
}
