package starlark

import (
	"fmt"

	"github.com/robbyt/go-shapescript/engines/starlark/internal"
	"github.com/robbyt/go-shapescript/platform/geometry"
	"github.com/robbyt/go-shapescript/platform/params"
	starlarkLib "go.starlark.net/starlark"
)

// sourceValue is a data-source node as seen by scripts.
type sourceValue struct {
	src geometry.Source
}

var (
	_ starlarkLib.Value    = (*sourceValue)(nil)
	_ starlarkLib.HasAttrs = (*sourceValue)(nil)
)

func (s *sourceValue) String() string          { return fmt.Sprintf("%s(%s)", s.src.Kind(), s.src.Bounds()) }
func (s *sourceValue) Type() string            { return "Source" }
func (s *sourceValue) Freeze()                 {}
func (s *sourceValue) Truth() starlarkLib.Bool { return starlarkLib.True }
func (s *sourceValue) Hash() (uint32, error)   { return 0, fmt.Errorf("unhashable type: %s", s.Type()) }

func (s *sourceValue) Attr(name string) (starlarkLib.Value, error) {
	switch name {
	case "kind":
		return starlarkLib.String(s.src.Kind()), nil
	case "bounds":
		return &boundsValue{b: s.src.Bounds()}, nil
	}
	return nil, nil
}

func (s *sourceValue) AttrNames() []string { return []string{"bounds", "kind"} }

// boundsValue is an axis-aligned bounding box.
type boundsValue struct {
	b geometry.Bounds
}

var _ starlarkLib.HasAttrs = (*boundsValue)(nil)

func (b *boundsValue) String() string          { return b.b.String() }
func (b *boundsValue) Type() string            { return "Bounds" }
func (b *boundsValue) Freeze()                 {}
func (b *boundsValue) Truth() starlarkLib.Bool { return starlarkLib.Bool(!b.b.IsEmpty()) }
func (b *boundsValue) Hash() (uint32, error)   { return 0, fmt.Errorf("unhashable type: %s", b.Type()) }

func (b *boundsValue) Attr(name string) (starlarkLib.Value, error) {
	switch name {
	case "xmin":
		return starlarkLib.Float(b.b.XMin), nil
	case "xmax":
		return starlarkLib.Float(b.b.XMax), nil
	case "ymin":
		return starlarkLib.Float(b.b.YMin), nil
	case "ymax":
		return starlarkLib.Float(b.b.YMax), nil
	case "zmin":
		return starlarkLib.Float(b.b.ZMin), nil
	case "zmax":
		return starlarkLib.Float(b.b.ZMax), nil
	case "center":
		return vectorTuple(b.b.Center()), nil
	case "size":
		return vectorTuple(b.b.Size()), nil
	}
	return nil, nil
}

func (b *boundsValue) AttrNames() []string {
	return []string{"center", "size", "xmax", "xmin", "ymax", "ymin", "zmax", "zmin"}
}

// shapeValue is what a main handler returns.
type shapeValue struct {
	shape geometry.Shape
}

var _ starlarkLib.HasAttrs = (*shapeValue)(nil)

func (s *shapeValue) String() string          { return fmt.Sprintf("Shape(%s)", s.shape.Bounds()) }
func (s *shapeValue) Type() string            { return "Shape" }
func (s *shapeValue) Freeze()                 {}
func (s *shapeValue) Truth() starlarkLib.Bool { return starlarkLib.True }
func (s *shapeValue) Hash() (uint32, error)   { return 0, fmt.Errorf("unhashable type: %s", s.Type()) }

func (s *shapeValue) Attr(name string) (starlarkLib.Value, error) {
	switch name {
	case "source":
		return &sourceValue{src: s.shape.GeometryHandle()}, nil
	case "bounds":
		return &boundsValue{b: s.shape.Bounds()}, nil
	}
	return nil, nil
}

func (s *shapeValue) AttrNames() []string { return []string{"bounds", "source"} }

func vectorTuple(v geometry.Vector3) starlarkLib.Tuple {
	return starlarkLib.Tuple{starlarkLib.Float(v[0]), starlarkLib.Float(v[1]), starlarkLib.Float(v[2])}
}

// floatArg unpacks any number, including a DOUBLE parameter adapter.
type floatArg float64

func (f *floatArg) Unpack(v starlarkLib.Value) error {
	if d, ok := v.(*doubleParam); ok {
		*f = floatArg(d.p.Value)
		return nil
	}
	switch x := v.(type) {
	case starlarkLib.Float:
		*f = floatArg(x)
	case starlarkLib.Int:
		*f = floatArg(x.Float())
	default:
		return fmt.Errorf("got %s, want number", v.Type())
	}
	return nil
}

// vectorArg unpacks a 3-element tuple or list of numbers.
type vectorArg geometry.Vector3

func (a *vectorArg) Unpack(v starlarkLib.Value) error {
	vec, err := toVector(v)
	if err != nil {
		return err
	}
	*a = vectorArg(vec)
	return nil
}

func toVector(v starlarkLib.Value) (geometry.Vector3, error) {
	goVal, err := internal.ToGo(v)
	if err != nil {
		return geometry.Vector3{}, fmt.Errorf("got %s, want a 3-vector", v.Type())
	}
	return params.ToVector3(goVal)
}

// scaleArg unpacks either a uniform factor or a per-axis vector.
type scaleArg geometry.Vector3

func (a *scaleArg) Unpack(v starlarkLib.Value) error {
	var f floatArg
	if err := f.Unpack(v); err == nil {
		*a = scaleArg{float64(f), float64(f), float64(f)}
		return nil
	}
	var vec vectorArg
	if err := vec.Unpack(v); err != nil {
		return fmt.Errorf("got %s, want number or 3-vector", v.Type())
	}
	*a = scaleArg(vec)
	return nil
}

// sourceArg unpacks a data source, or the source of a Shape.
type sourceArg struct {
	src geometry.Source
}

func (a *sourceArg) Unpack(v starlarkLib.Value) error {
	switch s := v.(type) {
	case *sourceValue:
		a.src = s.src
	case *shapeValue:
		a.src = s.shape.GeometryHandle()
	default:
		return fmt.Errorf("got %s, want Source", v.Type())
	}
	return nil
}

// boundsArg unpacks an optional Bounds.
type boundsArg struct {
	b *geometry.Bounds
}

func (a *boundsArg) Unpack(v starlarkLib.Value) error {
	switch b := v.(type) {
	case starlarkLib.NoneType:
		a.b = nil
	case *boundsValue:
		bounds := b.b
		a.b = &bounds
	default:
		return fmt.Errorf("got %s, want Bounds or None", v.Type())
	}
	return nil
}
