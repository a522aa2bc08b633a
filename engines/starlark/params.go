package starlark

import (
	"fmt"

	"github.com/robbyt/go-shapescript/platform/params"
	starlarkLib "go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// wrapParameter builds the adapter a handler sees in args[name]. Scalar adapters read through to
// the parameter, so they always show its current value. LOCATION exposes the parameter itself.
func wrapParameter(p params.Parameter) (starlarkLib.Value, error) {
	switch v := p.(type) {
	case *params.Double:
		return &doubleParam{p: v}, nil
	case *params.String:
		return &stringParam{p: p, typeName: "StringParam", value: func() string { return v.Value }}, nil
	case *params.URI:
		return &stringParam{p: p, typeName: "URIParam", value: func() string { return v.Value }}, nil
	case *params.URIList:
		return &uriListParam{p: v}, nil
	case *params.Location:
		return &locationParam{p: v}, nil
	}
	return nil, fmt.Errorf("%w: %T", params.ErrUnsupportedType, p)
}

func commonAttr(p params.Parameter, name string) (starlarkLib.Value, bool) {
	switch name {
	case "name":
		return starlarkLib.String(p.Name()), true
	case "desc":
		return starlarkLib.String(p.Desc()), true
	case "type":
		return starlarkLib.String(p.Type()), true
	case "on_change":
		return starlarkLib.String(p.OnChange()), true
	}
	return nil, false
}

var commonAttrNames = []string{"desc", "name", "on_change", "type"}

// doubleParam behaves like a number in arithmetic. Comparisons need .value.
type doubleParam struct {
	p *params.Double
}

var (
	_ starlarkLib.HasAttrs  = (*doubleParam)(nil)
	_ starlarkLib.HasBinary = (*doubleParam)(nil)
	_ starlarkLib.HasUnary  = (*doubleParam)(nil)
)

func (d *doubleParam) String() string          { return starlarkLib.Float(d.p.Value).String() }
func (d *doubleParam) Type() string            { return "DoubleParam" }
func (d *doubleParam) Freeze()                 {}
func (d *doubleParam) Truth() starlarkLib.Bool { return d.p.Value != 0 }
func (d *doubleParam) Hash() (uint32, error)   { return starlarkLib.Float(d.p.Value).Hash() }

func (d *doubleParam) Attr(name string) (starlarkLib.Value, error) {
	if v, ok := commonAttr(d.p, name); ok {
		return v, nil
	}
	switch name {
	case "value":
		return starlarkLib.Float(d.p.Value), nil
	case "min":
		return starlarkLib.Float(d.p.RangeMin), nil
	case "max":
		return starlarkLib.Float(d.p.RangeMax), nil
	case "step":
		return starlarkLib.Float(d.p.Step), nil
	}
	return nil, nil
}

func (d *doubleParam) AttrNames() []string {
	return append([]string{"max", "min", "step", "value"}, commonAttrNames...)
}

func (d *doubleParam) Binary(op syntax.Token, y starlarkLib.Value, side starlarkLib.Side) (starlarkLib.Value, error) {
	x := starlarkLib.Float(d.p.Value)
	if other, ok := y.(*doubleParam); ok {
		y = starlarkLib.Float(other.p.Value)
	}
	if side == starlarkLib.Left {
		return starlarkLib.Binary(op, x, y)
	}
	return starlarkLib.Binary(op, y, x)
}

func (d *doubleParam) Unary(op syntax.Token) (starlarkLib.Value, error) {
	return starlarkLib.Unary(op, starlarkLib.Float(d.p.Value))
}

// stringParam serves both STRING and URI parameters.
type stringParam struct {
	p        params.Parameter
	typeName string
	value    func() string
}

var _ starlarkLib.HasAttrs = (*stringParam)(nil)

func (s *stringParam) String() string          { return starlarkLib.String(s.value()).String() }
func (s *stringParam) Type() string            { return s.typeName }
func (s *stringParam) Freeze()                 {}
func (s *stringParam) Truth() starlarkLib.Bool { return s.value() != "" }
func (s *stringParam) Hash() (uint32, error)   { return starlarkLib.String(s.value()).Hash() }

func (s *stringParam) Attr(name string) (starlarkLib.Value, error) {
	if v, ok := commonAttr(s.p, name); ok {
		return v, nil
	}
	if name == "value" {
		return starlarkLib.String(s.value()), nil
	}
	return nil, nil
}

func (s *stringParam) AttrNames() []string {
	return append([]string{"value"}, commonAttrNames...)
}

type uriListParam struct {
	p *params.URIList
}

var _ starlarkLib.HasAttrs = (*uriListParam)(nil)

func (u *uriListParam) String() string          { return u.values().String() }
func (u *uriListParam) Type() string            { return "URIListParam" }
func (u *uriListParam) Freeze()                 {}
func (u *uriListParam) Truth() starlarkLib.Bool { return len(u.p.Values) > 0 }
func (u *uriListParam) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", u.Type())
}

func (u *uriListParam) values() *starlarkLib.List {
	elems := make([]starlarkLib.Value, len(u.p.Values))
	for i, s := range u.p.Values {
		elems[i] = starlarkLib.String(s)
	}
	return starlarkLib.NewList(elems)
}

func (u *uriListParam) Attr(name string) (starlarkLib.Value, error) {
	if v, ok := commonAttr(u.p, name); ok {
		return v, nil
	}
	if name == "values" {
		return u.values(), nil
	}
	return nil, nil
}

func (u *uriListParam) AttrNames() []string {
	return append([]string{"values"}, commonAttrNames...)
}

// locationParam is the live LOCATION parameter: later coercions show through immediately.
type locationParam struct {
	p *params.Location
}

var _ starlarkLib.HasAttrs = (*locationParam)(nil)

func (l *locationParam) String() string {
	return fmt.Sprintf("Location(point=%s, normal=%s)", l.point(), l.normal())
}
func (l *locationParam) Type() string            { return "LocationParam" }
func (l *locationParam) Freeze()                 {}
func (l *locationParam) Truth() starlarkLib.Bool { return l.p.Point != nil }
func (l *locationParam) Hash() (uint32, error) {
	return 0, fmt.Errorf("unhashable type: %s", l.Type())
}

func (l *locationParam) point() starlarkLib.Value {
	if l.p.Point == nil {
		return starlarkLib.None
	}
	return vectorTuple(*l.p.Point)
}

func (l *locationParam) normal() starlarkLib.Value {
	if l.p.Normal == nil {
		return starlarkLib.None
	}
	return vectorTuple(*l.p.Normal)
}

func (l *locationParam) Attr(name string) (starlarkLib.Value, error) {
	if v, ok := commonAttr(l.p, name); ok {
		return v, nil
	}
	switch name {
	case "point":
		return l.point(), nil
	case "normal":
		return l.normal(), nil
	}
	return nil, nil
}

func (l *locationParam) AttrNames() []string {
	return append([]string{"normal", "point"}, commonAttrNames...)
}
