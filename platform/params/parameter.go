// Package params models the typed parameters a script declares in its schema list, and converts
// caller-supplied JSON overrides into those types.
package params

import (
	"fmt"
	"strings"

	"github.com/robbyt/go-shapescript/platform/geometry"
)

// Type is the declared kind of a parameter.
type Type string

const (
	TypeDouble   Type = "DOUBLE"
	TypeString   Type = "STRING"
	TypeURI      Type = "URI"
	TypeURIList  Type = "URI_LIST"
	TypeLocation Type = "LOCATION"
)

// DefaultHandler is the onChange target used when a descriptor omits one.
const DefaultHandler = "main"

const listMarker = "[]"

// ParseType normalizes a declared type name. Matching is case-insensitive and a trailing "[]"
// selects the list variant of the base type. URI is the only type with a list variant.
func ParseType(declared string) (Type, error) {
	t := strings.ToUpper(strings.TrimSpace(declared))
	if base, ok := strings.CutSuffix(t, listMarker); ok {
		t = base + "_LIST"
	}

	switch Type(t) {
	case TypeDouble, TypeString, TypeURI, TypeURIList, TypeLocation:
		return Type(t), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedType, declared)
}

// Parameter is one entry of a script's schema. The concrete types are *Double, *String, *URI,
// *URIList and *Location.
type Parameter interface {
	Name() string
	Desc() string
	Type() Type
	OnChange() string
	Clone() Parameter
}

type base struct {
	name     string
	desc     string
	onChange string
}

func newBase(name, desc, onChange string) base {
	if onChange == "" {
		onChange = DefaultHandler
	}
	return base{name: name, desc: desc, onChange: onChange}
}

func (b base) Name() string     { return b.name }
func (b base) Desc() string     { return b.desc }
func (b base) OnChange() string { return b.onChange }

// Double is a numeric parameter with an optional range and UI step.
type Double struct {
	base
	Value    float64
	RangeMin float64
	RangeMax float64
	Step     float64
}

// NewDouble creates a Double. An empty onChange routes changes to main.
func NewDouble(name, desc string, value, rangeMin, rangeMax, step float64, onChange string) *Double {
	return &Double{
		base:     newBase(name, desc, onChange),
		Value:    value,
		RangeMin: rangeMin,
		RangeMax: rangeMax,
		Step:     step,
	}
}

func (p *Double) Type() Type { return TypeDouble }

func (p *Double) Clone() Parameter {
	c := *p
	return &c
}

// String is a free-text parameter.
type String struct {
	base
	Value string
}

func NewString(name, desc, value, onChange string) *String {
	return &String{base: newBase(name, desc, onChange), Value: value}
}

func (p *String) Type() Type { return TypeString }

func (p *String) Clone() Parameter {
	c := *p
	return &c
}

// URI references an external resource, such as an image used as a height map.
type URI struct {
	base
	Value string
}

func NewURI(name, desc, value, onChange string) *URI {
	return &URI{base: newBase(name, desc, onChange), Value: value}
}

func (p *URI) Type() Type { return TypeURI }

func (p *URI) Clone() Parameter {
	c := *p
	return &c
}

// URIList is an ordered list of URIs.
type URIList struct {
	base
	Values []string
}

func NewURIList(name, desc string, values []string, onChange string) *URIList {
	return &URIList{base: newBase(name, desc, onChange), Values: values}
}

func (p *URIList) Type() Type { return TypeURIList }

func (p *URIList) Clone() Parameter {
	c := *p
	c.Values = append([]string(nil), p.Values...)
	return &c
}

// Location is a picked point on a surface plus the surface normal. Either part may be unset.
type Location struct {
	base
	Point  *geometry.Vector3
	Normal *geometry.Vector3
}

func NewLocation(name, desc string, point, normal *geometry.Vector3, onChange string) *Location {
	return &Location{base: newBase(name, desc, onChange), Point: point, Normal: normal}
}

func (p *Location) Type() Type { return TypeLocation }

func (p *Location) Clone() Parameter {
	c := *p
	if p.Point != nil {
		v := *p.Point
		c.Point = &v
	}
	if p.Normal != nil {
		v := *p.Normal
		c.Normal = &v
	}
	return &c
}
