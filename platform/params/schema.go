package params

import (
	"encoding/json"
	"math"

	"github.com/robbyt/go-shapescript/platform/geometry"
)

// Schema maps parameter names to parameters and remembers declaration order.
type Schema struct {
	order  []string
	params map[string]Parameter
}

// NewSchema creates an empty schema.
func NewSchema() *Schema {
	return &Schema{params: make(map[string]Parameter)}
}

// Put adds p, replacing any parameter with the same name while keeping its original position.
func (s *Schema) Put(p Parameter) {
	if _, exists := s.params[p.Name()]; !exists {
		s.order = append(s.order, p.Name())
	}
	s.params[p.Name()] = p
}

// Get returns the parameter called name.
func (s *Schema) Get(name string) (Parameter, bool) {
	if s == nil {
		return nil, false
	}
	p, ok := s.params[name]
	return p, ok
}

// Len returns the number of parameters.
func (s *Schema) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// Names returns parameter names in declaration order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Parameters returns the parameters in declaration order.
func (s *Schema) Parameters() []Parameter {
	if s == nil {
		return nil
	}
	out := make([]Parameter, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.params[name])
	}
	return out
}

// Clone deep-copies the schema, so the copy can be mutated without touching s.
func (s *Schema) Clone() *Schema {
	c := NewSchema()
	if s == nil {
		return c
	}
	for _, name := range s.order {
		c.Put(s.params[name].Clone())
	}
	return c
}

// Descriptor is the wire form of a parameter, mirroring what a script declares.
// Infinite range limits are omitted.
type Descriptor struct {
	Name     string            `json:"name"`
	Desc     string            `json:"desc,omitempty"`
	Type     Type              `json:"type"`
	OnChange string            `json:"onChange"`
	Value    any               `json:"value,omitempty"`
	RangeMin *float64          `json:"rangeMin,omitempty"`
	RangeMax *float64          `json:"rangeMax,omitempty"`
	Step     *float64          `json:"step,omitempty"`
	Point    *geometry.Vector3 `json:"point,omitempty"`
	Normal   *geometry.Vector3 `json:"normal,omitempty"`
}

// Describe converts p into its Descriptor.
func Describe(p Parameter) Descriptor {
	d := Descriptor{Name: p.Name(), Desc: p.Desc(), Type: p.Type(), OnChange: p.OnChange()}
	switch v := p.(type) {
	case *Double:
		d.Value = v.Value
		d.RangeMin = finite(v.RangeMin)
		d.RangeMax = finite(v.RangeMax)
		d.Step = finite(v.Step)
	case *String:
		d.Value = v.Value
	case *URI:
		d.Value = v.Value
	case *URIList:
		d.Value = v.Values
	case *Location:
		d.Point = v.Point
		d.Normal = v.Normal
	}
	return d
}

func finite(f float64) *float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return nil
	}
	return &f
}

// Descriptors returns the descriptors of all parameters in declaration order.
func (s *Schema) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, s.Len())
	for _, p := range s.Parameters() {
		out = append(out, Describe(p))
	}
	return out
}

// MarshalJSON encodes the schema as the ordered descriptor list.
func (s *Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Descriptors())
}
