package geometry

import "fmt"

// Shape is what a script's main handler returns: a geometry handle plus its bounding volume.
type Shape interface {
	GeometryHandle() Source
	Bounds() Bounds
}

// BasicShape is the Shape produced by the built-in Shape() constructor.
type BasicShape struct {
	source Source
	bounds Bounds
}

// NewShape wraps source. A nil bounds uses the source's own bounds.
func NewShape(source Source, bounds *Bounds) *BasicShape {
	s := &BasicShape{source: source}
	if bounds != nil {
		s.bounds = *bounds
	} else if source != nil {
		s.bounds = source.Bounds()
	}
	return s
}

func (s *BasicShape) GeometryHandle() Source { return s.source }

func (s *BasicShape) Bounds() Bounds { return s.bounds }

func (s *BasicShape) String() string {
	kind := "<nil>"
	if s.source != nil {
		kind = s.source.Kind()
	}
	return fmt.Sprintf("Shape{source: %s, bounds: %s}", kind, s.bounds)
}
