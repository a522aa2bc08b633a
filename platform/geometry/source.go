// Package geometry holds the contract between the script evaluator and the geometry kernel.
//
// The kernel itself (voxelization, meshing, slicing) lives outside this module. Scripts only build
// a description of the shape out of data-source nodes; the evaluator hands that description back
// as an opaque geometry handle together with its bounding volume.
package geometry

import (
	"fmt"
	"math"
)

// Source is a node in a procedural shape description.
type Source interface {
	// Kind names the node type, e.g. "Sphere" or "Union".
	Kind() string
	// Bounds returns a box that contains the node's geometry.
	Bounds() Bounds
}

// Sphere is a solid ball.
type Sphere struct {
	Center Vector3
	Radius float64
}

func (s *Sphere) Kind() string { return "Sphere" }

func (s *Sphere) Bounds() Bounds {
	r := math.Abs(s.Radius)
	return CenteredBounds(s.Center, Vector3{2 * r, 2 * r, 2 * r})
}

// Box is a solid axis-aligned box.
type Box struct {
	Center Vector3
	Size   Vector3
}

func (b *Box) Kind() string { return "Box" }

func (b *Box) Bounds() Bounds { return CenteredBounds(b.Center, b.Size) }

// Cylinder is a solid cylinder between two end points.
type Cylinder struct {
	V0, V1 Vector3
	Radius float64
}

func (c *Cylinder) Kind() string { return "Cylinder" }

func (c *Cylinder) Bounds() Bounds {
	r := math.Abs(c.Radius)
	b := NewBounds(c.V0[0], c.V1[0], c.V0[1], c.V1[1], c.V0[2], c.V1[2])
	return Bounds{
		XMin: b.XMin - r, XMax: b.XMax + r,
		YMin: b.YMin - r, YMax: b.YMax + r,
		ZMin: b.ZMin - r, ZMax: b.ZMax + r,
	}
}

// Operation is the boolean combination applied by a Composite.
type Operation string

const (
	OpUnion        Operation = "Union"
	OpIntersection Operation = "Intersection"
	OpSubtraction  Operation = "Subtraction"
)

// Composite combines child sources with a boolean operation. Subtraction removes every child
// after the first from the first.
type Composite struct {
	Op       Operation
	Children []Source
}

// NewComposite validates the child count for op.
func NewComposite(op Operation, children ...Source) (*Composite, error) {
	switch op {
	case OpUnion, OpIntersection:
		if len(children) == 0 {
			return nil, fmt.Errorf("%s requires at least one source", op)
		}
	case OpSubtraction:
		if len(children) < 2 {
			return nil, fmt.Errorf("%s requires two sources", op)
		}
	default:
		return nil, fmt.Errorf("unknown operation %q", op)
	}
	return &Composite{Op: op, Children: children}, nil
}

func (c *Composite) Kind() string { return string(c.Op) }

func (c *Composite) Bounds() Bounds {
	b := c.Children[0].Bounds()
	switch c.Op {
	case OpUnion:
		for _, ch := range c.Children[1:] {
			b = b.Union(ch.Bounds())
		}
	case OpIntersection:
		for _, ch := range c.Children[1:] {
			b = b.Intersect(ch.Bounds())
		}
	}
	return b
}

// Translation moves a child source by Offset.
type Translation struct {
	Child  Source
	Offset Vector3
}

func (t *Translation) Kind() string { return "Translation" }

func (t *Translation) Bounds() Bounds { return t.Child.Bounds().Translate(t.Offset) }

// Scaling scales a child source about the origin.
type Scaling struct {
	Child  Source
	Factor Vector3
}

func (s *Scaling) Kind() string { return "Scale" }

func (s *Scaling) Bounds() Bounds { return s.Child.Bounds().Scale(s.Factor) }
