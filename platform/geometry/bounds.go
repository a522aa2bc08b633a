package geometry

import (
	"fmt"
	"math"
)

// Vector3 is a point or direction in model space.
type Vector3 [3]float64

// Add returns the component-wise sum of two vectors.
func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Scale multiplies every component by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{v[0] * s, v[1] * s, v[2] * s}
}

func (v Vector3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2])
}

// Bounds is an axis-aligned bounding box. The zero value is an empty box at the origin.
type Bounds struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
	ZMin float64 `json:"zmin"`
	ZMax float64 `json:"zmax"`
}

// NewBounds creates bounds from min/max pairs, swapping any pair given in reverse.
func NewBounds(xmin, xmax, ymin, ymax, zmin, zmax float64) Bounds {
	return Bounds{
		XMin: math.Min(xmin, xmax), XMax: math.Max(xmin, xmax),
		YMin: math.Min(ymin, ymax), YMax: math.Max(ymin, ymax),
		ZMin: math.Min(zmin, zmax), ZMax: math.Max(zmin, zmax),
	}
}

// CenteredBounds creates bounds around center with the given full size along each axis.
func CenteredBounds(center, size Vector3) Bounds {
	h := size.Scale(0.5)
	return NewBounds(
		center[0]-h[0], center[0]+h[0],
		center[1]-h[1], center[1]+h[1],
		center[2]-h[2], center[2]+h[2],
	)
}

// Set copies o into b. Used for the bounds out-parameter, which is mutated in place.
func (b *Bounds) Set(o Bounds) {
	*b = o
}

// Union returns the smallest box containing both b and o.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		XMin: math.Min(b.XMin, o.XMin), XMax: math.Max(b.XMax, o.XMax),
		YMin: math.Min(b.YMin, o.YMin), YMax: math.Max(b.YMax, o.YMax),
		ZMin: math.Min(b.ZMin, o.ZMin), ZMax: math.Max(b.ZMax, o.ZMax),
	}
}

// Intersect returns the overlap of b and o. The result may be empty.
func (b Bounds) Intersect(o Bounds) Bounds {
	return Bounds{
		XMin: math.Max(b.XMin, o.XMin), XMax: math.Min(b.XMax, o.XMax),
		YMin: math.Max(b.YMin, o.YMin), YMax: math.Min(b.YMax, o.YMax),
		ZMin: math.Max(b.ZMin, o.ZMin), ZMax: math.Min(b.ZMax, o.ZMax),
	}
}

// Translate moves the box by offset.
func (b Bounds) Translate(offset Vector3) Bounds {
	return Bounds{
		XMin: b.XMin + offset[0], XMax: b.XMax + offset[0],
		YMin: b.YMin + offset[1], YMax: b.YMax + offset[1],
		ZMin: b.ZMin + offset[2], ZMax: b.ZMax + offset[2],
	}
}

// Scale scales the box about the origin, per axis.
func (b Bounds) Scale(factor Vector3) Bounds {
	return NewBounds(
		b.XMin*factor[0], b.XMax*factor[0],
		b.YMin*factor[1], b.YMax*factor[1],
		b.ZMin*factor[2], b.ZMax*factor[2],
	)
}

// IsEmpty reports whether the box has no volume on some axis.
func (b Bounds) IsEmpty() bool {
	return b.XMax <= b.XMin || b.YMax <= b.YMin || b.ZMax <= b.ZMin
}

// Center returns the midpoint of the box.
func (b Bounds) Center() Vector3 {
	return Vector3{(b.XMin + b.XMax) / 2, (b.YMin + b.YMax) / 2, (b.ZMin + b.ZMax) / 2}
}

// Size returns the extent of the box along each axis.
func (b Bounds) Size() Vector3 {
	return Vector3{b.XMax - b.XMin, b.YMax - b.YMin, b.ZMax - b.ZMin}
}

func (b Bounds) String() string {
	return fmt.Sprintf("Bounds{x:[%g,%g] y:[%g,%g] z:[%g,%g]}",
		b.XMin, b.XMax, b.YMin, b.YMax, b.ZMin, b.ZMax)
}
