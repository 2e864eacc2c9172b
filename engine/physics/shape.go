package physics

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/spaghettifunk/playground/engine/core"
	"github.com/spaghettifunk/playground/engine/math"
)

type ShapeType int

const (
	ShapeBox ShapeType = iota
	ShapeSphere
	ShapeCompound
)

// ChildShape places a shape inside a compound.
type ChildShape struct {
	Offset   mgl32.Vec3
	Rotation mgl32.Quat
	Shape    *Shape

	baseOffset mgl32.Vec3
}

// Shape is a collision shape. The unscaled dimensions are kept so a new scale can
// always be applied from scratch.
type Shape struct {
	Type        ShapeType
	HalfExtents mgl32.Vec3 // For Box
	Radius      float32    // For Sphere
	Children    []*ChildShape

	baseHalfExtents mgl32.Vec3
	baseRadius      float32
	scale           mgl32.Vec3
}

func NewBoxShape(halfExtents mgl32.Vec3) *Shape {
	return &Shape{
		Type:            ShapeBox,
		HalfExtents:     halfExtents,
		baseHalfExtents: halfExtents,
		scale:           mgl32.Vec3{1, 1, 1},
	}
}

func NewSphereShape(radius float32) *Shape {
	return &Shape{
		Type:       ShapeSphere,
		Radius:     radius,
		baseRadius: radius,
		scale:      mgl32.Vec3{1, 1, 1},
	}
}

func NewChildShape(offset mgl32.Vec3, rotation mgl32.Quat, shape *Shape) *ChildShape {
	return &ChildShape{
		Offset:     offset,
		Rotation:   rotation,
		Shape:      shape,
		baseOffset: offset,
	}
}

func NewCompoundShape(children ...*ChildShape) *Shape {
	return &Shape{
		Type:     ShapeCompound,
		Children: children,
		scale:    mgl32.Vec3{1, 1, 1},
	}
}

func (s *Shape) Scale() mgl32.Vec3 {
	return s.scale
}

// SetScale recomputes the dimensions from the unscaled ones. Spheres stay spheres and
// take the largest scale component.
func (s *Shape) SetScale(scale mgl32.Vec3) {
	abs := mgl32.Vec3{mgl32.Abs(scale.X()), mgl32.Abs(scale.Y()), mgl32.Abs(scale.Z())}
	switch s.Type {
	case ShapeBox:
		s.HalfExtents = mulElem(s.baseHalfExtents, abs)
	case ShapeSphere:
		s.Radius = s.baseRadius * math.MaxComponent(abs)
	case ShapeCompound:
		for _, c := range s.Children {
			c.Offset = mulElem(c.baseOffset, scale)
			c.Shape.SetScale(scale)
		}
	default:
		core.Assertf(false, core.ErrUnsupportedFormat, "cannot scale shape type %d", s.Type)
	}
	s.scale = scale
}

// Bounds returns the half extents of an axis aligned box around the shape, ignoring
// the rotation of the body.
func (s *Shape) Bounds() mgl32.Vec3 {
	switch s.Type {
	case ShapeBox:
		return s.HalfExtents
	case ShapeSphere:
		return mgl32.Vec3{s.Radius, s.Radius, s.Radius}
	case ShapeCompound:
		var out mgl32.Vec3
		for _, c := range s.Children {
			b := c.Shape.Bounds()
			for i := 0; i < 3; i++ {
				out[i] = max(out[i], mgl32.Abs(c.Offset[i])+b[i])
			}
		}
		return out
	}
	core.Assertf(false, core.ErrUnsupportedFormat, "no bounds for shape type %d", s.Type)
	return mgl32.Vec3{}
}

func mulElem(a, b mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{a.X() * b.X(), a.Y() * b.Y(), a.Z() * b.Z()}
}
