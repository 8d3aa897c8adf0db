package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ShapeType represents the type of collision shape
type ShapeType int

const (
	ShapeTypeSphere ShapeType = iota
	ShapeTypeBox
)

func (t ShapeType) String() string {
	switch t {
	case ShapeTypeSphere:
		return "sphere"
	case ShapeTypeBox:
		return "box"
	}
	return "unknown"
}

// Shape is a convex collision primitive.
// The set of primitives is closed: every operation switches on Type.
// Boxes use HalfExtents directly; spheres store their radius on every
// component of HalfExtents.
type Shape struct {
	Type        ShapeType
	HalfExtents mgl64.Vec3
}

// NewBox creates a box defined by its half-extents (half-width, half-height, half-depth)
func NewBox(halfExtents mgl64.Vec3) Shape {
	return Shape{Type: ShapeTypeBox, HalfExtents: halfExtents}
}

// NewSphere creates a sphere of the given radius
func NewSphere(radius float64) Shape {
	return Shape{Type: ShapeTypeSphere, HalfExtents: mgl64.Vec3{radius, radius, radius}}
}

// Radius returns the sphere radius, or the bounding radius for a box
func (s Shape) Radius() float64 {
	if s.Type == ShapeTypeSphere {
		return s.HalfExtents.X()
	}
	return s.HalfExtents.Len()
}

// MinExtent returns the smallest half-extent of the shape
func (s Shape) MinExtent() float64 {
	return math.Min(s.HalfExtents.X(), math.Min(s.HalfExtents.Y(), s.HalfExtents.Z()))
}

// Valid reports whether the shape has a known type and strictly positive, finite extents
func (s Shape) Valid() bool {
	if s.Type != ShapeTypeSphere && s.Type != ShapeTypeBox {
		return false
	}
	for _, h := range s.HalfExtents {
		if !(h > 0) || math.IsInf(h, 0) {
			return false
		}
	}
	return true
}

// ComputeAABB calculates the tight axis-aligned bounding box for the shape
// at the given transform
func (s Shape) ComputeAABB(transform Transform) AABB {
	if s.Type == ShapeTypeSphere {
		// Sphere AABB is not affected by rotation, only by position
		radiusVec := mgl64.Vec3{s.Radius(), s.Radius(), s.Radius()}
		return AABB{
			Min: transform.Position.Sub(radiusVec),
			Max: transform.Position.Add(radiusVec),
		}
	}

	// Projected half-extent on each world axis: sum of |axis_i| * h_i
	basis := transform.Basis()
	var extent mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		for i := 0; i < 3; i++ {
			extent[axis] += math.Abs(basis[i][axis]) * s.HalfExtents[i]
		}
	}

	return AABB{
		Min: transform.Position.Sub(extent),
		Max: transform.Position.Add(extent),
	}
}

// ComputeMass calculates the mass of the shape given a density
func (s Shape) ComputeMass(density float64) float64 {
	switch s.Type {
	case ShapeTypeSphere:
		// Volume of sphere = (4/3) * π * r³
		return density * (4.0 / 3.0) * math.Pi * math.Pow(s.Radius(), 3)
	case ShapeTypeBox:
		// Volume = 8 * hx * hy * hz (full dimensions are 2*halfExtents)
		return density * 8.0 * s.HalfExtents.X() * s.HalfExtents.Y() * s.HalfExtents.Z()
	}
	return 0
}

// ComputeInertia returns the local inertia tensor for the given mass
func (s Shape) ComputeInertia(mass float64) mgl64.Mat3 {
	switch s.Type {
	case ShapeTypeSphere:
		// I = (2/5) * m * r², identical on all axes
		i := (2.0 / 5.0) * mass * s.Radius() * s.Radius()
		return mgl64.Diag3(mgl64.Vec3{i, i, i})
	case ShapeTypeBox:
		x := s.HalfExtents.X() * 2
		y := s.HalfExtents.Y() * 2
		z := s.HalfExtents.Z() * 2

		// I = (m/12) * (dimension1² + dimension2²)
		factor := mass / 12.0
		return mgl64.Diag3(mgl64.Vec3{
			factor * (y*y + z*z),
			factor * (x*x + z*z),
			factor * (x*x + y*y),
		})
	}
	return mgl64.Mat3{}
}

// Support returns the farthest local point of the shape in the given local direction
func (s Shape) Support(direction mgl64.Vec3) mgl64.Vec3 {
	switch s.Type {
	case ShapeTypeSphere:
		if direction.LenSqr() < 1e-20 {
			return mgl64.Vec3{s.Radius(), 0, 0}
		}
		return direction.Normalize().Mul(s.Radius())
	case ShapeTypeBox:
		hx, hy, hz := s.HalfExtents.X(), s.HalfExtents.Y(), s.HalfExtents.Z()
		if direction.X() < 0 {
			hx = -hx
		}
		if direction.Y() < 0 {
			hy = -hy
		}
		if direction.Z() < 0 {
			hz = -hz
		}
		return mgl64.Vec3{hx, hy, hz}
	}
	return mgl64.Vec3{}
}

// GetContactFeature returns, in local space, the face of a box whose normal is
// the most aligned with direction (4 vertices, counter-clockwise seen from
// outside), or the single support point of a sphere.
func (s Shape) GetContactFeature(direction mgl64.Vec3) []mgl64.Vec3 {
	if s.Type == ShapeTypeSphere {
		return []mgl64.Vec3{s.Support(direction)}
	}

	hx := s.HalfExtents.X()
	hy := s.HalfExtents.Y()
	hz := s.HalfExtents.Z()

	// Dominant axis of the direction selects the face
	axis := 0
	best := math.Abs(direction[0])
	for i := 1; i < 3; i++ {
		if math.Abs(direction[i]) > best {
			best = math.Abs(direction[i])
			axis = i
		}
	}
	positive := direction[axis] >= 0

	switch {
	case axis == 0 && positive:
		return []mgl64.Vec3{{hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}, {hx, -hy, hz}}
	case axis == 0:
		return []mgl64.Vec3{{-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}, {-hx, -hy, -hz}}
	case axis == 1 && positive:
		return []mgl64.Vec3{{-hx, hy, -hz}, {-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}}
	case axis == 1:
		return []mgl64.Vec3{{-hx, -hy, hz}, {-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}}
	case positive:
		return []mgl64.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}}
	default:
		return []mgl64.Vec3{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}}
	}
}

// PosedShape is a shape placed in the world by a transform
type PosedShape struct {
	Shape     Shape
	Transform Transform
}

// SupportWorld returns the farthest world point of the posed shape in a world direction
func (p PosedShape) SupportWorld(direction mgl64.Vec3) mgl64.Vec3 {
	// 1. direction into local space, 2. local support, 3. back into world space
	localDirection := p.Transform.InverseRotateVector(direction)
	return p.Transform.Apply(p.Shape.Support(localDirection))
}

// Center returns the world position of the shape origin
func (p PosedShape) Center() mgl64.Vec3 {
	return p.Transform.Position
}

// GetTangentBasis builds two unit vectors orthogonal to normal and to each other
func GetTangentBasis(normal mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var tangent1 mgl64.Vec3
	if math.Abs(normal.X()) > 0.9 {
		tangent1 = mgl64.Vec3{0, 1, 0}
	} else {
		tangent1 = mgl64.Vec3{1, 0, 0}
	}

	tangent1 = tangent1.Sub(normal.Mul(tangent1.Dot(normal))).Normalize()
	tangent2 := normal.Cross(tangent1).Normalize()

	return tangent1, tangent2
}
