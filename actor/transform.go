package actor

import "github.com/go-gl/mathgl/mgl64"

// Transform represents a position and an orientation in 3D space
type Transform struct {
	Position mgl64.Vec3
	Rotation mgl64.Quat
}

// NewTransform creates an identity transform
func NewTransform() Transform {
	return Transform{
		Position: mgl64.Vec3{0, 0, 0},
		Rotation: mgl64.QuatIdent(),
	}
}

// Orientation returns the rotation, treating the zero quaternion as identity
// so that literal transforms such as Transform{Position: p} stay usable.
func (t Transform) Orientation() mgl64.Quat {
	if t.Rotation.W == 0 && t.Rotation.V == (mgl64.Vec3{}) {
		return mgl64.QuatIdent()
	}
	return t.Rotation
}

// Apply transforms a local point into world space
func (t Transform) Apply(local mgl64.Vec3) mgl64.Vec3 {
	return t.Position.Add(t.Orientation().Rotate(local))
}

// ApplyInverse transforms a world point into local space
func (t Transform) ApplyInverse(world mgl64.Vec3) mgl64.Vec3 {
	return t.Orientation().Conjugate().Rotate(world.Sub(t.Position))
}

// RotateVector rotates a local direction into world space
func (t Transform) RotateVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Orientation().Rotate(v)
}

// InverseRotateVector rotates a world direction into local space
func (t Transform) InverseRotateVector(v mgl64.Vec3) mgl64.Vec3 {
	return t.Orientation().Conjugate().Rotate(v)
}

// Basis returns the world-space local axes (columns of the rotation matrix)
func (t Transform) Basis() [3]mgl64.Vec3 {
	m := t.Orientation().Mat4().Mat3()
	return [3]mgl64.Vec3{m.Col(0), m.Col(1), m.Col(2)}
}

// Interpolate blends two transforms: linear on position, slerp on rotation.
func Interpolate(from, to Transform, alpha float64) Transform {
	return Transform{
		Position: from.Position.Add(to.Position.Sub(from.Position).Mul(alpha)),
		Rotation: mgl64.QuatSlerp(from.Orientation(), to.Orientation(), alpha).Normalize(),
	}
}
