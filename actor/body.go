package actor

import "github.com/go-gl/mathgl/mgl64"

type Material struct {
	Density     float64
	Restitution float64 // 0= no rebound, 1= perfect restitution

	StaticFriction  float64
	DynamicFriction float64
	LinearDamping   float64 // 0.0 - 1.0, typical: 0.01
	AngularDamping  float64 // 0.0 - 1.0, typical: 0.05
}

// BodyParams is the snapshot of physical state the collision core reads from
// the integrator for one body.
type BodyParams struct {
	InverseMass float64
	// InverseInertia holds the principal inverse moments in local space
	InverseInertia mgl64.Vec3
	Material       Material

	PreviousTransform Transform
	Transform         Transform

	Velocity        mgl64.Vec3
	AngularVelocity mgl64.Vec3
}

// Body is implemented by the rigid-body integrator. The collision core never
// writes velocities: it reads Params and pushes impulses back through
// ApplyImpulse, which must be reflected by the next Params call.
type Body interface {
	Params() BodyParams
	ApplyImpulse(impulse mgl64.Vec3, worldPoint mgl64.Vec3)
}

// InverseInertiaWorld returns R * I_local^-1 * R^T
func (p BodyParams) InverseInertiaWorld() mgl64.Mat3 {
	if p.InverseInertia == (mgl64.Vec3{}) {
		return mgl64.Mat3{}
	}
	R := p.Transform.Orientation().Mat4().Mat3()
	return R.Mul3(mgl64.Diag3(p.InverseInertia)).Mul3(R.Transpose())
}

// VelocityAt returns the world velocity of the material point at worldPoint
func (p BodyParams) VelocityAt(worldPoint mgl64.Vec3) mgl64.Vec3 {
	r := worldPoint.Sub(p.Transform.Position)
	return p.Velocity.Add(p.AngularVelocity.Cross(r))
}

// IsStatic reports whether the body cannot be moved by impulses
func (p BodyParams) IsStatic() bool {
	return p.InverseMass == 0 && p.InverseInertia == (mgl64.Vec3{})
}
