package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// BodyType represents the type of rigid body
type BodyType int

const (
	// BodyTypeDynamic bodies are affected by forces, gravity, and collisions
	// They have finite mass and can move freely
	BodyTypeDynamic BodyType = iota

	// BodyTypeStatic bodies are immovable and have infinite mass
	// They are not affected by forces or gravity (e.g., ground, walls)
	BodyTypeStatic
)

// RigidBody is a minimal integrator implementing Body.
// It is what the example scene and the tests drive; engines with their own
// integrator only need to implement Body.
type RigidBody struct {
	// Spatial properties
	PreviousTransform Transform
	Transform         Transform

	Velocity        mgl64.Vec3 // Linear velocity (m/s)
	AngularVelocity mgl64.Vec3 // Rotation speed (rad/s)

	InertiaLocal        mgl64.Mat3
	InverseInertiaLocal mgl64.Mat3

	accumulatedForce  mgl64.Vec3
	accumulatedTorque mgl64.Vec3

	mass     float64
	Material Material
	BodyType BodyType

	Shape Shape
}

// NewRigidBody creates a new rigid body with the given properties
// density is used to calculate mass for dynamic bodies (ignored for static)
func NewRigidBody(transform Transform, shape Shape, bodyType BodyType, density float64) *RigidBody {
	transform.Rotation = transform.Orientation()
	rb := &RigidBody{
		PreviousTransform: transform,
		Transform:         transform,
		Shape:             shape,
		BodyType:          bodyType,
	}

	if bodyType == BodyTypeStatic {
		rb.mass = math.Inf(1)
		return rb
	}

	rb.Material = Material{Density: density}
	rb.mass = shape.ComputeMass(density)
	rb.InertiaLocal = shape.ComputeInertia(rb.mass)
	if rb.mass > 0 {
		rb.InverseInertiaLocal = rb.InertiaLocal.Inv()
	}

	return rb
}

func (rb *RigidBody) Mass() float64 {
	return rb.mass
}

func (rb *RigidBody) InverseMass() float64 {
	if rb.BodyType == BodyTypeStatic || rb.mass <= 0 || math.IsInf(rb.mass, 1) {
		return 0
	}
	return 1.0 / rb.mass
}

// Params implements Body
func (rb *RigidBody) Params() BodyParams {
	params := BodyParams{
		InverseMass:       rb.InverseMass(),
		Material:          rb.Material,
		PreviousTransform: rb.PreviousTransform,
		Transform:         rb.Transform,
		Velocity:          rb.Velocity,
		AngularVelocity:   rb.AngularVelocity,
	}
	if params.InverseMass > 0 {
		params.InverseInertia = rb.InverseInertiaLocal.Diag()
	}
	return params
}

// ApplyImpulse implements Body: the impulse changes velocities immediately so
// that the next solver iteration sees its effect.
func (rb *RigidBody) ApplyImpulse(impulse mgl64.Vec3, worldPoint mgl64.Vec3) {
	invMass := rb.InverseMass()
	if invMass == 0 {
		return
	}

	rb.Velocity = rb.Velocity.Add(impulse.Mul(invMass))
	r := worldPoint.Sub(rb.Transform.Position)
	rb.AngularVelocity = rb.AngularVelocity.Add(rb.GetInverseInertiaWorld().Mul3x1(r.Cross(impulse)))
}

// Integrate advances the body with semi-implicit Euler.
// The current transform is stored as PreviousTransform first, the collision
// core reads both for continuous detection.
func (rb *RigidBody) Integrate(dt float64, gravity mgl64.Vec3) {
	rb.PreviousTransform = rb.Transform
	if rb.BodyType == BodyTypeStatic {
		return
	}

	// Linear
	invMass := rb.InverseMass()
	acceleration := gravity.Add(rb.accumulatedForce.Mul(invMass))
	rb.Velocity = rb.Velocity.Add(acceleration.Mul(dt))
	rb.Velocity = rb.Velocity.Mul(math.Exp(-rb.Material.LinearDamping * dt))
	rb.Transform.Position = rb.Transform.Position.Add(rb.Velocity.Mul(dt))

	// Angular
	angularAccel := rb.GetInverseInertiaWorld().Mul3x1(rb.accumulatedTorque)
	rb.AngularVelocity = rb.AngularVelocity.Add(angularAccel.Mul(dt))
	rb.AngularVelocity = rb.AngularVelocity.Mul(math.Exp(-rb.Material.AngularDamping * dt))

	omegaQuat := mgl64.Quat{V: rb.AngularVelocity, W: 0}
	qDot := omegaQuat.Mul(rb.Transform.Rotation).Scale(0.5)
	rb.Transform.Rotation = rb.Transform.Rotation.Add(qDot.Scale(dt)).Normalize()

	rb.ClearForces()
}

func (rb *RigidBody) AddForce(force mgl64.Vec3) {
	if rb.BodyType != BodyTypeStatic {
		rb.accumulatedForce = rb.accumulatedForce.Add(force)
	}
}

func (rb *RigidBody) AddTorque(torque mgl64.Vec3) {
	if rb.BodyType != BodyTypeStatic {
		rb.accumulatedTorque = rb.accumulatedTorque.Add(torque)
	}
}

func (rb *RigidBody) ClearForces() {
	rb.accumulatedForce = mgl64.Vec3{0, 0, 0}
	rb.accumulatedTorque = mgl64.Vec3{0, 0, 0}
}

// GetInverseInertiaWorld returns I_world^(-1) = R * I_local^(-1) * R^T
func (rb *RigidBody) GetInverseInertiaWorld() mgl64.Mat3 {
	if rb.InverseMass() == 0 {
		return mgl64.Mat3{}
	}

	R := rb.Transform.Orientation().Mat4().Mat3()
	return R.Mul3(rb.InverseInertiaLocal).Mul3(R.Transpose())
}
