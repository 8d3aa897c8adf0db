package actor

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestNewRigidBody_Static(t *testing.T) {
	rb := NewRigidBody(NewTransform(), NewBox(mgl64.Vec3{1, 1, 1}), BodyTypeStatic, 10)

	params := rb.Params()
	if params.InverseMass != 0 {
		t.Errorf("static body InverseMass = %v, want 0", params.InverseMass)
	}
	if !params.IsStatic() {
		t.Error("static body should report IsStatic")
	}
}

func TestNewRigidBody_Dynamic(t *testing.T) {
	rb := NewRigidBody(Transform{Position: mgl64.Vec3{0, 1, 0}}, NewSphere(1), BodyTypeDynamic, 1)

	if rb.Transform.Rotation != mgl64.QuatIdent() {
		t.Errorf("zero rotation should be normalized to identity, got %v", rb.Transform.Rotation)
	}

	expectedMass := 4.0 / 3.0 * math.Pi
	if !floatEqual(rb.Mass(), expectedMass, 1e-9) {
		t.Errorf("Mass() = %v, want %v", rb.Mass(), expectedMass)
	}

	params := rb.Params()
	if !floatEqual(params.InverseMass, 1/expectedMass, 1e-9) {
		t.Errorf("InverseMass = %v", params.InverseMass)
	}
	inertia := 0.4 * expectedMass
	if !vec3Equal(params.InverseInertia, mgl64.Vec3{1 / inertia, 1 / inertia, 1 / inertia}, 1e-9) {
		t.Errorf("InverseInertia = %v", params.InverseInertia)
	}
}

func TestIntegrate_WithGravity(t *testing.T) {
	rb := NewRigidBody(NewTransform(), NewSphere(1), BodyTypeDynamic, 1)
	gravity := mgl64.Vec3{0, -10, 0}

	rb.Integrate(0.1, gravity)

	if !vec3Equal(rb.Velocity, mgl64.Vec3{0, -1, 0}, 1e-9) {
		t.Errorf("Velocity = %v, want (0,-1,0)", rb.Velocity)
	}
	if !vec3Equal(rb.Transform.Position, mgl64.Vec3{0, -0.1, 0}, 1e-9) {
		t.Errorf("Position = %v, want (0,-0.1,0)", rb.Transform.Position)
	}
	if rb.PreviousTransform.Position != (mgl64.Vec3{}) {
		t.Errorf("PreviousTransform should hold the pre-step position, got %v", rb.PreviousTransform.Position)
	}
}

func TestIntegrate_Static_NoMovement(t *testing.T) {
	rb := NewRigidBody(NewTransform(), NewBox(mgl64.Vec3{1, 1, 1}), BodyTypeStatic, 0)
	rb.Integrate(0.1, mgl64.Vec3{0, -10, 0})
	if rb.Transform.Position != (mgl64.Vec3{}) || rb.Velocity != (mgl64.Vec3{}) {
		t.Error("static body must not move")
	}
}

func TestIntegrate_AngularVelocity(t *testing.T) {
	rb := NewRigidBody(NewTransform(), NewBox(mgl64.Vec3{1, 1, 1}), BodyTypeDynamic, 1)
	rb.AngularVelocity = mgl64.Vec3{0, 0, math.Pi}

	for i := 0; i < 100; i++ {
		rb.Integrate(0.005, mgl64.Vec3{})
	}

	// Half a second at π rad/s ≈ 90°
	expected := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})
	if math.Abs(rb.Transform.Rotation.Dot(expected)) < 0.999 {
		t.Errorf("Rotation = %v, want close to %v", rb.Transform.Rotation, expected)
	}
	if !floatEqual(rb.Transform.Rotation.Len(), 1, 1e-9) {
		t.Errorf("rotation must stay normalized, len=%v", rb.Transform.Rotation.Len())
	}
}

func TestIntegrate_ForcesAndTorques(t *testing.T) {
	rb := NewRigidBody(NewTransform(), NewBox(mgl64.Vec3{1, 1, 1}), BodyTypeDynamic, 1)
	torque := mgl64.Vec3{0, 0, 2}

	rb.AddForce(mgl64.Vec3{rb.Mass(), 0, 0})
	rb.AddTorque(torque)
	rb.Integrate(0.1, mgl64.Vec3{})

	if !vec3Equal(rb.Velocity, mgl64.Vec3{0.1, 0, 0}, 1e-9) {
		t.Errorf("Velocity = %v, want (0.1,0,0)", rb.Velocity)
	}
	expected := rb.InverseInertiaLocal.Mul3x1(torque).Mul(0.1)
	if !vec3Equal(rb.AngularVelocity, expected, 1e-9) {
		t.Errorf("AngularVelocity = %v, want %v", rb.AngularVelocity, expected)
	}

	// Forces only last one step
	rb.Integrate(0.1, mgl64.Vec3{})
	if !vec3Equal(rb.Velocity, mgl64.Vec3{0.1, 0, 0}, 1e-9) {
		t.Errorf("Velocity = %v, forces should have been cleared", rb.Velocity)
	}

	static := NewRigidBody(NewTransform(), NewBox(mgl64.Vec3{1, 1, 1}), BodyTypeStatic, 0)
	static.AddForce(mgl64.Vec3{100, 0, 0})
	static.AddTorque(torque)
	static.Integrate(0.1, mgl64.Vec3{})
	if static.Velocity != (mgl64.Vec3{}) || static.AngularVelocity != (mgl64.Vec3{}) {
		t.Error("static body must ignore forces")
	}
}

func TestApplyImpulse(t *testing.T) {
	t.Run("through the center only changes linear velocity", func(t *testing.T) {
		rb := NewRigidBody(NewTransform(), NewSphere(1), BodyTypeDynamic, 1)
		rb.ApplyImpulse(mgl64.Vec3{rb.Mass(), 0, 0}, mgl64.Vec3{})

		if !vec3Equal(rb.Velocity, mgl64.Vec3{1, 0, 0}, 1e-9) {
			t.Errorf("Velocity = %v, want (1,0,0)", rb.Velocity)
		}
		if rb.AngularVelocity != (mgl64.Vec3{}) {
			t.Errorf("AngularVelocity = %v, want zero", rb.AngularVelocity)
		}
	})

	t.Run("off-center adds spin", func(t *testing.T) {
		rb := NewRigidBody(NewTransform(), NewBox(mgl64.Vec3{1, 1, 1}), BodyTypeDynamic, 1)
		rb.ApplyImpulse(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})

		// r × J = (0,1,0) × (1,0,0) = (0,0,-1)
		if rb.AngularVelocity.Z() >= 0 {
			t.Errorf("AngularVelocity.Z = %v, expected negative", rb.AngularVelocity.Z())
		}
	})

	t.Run("static body ignores impulses", func(t *testing.T) {
		rb := NewRigidBody(NewTransform(), NewBox(mgl64.Vec3{1, 1, 1}), BodyTypeStatic, 0)
		rb.ApplyImpulse(mgl64.Vec3{100, 0, 0}, mgl64.Vec3{0, 1, 0})
		if rb.Velocity != (mgl64.Vec3{}) || rb.AngularVelocity != (mgl64.Vec3{}) {
			t.Error("static body must not react to impulses")
		}
	})
}

func TestParams_InverseInertiaWorld(t *testing.T) {
	rb := NewRigidBody(Transform{Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})}, NewBox(mgl64.Vec3{1, 2, 3}), BodyTypeDynamic, 1)

	params := rb.Params()
	world := params.InverseInertiaWorld()
	reference := rb.GetInverseInertiaWorld()
	for i := 0; i < 9; i++ {
		if !floatEqual(world[i], reference[i], 1e-9) {
			t.Fatalf("InverseInertiaWorld() = %v, want %v", world, reference)
		}
	}

	// 90° around Z swaps the X and Y principal moments
	if !floatEqual(world.At(0, 0), params.InverseInertia.Y(), 1e-9) {
		t.Errorf("world Ixx^-1 = %v, want %v", world.At(0, 0), params.InverseInertia.Y())
	}
}

func TestParams_VelocityAt(t *testing.T) {
	params := BodyParams{
		Transform:       NewTransform(),
		Velocity:        mgl64.Vec3{1, 0, 0},
		AngularVelocity: mgl64.Vec3{0, 0, 1},
	}
	// ω × r = (0,0,1) × (0,1,0) = (-1,0,0)
	if v := params.VelocityAt(mgl64.Vec3{0, 1, 0}); !vec3Equal(v, mgl64.Vec3{0, 0, 0}, 1e-9) {
		t.Errorf("VelocityAt() = %v, want zero", v)
	}
}

func TestInterpolate(t *testing.T) {
	from := Transform{Position: mgl64.Vec3{0, 0, 0}, Rotation: mgl64.QuatIdent()}
	to := Transform{Position: mgl64.Vec3{2, 4, 0}, Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})}

	mid := Interpolate(from, to, 0.5)
	if !vec3Equal(mid.Position, mgl64.Vec3{1, 2, 0}, 1e-9) {
		t.Errorf("Position = %v, want (1,2,0)", mid.Position)
	}
	expected := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0})
	if math.Abs(mid.Rotation.Dot(expected)) < 1-1e-9 {
		t.Errorf("Rotation = %v, want %v", mid.Rotation, expected)
	}
}
