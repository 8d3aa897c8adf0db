package constraint

import (
	"math"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/narrowphase"
	"github.com/go-gl/mathgl/mgl64"
)

// Accumulated is the impulse record of a contact, kept across frames for warm starting.
type Accumulated struct {
	NormalImpulse   float64
	FrictionImpulse mgl64.Vec3
}

// Contact is a single contact point between bodies A and B, with the normal
// pointing from A toward B. Impulses returned by the solve methods are the
// ones to apply to B; A receives the opposite.
type Contact struct {
	Normal      mgl64.Vec3
	Point       mgl64.Vec3
	Penetration float64

	// accumulated impulses
	normalLambda   float64
	frictionLambda mgl64.Vec3

	// frame constants, set by Prepare
	rA, rB          mgl64.Vec3
	normalMass      float64
	targetVelocity  float64
	staticFriction  float64
	dynamicFriction float64

	// change of the last normal + friction solve, for convergence
	lastDelta float64
}

// NewContact creates a contact from a positive detection result.
func NewContact(result narrowphase.Result) *Contact {
	return &Contact{
		Normal:      result.Normal,
		Point:       result.Point,
		Penetration: result.Penetration,
		lastDelta:   math.Inf(1),
	}
}

// Prepare computes the frame constants: lever arms, effective normal mass,
// combined materials and the restitution target. The target is derived from
// the approach velocity before any impulse of this frame, and is zero when
// approaching slower than RestitutionThreshold.
//
// Lever arms are taken from a.Transform and b.Transform: for a contact found
// mid-frame, pass the transforms at the time of impact.
func (c *Contact) Prepare(a, b actor.BodyParams, config Config) {
	c.rA = c.Point.Sub(a.Transform.Position)
	c.rB = c.Point.Sub(b.Transform.Position)
	c.normalMass = inverseOf(effectiveMass(a, b, c.rA, c.rB, c.Normal))

	c.staticFriction = ComputeStaticFriction(a.Material, b.Material)
	c.dynamicFriction = ComputeDynamicFriction(a.Material, b.Material)

	c.targetVelocity = 0
	approach := c.relativeVelocity(a, b).Dot(c.Normal)
	if approach < -config.RestitutionThreshold {
		c.targetVelocity = -ComputeRestitution(a.Material, b.Material) * approach
	}
}

// WarmStart seeds the accumulated impulses with last frame's, scaled by
// factor, and returns the impulse to apply to B. The friction impulse is
// projected onto the current tangent plane.
func (c *Contact) WarmStart(previous Accumulated, factor float64) mgl64.Vec3 {
	c.normalLambda = math.Max(0, previous.NormalImpulse*factor)

	friction := previous.FrictionImpulse.Mul(factor)
	c.frictionLambda = friction.Sub(c.Normal.Mul(friction.Dot(c.Normal)))

	return c.Normal.Mul(c.normalLambda).Add(c.frictionLambda)
}

// SolveNormalImpulse solves the non-penetration constraint along the normal.
//
// The target separating velocity is the restitution target plus biasSpeed.
// The accumulated impulse is clamped to stay non-negative (contacts
// only push); the returned vector is the change to apply to B this iteration.
func (c *Contact) SolveNormalImpulse(a, b actor.BodyParams, biasSpeed float64) mgl64.Vec3 {
	if c.normalMass == 0 {
		c.lastDelta = 0
		return mgl64.Vec3{}
	}

	normalVelocity := c.relativeVelocity(a, b).Dot(c.Normal)
	target := c.targetVelocity + biasSpeed

	lambda := (target - normalVelocity) * c.normalMass

	previous := c.normalLambda
	c.normalLambda = math.Max(previous+lambda, 0)
	delta := c.normalLambda - previous

	c.lastDelta = math.Abs(delta)
	return c.Normal.Mul(delta)
}

// SolveFrictionImpulse drives the tangential velocity toward zero.
//
// The accumulated friction impulse is clamped to the Coulomb cone of radius
// mu * normal impulse, with mu the static coefficient when sliding slower than
// StaticFrictionSpeed and the dynamic one otherwise. Call it after
// SolveNormalImpulse; the returned vector is the change to apply to B.
func (c *Contact) SolveFrictionImpulse(a, b actor.BodyParams, config Config) mgl64.Vec3 {
	velocity := c.relativeVelocity(a, b)
	tangentVelocity := velocity.Sub(c.Normal.Mul(velocity.Dot(c.Normal)))
	speed := tangentVelocity.Len()

	// Not sliding: nothing to drive, the accumulated impulse is only brought
	// back inside the cone
	var tangent mgl64.Vec3
	if speed < 1e-12 {
		speed = 0
		tangent, _ = actor.GetTangentBasis(c.Normal)
	} else {
		tangent = tangentVelocity.Mul(1.0 / speed)
	}

	tangentMass := inverseOf(effectiveMass(a, b, c.rA, c.rB, tangent))
	if tangentMass == 0 {
		return mgl64.Vec3{}
	}

	mu := c.dynamicFriction
	if speed < config.StaticFrictionSpeed {
		mu = c.staticFriction
	}
	maxFriction := mu * c.normalLambda

	previous := c.frictionLambda
	accumulated := previous.Add(tangent.Mul(-speed * tangentMass))
	if length := accumulated.Len(); length > maxFriction {
		if length > 0 {
			accumulated = accumulated.Mul(maxFriction / length)
		}
	}
	c.frictionLambda = accumulated
	delta := accumulated.Sub(previous)

	c.lastDelta += delta.Len()
	return delta
}

// Converged reports whether the last normal + friction solve changed the
// accumulated impulses by less than tolerance, both in absolute terms and
// relative to their magnitude. A light contact has to settle as precisely as a
// heavy one.
func (c *Contact) Converged(tolerance float64) bool {
	magnitude := c.normalLambda + c.frictionLambda.Len()
	return c.lastDelta < tolerance && c.lastDelta <= tolerance*magnitude
}

// LeverArms returns the contact point relative to the centers of A and B, as
// set by Prepare.
func (c *Contact) LeverArms() (mgl64.Vec3, mgl64.Vec3) {
	return c.rA, c.rB
}

// Accumulated returns the impulses accumulated so far.
func (c *Contact) Accumulated() Accumulated {
	return Accumulated{NormalImpulse: c.normalLambda, FrictionImpulse: c.frictionLambda}
}

// relativeVelocity is the velocity of B relative to A at the contact point
func (c *Contact) relativeVelocity(a, b actor.BodyParams) mgl64.Vec3 {
	vA := a.Velocity.Add(a.AngularVelocity.Cross(c.rA))
	vB := b.Velocity.Add(b.AngularVelocity.Cross(c.rB))
	return vB.Sub(vA)
}

// effectiveMass returns the inverse effective mass along direction:
// 1/mA + 1/mB + (rA x d)·IA^-1(rA x d) + (rB x d)·IB^-1(rB x d)
func effectiveMass(a, b actor.BodyParams, rA, rB, direction mgl64.Vec3) float64 {
	rACrossD := rA.Cross(direction)
	rBCrossD := rB.Cross(direction)

	angularA := a.InverseInertiaWorld().Mul3x1(rACrossD).Dot(rACrossD)
	angularB := b.InverseInertiaWorld().Mul3x1(rBCrossD).Dot(rBCrossD)

	return a.InverseMass + b.InverseMass + angularA + angularB
}

// inverseOf returns 1/k, or 0 when both bodies are immovable along the direction
func inverseOf(k float64) float64 {
	if k < 1e-12 {
		return 0
	}
	return 1.0 / k
}
