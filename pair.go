package impact

import (
	"cmp"

	"github.com/akmonengine/impact/constraint"
	"github.com/akmonengine/impact/narrowphase"
	"github.com/go-gl/mathgl/mgl64"
)

// ShapeID identifies a registered shape. Ids are never reused.
type ShapeID uint32

type pairKey struct {
	a ShapeID
	b ShapeID
}

// makePairKey creates a normalized pair key with the smaller id first
func makePairKey(a, b ShapeID) pairKey {
	if b < a {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

func comparePairKeys(x, y pairKey) int {
	if c := cmp.Compare(x.a, y.a); c != 0 {
		return c
	}
	return cmp.Compare(x.b, y.b)
}

// CollisionPair is the state kept for two shapes whose fat boxes overlap.
// It lives from the first frame of broad-phase overlap until the overlap is
// lost or either shape is unregistered.
type CollisionPair struct {
	A, B ShapeID
	// Trigger is set when either shape is a trigger: detected, never solved
	Trigger bool
	// Collided is the narrow-phase outcome of the last completed step
	Collided bool
	// Converged is reset every step and set once the solver stops changing the impulses
	Converged bool
	// Accumulated are the impulses of the last step, reused to warm start
	Accumulated constraint.Accumulated
	// Result is the detection result of the last step
	Result narrowphase.Result

	// last positive result, carried by Exit events
	last    narrowphase.Result
	contact *constraint.Contact
	shapeA  *shapeEntry
	shapeB  *shapeEntry

	// where the solver impulses are applied on each body, relative to its
	// current transform
	pointA, pointB mgl64.Vec3
}

func (p *CollisionPair) key() pairKey {
	return pairKey{a: p.A, b: p.B}
}
