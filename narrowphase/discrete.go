package narrowphase

import (
	"math"

	"github.com/akmonengine/impact/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// fallbackNormal is used whenever a direction cannot be normalized
var fallbackNormal = mgl64.Vec3{0, 1, 0}

// sphereSphere compares the center distance with the radius sum.
func sphereSphere(a, b actor.PosedShape) Result {
	radiusA := a.Shape.Radius()
	radiusB := b.Shape.Radius()

	delta := b.Center().Sub(a.Center())
	distance := delta.Len()
	if distance >= radiusA+radiusB {
		return noCollision()
	}

	normal := fallbackNormal
	if distance > 1e-12 {
		normal = delta.Mul(1.0 / distance)
	}

	surfaceA := a.Center().Add(normal.Mul(radiusA))
	surfaceB := b.Center().Sub(normal.Mul(radiusB))

	return Result{
		Collided:    true,
		Normal:      normal,
		Point:       surfaceA.Add(surfaceB).Mul(0.5),
		Penetration: radiusA + radiusB - distance,
		TOI:         1,
	}
}

// boxSphere clamps the sphere center into the box local space and measures
// the distance to the clamped point. A center inside the box is pushed out
// through the nearest face.
func boxSphere(box, sphere actor.PosedShape) Result {
	radius := sphere.Shape.Radius()
	half := box.Shape.HalfExtents
	local := box.Transform.ApplyInverse(sphere.Center())

	var clamped mgl64.Vec3
	inside := true
	for i := 0; i < 3; i++ {
		clamped[i] = math.Max(-half[i], math.Min(half[i], local[i]))
		if clamped[i] != local[i] {
			inside = false
		}
	}

	var localNormal mgl64.Vec3
	var penetration float64

	if inside {
		// Nearest face: smallest distance from the center to a face plane
		axis := 0
		minDepth := math.Inf(1)
		for i := 0; i < 3; i++ {
			if depth := half[i] - math.Abs(local[i]); depth < minDepth {
				minDepth = depth
				axis = i
			}
		}
		sign := 1.0
		if local[axis] < 0 {
			sign = -1.0
		}
		localNormal[axis] = sign
		clamped[axis] = sign * half[axis]
		penetration = radius + minDepth
	} else {
		diff := local.Sub(clamped)
		distance := diff.Len()
		if distance >= radius {
			return noCollision()
		}
		localNormal = diff.Mul(1.0 / distance)
		penetration = radius - distance
	}

	normal := box.Transform.RotateVector(localNormal)
	surfaceBox := box.Transform.Apply(clamped)
	surfaceSphere := sphere.Center().Sub(normal.Mul(radius))

	return Result{
		Collided:    true,
		Normal:      normal,
		Point:       surfaceBox.Add(surfaceSphere).Mul(0.5),
		Penetration: penetration,
		TOI:         1,
	}
}
