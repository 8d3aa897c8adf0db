package narrowphase

import (
	"math"

	"github.com/akmonengine/impact/actor"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// An edge axis must beat the best face axis by this margin to be chosen:
	// face contacts give more stable contact points
	edgeRelativeTolerance = 0.95
	edgeAbsoluteTolerance = 1e-3

	// Cross products shorter than this come from parallel edges and are skipped
	parallelEdgeEpsilon = 1e-6
)

type axisKind int

const (
	axisFaceA axisKind = iota
	axisFaceB
	axisEdge
)

// separatingAxis is a candidate axis with its overlap
type separatingAxis struct {
	normal      mgl64.Vec3 // unit, oriented from A toward B
	penetration float64
	kind        axisKind
	indexA      int
	indexB      int
}

// boxBox runs the Separating Axis Theorem over the 15 candidate axes: the 3
// face normals of each box and the 9 cross products of their edges. It exits
// on the first separating axis and otherwise keeps the axis of minimum
// penetration.
func boxBox(a, b actor.PosedShape) Result {
	axesA := a.Transform.Basis()
	axesB := b.Transform.Basis()
	halfA := a.Shape.HalfExtents
	halfB := b.Shape.HalfExtents
	t := b.Center().Sub(a.Center())

	// test projects both boxes on axis and reports false on separation
	test := func(axis mgl64.Vec3, kind axisKind, i, j int) (separatingAxis, bool) {
		radiusA := projectedRadius(axesA, halfA, axis)
		radiusB := projectedRadius(axesB, halfB, axis)
		distance := t.Dot(axis)

		penetration := radiusA + radiusB - math.Abs(distance)
		if penetration <= 0 {
			return separatingAxis{}, false
		}

		normal := axis
		if distance < 0 {
			normal = axis.Mul(-1)
		}
		return separatingAxis{normal: normal, penetration: penetration, kind: kind, indexA: i, indexB: j}, true
	}

	bestFace := separatingAxis{penetration: math.Inf(1)}
	for i := 0; i < 3; i++ {
		candidate, overlap := test(axesA[i], axisFaceA, i, -1)
		if !overlap {
			return noCollision()
		}
		if candidate.penetration < bestFace.penetration {
			bestFace = candidate
		}
	}
	for j := 0; j < 3; j++ {
		candidate, overlap := test(axesB[j], axisFaceB, -1, j)
		if !overlap {
			return noCollision()
		}
		if candidate.penetration < bestFace.penetration-1e-9 {
			bestFace = candidate
		}
	}

	bestEdge := separatingAxis{penetration: math.Inf(1)}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			axis := axesA[i].Cross(axesB[j])
			length := axis.Len()
			if length < parallelEdgeEpsilon {
				continue
			}
			candidate, overlap := test(axis.Mul(1.0/length), axisEdge, i, j)
			if !overlap {
				return noCollision()
			}
			if candidate.penetration < bestEdge.penetration {
				bestEdge = candidate
			}
		}
	}

	best := bestFace
	if bestEdge.penetration < edgeRelativeTolerance*bestFace.penetration-edgeAbsoluteTolerance {
		best = bestEdge
	}

	return Result{
		Collided:    true,
		Normal:      best.normal,
		Point:       satContactPoint(a, b, axesA, axesB, best),
		Penetration: best.penetration,
		TOI:         1,
	}
}

// projectedRadius is the half-length of the box projection on axis
func projectedRadius(axes [3]mgl64.Vec3, half mgl64.Vec3, axis mgl64.Vec3) float64 {
	return half[0]*math.Abs(axes[0].Dot(axis)) +
		half[1]*math.Abs(axes[1].Dot(axis)) +
		half[2]*math.Abs(axes[2].Dot(axis))
}

// satContactPoint locates the contact for the chosen axis: face clipping for
// face axes, closest points between both edges for edge axes.
func satContactPoint(a, b actor.PosedShape, axesA, axesB [3]mgl64.Vec3, axis separatingAxis) mgl64.Vec3 {
	switch axis.kind {
	case axisFaceA:
		if point, ok := faceContact(a, b, axis.normal); ok {
			return point
		}
	case axisFaceB:
		if point, ok := faceContact(b, a, axis.normal.Mul(-1)); ok {
			return point
		}
	case axisEdge:
		centerA := edgeCenter(a, axesA, axis.indexA, axis.normal)
		centerB := edgeCenter(b, axesB, axis.indexB, axis.normal.Mul(-1))
		pointA, pointB := closestPointsOnSegments(
			centerA, axesA[axis.indexA], a.Shape.HalfExtents[axis.indexA],
			centerB, axesB[axis.indexB], b.Shape.HalfExtents[axis.indexB],
		)
		return pointA.Add(pointB).Mul(0.5)
	}

	// Midway between the deepest points of both shapes
	return a.SupportWorld(axis.normal).Add(b.SupportWorld(axis.normal.Mul(-1))).Mul(0.5)
}

// edgeCenter returns the center of the box edge parallel to axes[edge] that
// lies furthest along direction
func edgeCenter(box actor.PosedShape, axes [3]mgl64.Vec3, edge int, direction mgl64.Vec3) mgl64.Vec3 {
	center := box.Center()
	for k := 0; k < 3; k++ {
		if k == edge {
			continue
		}
		offset := box.Shape.HalfExtents[k]
		if axes[k].Dot(direction) < 0 {
			offset = -offset
		}
		center = center.Add(axes[k].Mul(offset))
	}
	return center
}
