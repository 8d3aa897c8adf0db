package narrowphase

import (
	"math"

	"github.com/akmonengine/impact/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// clipTolerance keeps points lying on a clipping plane
const clipTolerance = 1e-6

// faceContact computes the contact point of a face-face or face-edge contact
// using Sutherland-Hodgman clipping.
//
// Algorithm:
//  1. Take the reference face (on the shape owning the separating axis) and
//     the incident face (the other shape's face most opposed to it)
//  2. Clip the incident face against the side planes of the reference face
//  3. Keep the clipped points lying behind the reference face plane
//  4. Move each kept point halfway back to the plane and average them
//
// refNormal is the outward normal of the reference face. Returns false if no
// point survives the clipping.
func faceContact(reference, incident actor.PosedShape, refNormal mgl64.Vec3) (mgl64.Vec3, bool) {
	referenceFace := worldFeature(reference, refNormal)
	incidentFace := worldFeature(incident, refNormal.Mul(-1))

	clipped := clipIncidentAgainstReference(incidentFace, referenceFace, refNormal)
	if len(clipped) == 0 || len(referenceFace) == 0 {
		return mgl64.Vec3{}, false
	}

	offset := referenceFace[0].Dot(refNormal)

	sum := mgl64.Vec3{}
	count := 0
	for _, point := range clipped {
		// Signed distance to the reference plane, negative when penetrating
		distance := point.Dot(refNormal) - offset
		if distance > clipTolerance {
			continue
		}
		sum = sum.Add(point.Sub(refNormal.Mul(distance * 0.5)))
		count++
	}

	if count == 0 {
		return mgl64.Vec3{}, false
	}
	return sum.Mul(1.0 / float64(count)), true
}

// worldFeature returns the contact feature of the shape facing worldDirection, in world space
func worldFeature(shape actor.PosedShape, worldDirection mgl64.Vec3) []mgl64.Vec3 {
	feature := shape.Shape.GetContactFeature(shape.Transform.InverseRotateVector(worldDirection))
	for i, point := range feature {
		feature[i] = shape.Transform.Apply(point)
	}
	return feature
}

// clipIncidentAgainstReference clips the incident polygon against the side
// planes of the reference polygon. Each side plane contains a reference edge
// and the contact normal, and faces toward the reference centroid.
func clipIncidentAgainstReference(incident, reference []mgl64.Vec3, normal mgl64.Vec3) []mgl64.Vec3 {
	// If reference has less than 2 points, clipping is not possible
	if len(reference) < 2 {
		return incident
	}

	output := incident
	center := computeCenter(reference)

	for i := 0; i < len(reference); i++ {
		if len(output) == 0 {
			break
		}

		v1 := reference[i]
		v2 := reference[(i+1)%len(reference)]

		clipNormal := v2.Sub(v1).Cross(normal)
		if clipNormal.LenSqr() < 1e-20 {
			continue
		}
		clipNormal = clipNormal.Normalize()

		// Verify that the normal points inward
		if center.Sub(v1).Dot(clipNormal) < 0 {
			clipNormal = clipNormal.Mul(-1)
		}

		output = clipPolygonAgainstPlane(output, v1, clipNormal)
	}

	return output
}

// clipPolygonAgainstPlane implements Sutherland-Hodgman for a single plane
func clipPolygonAgainstPlane(polygon []mgl64.Vec3, planePoint, planeNormal mgl64.Vec3) []mgl64.Vec3 {
	if len(polygon) == 0 {
		return polygon
	}

	// A single point is either kept or dropped
	if len(polygon) == 1 {
		if polygon[0].Sub(planePoint).Dot(planeNormal) >= -clipTolerance {
			return polygon
		}
		return nil
	}

	output := make([]mgl64.Vec3, 0, len(polygon)+2)
	for i := 0; i < len(polygon); i++ {
		current := polygon[i]
		next := polygon[(i+1)%len(polygon)]

		currentDist := current.Sub(planePoint).Dot(planeNormal)
		nextDist := next.Sub(planePoint).Dot(planeNormal)

		if currentDist >= -clipTolerance {
			output = append(output, current)

			// Next is outside → add intersection
			if nextDist < -clipTolerance {
				output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
			}
		} else if nextDist >= -clipTolerance {
			// Current is outside, next is inside → add intersection
			output = append(output, lineIntersectPlane(current, next, planePoint, planeNormal))
		}
	}

	return output
}

// lineIntersectPlane calculates the intersection between a line segment and a plane
func lineIntersectPlane(p1, p2, planePoint, planeNormal mgl64.Vec3) mgl64.Vec3 {
	dir := p2.Sub(p1)
	dist := p1.Sub(planePoint).Dot(planeNormal)
	denom := dir.Dot(planeNormal)

	if math.Abs(denom) < 1e-10 {
		return p1 // Segment parallel to plane
	}

	t := -dist / denom
	t = math.Max(0, math.Min(1, t))

	return p1.Add(dir.Mul(t))
}

// computeCenter calculates the centroid of a set of points
func computeCenter(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) == 0 {
		return mgl64.Vec3{0, 0, 0}
	}

	sum := mgl64.Vec3{0, 0, 0}
	for _, p := range points {
		sum = sum.Add(p)
	}
	return sum.Mul(1.0 / float64(len(points)))
}

// closestPointsOnSegments returns the closest points between the segments
// centerA ± dirA*halfA and centerB ± dirB*halfB. Directions are unit vectors.
func closestPointsOnSegments(centerA, dirA mgl64.Vec3, halfA float64, centerB, dirB mgl64.Vec3, halfB float64) (mgl64.Vec3, mgl64.Vec3) {
	r := centerA.Sub(centerB)
	b := dirA.Dot(dirB)
	c := dirA.Dot(r)
	f := dirB.Dot(r)

	s := 0.0
	if denom := 1 - b*b; denom > 1e-12 {
		s = clamp((b*f-c)/denom, -halfA, halfA)
	}
	u := clamp(b*s+f, -halfB, halfB)
	s = clamp(b*u-c, -halfA, halfA)

	return centerA.Add(dirA.Mul(s)), centerB.Add(dirB.Mul(u))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
