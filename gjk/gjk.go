// Package gjk implements the Gilbert-Johnson-Keerthi (GJK) algorithm for collision detection.
//
// GJK detects whether two convex shapes overlap by testing if their Minkowski difference
// contains the origin. The algorithm builds a simplex incrementally, converging toward
// the origin in typically 3-6 iterations.
//
// A collision is only reported once the simplex is a tetrahedron enclosing the
// origin, which is the starting polytope EPA needs. Configurations where the origin
// lies exactly on a segment or a triangle are blown up to a tetrahedron by searching
// along a perpendicular direction, or along both sides of the triangle normal.
// Shapes that merely touch are reported as separated.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"math"
	"sync"

	"github.com/akmonengine/impact/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// DefaultMaxIterations is the safety limit used when a non-positive cap is given
const DefaultMaxIterations = 32

// progressTolerance is relative to the simplex scale: a support point gaining
// less than this along the search direction brings nothing new, and a
// tetrahedron with less volume is flat.
const progressTolerance = 1e-10

// planeTolerance is the relative distance under which the origin is taken to
// lie in the plane of a triangle.
const planeTolerance = 1e-9

// SupportPoint is a vertex of the Minkowski difference A - B, tagged with the
// support points on each shape that produced it.
type SupportPoint struct {
	Point mgl64.Vec3 // A - B
	A     mgl64.Vec3 // support of A along the search direction
	B     mgl64.Vec3 // support of B against the search direction
}

// Simplex represents a set of 1-4 points in the Minkowski difference space.
// The simplex evolves during GJK iterations, always containing the most recent support points.
// Size progression: 1 point → 2 points (line) → 3 points (triangle) → 4 points (tetrahedron)
type Simplex struct {
	Points [4]SupportPoint
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// MinkowskiSupport computes a support point in the Minkowski difference (A - B).
//
// Returns furthestPoint(A, direction) - furthestPoint(B, -direction), together
// with both witness points.
//
// This is the fundamental query that makes GJK work for any convex shape - shapes only
// need to implement a Support() function, not expose their full geometry.
func MinkowskiSupport(a, b actor.PosedShape, direction mgl64.Vec3) SupportPoint {
	supportA := a.SupportWorld(direction)
	supportB := b.SupportWorld(direction.Mul(-1))
	return SupportPoint{
		Point: supportA.Sub(supportB),
		A:     supportA,
		B:     supportB,
	}
}

// GJK performs collision detection between two posed convex shapes.
//
// Algorithm overview:
//  1. Start with initial search direction (toward B from A)
//  2. Get first support point in Minkowski difference
//  3. Iteratively refine simplex toward origin
//  4. If origin is enclosed by a tetrahedron → collision
//  5. If a support point cannot pass the origin → no collision
//
// The simplex is modified in place. When true is returned it always holds a
// tetrahedron (4 points) containing the origin.
func GJK(a, b actor.PosedShape, simplex *Simplex, maxIterations int) bool {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}

	// Starting toward the other shape typically reduces iterations
	direction := b.Center().Sub(a.Center())
	if direction.LenSqr() < 1e-8 {
		direction = mgl64.Vec3{1, 0, 0} // Fallback if positions are identical
	}

	simplex.Points[0] = MinkowskiSupport(a, b, direction)
	simplex.Count = 1

	// New direction towards the origin from this first point
	direction = simplex.Points[0].Point.Mul(-1)

	// First support point on the origin: the shapes touch without overlapping
	if direction.LenSqr() < 1e-16 {
		return false
	}

	for i := 0; i < maxIterations; i++ {
		newPoint := MinkowskiSupport(a, b, direction)

		// If the new point doesn't pass the origin in the search direction,
		// the origin cannot be reached, therefore no collision.
		gain := newPoint.Point.Dot(direction)
		if gain <= 0 {
			return false
		}

		// A point no further than the simplex along the direction (a repeated
		// vertex included) means the search is cycling on the origin's feature
		if !makesProgress(simplex, newPoint, direction, gain) {
			return resolveStall(a, b, simplex)
		}

		simplex.Points[simplex.Count] = newPoint
		simplex.Count++

		// Reduce the simplex to the feature closest to the origin and
		// update the search direction
		if containsOrigin(simplex, &direction) {
			return true
		}

		// The direction flips sign forever once the origin sits in the
		// triangle plane: blow it up along the normal instead
		if simplex.Count == 3 && originInPlane(simplex) {
			if enclosed, decided := promoteTriangle(a, b, simplex); decided {
				return enclosed
			}
		}

		if direction.LenSqr() < 1e-20 {
			return false
		}
	}

	// Failed to converge after maxIterations (very rare, may indicate numerical issues)
	return resolveStall(a, b, simplex)
}

// makesProgress reports whether the candidate moves further along direction
// than every point already in the simplex.
func makesProgress(simplex *Simplex, candidate SupportPoint, direction mgl64.Vec3, gain float64) bool {
	best := math.Inf(-1)
	for i := 0; i < simplex.Count; i++ {
		best = math.Max(best, simplex.Points[i].Point.Dot(direction))
	}
	scale := math.Max(simplexScale(simplex), candidate.Point.Len())
	return gain-best > progressTolerance*scale*direction.Len()
}

// resolveStall decides a search that stopped moving. Only a triangle holding
// the origin can still turn into an enclosing tetrahedron.
func resolveStall(a, b actor.PosedShape, simplex *Simplex) bool {
	if simplex.Count != 3 {
		return false
	}
	enclosed, _ := promoteTriangle(a, b, simplex)
	return enclosed
}

// originInPlane reports whether the origin lies in the plane of the triangle simplex.
func originInPlane(simplex *Simplex) bool {
	pa, pb, pc := simplex.Points[0].Point, simplex.Points[1].Point, simplex.Points[2].Point
	normal := pb.Sub(pa).Cross(pc.Sub(pa))
	length := normal.Len()
	if length == 0 {
		return false
	}
	return math.Abs(normal.Dot(pa))/length <= planeTolerance*simplexScale(simplex)
}

// promoteTriangle turns a triangle holding the origin into a tetrahedron with
// the support point furthest from its plane.
//
// decided is false when the origin projects outside the triangle, the search
// must then go on. Otherwise enclosed tells whether the Minkowski difference
// extends on both sides of the plane; when it does not the shapes only touch.
func promoteTriangle(a, b actor.PosedShape, simplex *Simplex) (enclosed bool, decided bool) {
	pa, pb, pc := simplex.Points[0].Point, simplex.Points[1].Point, simplex.Points[2].Point
	scale := simplexScale(simplex)

	normal := pb.Sub(pa).Cross(pc.Sub(pa))
	area := normal.Len()
	if area <= progressTolerance*scale*scale {
		return false, true
	}
	normal = normal.Mul(1.0 / area)

	// Counter-clockwise around normal: the origin is inside when it is on the
	// left of every edge
	edges := [3][2]mgl64.Vec3{{pa, pb}, {pb, pc}, {pc, pa}}
	for _, edge := range edges {
		if edge[1].Sub(edge[0]).Cross(edge[0].Mul(-1)).Dot(normal) < -planeTolerance*scale*scale {
			return false, false
		}
	}

	above := MinkowskiSupport(a, b, normal)
	below := MinkowskiSupport(a, b, normal.Mul(-1))
	heightAbove := above.Point.Sub(pa).Dot(normal)
	heightBelow := -below.Point.Sub(pa).Dot(normal)
	if math.Min(heightAbove, heightBelow) <= planeTolerance*scale {
		return false, true
	}

	simplex.Points[3] = above
	if heightBelow > heightAbove {
		simplex.Points[3] = below
	}
	simplex.Count = 4
	return true, true
}

// simplexScale returns the largest point norm of the simplex, used to make
// thresholds relative.
func simplexScale(simplex *Simplex) float64 {
	scale := 0.0
	for i := 0; i < simplex.Count; i++ {
		scale = math.Max(scale, simplex.Points[i].Point.Len())
	}
	return math.Max(scale, 1e-9)
}

// containsOrigin tests if the simplex contains the origin and refines the simplex.
//
// Behavior by simplex dimension:
//   - 2 points (line): Test Voronoi regions, reduce to closest point or keep edge
//   - 3 points (triangle): Test Voronoi regions, reduce to closest edge or keep face
//   - 4 points (tetrahedron): Test if origin is inside; if not, reduce to closest face
func containsOrigin(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		line(simplex, direction)
		return false
	case 3:
		triangle(simplex, direction)
		return false
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

// line handles the line simplex case (2 points: A is the most recent).
func line(simplex *Simplex, direction *mgl64.Vec3) {
	a := simplex.Points[1]
	b := simplex.Points[0]
	ab := b.Point.Sub(a.Point)
	ao := a.Point.Mul(-1)

	// Degenerate case: identical points
	if ab.LenSqr() < 1e-12 {
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return
	}

	// Origin is closest to point A alone
	if ab.Dot(ao) <= 0 {
		simplex.Points[0] = a
		simplex.Count = 1
		*direction = ao
		return
	}

	// Origin is in Voronoi region AB
	abPerp := ab.Cross(ao).Cross(ab)
	if abPerp.LenSqr() < 1e-12*ab.LenSqr()*ab.LenSqr() {
		// Origin lies on the segment: search any direction perpendicular to it
		*direction = perpendicular(ab)
		return
	}

	*direction = abPerp
}

// triangle handles the triangle simplex case (3 points: A is the most recent).
//
// Degenerate case: If points are collinear (flat triangle), treats as line instead.
func triangle(simplex *Simplex, direction *mgl64.Vec3) {
	a := simplex.Points[2] // Most recent point
	b := simplex.Points[1]
	c := simplex.Points[0]

	ab := b.Point.Sub(a.Point)
	ac := c.Point.Sub(a.Point)
	ao := a.Point.Mul(-1)

	abc := ab.Cross(ac) // Triangle normal

	// Colinear points: keep A and B
	if abc.LenSqr() < 1e-14*ab.LenSqr()*ac.LenSqr() {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		line(simplex, direction)
		return
	}

	// Region AB (edge)
	abPerp := ab.Cross(abc)
	if abPerp.Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = a
		simplex.Count = 2
		line(simplex, direction)
		return
	}

	// Region AC (edge)
	acPerp := abc.Cross(ac)
	if acPerp.Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = a
		simplex.Count = 2
		line(simplex, direction)
		return
	}

	// Origin is above or below the triangle
	if abc.Dot(ao) >= 0 {
		*direction = abc
	} else {
		// Below, reverse order to maintain correct orientation
		simplex.Points[0] = b
		simplex.Points[1] = c
		simplex.Points[2] = a
		*direction = abc.Mul(-1)
	}
}

// tetrahedron handles the tetrahedron simplex case (4 points: A is the most recent).
//
// Face normals are oriented away from the opposite vertex; if the origin is
// outside one of the three faces containing A, the simplex is reduced to that
// face. Otherwise the origin is enclosed.
func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[3] // Most recent point
	b := simplex.Points[2]
	c := simplex.Points[1]
	d := simplex.Points[0]

	ab := b.Point.Sub(a.Point)
	ac := c.Point.Sub(a.Point)
	ad := d.Point.Sub(a.Point)
	ao := a.Point.Mul(-1)

	// Flat tetrahedron: drop D and keep searching from the triangle
	scale := simplexScale(simplex)
	if volume := ab.Cross(ac).Dot(ad); math.Abs(volume) <= progressTolerance*scale*scale*scale {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		triangle(simplex, direction)
		return false
	}

	// Face ABC (opposite to D)
	abc := ab.Cross(ac)
	if abc.Dot(ad) > 0 {
		abc = abc.Mul(-1)
	}

	// Face ACD (opposite to B)
	acd := ac.Cross(ad)
	if acd.Dot(ab) > 0 {
		acd = acd.Mul(-1)
	}

	// Face ADB (opposite to C)
	adb := ad.Cross(ab)
	if adb.Dot(ac) > 0 {
		adb = adb.Mul(-1)
	}

	if abc.Dot(ao) > 0 {
		simplex.Points[0] = c
		simplex.Points[1] = b
		simplex.Points[2] = a
		simplex.Count = 3
		triangle(simplex, direction)
		return false
	}

	if acd.Dot(ao) > 0 {
		simplex.Points[0] = d
		simplex.Points[1] = c
		simplex.Points[2] = a
		simplex.Count = 3
		triangle(simplex, direction)
		return false
	}

	if adb.Dot(ao) > 0 {
		simplex.Points[0] = b
		simplex.Points[1] = d
		simplex.Points[2] = a
		simplex.Count = 3
		triangle(simplex, direction)
		return false
	}

	// The origin is inside the tetrahedron
	return true
}

// perpendicular returns a vector orthogonal to v
func perpendicular(v mgl64.Vec3) mgl64.Vec3 {
	p := v.Cross(mgl64.Vec3{1, 0, 0})
	if p.LenSqr() < 1e-12*v.LenSqr() {
		p = v.Cross(mgl64.Vec3{0, 1, 0})
	}
	return p
}
