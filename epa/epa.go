// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA is run after GJK detects a collision to determine:
//   - Penetration depth (how far shapes overlap)
//   - Contact normal (direction to separate shapes)
//   - Contact points (where shapes touch)
//
// The algorithm expands a polytope (starting from GJK's final simplex) toward the origin
// in the Minkowski difference space, finding the closest face which gives us the
// Minimum Translation Vector (MTV) to separate the shapes.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"errors"
	"math"

	"github.com/akmonengine/impact/actor"
	"github.com/akmonengine/impact/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// DefaultMaxIterations limits polytope expansion.
	// Typical convergence: 5-15 iterations for boxes, more for curved shapes.
	DefaultMaxIterations = 64

	// DefaultTolerance defines when EPA has converged: the new support point
	// improves the closest face distance by less than this.
	DefaultTolerance = 1e-4

	// NormalSnapThreshold is used to clamp nearly-zero normal components to exactly zero.
	// This helps with numerical stability and axis-aligned collisions.
	NormalSnapThreshold = 1e-8

	// relative to the polytope scale
	duplicateTolerance  = 1e-9
	coplanarTolerance   = 1e-10
	visibilityTolerance = 1e-10
)

var (
	// ErrDegeneratePolytope is returned when the starting simplex is not a proper
	// tetrahedron (fewer than 4 points, coplanar points).
	ErrDegeneratePolytope = errors.New("epa: degenerate polytope")
	// ErrDuplicateVertex is returned when the starting simplex repeats a point.
	ErrDuplicateVertex = errors.New("epa: duplicate vertex")
)

// Penetration is the outcome of EPA.
type Penetration struct {
	// Normal is the unit contact normal, pointing from A toward B
	Normal mgl64.Vec3
	// Depth is the penetration depth along Normal (>= 0)
	Depth float64
	// PointA is the deepest point of A inside B, PointB the deepest point of B inside A
	PointA, PointB mgl64.Vec3
	// Iterations is the number of expansion steps performed
	Iterations int
	// Converged is false when EPA stopped on the iteration cap or on a numerical
	// issue, and returned the best face found so far
	Converged bool
}

// Point returns the contact point, midway between both witness points.
func (p Penetration) Point() mgl64.Vec3 {
	return p.PointA.Add(p.PointB).Mul(0.5)
}

// EPA computes penetration depth and contact information for overlapping convex shapes.
//
// Algorithm overview:
//  1. Start with simplex from GJK (tetrahedron containing origin)
//  2. Build initial polytope faces from simplex
//  3. Find face closest to origin
//  4. Get support point in face normal direction
//  5. If converged (new point doesn't improve distance) → done
//  6. Otherwise, expand polytope by adding support point
//  7. Repeat from step 3
//
// An invalid starting simplex is a construction failure and returns
// ErrDegeneratePolytope or ErrDuplicateVertex. Once built, EPA never fails:
// hitting maxIterations or a numerical dead end degrades to the best known face.
// Non-positive maxIterations or tolerance fall back on the package defaults.
func EPA(a, b actor.PosedShape, simplex *gjk.Simplex, maxIterations int, tolerance float64) (Penetration, error) {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}

	polytope := polytopePool.Get().(*Polytope)
	defer polytopePool.Put(polytope)
	polytope.Reset()

	if err := polytope.BuildFromSimplex(simplex); err != nil {
		return Penetration{}, err
	}

	var closest int
	for i := 0; i < maxIterations; i++ {
		closest = polytope.ClosestFace()
		normal := polytope.normals[closest]
		distance := polytope.distances[closest]

		support := gjk.MinkowskiSupport(a, b, normal)
		if support.Point.Dot(normal)-distance < tolerance {
			return polytope.penetration(closest, i, true), nil
		}

		if err := polytope.Expand(support); err != nil {
			// No progress is possible, the closest face is as good as it gets
			return polytope.penetration(closest, i, false), nil
		}
	}

	return polytope.penetration(polytope.ClosestFace(), maxIterations, false), nil
}

func (p *Polytope) penetration(face, iterations int, converged bool) Penetration {
	pointA, pointB := p.contactPoints(face)
	return Penetration{
		Normal:     p.normals[face],
		Depth:      math.Max(0, p.distances[face]),
		PointA:     pointA,
		PointB:     pointB,
		Iterations: iterations,
		Converged:  converged,
	}
}

// snapNormalToAxis clamps nearly-zero components of a normal vector to exactly zero.
//
// This improves numerical stability for axis-aligned collisions (box on ground)
// by preventing tiny floating-point errors from causing jitter in tangent directions.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	clamped := normal
	for i := 0; i < 3; i++ {
		if math.Abs(clamped[i]) < NormalSnapThreshold {
			clamped[i] = 0
		}
	}

	length := clamped.Len()
	if length < 1e-8 {
		return normal
	}
	return clamped.Mul(1.0 / length)
}
