// Package narrowphase runs the exact geometric tests between two shapes that the
// broad phase reported as candidates.
//
// Two interchangeable engines are available, selected by Config.Strategy:
//   - shape-typed tests: sphere-sphere, box-box (SAT) and box-sphere
//   - general convex: GJK for existence, EPA for depth, normal and contact point
//
// Both produce the same Result, with the normal pointing from the first shape
// toward the second.
package narrowphase

import "github.com/go-gl/mathgl/mgl64"

// Result is the outcome of a detection between two shapes A and B.
type Result struct {
	Collided bool
	// Normal is the unit contact normal, from A toward B
	Normal mgl64.Vec3
	// Point is the world contact point, midway between both surfaces
	Point mgl64.Vec3
	// Penetration is the overlap depth along Normal
	Penetration float64
	// TOI is the fraction of the frame at which the contact happens, in [0,1].
	// Discrete detection always reports 1.
	TOI float64
}

// noCollision is the result of a negative test
func noCollision() Result {
	return Result{TOI: 1}
}

// Flip returns the result seen from B: same contact, opposite normal.
func (r Result) Flip() Result {
	r.Normal = r.Normal.Mul(-1)
	return r
}
