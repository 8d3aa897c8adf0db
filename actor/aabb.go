package actor

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB represents an axis-aligned bounding box
type AABB struct {
	Min mgl64.Vec3
	Max mgl64.Vec3
}

// ContainsPoint checks if a point is inside the AABB
func (a AABB) ContainsPoint(point mgl64.Vec3) bool {
	return point.X() >= a.Min.X() && point.X() <= a.Max.X() &&
		point.Y() >= a.Min.Y() && point.Y() <= a.Max.Y() &&
		point.Z() >= a.Min.Z() && point.Z() <= a.Max.Z()
}

// Contains checks if other lies entirely inside the AABB
func (a AABB) Contains(other AABB) bool {
	return a.Min.X() <= other.Min.X() && a.Min.Y() <= other.Min.Y() && a.Min.Z() <= other.Min.Z() &&
		other.Max.X() <= a.Max.X() && other.Max.Y() <= a.Max.Y() && other.Max.Z() <= a.Max.Z()
}

// Overlaps checks if two AABBs overlap
func (a AABB) Overlaps(other AABB) bool {
	// AABBs overlap if they overlap on all three axes
	return a.Max.X() >= other.Min.X() && a.Min.X() <= other.Max.X() &&
		a.Max.Y() >= other.Min.Y() && a.Min.Y() <= other.Max.Y() &&
		a.Max.Z() >= other.Min.Z() && a.Min.Z() <= other.Max.Z()
}

// Union returns the smallest AABB enclosing both boxes
func (a AABB) Union(other AABB) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a.Min[0], other.Min[0]), math.Min(a.Min[1], other.Min[1]), math.Min(a.Min[2], other.Min[2])},
		Max: mgl64.Vec3{math.Max(a.Max[0], other.Max[0]), math.Max(a.Max[1], other.Max[1]), math.Max(a.Max[2], other.Max[2])},
	}
}

// Fatten grows the box by margin on every side
func (a AABB) Fatten(margin float64) AABB {
	r := mgl64.Vec3{margin, margin, margin}
	return AABB{Min: a.Min.Sub(r), Max: a.Max.Add(r)}
}

// Extend stretches the box along a displacement, only on the side it points to
func (a AABB) Extend(displacement mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		if displacement[i] < 0 {
			a.Min[i] += displacement[i]
		} else {
			a.Max[i] += displacement[i]
		}
	}
	return a
}

// SurfaceArea returns the area of the six faces
func (a AABB) SurfaceArea() float64 {
	d := a.Max.Sub(a.Min)
	return 2.0 * (d[0]*d[1] + d[1]*d[2] + d[2]*d[0])
}
