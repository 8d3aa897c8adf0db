package epa

import (
	"fmt"
	"math"
	"sync"

	"github.com/akmonengine/impact/gjk"
	"github.com/go-gl/mathgl/mgl64"
)

// Small initial capacity - buffers grow as the polytope expands
const polytopeInitialCapacity = 16

// Polytope is the convex hull grown by EPA, stored as parallel slices.
// Vertex i is vertices[i] = supportA[i] - supportB[i]; face f is the triangle
// faces[f] wound counter-clockwise seen from outside, with outward unit
// normal normals[f] and signed origin distance distances[f].
type Polytope struct {
	vertices  []mgl64.Vec3
	supportA  []mgl64.Vec3
	supportB  []mgl64.Vec3
	faces     [][3]int
	normals   []mgl64.Vec3
	distances []float64

	// scratch buffers
	horizon [][2]int
	visible []bool
}

// polytopePool avoids allocating the polytope buffers on every EPA call.
var polytopePool = sync.Pool{
	New: func() interface{} {
		return &Polytope{
			vertices:  make([]mgl64.Vec3, 0, polytopeInitialCapacity),
			supportA:  make([]mgl64.Vec3, 0, polytopeInitialCapacity),
			supportB:  make([]mgl64.Vec3, 0, polytopeInitialCapacity),
			faces:     make([][3]int, 0, polytopeInitialCapacity),
			normals:   make([]mgl64.Vec3, 0, polytopeInitialCapacity),
			distances: make([]float64, 0, polytopeInitialCapacity),
			horizon:   make([][2]int, 0, polytopeInitialCapacity),
			visible:   make([]bool, 0, polytopeInitialCapacity),
		}
	},
}

// Reset clears the polytope for reuse, keeping the allocated capacity.
func (p *Polytope) Reset() {
	p.vertices = p.vertices[:0]
	p.supportA = p.supportA[:0]
	p.supportB = p.supportB[:0]
	p.faces = p.faces[:0]
	p.normals = p.normals[:0]
	p.distances = p.distances[:0]
	p.horizon = p.horizon[:0]
	p.visible = p.visible[:0]
}

// Len returns the number of vertices.
func (p *Polytope) Len() int {
	return len(p.vertices)
}

// FaceCount returns the number of triangular faces.
func (p *Polytope) FaceCount() int {
	return len(p.faces)
}

// scale returns the largest vertex norm, used to make thresholds relative.
func (p *Polytope) scale() float64 {
	s := 0.0
	for _, v := range p.vertices {
		s = math.Max(s, v.Len())
	}
	return math.Max(s, 1e-9)
}

func (p *Polytope) addVertex(sp gjk.SupportPoint) int {
	p.vertices = append(p.vertices, sp.Point)
	p.supportA = append(p.supportA, sp.A)
	p.supportB = append(p.supportB, sp.B)
	return len(p.vertices) - 1
}

// findDuplicate returns the index of a vertex equal to v within eps, or -1.
func (p *Polytope) findDuplicate(v mgl64.Vec3, eps float64) int {
	for i, w := range p.vertices {
		if v.Sub(w).LenSqr() <= eps*eps {
			return i
		}
	}
	return -1
}

// BuildFromSimplex creates the initial tetrahedron from a GJK terminal simplex.
//
// Returns ErrDuplicateVertex if two simplex points coincide and
// ErrDegeneratePolytope if the simplex is not a tetrahedron or is flat.
func (p *Polytope) BuildFromSimplex(simplex *gjk.Simplex) error {
	if simplex.Count != 4 {
		return fmt.Errorf("simplex has %d points, expected 4: %w", simplex.Count, ErrDegeneratePolytope)
	}

	for i := 0; i < 4; i++ {
		p.addVertex(simplex.Points[i])
	}

	scale := p.scale()
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			if p.vertices[i].Sub(p.vertices[j]).Len() <= duplicateTolerance*scale {
				return fmt.Errorf("simplex points %d and %d coincide: %w", i, j, ErrDuplicateVertex)
			}
		}
	}

	v0, v1, v2, v3 := p.vertices[0], p.vertices[1], p.vertices[2], p.vertices[3]
	volume := v1.Sub(v0).Cross(v2.Sub(v0)).Dot(v3.Sub(v0))
	if math.Abs(volume) <= coplanarTolerance*scale*scale*scale {
		return fmt.Errorf("coplanar tetrahedron (volume %g): %w", volume, ErrDegeneratePolytope)
	}

	// Orient the 4 faces so that (b-a)x(c-a) points away from the opposite vertex
	tetra := [4][4]int{{0, 1, 2, 3}, {0, 2, 3, 1}, {0, 3, 1, 2}, {1, 3, 2, 0}}
	for _, t := range tetra {
		a, b, c, opposite := t[0], t[1], t[2], t[3]
		n := p.vertices[b].Sub(p.vertices[a]).Cross(p.vertices[c].Sub(p.vertices[a]))
		if n.Dot(p.vertices[opposite].Sub(p.vertices[a])) > 0 {
			b, c = c, b
		}
		if !p.addFace(a, b, c) {
			return fmt.Errorf("zero area face: %w", ErrDegeneratePolytope)
		}
	}

	return nil
}

// addFace appends the triangle (a, b, c) with its outward normal.
// Returns false if the triangle has no area.
func (p *Polytope) addFace(a, b, c int) bool {
	va := p.vertices[a]
	n := p.vertices[b].Sub(va).Cross(p.vertices[c].Sub(va))
	length := n.Len()
	if length < 1e-12 {
		return false
	}
	n = snapNormalToAxis(n.Mul(1.0 / length))

	p.faces = append(p.faces, [3]int{a, b, c})
	p.normals = append(p.normals, n)
	p.distances = append(p.distances, n.Dot(va))
	return true
}

// ClosestFace returns the index of the face closest to the origin, or -1.
func (p *Polytope) ClosestFace() int {
	closest := -1
	minDistance := math.Inf(1)
	for i, d := range p.distances {
		if d < minDistance {
			minDistance = d
			closest = i
		}
	}
	return closest
}

// Expand inserts a support point and replaces every face visible from it
// with a fan of faces joining the new vertex to the horizon edge loop.
//
// Returns ErrDuplicateVertex if the point is already a vertex, and
// ErrDegeneratePolytope if no face can see it or the rebuild would produce a
// zero area face. On error the polytope is left unchanged.
func (p *Polytope) Expand(sp gjk.SupportPoint) error {
	scale := p.scale()
	if p.findDuplicate(sp.Point, duplicateTolerance*scale) >= 0 {
		return ErrDuplicateVertex
	}

	// Faces seeing the new point
	p.visible = p.visible[:0]
	visibleCount := 0
	for f := range p.faces {
		v0 := p.vertices[p.faces[f][0]]
		seen := p.normals[f].Dot(sp.Point.Sub(v0)) > visibilityTolerance*scale
		p.visible = append(p.visible, seen)
		if seen {
			visibleCount++
		}
	}
	if visibleCount == 0 {
		return fmt.Errorf("support point sees no face: %w", ErrDegeneratePolytope)
	}

	// Horizon: directed edges of visible faces whose twin is not visible.
	// With consistent winding, an edge shared by two visible faces shows up
	// once in each direction and cancels out.
	p.horizon = p.horizon[:0]
	for f, face := range p.faces {
		if !p.visible[f] {
			continue
		}
		for e := 0; e < 3; e++ {
			edge := [2]int{face[e], face[(e+1)%3]}
			twin := -1
			for h, candidate := range p.horizon {
				if candidate[0] == edge[1] && candidate[1] == edge[0] {
					twin = h
					break
				}
			}
			if twin >= 0 {
				last := len(p.horizon) - 1
				p.horizon[twin] = p.horizon[last]
				p.horizon = p.horizon[:last]
			} else {
				p.horizon = append(p.horizon, edge)
			}
		}
	}

	// New faces must not be flat before we commit to the rebuild
	for _, edge := range p.horizon {
		va := p.vertices[edge[0]]
		n := p.vertices[edge[1]].Sub(va).Cross(sp.Point.Sub(va))
		if n.Len() < 1e-12 {
			return fmt.Errorf("flat face on horizon: %w", ErrDegeneratePolytope)
		}
	}

	// Remove visible faces, compacting the parallel slices in place
	kept := 0
	for f := range p.faces {
		if p.visible[f] {
			continue
		}
		p.faces[kept] = p.faces[f]
		p.normals[kept] = p.normals[f]
		p.distances[kept] = p.distances[f]
		kept++
	}
	p.faces = p.faces[:kept]
	p.normals = p.normals[:kept]
	p.distances = p.distances[:kept]

	newIndex := p.addVertex(sp)
	for _, edge := range p.horizon {
		p.addFace(edge[0], edge[1], newIndex)
	}

	return nil
}

// contactPoints interpolates the per-shape supports of face f at the
// projection of the origin onto its plane.
func (p *Polytope) contactPoints(f int) (mgl64.Vec3, mgl64.Vec3) {
	face := p.faces[f]
	projection := p.normals[f].Mul(p.distances[f])
	u, v, w := barycentric(projection, p.vertices[face[0]], p.vertices[face[1]], p.vertices[face[2]])

	pointA := p.supportA[face[0]].Mul(u).Add(p.supportA[face[1]].Mul(v)).Add(p.supportA[face[2]].Mul(w))
	pointB := p.supportB[face[0]].Mul(u).Add(p.supportB[face[1]].Mul(v)).Add(p.supportB[face[2]].Mul(w))
	return pointA, pointB
}

// barycentric returns the coordinates of point in the triangle (a, b, c),
// clamped into the triangle. Degenerate triangles fall back on the centroid.
func barycentric(point, a, b, c mgl64.Vec3) (float64, float64, float64) {
	v0 := b.Sub(a)
	v1 := c.Sub(a)
	v2 := point.Sub(a)

	d00 := v0.Dot(v0)
	d01 := v0.Dot(v1)
	d11 := v1.Dot(v1)
	d20 := v2.Dot(v0)
	d21 := v2.Dot(v1)

	denom := d00*d11 - d01*d01
	if math.Abs(denom) < 1e-20 {
		return 1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0
	}

	v := (d11*d20 - d01*d21) / denom
	w := (d00*d21 - d01*d20) / denom
	u := 1.0 - v - w

	// Numerical drift can push the projection slightly outside
	u = math.Max(0, u)
	v = math.Max(0, v)
	w = math.Max(0, w)
	sum := u + v + w
	if sum < 1e-12 {
		return 1.0 / 3.0, 1.0 / 3.0, 1.0 / 3.0
	}
	return u / sum, v / sum, w / sum
}
