package gjk

import (
	"testing"

	"github.com/akmonengine/impact/actor"
	"github.com/go-gl/mathgl/mgl64"
)

// Test helper functions

func boxAt(position mgl64.Vec3, halfExtents mgl64.Vec3) actor.PosedShape {
	return actor.PosedShape{
		Shape:     actor.NewBox(halfExtents),
		Transform: actor.Transform{Position: position, Rotation: mgl64.QuatIdent()},
	}
}

func sphereAt(position mgl64.Vec3, radius float64) actor.PosedShape {
	return actor.PosedShape{
		Shape:     actor.NewSphere(radius),
		Transform: actor.Transform{Position: position, Rotation: mgl64.QuatIdent()},
	}
}

func point(v mgl64.Vec3) SupportPoint {
	return SupportPoint{Point: v, A: v}
}

// enclosesOrigin checks that a tetrahedron simplex contains the origin, boundary included
func enclosesOrigin(s *Simplex) bool {
	faces := [4][4]int{{0, 1, 2, 3}, {0, 1, 3, 2}, {0, 2, 3, 1}, {1, 2, 3, 0}}
	for _, f := range faces {
		pi := s.Points[f[0]].Point
		n := s.Points[f[1]].Point.Sub(pi).Cross(s.Points[f[2]].Point.Sub(pi))
		toOpposite := n.Dot(s.Points[f[3]].Point.Sub(pi))
		toOrigin := n.Dot(pi.Mul(-1))
		if toOpposite*toOrigin < -1e-9 {
			return false
		}
	}
	return true
}

// MinkowskiSupport tests

func TestMinkowskiSupport(t *testing.T) {
	t.Run("two separated spheres along x-axis", func(t *testing.T) {
		a := sphereAt(mgl64.Vec3{0, 0, 0}, 1.0)
		b := sphereAt(mgl64.Vec3{3, 0, 0}, 1.0)

		support := MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})

		// max(A.x) - min(B.x) = 1 - 2 = -1
		if support.Point.X() != -1.0 {
			t.Errorf("Expected support.X = -1, got %v", support.Point.X())
		}
	})

	t.Run("witness points are tagged", func(t *testing.T) {
		a := sphereAt(mgl64.Vec3{0, 0, 0}, 1.0)
		b := sphereAt(mgl64.Vec3{1.5, 0, 0}, 1.0)

		support := MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})

		if support.A != (mgl64.Vec3{1, 0, 0}) {
			t.Errorf("Expected A witness (1,0,0), got %v", support.A)
		}
		if support.B != (mgl64.Vec3{0.5, 0, 0}) {
			t.Errorf("Expected B witness (0.5,0,0), got %v", support.B)
		}
		if support.Point != support.A.Sub(support.B) {
			t.Errorf("Expected Point = A - B, got %v", support.Point)
		}
	})

	t.Run("opposite directions give different supports", func(t *testing.T) {
		a := sphereAt(mgl64.Vec3{0, 0, 0}, 1.0)
		b := sphereAt(mgl64.Vec3{5, 0, 0}, 1.0)

		support1 := MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})
		support2 := MinkowskiSupport(a, b, mgl64.Vec3{-1, 0, 0})

		// +X: 1 - 4 = -3, -X: -1 - 6 = -7
		if support1.Point.X() <= support2.Point.X() {
			t.Errorf("Expected support1.X > support2.X, got %v <= %v", support1.Point.X(), support2.Point.X())
		}
	})

	t.Run("rotated box support", func(t *testing.T) {
		q := mgl64.QuatRotate(mgl64.DegToRad(90), mgl64.Vec3{0, 0, 1})
		a := actor.PosedShape{
			Shape:     actor.NewBox(mgl64.Vec3{2, 1, 1}),
			Transform: actor.Transform{Rotation: q},
		}
		b := sphereAt(mgl64.Vec3{10, 0, 0}, 1.0)

		support := MinkowskiSupport(a, b, mgl64.Vec3{0, 1, 0})

		// The long axis now lies along Y
		if support.A.Y() < 1.999 || support.A.Y() > 2.001 {
			t.Errorf("Expected rotated box support Y = 2, got %v", support.A.Y())
		}
	})
}

func TestGJK_Spheres(t *testing.T) {
	testCases := []struct {
		name      string
		positionB mgl64.Vec3
		radiusB   float64
		expected  bool
	}{
		{"overlapping", mgl64.Vec3{1.5, 0, 0}, 1.0, true},
		{"identical positions", mgl64.Vec3{0, 0, 0}, 1.0, true},
		{"diagonal overlap", mgl64.Vec3{0.8, 0.8, 0.8}, 1.0, true},
		{"touching", mgl64.Vec3{2.0, 0, 0}, 1.0, false},
		{"barely separated", mgl64.Vec3{2.1, 0, 0}, 1.0, false},
		{"far apart", mgl64.Vec3{10, 0, 0}, 1.0, false},
		{"separated on Y", mgl64.Vec3{0, 5, 0}, 1.0, false},
		{"separated on Z", mgl64.Vec3{0, 0, 5}, 1.0, false},
		{"separated diagonally", mgl64.Vec3{3, 3, 3}, 1.0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := sphereAt(mgl64.Vec3{0, 0, 0}, 1.0)
			b := sphereAt(tc.positionB, tc.radiusB)
			simplex := &Simplex{}

			result := GJK(a, b, simplex, DefaultMaxIterations)
			if result != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestGJK_Boxes(t *testing.T) {
	testCases := []struct {
		name      string
		positionB mgl64.Vec3
		halfB     mgl64.Vec3
		expected  bool
	}{
		{"overlapping on X", mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{1, 1, 1}, true},
		{"overlapping on Y", mgl64.Vec3{0, 1.9, 0}, mgl64.Vec3{1, 1, 1}, true},
		{"overlapping off-axis", mgl64.Vec3{1.2, 0.7, -0.4}, mgl64.Vec3{1, 1, 1}, true},
		{"completely inside", mgl64.Vec3{0, 0.5, 0.5}, mgl64.Vec3{0.25, 0.25, 0.25}, true},
		{"barely separated", mgl64.Vec3{2.1, 0, 0}, mgl64.Vec3{1, 1, 1}, false},
		{"far apart", mgl64.Vec3{10, 0, 0}, mgl64.Vec3{1, 1, 1}, false},
		{"separated on Z only", mgl64.Vec3{0.5, 0.5, 2.5}, mgl64.Vec3{1, 1, 1}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			a := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
			b := boxAt(tc.positionB, tc.halfB)
			simplex := &Simplex{}

			result := GJK(a, b, simplex, DefaultMaxIterations)
			if result != tc.expected {
				t.Errorf("Expected %v, got %v", tc.expected, result)
			}
		})
	}
}

func TestGJK_MixedShapes(t *testing.T) {
	t.Run("sphere inside box", func(t *testing.T) {
		box := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 2, 2})
		sphere := sphereAt(mgl64.Vec3{0.3, 0.2, 0.1}, 0.5)

		if !GJK(box, sphere, &Simplex{}, DefaultMaxIterations) {
			t.Error("Expected collision for sphere inside box")
		}
	})

	t.Run("sphere overlapping box corner", func(t *testing.T) {
		box := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
		sphere := sphereAt(mgl64.Vec3{1.5, 1.5, 1.5}, 1.0)

		if !GJK(box, sphere, &Simplex{}, DefaultMaxIterations) {
			t.Error("Expected collision for sphere overlapping box corner")
		}
	})

	t.Run("sphere near box corner but outside", func(t *testing.T) {
		box := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
		// distance to corner is sqrt(3)*0.6 ≈ 1.04 > 1
		sphere := sphereAt(mgl64.Vec3{1.6, 1.6, 1.6}, 1.0)

		if GJK(box, sphere, &Simplex{}, DefaultMaxIterations) {
			t.Error("Expected no collision for sphere beyond box corner")
		}
	})

	t.Run("sphere outside box face", func(t *testing.T) {
		box := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
		sphere := sphereAt(mgl64.Vec3{2.5, 0, 0}, 1.0)

		if GJK(box, sphere, &Simplex{}, DefaultMaxIterations) {
			t.Error("Expected no collision for sphere outside box")
		}
	})
}

func TestGJK_TerminalSimplex(t *testing.T) {
	testCases := []struct {
		name string
		a, b actor.PosedShape
	}{
		{"axis aligned boxes", boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}), boxAt(mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{1, 1, 1})},
		{"concentric spheres", sphereAt(mgl64.Vec3{0, 0, 0}, 1), sphereAt(mgl64.Vec3{0, 0, 0}, 1)},
		{"box and sphere", boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}), sphereAt(mgl64.Vec3{1.9, 0, 0}, 1)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			simplex := &Simplex{}
			if !GJK(tc.a, tc.b, simplex, DefaultMaxIterations) {
				t.Fatal("Expected collision")
			}
			if simplex.Count != 4 {
				t.Fatalf("Expected a tetrahedron, got %d points", simplex.Count)
			}
			if !enclosesOrigin(simplex) {
				t.Error("Expected the terminal simplex to enclose the origin")
			}
			for i := 0; i < simplex.Count; i++ {
				p := simplex.Points[i]
				if p.Point.Sub(p.A.Sub(p.B)).Len() > 1e-12 {
					t.Errorf("Point %d is not A - B: %v", i, p)
				}
			}
		})
	}
}

func TestGJK_OriginInTrianglePlane(t *testing.T) {
	a := actor.PosedShape{
		Shape:     actor.NewSphere(1),
		Transform: actor.Transform{Rotation: mgl64.Quat{W: -0.970783904453101, V: mgl64.Vec3{-0.036146110487573116, 0.13958195053548025, 0.19180445416132358}}},
	}
	b := actor.PosedShape{
		Shape: actor.NewSphere(0.5),
		Transform: actor.Transform{
			Position: mgl64.Vec3{-0.6574814809268689, -0.31879248390070325, 0.6719719758533005},
			Rotation: mgl64.Quat{W: 0.41938349973356537, V: mgl64.Vec3{-0.19968124241383273, 0.8386836899402569, -0.28434934465809814}},
		},
	}

	simplex := &Simplex{}
	if !GJK(a, b, simplex, DefaultMaxIterations) {
		t.Fatal("Expected collision for spheres 0.99 apart with radii 1 and 0.5")
	}
	if simplex.Count != 4 {
		t.Fatalf("Expected a tetrahedron, got %d points", simplex.Count)
	}
	if !enclosesOrigin(simplex) {
		t.Error("Expected the terminal simplex to enclose the origin")
	}
}

func TestPromoteTriangle(t *testing.T) {
	t.Run("origin inside, volume on both sides", func(t *testing.T) {
		a := sphereAt(mgl64.Vec3{0, 0, 0}, 1)
		b := sphereAt(mgl64.Vec3{0, 0, 0}, 1)
		simplex := &Simplex{Count: 3}
		simplex.Points[0] = point(mgl64.Vec3{1, -1, 0})
		simplex.Points[1] = point(mgl64.Vec3{0, 1, 0})
		simplex.Points[2] = point(mgl64.Vec3{-1, -1, 0})

		enclosed, decided := promoteTriangle(a, b, simplex)
		if !decided || !enclosed {
			t.Fatalf("Expected an enclosing tetrahedron, got enclosed=%v decided=%v", enclosed, decided)
		}
		if simplex.Count != 4 {
			t.Fatalf("Expected 4 points, got %d", simplex.Count)
		}
		if z := simplex.Points[3].Point.Z(); z < 1.999 && z > -1.999 {
			t.Errorf("Expected the new point on the sphere pole, got z = %v", z)
		}
	})

	t.Run("flat difference only touches", func(t *testing.T) {
		// Unit box faces meeting at z = 0: the difference has no volume below
		a := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
		b := boxAt(mgl64.Vec3{0, 0, 2}, mgl64.Vec3{1, 1, 1})
		simplex := &Simplex{Count: 3}
		simplex.Points[0] = point(mgl64.Vec3{1, -1, 0})
		simplex.Points[1] = point(mgl64.Vec3{0, 1, 0})
		simplex.Points[2] = point(mgl64.Vec3{-1, -1, 0})

		enclosed, decided := promoteTriangle(a, b, simplex)
		if !decided || enclosed {
			t.Errorf("Expected touching to be decided as separated, got enclosed=%v decided=%v", enclosed, decided)
		}
	})

	t.Run("origin outside the triangle", func(t *testing.T) {
		a := sphereAt(mgl64.Vec3{0, 0, 0}, 1)
		b := sphereAt(mgl64.Vec3{0, 0, 0}, 1)
		simplex := &Simplex{Count: 3}
		simplex.Points[0] = point(mgl64.Vec3{3, 1, 0})
		simplex.Points[1] = point(mgl64.Vec3{2, 3, 0})
		simplex.Points[2] = point(mgl64.Vec3{1, 1, 0})

		if _, decided := promoteTriangle(a, b, simplex); decided {
			t.Error("Expected the search to go on")
		}
		if simplex.Count != 3 {
			t.Errorf("Expected the triangle untouched, got %d points", simplex.Count)
		}
	})
}

func TestGJK_MaxIterations(t *testing.T) {
	a := boxAt(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := boxAt(mgl64.Vec3{1.2, 0.7, -0.4}, mgl64.Vec3{1, 1, 1})

	// One iteration cannot build a tetrahedron
	if GJK(a, b, &Simplex{}, 1) {
		t.Error("Expected no conclusion with a single iteration")
	}
	// Non-positive falls back on the default cap
	if !GJK(a, b, &Simplex{}, 0) {
		t.Error("Expected collision with the default iteration cap")
	}
}

// Simplex region tests

func TestLine(t *testing.T) {
	t.Run("origin in edge region", func(t *testing.T) {
		simplex := &Simplex{Count: 2}
		simplex.Points[0] = point(mgl64.Vec3{1, 1, 0})
		simplex.Points[1] = point(mgl64.Vec3{-1, 1, 0})
		var direction mgl64.Vec3

		line(simplex, &direction)

		if simplex.Count != 2 {
			t.Errorf("Expected edge kept, got count %d", simplex.Count)
		}
		if direction.X() != 0 || direction.Z() != 0 || direction.Y() >= 0 {
			t.Errorf("Expected direction toward origin along -Y, got %v", direction)
		}
	})

	t.Run("origin in vertex region", func(t *testing.T) {
		simplex := &Simplex{Count: 2}
		simplex.Points[0] = point(mgl64.Vec3{2, 0, 0})
		simplex.Points[1] = point(mgl64.Vec3{1, 0, 0})
		var direction mgl64.Vec3

		line(simplex, &direction)

		if simplex.Count != 1 {
			t.Errorf("Expected reduction to a point, got count %d", simplex.Count)
		}
		if direction != (mgl64.Vec3{-1, 0, 0}) {
			t.Errorf("Expected direction (-1,0,0), got %v", direction)
		}
	})

	t.Run("origin on the segment", func(t *testing.T) {
		simplex := &Simplex{Count: 2}
		simplex.Points[0] = point(mgl64.Vec3{1, 0, 0})
		simplex.Points[1] = point(mgl64.Vec3{-1, 0, 0})
		var direction mgl64.Vec3

		line(simplex, &direction)

		if simplex.Count != 2 {
			t.Errorf("Expected edge kept, got count %d", simplex.Count)
		}
		if direction.LenSqr() == 0 || direction.X() != 0 {
			t.Errorf("Expected a direction perpendicular to the segment, got %v", direction)
		}
	})
}

func TestTriangle(t *testing.T) {
	t.Run("origin above the face", func(t *testing.T) {
		simplex := &Simplex{Count: 3}
		simplex.Points[0] = point(mgl64.Vec3{-1, -1, -1})
		simplex.Points[1] = point(mgl64.Vec3{1, -1, -1})
		simplex.Points[2] = point(mgl64.Vec3{0, 1, -1})
		var direction mgl64.Vec3

		triangle(simplex, &direction)

		if simplex.Count != 3 {
			t.Errorf("Expected face kept, got count %d", simplex.Count)
		}
		if direction.Z() <= 0 || direction.X() != 0 || direction.Y() != 0 {
			t.Errorf("Expected direction along +Z, got %v", direction)
		}
	})

	t.Run("collinear points fall back to a line", func(t *testing.T) {
		simplex := &Simplex{Count: 3}
		simplex.Points[0] = point(mgl64.Vec3{3, 1, 0})
		simplex.Points[1] = point(mgl64.Vec3{2, 1, 0})
		simplex.Points[2] = point(mgl64.Vec3{1, 1, 0})
		var direction mgl64.Vec3

		triangle(simplex, &direction)

		if simplex.Count > 2 {
			t.Errorf("Expected reduction, got count %d", simplex.Count)
		}
	})
}

func TestTetrahedron(t *testing.T) {
	corners := [4]mgl64.Vec3{{1, 1, 1}, {1, -1, -1}, {-1, 1, -1}, {-1, -1, 1}}

	t.Run("origin inside", func(t *testing.T) {
		simplex := &Simplex{Count: 4}
		for i, c := range corners {
			simplex.Points[i] = point(c)
		}
		var direction mgl64.Vec3

		if !tetrahedron(simplex, &direction) {
			t.Error("Expected the origin to be enclosed")
		}
	})

	t.Run("nearly flat at a large scale", func(t *testing.T) {
		simplex := &Simplex{Count: 4}
		simplex.Points[0] = point(mgl64.Vec3{-1000, -1000, 0})
		simplex.Points[1] = point(mgl64.Vec3{1000, -1000, 0})
		simplex.Points[2] = point(mgl64.Vec3{0, 1000, 0})
		simplex.Points[3] = point(mgl64.Vec3{0, 0, 1e-8})
		var direction mgl64.Vec3

		if tetrahedron(simplex, &direction) {
			t.Error("Expected a flat tetrahedron not to enclose the origin")
		}
		if simplex.Count > 3 {
			t.Errorf("Expected the simplex to be reduced, got count %d", simplex.Count)
		}
	})

	t.Run("origin outside", func(t *testing.T) {
		simplex := &Simplex{Count: 4}
		for i, c := range corners {
			simplex.Points[i] = point(c.Add(mgl64.Vec3{5, 0, 0}))
		}
		var direction mgl64.Vec3

		if tetrahedron(simplex, &direction) {
			t.Error("Expected the origin outside")
		}
		if simplex.Count > 3 {
			t.Errorf("Expected the simplex to be reduced, got count %d", simplex.Count)
		}
	})
}

func TestSimplexPool(t *testing.T) {
	simplex := SimplexPool.Get().(*Simplex)
	simplex.Count = 3
	simplex.Reset()
	if simplex.Count != 0 {
		t.Errorf("Expected reset simplex, got count %d", simplex.Count)
	}
	SimplexPool.Put(simplex)
}
