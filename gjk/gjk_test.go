package gjk

import (
	"testing"

	"github.com/akmonengine/convex/polytope"
	"github.com/go-gl/mathgl/mgl64"
)

// Test helper functions

type hullShape struct {
	hull   *polytope.Polytope
	offset mgl64.Vec3
}

func (h hullShape) Support(direction mgl64.Vec3) mgl64.Vec3 {
	p, err := h.hull.Support(direction)
	if err != nil {
		panic(err)
	}
	return p.Add(h.offset)
}

func (h hullShape) Center() mgl64.Vec3 {
	return h.hull.Centroid().Add(h.offset)
}

type sphereShape struct {
	center mgl64.Vec3
	radius float64
}

func (s sphereShape) Support(direction mgl64.Vec3) mgl64.Vec3 {
	if direction.LenSqr() == 0 {
		return s.center
	}
	return s.center.Add(direction.Normalize().Mul(s.radius))
}

func (s sphereShape) Center() mgl64.Vec3 {
	return s.center
}

func newHull(t testing.TB, points ...mgl64.Vec3) *polytope.Polytope {
	t.Helper()
	hull, err := polytope.NewFromPoints(points, polytope.WithEpsilon(1e-12), polytope.WithOnPlanePolicy(polytope.OnPlaneExtendAll))
	if err != nil {
		t.Fatalf("building hull: %v", err)
	}
	return hull
}

func createBox(t testing.TB, position, halfExtents mgl64.Vec3) hullShape {
	var corners []mgl64.Vec3
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				corners = append(corners, mgl64.Vec3{sx * halfExtents.X(), sy * halfExtents.Y(), sz * halfExtents.Z()})
			}
		}
	}
	return hullShape{hull: newHull(t, corners...), offset: position}
}

func createOctahedron(t testing.TB, position mgl64.Vec3, radius float64) hullShape {
	return hullShape{
		hull: newHull(t,
			mgl64.Vec3{radius, 0, 0}, mgl64.Vec3{-radius, 0, 0},
			mgl64.Vec3{0, radius, 0}, mgl64.Vec3{0, -radius, 0},
			mgl64.Vec3{0, 0, radius}, mgl64.Vec3{0, 0, -radius},
		),
		offset: position,
	}
}

// MinkowskiSupport tests

func TestMinkowskiSupport(t *testing.T) {
	t.Run("two separated boxes along x-axis", func(t *testing.T) {
		a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
		b := createBox(t, mgl64.Vec3{3, 0, 0}, mgl64.Vec3{1, 1, 1})

		// max(A.x) - min(B.x) = 1 - 2
		support := MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})
		if support.X() != -1 {
			t.Errorf("Expected support.X = -1, got %v", support.X())
		}
	})

	t.Run("overlapping boxes", func(t *testing.T) {
		a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
		b := createBox(t, mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{1, 1, 1})

		support := MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})
		if support.X() != 0.5 {
			t.Errorf("Expected support.X = 0.5, got %v", support.X())
		}
	})

	t.Run("opposite directions give different supports", func(t *testing.T) {
		a := createOctahedron(t, mgl64.Vec3{0, 0, 0}, 1)
		b := createOctahedron(t, mgl64.Vec3{5, 0, 0}, 1)

		// +X: 1 - 4 = -3, -X: -1 - 6 = -7
		plus := MinkowskiSupport(a, b, mgl64.Vec3{1, 0, 0})
		minus := MinkowskiSupport(a, b, mgl64.Vec3{-1, 0, 0})
		if plus.X() != -3 || minus.X() != -7 {
			t.Errorf("Expected -3 and -7, got %v and %v", plus.X(), minus.X())
		}
	})
}

func TestGJK_Hulls(t *testing.T) {
	tests := []struct {
		name     string
		a, b     func(t testing.TB) Supporter
		expected bool
	}{
		{
			name:     "overlapping boxes",
			a:        func(t testing.TB) Supporter { return createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}) },
			b:        func(t testing.TB) Supporter { return createBox(t, mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{1, 1, 1}) },
			expected: true,
		},
		{
			name:     "separated boxes",
			a:        func(t testing.TB) Supporter { return createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}) },
			b:        func(t testing.TB) Supporter { return createBox(t, mgl64.Vec3{2.5, 0, 0}, mgl64.Vec3{1, 1, 1}) },
			expected: false,
		},
		{
			name:     "box contained in a larger box",
			a:        func(t testing.TB) Supporter { return createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}) },
			b:        func(t testing.TB) Supporter { return createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{5, 5, 5}) },
			expected: true,
		},
		{
			name:     "octahedra diagonal gap",
			a:        func(t testing.TB) Supporter { return createOctahedron(t, mgl64.Vec3{0, 0, 0}, 1) },
			b:        func(t testing.TB) Supporter { return createOctahedron(t, mgl64.Vec3{1.2, 1.2, 0}, 1) },
			expected: false,
		},
		{
			name:     "octahedra overlapping",
			a:        func(t testing.TB) Supporter { return createOctahedron(t, mgl64.Vec3{0, 0, 0}, 1) },
			b:        func(t testing.TB) Supporter { return createOctahedron(t, mgl64.Vec3{0.8, 0.8, 0}, 1) },
			expected: true,
		},
		{
			name:     "box and sphere overlapping at a corner",
			a:        func(t testing.TB) Supporter { return createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}) },
			b:        func(t testing.TB) Supporter { return sphereShape{center: mgl64.Vec3{1.5, 1.5, 1.5}, radius: 1} },
			expected: true,
		},
		{
			name:     "box and sphere separated at a corner",
			a:        func(t testing.TB) Supporter { return createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}) },
			b:        func(t testing.TB) Supporter { return sphereShape{center: mgl64.Vec3{2, 2, 2}, radius: 1} },
			expected: false,
		},
		{
			name:     "identical positions",
			a:        func(t testing.TB) Supporter { return createOctahedron(t, mgl64.Vec3{0, 0, 0}, 1) },
			b:        func(t testing.TB) Supporter { return createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1}) },
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, b := tt.a(t), tt.b(t)
			simplex := &Simplex{}
			if got := GJK(a, b, simplex); got != tt.expected {
				t.Errorf("GJK = %v, want %v", got, tt.expected)
			}
			if got := Intersects(b, a); got != tt.expected {
				t.Errorf("Intersects (swapped) = %v, want %v", got, tt.expected)
			}
		})
	}
}

// Zero-volume shapes: a flat hull is still a valid convex shape.
func TestGJK_ZeroVolumeShapes(t *testing.T) {
	square := func(offset mgl64.Vec3) hullShape {
		return hullShape{
			hull:   newHull(t, mgl64.Vec3{-1, -1, 0}, mgl64.Vec3{1, -1, 0}, mgl64.Vec3{1, 1, 0}, mgl64.Vec3{-1, 1, 0}),
			offset: offset,
		}
	}

	t.Run("overlapping squares in the same plane", func(t *testing.T) {
		if !GJK(square(mgl64.Vec3{}), square(mgl64.Vec3{0.5, 0.5, 0}), &Simplex{}) {
			t.Error("Expected collision for overlapping zero-thickness squares")
		}
	})

	t.Run("stacked squares", func(t *testing.T) {
		if GJK(square(mgl64.Vec3{}), square(mgl64.Vec3{0, 0, 0.5}), &Simplex{}) {
			t.Error("Expected no collision for parallel squares apart")
		}
	})

	t.Run("two points at the same position", func(t *testing.T) {
		a := hullShape{hull: newHull(t, mgl64.Vec3{})}
		b := hullShape{hull: newHull(t, mgl64.Vec3{})}
		if !GJK(a, b, &Simplex{}) {
			t.Error("Expected collision for two points at same position")
		}
	})
}

// Extreme precision edge cases
func TestGJK_ExtremePrecision(t *testing.T) {
	t.Run("separation of 1e-7", func(t *testing.T) {
		a := createBox(t, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
		b := createBox(t, mgl64.Vec3{2.0000001, 0, 0}, mgl64.Vec3{1, 1, 1})
		if GJK(a, b, &Simplex{}) {
			t.Error("Expected no collision for boxes separated by 1e-7")
		}
	})

	t.Run("extremely large shapes (1e10)", func(t *testing.T) {
		a := createOctahedron(t, mgl64.Vec3{0, 0, 0}, 1e10)
		b := createOctahedron(t, mgl64.Vec3{1.5e10, 0, 0}, 1e10)
		if !GJK(a, b, &Simplex{}) {
			t.Error("Expected collision for extremely large overlapping octahedra")
		}
	})
}

// Degenerate simplex cases
func TestGJK_DegenerateSimplex(t *testing.T) {
	t.Run("colinear points in tetrahedron", func(t *testing.T) {
		simplex := Simplex{
			Points: [4]mgl64.Vec3{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}, {3, 0, 0}},
			Count:  4,
		}
		direction := mgl64.Vec3{0, 1, 0}

		if tetrahedron(&simplex, &direction) {
			t.Error("Expected tetrahedron with colinear points to not contain origin")
		}
	})

	t.Run("identical points in simplex", func(t *testing.T) {
		simplex := Simplex{
			Points: [4]mgl64.Vec3{{0, 0, 0}, {0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Count:  4,
		}
		direction := mgl64.Vec3{0, 0, 1}

		if tetrahedron(&simplex, &direction) {
			t.Error("Expected tetrahedron with identical points to not contain origin")
		}
	})

	t.Run("zero-length edge in line", func(t *testing.T) {
		simplex := Simplex{
			Points: [4]mgl64.Vec3{{1e-15, 0, 0}, {1e-15, 1e-15, 0}},
			Count:  2,
		}
		direction := mgl64.Vec3{0, 1, 0}

		if !line(&simplex, &direction) {
			t.Error("Expected degenerate line with near-identical points to contain origin")
		}
	})
}

func TestLine(t *testing.T) {
	tests := []struct {
		name          string
		a, b          mgl64.Vec3
		expected      bool
		expectedCount int
	}{
		{"origin near line", mgl64.Vec3{1, 1, 0}, mgl64.Vec3{-1, 1, 0}, false, 2},
		{"origin on segment", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{-1, 0, 0}, true, 2},
		{"origin at A", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, 0}, false, 1},
		{"origin behind A", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{3, 0, 0}, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			simplex := Simplex{Points: [4]mgl64.Vec3{tt.b, tt.a}, Count: 2}
			direction := mgl64.Vec3{0, 1, 0}

			if got := line(&simplex, &direction); got != tt.expected {
				t.Errorf("line = %v, want %v", got, tt.expected)
			}
			if !tt.expected && simplex.Count != tt.expectedCount {
				t.Errorf("Expected simplex length %d, got %d", tt.expectedCount, simplex.Count)
			}
		})
	}
}

func TestTriangle(t *testing.T) {
	tests := []struct {
		name          string
		c, b, a       mgl64.Vec3
		expectedCount int
	}{
		{"origin above triangle", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, 0.5}, 3},
		{"origin in AB edge region", mgl64.Vec3{3, 3, 0}, mgl64.Vec3{0, 2, 0}, mgl64.Vec3{2, 0, 0}, 2},
		{"origin in AC edge region", mgl64.Vec3{0, 2, 0}, mgl64.Vec3{3, 3, 0}, mgl64.Vec3{2, 0, 0}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			simplex := Simplex{Points: [4]mgl64.Vec3{tt.c, tt.b, tt.a}, Count: 3}
			direction := mgl64.Vec3{0, 0, 1}

			if triangle(&simplex, &direction) {
				t.Error("Triangle should never contain origin in 3D")
			}
			if simplex.Count != tt.expectedCount {
				t.Errorf("Expected simplex length %d, got %d", tt.expectedCount, simplex.Count)
			}
		})
	}
}

func TestTetrahedron(t *testing.T) {
	t.Run("origin inside tetrahedron", func(t *testing.T) {
		simplex := Simplex{
			Points: [4]mgl64.Vec3{{-1, -1, -1}, {1, 1, -1}, {1, -1, 1}, {-1, 1, 1}},
			Count:  4,
		}
		direction := mgl64.Vec3{0, 0, 1}

		if !tetrahedron(&simplex, &direction) {
			t.Error("Expected tetrahedron to contain origin")
		}
	})

	t.Run("origin outside", func(t *testing.T) {
		simplex := Simplex{
			Points: [4]mgl64.Vec3{{5, 5, 5}, {6, 5, 5}, {5, 6, 5}, {5, 5, 6}},
			Count:  4,
		}
		direction := mgl64.Vec3{0, 0, 1}

		if tetrahedron(&simplex, &direction) {
			t.Error("Expected origin to be outside tetrahedron")
		}
		if simplex.Count > 3 {
			t.Errorf("Expected simplex reduced to triangle (3 points), got %d", simplex.Count)
		}
	})
}

// Benchmark tests

func BenchmarkGJK_Boxes_Intersecting(b *testing.B) {
	a := createBox(b, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	box := createBox(b, mgl64.Vec3{1.5, 0, 0}, mgl64.Vec3{1, 1, 1})
	simplex := &Simplex{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GJK(a, box, simplex)
	}
}

func BenchmarkGJK_Boxes_Separated(b *testing.B) {
	a := createBox(b, mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	box := createBox(b, mgl64.Vec3{10, 0, 0}, mgl64.Vec3{1, 1, 1})
	simplex := &Simplex{}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		GJK(a, box, simplex)
	}
}
