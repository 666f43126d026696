package epa

import (
	"errors"
	"math"
	"testing"

	"github.com/akmonengine/convex/gjk"
	"github.com/akmonengine/convex/polytope"
	"github.com/akmonengine/convex/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

func vec3ApproxEqual(a, b mgl64.Vec3, tolerance float64) bool {
	return math.Abs(a.X()-b.X()) < tolerance &&
		math.Abs(a.Y()-b.Y()) < tolerance &&
		math.Abs(a.Z()-b.Z()) < tolerance
}

func isNormalized(v mgl64.Vec3, tolerance float64) bool {
	length := v.Len()
	return math.Abs(length-1.0) < tolerance
}

// hullShape is a polytope placed in the world by a transform.
type hullShape struct {
	hull      *polytope.Polytope
	transform spatial.Transform
}

func (h hullShape) Support(direction mgl64.Vec3) mgl64.Vec3 {
	p, err := h.hull.Support(h.transform.ApplyInverseVector(direction))
	if err != nil {
		panic(err)
	}
	return h.transform.Apply(p)
}

func (h hullShape) Center() mgl64.Vec3 {
	return h.transform.Position
}

func createBox(t testing.TB, transform spatial.Transform, halfExtents mgl64.Vec3) hullShape {
	t.Helper()
	var corners []mgl64.Vec3
	for _, sx := range []float64{-1, 1} {
		for _, sy := range []float64{-1, 1} {
			for _, sz := range []float64{-1, 1} {
				corners = append(corners, mgl64.Vec3{sx * halfExtents.X(), sy * halfExtents.Y(), sz * halfExtents.Z()})
			}
		}
	}
	hull, err := polytope.NewFromPoints(corners, polytope.WithOnPlanePolicy(polytope.OnPlaneExtendAll))
	if err != nil {
		t.Fatalf("building box: %v", err)
	}
	return hullShape{hull: hull, transform: transform}
}

func at(position mgl64.Vec3) spatial.Transform {
	transform := spatial.NewTransform()
	transform.Position = position
	return transform
}

func tetrahedron(points ...mgl64.Vec3) *gjk.Simplex {
	simplex := &gjk.Simplex{}
	simplex.Count = copy(simplex.Points[:], points)
	return simplex
}

func TestSnapNormalToAxis(t *testing.T) {
	tests := []struct {
		name     string
		input    mgl64.Vec3
		expected mgl64.Vec3
	}{
		{
			name:     "small_x_component",
			input:    mgl64.Vec3{1e-9, 1.0, 0.0},
			expected: mgl64.Vec3{0.0, 1.0, 0.0},
		},
		{
			name:     "small_z_component",
			input:    mgl64.Vec3{0.0, 1.0, 1e-9},
			expected: mgl64.Vec3{0.0, 1.0, 0.0},
		},
		{
			name:     "already_axis_aligned_x",
			input:    mgl64.Vec3{1.0, 0.0, 0.0},
			expected: mgl64.Vec3{1.0, 0.0, 0.0},
		},
		{
			name:     "diagonal_normal",
			input:    mgl64.Vec3{1.0, 1.0, 1.0}.Normalize(),
			expected: mgl64.Vec3{1.0, 1.0, 1.0}.Normalize(),
		},
		{
			name:     "near_zero_vector",
			input:    mgl64.Vec3{1e-9, 1e-9, 1e-9},
			expected: mgl64.Vec3{0.0, 1.0, 0.0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := snapNormalToAxis(tt.input)

			if !vec3ApproxEqual(result, tt.expected, 1e-6) {
				t.Errorf("snapNormalToAxis(%v) = %v, want %v", tt.input, result, tt.expected)
			}
			if !isNormalized(result, 1e-6) {
				t.Errorf("result is not normalized: length = %v", result.Len())
			}
		})
	}
}

func TestHandleDegenerateSimplex(t *testing.T) {
	boxA := createBox(t, at(mgl64.Vec3{0, 0, 0}), mgl64.Vec3{1, 1, 1})
	boxB := createBox(t, at(mgl64.Vec3{0, 1.0, 0}), mgl64.Vec3{1, 1, 1})

	t.Run("two_points_simplex", func(t *testing.T) {
		result := handleDegenerateSimplex(boxA, boxB, tetrahedron(mgl64.Vec3{0, 0.5, 0}, mgl64.Vec3{0, 0.6, 0}))

		if !vec3ApproxEqual(result.Normal, mgl64.Vec3{0, 1, 0}, 1e-9) {
			t.Errorf("normal = %v, want upward", result.Normal)
		}
		if math.Abs(result.Depth-0.5) > 1e-9 {
			t.Errorf("depth = %v, want 0.5", result.Depth)
		}
	})

	t.Run("origin_on_simplex", func(t *testing.T) {
		result := handleDegenerateSimplex(boxA, boxB, tetrahedron(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 0.6, 0}))

		if !vec3ApproxEqual(result.Normal, mgl64.Vec3{0, 1, 0}, 1e-9) {
			t.Errorf("normal = %v, want the center direction", result.Normal)
		}
		if result.Depth != 0 {
			t.Errorf("depth = %v, want 0", result.Depth)
		}
	})

	t.Run("one_point_simplex", func(t *testing.T) {
		result := handleDegenerateSimplex(boxA, boxB, tetrahedron(mgl64.Vec3{0, 0.5, 0}))

		if !vec3ApproxEqual(result.Normal, mgl64.Vec3{0, 1, 0}, 1e-9) {
			t.Errorf("normal = %v, want the center direction", result.Normal)
		}
		if result.Depth != DegeneratePenetrationEstimate {
			t.Errorf("depth = %v, want %v", result.Depth, DegeneratePenetrationEstimate)
		}
	})

	t.Run("aligned_centers", func(t *testing.T) {
		same := createBox(t, at(mgl64.Vec3{0, 0, 0}), mgl64.Vec3{1, 1, 1})
		result := handleDegenerateSimplex(boxA, same, tetrahedron(mgl64.Vec3{}))

		if !vec3ApproxEqual(result.Normal, mgl64.Vec3{0, 1, 0}, 1e-6) {
			t.Errorf("normal = %v, want default upward normal", result.Normal)
		}
	})
}

func TestEPA(t *testing.T) {
	tests := []struct {
		name      string
		a, b      hullShape
		simplex   *gjk.Simplex
		normal    mgl64.Vec3
		depth     float64
		tolerance float64
	}{
		{
			// A - B spans [-1.9, 0.1] along x; the simplex already holds the closest face
			name: "closest face in simplex",
			a:    createBox(t, at(mgl64.Vec3{0, 0, 0}), mgl64.Vec3{0.5, 0.5, 0.5}),
			b:    createBox(t, at(mgl64.Vec3{0.9, 0, 0}), mgl64.Vec3{0.5, 0.5, 0.5}),
			simplex: tetrahedron(
				mgl64.Vec3{0.1, -1, -1},
				mgl64.Vec3{0.1, 1, -1},
				mgl64.Vec3{0.1, 0, 1},
				mgl64.Vec3{-1.9, 0, 0},
			),
			normal:    mgl64.Vec3{1, 0, 0},
			depth:     0.1,
			tolerance: 1e-9,
		},
		{
			// A - B spans [-3.5, 0.5] along y; no simplex face lies on its boundary
			name: "expansion required",
			a:    createBox(t, at(mgl64.Vec3{0, 0, 0}), mgl64.Vec3{1, 1, 1}),
			b:    createBox(t, at(mgl64.Vec3{0, 1.5, 0}), mgl64.Vec3{1, 1, 1}),
			simplex: tetrahedron(
				mgl64.Vec3{2, -1, 0},
				mgl64.Vec3{-2, -1, 2},
				mgl64.Vec3{-2, -1, -2},
				mgl64.Vec3{0, 0.5, 0},
			),
			normal:    mgl64.Vec3{0, 1, 0},
			depth:     0.5,
			tolerance: EPAConvergenceTolerance,
		},
		{
			name: "flat simplex is lifted",
			a:    createBox(t, at(mgl64.Vec3{0, 0, 0}), mgl64.Vec3{1, 1, 1}),
			b:    createBox(t, at(mgl64.Vec3{0, 0, -1.8}), mgl64.Vec3{1, 1, 1}),
			simplex: tetrahedron(
				mgl64.Vec3{-1, -1, 0},
				mgl64.Vec3{1, -1, 0},
				mgl64.Vec3{0, 1, 0},
			),
			normal:    mgl64.Vec3{0, 0, -1},
			depth:     0.2,
			tolerance: EPAConvergenceTolerance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := EPA(tt.a, tt.b, tt.simplex)
			if err != nil {
				t.Fatalf("EPA failed: %v", err)
			}

			if !isNormalized(result.Normal, 1e-9) {
				t.Errorf("normal %v is not normalized", result.Normal)
			}
			if result.Normal.Dot(tt.normal) < 1-tt.tolerance {
				t.Errorf("normal = %v, want %v", result.Normal, tt.normal)
			}
			if math.Abs(result.Depth-tt.depth) > tt.tolerance {
				t.Errorf("depth = %v, want %v", result.Depth, tt.depth)
			}
		})
	}
}

func TestEPAInvalidSimplex(t *testing.T) {
	a := createBox(t, at(mgl64.Vec3{0, 0, 0}), mgl64.Vec3{1, 1, 1})
	b := createBox(t, at(mgl64.Vec3{0, 1, 0}), mgl64.Vec3{1, 1, 1})

	_, err := EPA(a, b, tetrahedron(mgl64.Vec3{math.NaN(), 0, 0}))
	if !errors.Is(err, polytope.ErrNonFinitePoint) {
		t.Errorf("EPA() error = %v, want ErrNonFinitePoint", err)
	}
}

func TestEPAIntegration(t *testing.T) {
	tests := []struct {
		name  string
		a, b  hullShape
		axis  mgl64.Vec3
		depth float64
	}{
		{
			name:  "box_box_collision",
			a:     createBox(t, at(mgl64.Vec3{0, 0, 0}), mgl64.Vec3{1, 1, 1}),
			b:     createBox(t, at(mgl64.Vec3{0.3, 1.5, 0.2}), mgl64.Vec3{1, 1, 1}),
			axis:  mgl64.Vec3{0, 1, 0},
			depth: 0.5,
		},
		{
			// both boxes turn around y: their horizontal faces stay parallel
			name:  "rotated_boxes_collision",
			a:     createBox(t, spatial.NewTransformFromAxisAngle(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 1, 0}, math.Pi/6), mgl64.Vec3{1, 1, 1}),
			b:     createBox(t, spatial.NewTransformFromAxisAngle(mgl64.Vec3{0, 1.8, 0}, mgl64.Vec3{0, 1, 0}, math.Pi/4), mgl64.Vec3{1, 1, 1}),
			axis:  mgl64.Vec3{0, 1, 0},
			depth: 0.2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			simplex := &gjk.Simplex{}
			if !gjk.GJK(tt.a, tt.b, simplex) {
				t.Fatal("GJK did not detect collision")
			}
			if simplex.Count < 4 {
				t.Skip("GJK returned degenerate simplex, skipping")
			}

			result, err := EPA(tt.a, tt.b, simplex)
			if err != nil {
				t.Fatalf("EPA failed: %v", err)
			}

			if result.Normal.Dot(tt.axis) < 1-EPAConvergenceTolerance {
				t.Errorf("EPA normal %v should be along %v", result.Normal, tt.axis)
			}
			if math.Abs(result.Depth-tt.depth) > EPAConvergenceTolerance {
				t.Errorf("depth = %v, want %v", result.Depth, tt.depth)
			}
		})
	}
}
