// Package epa implements the Expanding Polytope Algorithm for computing penetration depth.
//
// EPA is run after GJK detects an overlap. It grows a convex polytope inside
// the Minkowski difference A - B, starting from GJK's final simplex, towards
// the face of A - B closest to the origin. That face gives the minimum
// translation vector separating the shapes.
//
// The expanding polytope is a polytope.Polytope: each iteration inserts one
// support point and lets the incremental hull rebuild the faces it sees.
//
// References:
//   - Van den Bergen: "Proximity Queries and Penetration Depth Computation on 3D Game Objects" (2001)
package epa

import (
	"errors"
	"fmt"
	"math"

	"github.com/akmonengine/convex/gjk"
	"github.com/akmonengine/convex/polytope"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	// EPAMaxIterations limits polytope expansion.
	EPAMaxIterations = 32

	// EPAConvergenceTolerance is the largest distance gained by a new support
	// point that still counts as convergence.
	EPAConvergenceTolerance = 0.001

	// NormalSnapThreshold clamps nearly-zero normal components to exactly zero.
	NormalSnapThreshold = 1e-8

	// DegeneratePenetrationEstimate is the depth reported when GJK stopped
	// before enclosing any volume.
	DegeneratePenetrationEstimate = 0.01

	// hullEpsilon is the plane tolerance of the expanding polytope.
	hullEpsilon = 1e-9
)

// ErrNoConvergence is returned when the expansion hits EPAMaxIterations.
var ErrNoConvergence = errors.New("epa: failed to converge")

// Penetration is the minimum translation separating two overlapping shapes:
// moving B by Normal*Depth brings the shapes into contact.
type Penetration struct {
	// Unit vector pointing from A towards B.
	Normal mgl64.Vec3
	Depth  float64
}

// EPA computes the penetration of overlapping shapes a and b from the simplex
// left by a successful gjk.GJK call.
func EPA(a, b gjk.Supporter, simplex *gjk.Simplex) (Penetration, error) {
	hull := polytope.New(
		polytope.WithEpsilon(hullEpsilon),
		polytope.WithOnPlanePolicy(polytope.OnPlaneTriangulate),
		polytope.WithCapacity(EPAMaxIterations+4),
	)
	if err := hull.Add(simplex.Points[:simplex.Count]...); err != nil {
		return Penetration{}, fmt.Errorf("epa: initial simplex: %w", err)
	}

	// A flat simplex is lifted by the support points on both sides of its plane.
	if hull.NumberOfFaces() == 1 {
		face, _ := hull.Face(0)
		normal := face.Normal()
		if normal.LenSqr() > 0 {
			if err := hull.Add(gjk.MinkowskiSupport(a, b, normal), gjk.MinkowskiSupport(a, b, normal.Mul(-1))); err != nil {
				return Penetration{}, fmt.Errorf("epa: lifting simplex: %w", err)
			}
		}
	}
	if hull.NumberOfFaces() < 4 {
		return handleDegenerateSimplex(a, b, simplex), nil
	}

	origin := mgl64.Vec3{}
	for i := 0; i < EPAMaxIterations; i++ {
		closest, distance := closestFace(hull, origin)

		normal := closest.Normal()
		support := gjk.MinkowskiSupport(a, b, normal)
		if support.Dot(normal)-distance < EPAConvergenceTolerance {
			return Penetration{Normal: snapNormalToAxis(normal), Depth: math.Max(distance, 0)}, nil
		}

		if err := hull.AddVertex(support, hullEpsilon); err != nil {
			return Penetration{}, fmt.Errorf("epa: expanding: %w", err)
		}
	}

	return Penetration{}, fmt.Errorf("%w after %d iterations", ErrNoConvergence, EPAMaxIterations)
}

// closestFace returns the face whose plane is nearest to point, point being
// inside the hull, and that distance.
func closestFace(hull *polytope.Polytope, point mgl64.Vec3) (polytope.Face, float64) {
	var closest polytope.Face
	best := math.Inf(1)
	for _, face := range hull.Faces() {
		if d := -face.SignedDistance(point); d < best {
			best = d
			closest = face
		}
	}
	return closest, best
}

// handleDegenerateSimplex estimates the penetration when GJK returned before
// building a tetrahedron, which happens when the shapes only touch.
func handleDegenerateSimplex(a, b gjk.Supporter, simplex *gjk.Simplex) Penetration {
	if simplex.Count >= 2 {
		// closest simplex point to the origin
		closest := simplex.Points[0]
		for _, p := range simplex.Points[1:simplex.Count] {
			if p.LenSqr() < closest.LenSqr() {
				closest = p
			}
		}

		if depth := closest.Len(); depth > NormalSnapThreshold {
			// moving B by closest brings that point of A - B onto the origin
			return Penetration{Normal: snapNormalToAxis(closest.Mul(1 / depth)), Depth: depth}
		}
		return Penetration{Normal: centerNormal(a, b), Depth: 0}
	}

	return Penetration{Normal: centerNormal(a, b), Depth: DegeneratePenetrationEstimate}
}

func centerNormal(a, b gjk.Supporter) mgl64.Vec3 {
	normal := b.Center().Sub(a.Center())
	normalLen := normal.Len()

	if normalLen < NormalSnapThreshold {
		// Centers are at same location, use default upward direction
		return mgl64.Vec3{0, 1, 0}
	}
	return normal.Mul(1.0 / normalLen)
}

// snapNormalToAxis clamps nearly-zero components of a normal vector to exactly
// zero and renormalizes it, so that axis-aligned contacts get exact normals.
func snapNormalToAxis(normal mgl64.Vec3) mgl64.Vec3 {
	const threshold = NormalSnapThreshold

	x := normal[0]
	y := normal[1]
	z := normal[2]

	if math.Abs(x) < threshold {
		x = 0
	}
	if math.Abs(y) < threshold {
		y = 0
	}
	if math.Abs(z) < threshold {
		z = 0
	}

	clamped := mgl64.Vec3{x, y, z}

	length := math.Sqrt(clamped.Dot(clamped))
	if length > 1e-8 {
		clamped = clamped.Mul(1.0 / length)
	} else {
		return mgl64.Vec3{0, 1, 0}
	}

	return clamped
}
