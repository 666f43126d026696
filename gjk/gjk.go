// Package gjk implements the Gilbert-Johnson-Keerthi intersection test for
// convex shapes that only expose a support function.
//
// GJK tests whether the Minkowski difference A - B contains the origin by
// growing a simplex of support points towards it. A hull built by the
// polytope package is a valid shape once wrapped with its world transform.
//
// References:
//   - Gilbert, Johnson, Keerthi: "A Fast Procedure for Computing the Distance Between
//     Complex Objects in Three-Dimensional Space" (1988)
//   - Van den Bergen: "Collision Detection in Interactive 3D Environments" (2003)
package gjk

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// MaxIterations bounds the number of support queries of a single test.
const MaxIterations = 32

// Supporter is a convex shape in world space.
type Supporter interface {
	// Support returns the point of the shape furthest along direction.
	Support(direction mgl64.Vec3) mgl64.Vec3
	// Center returns any interior point, used to pick the first search direction.
	Center() mgl64.Vec3
}

// Simplex holds 1 to 4 points of the Minkowski difference, most recent last.
type Simplex struct {
	Points [4]mgl64.Vec3
	Count  int
}

func (s *Simplex) Reset() {
	s.Count = 0
}

func (s *Simplex) set(points ...mgl64.Vec3) {
	s.Count = copy(s.Points[:], points)
}

var SimplexPool = sync.Pool{
	New: func() interface{} {
		return &Simplex{}
	},
}

// MinkowskiSupport returns the support point of A - B along direction:
// the furthest point of A along direction minus the furthest point of B
// along the opposite direction.
func MinkowskiSupport(a, b Supporter, direction mgl64.Vec3) mgl64.Vec3 {
	return a.Support(direction).Sub(b.Support(direction.Mul(-1)))
}

// Intersects reports whether a and b overlap, using a pooled simplex.
func Intersects(a, b Supporter) bool {
	simplex := SimplexPool.Get().(*Simplex)
	defer SimplexPool.Put(simplex)
	simplex.Reset()

	return GJK(a, b, simplex)
}

// GJK reports whether a and b overlap. Touching shapes count as overlapping.
// On a hit the simplex is left as a tetrahedron enclosing the origin, unless
// the shapes only touch.
func GJK(a, b Supporter, simplex *Simplex) bool {
	// Start towards B, which usually saves a few iterations.
	direction := b.Center().Sub(a.Center())
	if direction.LenSqr() < 1e-8 {
		direction = mgl64.Vec3{1, 0, 0}
	}

	simplex.Points[0] = MinkowskiSupport(a, b, direction)
	simplex.Count = 1

	direction = simplex.Points[0].Mul(-1)
	if direction.LenSqr() < 1e-16 {
		return true
	}

	for i := 0; i < MaxIterations; i++ {
		point := MinkowskiSupport(a, b, direction)

		// The new point does not pass the origin: A - B lies entirely on the
		// near side of a separating plane.
		if point.Dot(direction) <= 0 {
			return false
		}

		simplex.Points[simplex.Count] = point
		simplex.Count++

		if containsOrigin(simplex, &direction) {
			return true
		}
	}

	return false
}

// containsOrigin reduces the simplex to the feature closest to the origin and
// points direction at the origin from it. Only a tetrahedron can contain the
// origin.
func containsOrigin(simplex *Simplex, direction *mgl64.Vec3) bool {
	switch simplex.Count {
	case 2:
		return line(simplex, direction)
	case 3:
		return triangle(simplex, direction)
	case 4:
		return tetrahedron(simplex, direction)
	}
	return false
}

func line(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[1]
	b := simplex.Points[0]
	ab := b.Sub(a)
	ao := a.Mul(-1)

	if ab.LenSqr() < 1e-8 {
		if ao.LenSqr() < 1e-8 {
			return true
		}
		simplex.set(a)
		*direction = ao
		return false
	}

	// behind A
	if ab.Dot(ao) <= 0 {
		simplex.set(a)
		*direction = ao
		return false
	}

	perpendicular := ab.Cross(ao).Cross(ab)
	if perpendicular.LenSqr() < 1e-8 {
		// origin on the segment
		return true
	}

	*direction = perpendicular
	return false
}

func triangle(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[2]
	b := simplex.Points[1]
	c := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ao := a.Mul(-1)
	normal := ab.Cross(ac)

	// collinear points, keep the newest edge
	if normal.LenSqr() < 1e-10 {
		simplex.set(b, a)
		return line(simplex, direction)
	}

	if ab.Cross(normal).Dot(ao) > 0 {
		simplex.set(b, a)
		*direction = ab.Cross(ao).Cross(ab)
		return false
	}

	if normal.Cross(ac).Dot(ao) > 0 {
		simplex.set(c, a)
		*direction = ac.Cross(ao).Cross(ac)
		return false
	}

	if normal.Dot(ao) > 0 {
		*direction = normal
	} else {
		// below: swap winding so that the normal faces the origin
		simplex.set(a, c, b)
		*direction = normal.Mul(-1)
	}
	return false
}

func tetrahedron(simplex *Simplex, direction *mgl64.Vec3) bool {
	a := simplex.Points[3]
	b := simplex.Points[2]
	c := simplex.Points[1]
	d := simplex.Points[0]

	ab := b.Sub(a)
	ac := c.Sub(a)
	ad := d.Sub(a)
	ao := a.Mul(-1)

	// Each face normal must point away from the opposite vertex.
	abc := outward(ab.Cross(ac), ad)
	acd := outward(ac.Cross(ad), ab)
	adb := outward(ad.Cross(ab), ac)

	if abc.LenSqr() < 1e-10 || acd.LenSqr() < 1e-10 || adb.LenSqr() < 1e-10 {
		simplex.set(c, b, a)
		return triangle(simplex, direction)
	}

	switch {
	case abc.Dot(ao) > 0:
		simplex.set(c, b, a)
		return triangle(simplex, direction)
	case acd.Dot(ao) > 0:
		simplex.set(d, c, a)
		return triangle(simplex, direction)
	case adb.Dot(ao) > 0:
		simplex.set(b, d, a)
		return triangle(simplex, direction)
	}

	return true
}

func outward(normal, towardOpposite mgl64.Vec3) mgl64.Vec3 {
	if normal.Dot(towardOpposite) > 0 {
		return normal.Mul(-1)
	}
	return normal
}
