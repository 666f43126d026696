package polytope

import (
	"fmt"
	"math"
	"strings"

	"github.com/akmonengine/convex/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

type faceClass uint8

const (
	faceHidden faceClass = iota
	faceVisible
	faceOnPlane
)

type faceRecord struct {
	first  EdgeID
	edges  []EdgeID
	normal mgl64.Vec3
	// vertex average; the plane passes through it
	center mgl64.Vec3
	extent spatial.AABB
	class  faceClass
	visit  uint32
	marked bool
}

// Face is a view of a planar convex polygon bounded by a loop of half-edges,
// counter-clockwise when seen from outside the polytope.
type Face struct {
	polytope *Polytope
	id       FaceID
}

func (f Face) ID() FaceID {
	return f.id
}

// IsValid reports whether the face still exists in its polytope.
func (f Face) IsValid() bool {
	return f.record() != nil
}

// Normal returns the unit outward normal, or the zero vector while the face
// has fewer than three non-collinear vertices.
func (f Face) Normal() mgl64.Vec3 {
	if r := f.record(); r != nil {
		return r.normal
	}
	return mgl64.Vec3{}
}

func (f Face) NumberOfEdges() int {
	if r := f.record(); r != nil {
		return len(r.edges)
	}
	return 0
}

// Edge returns the i-th half-edge of the loop, starting from the first edge.
func (f Face) Edge(i int) (HalfEdge, error) {
	r := f.record()
	if r == nil || i < 0 || i >= len(r.edges) {
		return HalfEdge{}, indexError("edge", i, f.NumberOfEdges())
	}
	return HalfEdge{polytope: f.polytope, id: r.edges[i]}, nil
}

func (f Face) Edges() []HalfEdge {
	r := f.record()
	if r == nil {
		return nil
	}
	edges := make([]HalfEdge, len(r.edges))
	for i, id := range r.edges {
		edges[i] = HalfEdge{polytope: f.polytope, id: id}
	}
	return edges
}

// Vertices returns the loop vertices in order.
func (f Face) Vertices() []Vertex {
	r := f.record()
	if r == nil {
		return nil
	}
	vertices := make([]Vertex, len(r.edges))
	for i, id := range r.edges {
		vertices[i] = Vertex{polytope: f.polytope, id: f.polytope.edge(id).origin}
	}
	return vertices
}

// NeighboringFace returns the face across the i-th edge.
func (f Face) NeighboringFace(i int) (Face, error) {
	edge, err := f.Edge(i)
	if err != nil {
		return Face{}, err
	}
	return edge.NeighboringFace()
}

// SignedDistance returns the distance of point to the face plane, positive
// in front of the face. Degenerate faces report zero.
func (f Face) SignedDistance(point mgl64.Vec3) float64 {
	r := f.record()
	if r == nil || len(r.edges) == 0 {
		return 0
	}
	return f.polytope.signedDistance(r, point)
}

// IsPointInPlane reports whether point lies within epsilon of the face plane.
// A face without a plane accepts every point.
func (f Face) IsPointInPlane(point mgl64.Vec3, epsilon float64) bool {
	return math.Abs(f.SignedDistance(point)) <= epsilon
}

// IsFaceVisibleFrom reports whether point is more than epsilon in front of the face.
func (f Face) IsFaceVisibleFrom(point mgl64.Vec3, epsilon float64) bool {
	return f.SignedDistance(point) > epsilon
}

// IsInteriorPoint reports whether point is not in front of the face.
func (f Face) IsInteriorPoint(point mgl64.Vec3, epsilon float64) bool {
	return !f.IsFaceVisibleFrom(point, epsilon)
}

// SupportingVertex returns the loop vertex furthest along direction.
func (f Face) SupportingVertex(direction mgl64.Vec3) Vertex {
	r := f.record()
	if r == nil {
		return Vertex{}
	}
	return Vertex{polytope: f.polytope, id: f.polytope.faceSupport(r, direction)}
}

// Centroid returns the average of the loop vertices, through which the
// face plane passes.
func (f Face) Centroid() mgl64.Vec3 {
	if r := f.record(); r != nil {
		return r.center
	}
	return mgl64.Vec3{}
}

// Area returns the polygon area.
func (f Face) Area() float64 {
	vertices := f.Vertices()
	if len(vertices) < 3 {
		return 0
	}
	origin := vertices[0].Position()
	var sum mgl64.Vec3
	for i := 1; i+1 < len(vertices); i++ {
		a := vertices[i].Position().Sub(origin)
		b := vertices[i+1].Position().Sub(origin)
		sum = sum.Add(a.Cross(b))
	}
	return sum.Len() / 2
}

// AABB returns the cached extents of the face.
func (f Face) AABB() spatial.AABB {
	if r := f.record(); r != nil {
		return r.extent
	}
	return spatial.EmptyAABB()
}

func (f Face) Min() mgl64.Vec3 {
	return f.AABB().Min
}

func (f Face) Max() mgl64.Vec3 {
	return f.AABB().Max
}

// Mark flags the face for caller-driven traversals. Insertions and transforms
// clear every mark before they start and never read them.
func (f Face) Mark() {
	if r := f.record(); r != nil {
		r.marked = true
	}
}

func (f Face) Unmark() {
	if r := f.record(); r != nil {
		r.marked = false
	}
}

func (f Face) IsMarked() bool {
	if r := f.record(); r != nil {
		return r.marked
	}
	return false
}

func (f Face) String() string {
	var b strings.Builder
	n := f.Normal()
	fmt.Fprintf(&b, "Face normal (%g, %g, %g):", n.X(), n.Y(), n.Z())
	for _, v := range f.Vertices() {
		b.WriteString(" ")
		b.WriteString(v.String())
	}
	return b.String()
}

func (f Face) record() *faceRecord {
	if f.polytope == nil {
		return nil
	}
	return f.polytope.face(f.id)
}

// polygonNormal takes the cross product of a triangle, and Newell's method
// for larger loops or when the triangle is degenerate. Newell averages over
// every edge, so points that are only nearly coplanar tilt the normal less.
func polygonNormal(points []mgl64.Vec3) mgl64.Vec3 {
	if len(points) < 3 {
		return mgl64.Vec3{}
	}

	if len(points) == 3 {
		u := points[1].Sub(points[0])
		v := points[2].Sub(points[0])
		n := u.Cross(v)
		if n.Len() > 1e-9*u.Len()*v.Len() {
			return n.Normalize()
		}
	}

	var newell mgl64.Vec3
	for i, cur := range points {
		nxt := points[(i+1)%len(points)]
		newell[0] += (cur.Y() - nxt.Y()) * (cur.Z() + nxt.Z())
		newell[1] += (cur.Z() - nxt.Z()) * (cur.X() + nxt.X())
		newell[2] += (cur.X() - nxt.X()) * (cur.Y() + nxt.Y())
	}
	if newell.LenSqr() == 0 {
		return mgl64.Vec3{}
	}
	return newell.Normalize()
}
