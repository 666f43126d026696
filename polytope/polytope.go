// Package polytope maintains a 3D convex polytope as a half-edge mesh that
// grows one point at a time.
//
// Vertices, half-edges and faces live in arenas addressed by generation
// checked IDs; Vertex, HalfEdge and Face are lightweight views over them.
package polytope

import (
	"fmt"
	"math"
	"strings"

	"github.com/akmonengine/convex/spatial"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// GeometryObject is implemented by geometry that can be moved rigidly and
// compared within a tolerance.
type GeometryObject[T any] interface {
	ApplyTransform(transform spatial.Transform) error
	ApplyInverseTransform(transform spatial.Transform) error
	ContainsNaN() bool
	EpsilonEquals(other T, epsilon float64) bool
}

var _ GeometryObject[*Polytope] = (*Polytope)(nil)

// Polytope is a convex polytope. It is not safe for concurrent use: a Clone
// may be read from another goroutine while the original keeps growing.
type Polytope struct {
	vertices arena[vertexRecord]
	edges    arena[edgeRecord]
	faces    arena[faceRecord]
	// face enumeration order
	order []FaceID

	epsilon  float64
	policy   OnPlanePolicy
	logger   *zap.Logger
	capacity int

	epoch       uint32
	bounds      spatial.AABB
	boundsDirty bool

	pruneCandidates []VertexID
}

// New returns an empty polytope.
func New(opts ...Option) *Polytope {
	p := &Polytope{
		epsilon:     DefaultEpsilon,
		policy:      OnPlaneExtend,
		logger:      zap.NewNop(),
		epoch:       1,
		bounds:      spatial.EmptyAABB(),
		boundsDirty: true,
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.capacity > 0 {
		// Euler bounds for a triangulated hull: E <= 3V-6, F <= 2V-4.
		p.vertices = newArena[vertexRecord](p.capacity)
		p.edges = newArena[edgeRecord](6 * p.capacity)
		p.faces = newArena[faceRecord](2 * p.capacity)
		p.order = make([]FaceID, 0, 2*p.capacity)
	}

	return p
}

// NewFromPoints builds the hull of points with the polytope's default epsilon.
func NewFromPoints(points []mgl64.Vec3, opts ...Option) (*Polytope, error) {
	p := New(opts...)
	if err := p.Add(points...); err != nil {
		return nil, err
	}
	return p, nil
}

// Epsilon returns the default tolerance of the polytope.
func (p *Polytope) Epsilon() float64 {
	return p.epsilon
}

// Policy returns the on-plane policy of the polytope.
func (p *Polytope) Policy() OnPlanePolicy {
	return p.policy
}

func (p *Polytope) NumberOfFaces() int {
	return len(p.order)
}

// NumberOfEdges counts undirected edges: twin pairs count once, boundary
// half-edges of a planar polytope count on their own.
func (p *Polytope) NumberOfEdges() int {
	count := 0
	p.edges.each(func(h handle, e *edgeRecord) bool {
		if e.origin == e.destination {
			return true
		}
		twin := p.edge(e.twin)
		if twin == nil || h.index < e.twin.index {
			count++
		}
		return true
	})
	return count
}

// NumberOfVertices counts the distinct vertices reached from the faces.
func (p *Polytope) NumberOfVertices() int {
	return len(p.vertexIDs())
}

// Faces returns the faces in enumeration order.
func (p *Polytope) Faces() []Face {
	faces := make([]Face, len(p.order))
	for i, id := range p.order {
		faces[i] = Face{polytope: p, id: id}
	}
	return faces
}

func (p *Polytope) Face(i int) (Face, error) {
	if i < 0 || i >= len(p.order) {
		return Face{}, indexError("face", i, len(p.order))
	}
	return Face{polytope: p, id: p.order[i]}, nil
}

// Vertices returns every vertex once, in face enumeration order.
func (p *Polytope) Vertices() []Vertex {
	ids := p.vertexIDs()
	vertices := make([]Vertex, len(ids))
	for i, id := range ids {
		vertices[i] = Vertex{polytope: p, id: id}
	}
	return vertices
}

func (p *Polytope) Vertex(i int) (Vertex, error) {
	ids := p.vertexIDs()
	if i < 0 || i >= len(ids) {
		return Vertex{}, indexError("vertex", i, len(ids))
	}
	return Vertex{polytope: p, id: ids[i]}, nil
}

// Edges returns one half-edge per undirected edge, in face enumeration order.
func (p *Polytope) Edges() []HalfEdge {
	epoch := p.beginTraversal()
	var edges []HalfEdge
	for _, fid := range p.order {
		face := p.face(fid)
		face.visit = epoch
		for _, eid := range face.edges {
			e := p.edge(eid)
			if e.origin == e.destination {
				continue
			}
			if twin := p.edge(e.twin); twin != nil {
				if p.face(twin.face).visit == epoch && twin.face != fid {
					continue
				}
				if twin.face == fid && e.twin.index < eid.index {
					continue
				}
			}
			edges = append(edges, HalfEdge{polytope: p, id: eid})
		}
	}
	return edges
}

func (p *Polytope) Edge(i int) (HalfEdge, error) {
	edges := p.Edges()
	if i < 0 || i >= len(edges) {
		return HalfEdge{}, indexError("edge", i, len(edges))
	}
	return edges[i], nil
}

// BoundingBox returns the union of the face extents.
func (p *Polytope) BoundingBox() spatial.AABB {
	if p.boundsDirty {
		box := spatial.EmptyAABB()
		for _, id := range p.order {
			box = box.Union(p.face(id).extent)
		}
		p.bounds = box
		p.boundsDirty = false
	}
	return p.bounds
}

// Centroid returns the average of the vertex positions.
func (p *Polytope) Centroid() mgl64.Vec3 {
	ids := p.vertexIDs()
	if len(ids) == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, id := range ids {
		sum = sum.Add(p.vertex(id).position)
	}
	return sum.Mul(1 / float64(len(ids)))
}

// VisibleFaces returns the faces that have point more than epsilon in front.
func (p *Polytope) VisibleFaces(point mgl64.Vec3, epsilon float64) []Face {
	var faces []Face
	for _, id := range p.order {
		if p.signedDistance(p.face(id), point) > epsilon {
			faces = append(faces, Face{polytope: p, id: id})
		}
	}
	return faces
}

// FacesContaining returns the faces whose plane passes within epsilon of point.
func (p *Polytope) FacesContaining(point mgl64.Vec3, epsilon float64) []Face {
	var faces []Face
	for _, id := range p.order {
		if math.Abs(p.signedDistance(p.face(id), point)) <= epsilon {
			faces = append(faces, Face{polytope: p, id: id})
		}
	}
	return faces
}

// IsInteriorPoint reports whether point is at least epsilon behind every
// face. A polytope without volume has no interior.
func (p *Polytope) IsInteriorPoint(point mgl64.Vec3, epsilon float64) bool {
	if len(p.order) < 2 {
		return false
	}
	for _, id := range p.order {
		if p.signedDistance(p.face(id), point) >= -epsilon {
			return false
		}
	}
	return true
}

// ApplyTransform moves every vertex by transform and refreshes the face planes.
func (p *Polytope) ApplyTransform(transform spatial.Transform) error {
	return p.transformVertices(transform, transform.Apply)
}

// ApplyInverseTransform moves every vertex by the inverse of transform.
func (p *Polytope) ApplyInverseTransform(transform spatial.Transform) error {
	return p.transformVertices(transform, transform.ApplyInverse)
}

func (p *Polytope) transformVertices(transform spatial.Transform, apply func(mgl64.Vec3) mgl64.Vec3) error {
	if len(p.order) == 0 {
		return ErrEmptyPolytope
	}
	if !transform.IsFinite() {
		return fmt.Errorf("transform: %w", ErrNonFinitePoint)
	}
	p.clearMarks()
	p.vertices.each(func(_ handle, v *vertexRecord) bool {
		v.position = apply(v.position)
		return true
	})
	for _, id := range p.order {
		p.refreshFace(id)
	}
	return nil
}

// ContainsNaN reports whether any vertex has a NaN coordinate.
func (p *Polytope) ContainsNaN() bool {
	found := false
	p.vertices.each(func(_ handle, v *vertexRecord) bool {
		for _, c := range v.position {
			if math.IsNaN(c) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// EpsilonEquals reports whether both polytopes have the same number of faces
// and vertices and every vertex of one is within epsilon of a vertex of the other.
func (p *Polytope) EpsilonEquals(other *Polytope, epsilon float64) bool {
	if other == nil {
		return false
	}
	if p.NumberOfFaces() != other.NumberOfFaces() {
		return false
	}
	mine, theirs := p.Vertices(), other.Vertices()
	if len(mine) != len(theirs) {
		return false
	}
	return coveredWithin(mine, theirs, epsilon) && coveredWithin(theirs, mine, epsilon)
}

func coveredWithin(a, b []Vertex, epsilon float64) bool {
	for _, v := range a {
		found := false
		for _, w := range b {
			if v.Position().Sub(w.Position()).Len() <= epsilon {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// Clone returns an independent deep copy sharing the options of p.
func (p *Polytope) Clone() *Polytope {
	c := *p
	c.vertices = p.vertices.clone(func(v vertexRecord) vertexRecord {
		v.incident = append([]EdgeID(nil), v.incident...)
		return v
	})
	c.edges = p.edges.clone(nil)
	c.faces = p.faces.clone(func(f faceRecord) faceRecord {
		f.edges = append([]EdgeID(nil), f.edges...)
		return f
	})
	c.order = append([]FaceID(nil), p.order...)
	c.pruneCandidates = nil
	return &c
}

// Set replaces the geometry of p with a copy of other, keeping p's options.
func (p *Polytope) Set(other *Polytope) {
	c := other.Clone()
	p.vertices = c.vertices
	p.edges = c.edges
	p.faces = c.faces
	p.order = c.order
	p.epoch = c.epoch
	p.boundsDirty = true
}

// Clear removes all geometry.
func (p *Polytope) Clear() {
	p.vertices.reset()
	p.edges.reset()
	p.faces.reset()
	p.order = p.order[:0]
	p.pruneCandidates = p.pruneCandidates[:0]
	p.boundsDirty = true
}

func (p *Polytope) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Number of faces: %d", len(p.order))
	for _, f := range p.Faces() {
		b.WriteString("\n")
		b.WriteString(f.String())
	}
	return b.String()
}

func (p *Polytope) vertex(id VertexID) *vertexRecord {
	return p.vertices.get(handle(id))
}

func (p *Polytope) edge(id EdgeID) *edgeRecord {
	return p.edges.get(handle(id))
}

func (p *Polytope) face(id FaceID) *faceRecord {
	return p.faces.get(handle(id))
}

func (p *Polytope) position(id VertexID) mgl64.Vec3 {
	return p.vertex(id).position
}

// clearMarks drops the caller marks of every face. Mutating operations start
// with it.
func (p *Polytope) clearMarks() {
	for _, id := range p.order {
		p.face(id).marked = false
	}
}

// beginTraversal returns a fresh stamp for visit marks.
func (p *Polytope) beginTraversal() uint32 {
	p.epoch++
	if p.epoch == 0 {
		p.vertices.each(func(_ handle, v *vertexRecord) bool {
			v.visit = 0
			return true
		})
		p.faces.each(func(_ handle, f *faceRecord) bool {
			f.visit = 0
			return true
		})
		p.epoch = 1
	}
	return p.epoch
}

func (p *Polytope) vertexIDs() []VertexID {
	epoch := p.beginTraversal()
	var ids []VertexID
	for _, fid := range p.order {
		for _, eid := range p.face(fid).edges {
			vid := p.edge(eid).origin
			v := p.vertex(vid)
			if v.visit != epoch {
				v.visit = epoch
				ids = append(ids, vid)
			}
		}
	}
	return ids
}

func (p *Polytope) signedDistance(f *faceRecord, point mgl64.Vec3) float64 {
	if len(f.edges) == 0 {
		return 0
	}
	return f.normal.Dot(point.Sub(f.center))
}

func (p *Polytope) faceSupport(f *faceRecord, direction mgl64.Vec3) VertexID {
	var best VertexID
	bestDot := math.Inf(-1)
	for _, eid := range f.edges {
		vid := p.edge(eid).origin
		if d := p.position(vid).Dot(direction); d > bestDot {
			bestDot = d
			best = vid
		}
	}
	return best
}
