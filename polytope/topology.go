package polytope

import (
	"github.com/akmonengine/convex/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

func (p *Polytope) newVertex(position mgl64.Vec3) VertexID {
	return VertexID(p.vertices.insert(vertexRecord{position: position}))
}

func (p *Polytope) newEdge(origin, destination VertexID, face FaceID) EdgeID {
	id := EdgeID(p.edges.insert(edgeRecord{
		origin:      origin,
		destination: destination,
		face:        face,
	}))
	v := p.vertex(origin)
	v.incident = append(v.incident, id)
	return id
}

func (p *Polytope) link(from, to EdgeID) {
	p.edge(from).next = to
	p.edge(to).previous = from
}

func (p *Polytope) setTwins(a, b EdgeID) {
	p.edge(a).twin = b
	p.edge(b).twin = a
}

// clearEdge frees a half-edge and cuts its twin loose. The origin vertex is
// queued for pruning once the current insertion is done.
func (p *Polytope) clearEdge(id EdgeID) {
	e := p.edge(id)
	if e == nil {
		return
	}
	if twin := p.edge(e.twin); twin != nil && twin.twin == id {
		twin.twin = EdgeID{}
	}
	if v := p.vertex(e.origin); v != nil {
		v.detach(id)
		p.pruneCandidates = append(p.pruneCandidates, e.origin)
	}
	p.edges.remove(handle(id))
}

func (p *Polytope) newFace() FaceID {
	id := FaceID(p.faces.insert(faceRecord{extent: spatial.EmptyAABB()}))
	p.order = append(p.order, id)
	return id
}

// buildLoop gives face a fresh loop through vertices, in order. A two vertex
// loop is a segment whose half-edges are twins of each other; a single vertex
// loop is one half-edge pointing back to its origin.
func (p *Polytope) buildLoop(face FaceID, vertices []VertexID) {
	n := len(vertices)
	edges := make([]EdgeID, n)
	for i := range vertices {
		edges[i] = p.newEdge(vertices[i], vertices[(i+1)%n], face)
	}
	for i := range edges {
		p.link(edges[i], edges[(i+1)%n])
	}
	if n == 2 {
		p.setTwins(edges[0], edges[1])
	}
	p.face(face).first = edges[0]
	p.refreshFace(face)
}

// replaceLoop discards the current loop of face and builds a new one.
func (p *Polytope) replaceLoop(face FaceID, vertices []VertexID) {
	f := p.face(face)
	for _, id := range append([]EdgeID(nil), f.edges...) {
		p.clearEdge(id)
	}
	f.edges = f.edges[:0]
	p.buildLoop(face, vertices)
}

// refreshFace walks the loop from its first edge and recomputes the cached
// edge list, plane and extents.
func (p *Polytope) refreshFace(id FaceID) {
	f := p.face(id)
	f.edges = f.edges[:0]

	limit := p.edges.count
	e := f.first
	for i := 0; i < limit; i++ {
		f.edges = append(f.edges, e)
		e = p.edge(e).next
		if e == f.first {
			break
		}
	}

	points := make([]mgl64.Vec3, len(f.edges))
	extent := spatial.EmptyAABB()
	var sum mgl64.Vec3
	for i, eid := range f.edges {
		points[i] = p.position(p.edge(eid).origin)
		extent = extent.Extend(points[i])
		sum = sum.Add(points[i])
	}
	f.normal = polygonNormal(points)
	f.center = sum.Mul(1 / float64(max(1, len(points))))
	f.extent = extent
	p.boundsDirty = true
}

// removeFace frees the face and its half-edges. The enumeration order is
// fixed later by compactOrder.
func (p *Polytope) removeFace(id FaceID) {
	f := p.face(id)
	if f == nil {
		return
	}
	for _, eid := range f.edges {
		p.clearEdge(eid)
	}
	p.faces.remove(handle(id))
	p.boundsDirty = true
}

func (p *Polytope) compactOrder() {
	kept := p.order[:0]
	for _, id := range p.order {
		if p.face(id) != nil {
			kept = append(kept, id)
		}
	}
	p.order = kept
}

// pruneVertices frees queued vertices that lost all their outgoing edges.
func (p *Polytope) pruneVertices() int {
	pruned := 0
	for _, id := range p.pruneCandidates {
		if v := p.vertex(id); v != nil && len(v.incident) == 0 {
			p.vertices.remove(handle(id))
			pruned++
		}
	}
	p.pruneCandidates = p.pruneCandidates[:0]
	return pruned
}

// reverseLoop flips the orientation of a face, and with it the sign of its normal.
func (p *Polytope) reverseLoop(id FaceID) {
	f := p.face(id)
	for _, eid := range f.edges {
		e := p.edge(eid)
		p.vertex(e.origin).detach(eid)
		e.origin, e.destination = e.destination, e.origin
		e.next, e.previous = e.previous, e.next
		v := p.vertex(e.origin)
		v.incident = append(v.incident, eid)
	}
	p.refreshFace(id)
}
