package polytope

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

type vertexRecord struct {
	position mgl64.Vec3
	// outgoing half-edges
	incident []EdgeID
	visit    uint32
}

// Vertex is a read-only view of a polytope vertex. It stays usable until the
// vertex is removed by a later insertion.
type Vertex struct {
	polytope *Polytope
	id       VertexID
}

// ID returns the stable identifier of the vertex.
func (v Vertex) ID() VertexID {
	return v.id
}

// IsValid reports whether the vertex still exists in its polytope.
func (v Vertex) IsValid() bool {
	return v.polytope != nil && v.polytope.vertex(v.id) != nil
}

func (v Vertex) Position() mgl64.Vec3 {
	if r := v.record(); r != nil {
		return r.position
	}
	return mgl64.Vec3{}
}

func (v Vertex) NumberOfIncidentEdges() int {
	if r := v.record(); r != nil {
		return len(r.incident)
	}
	return 0
}

// IncidentEdges returns the half-edges leaving the vertex.
func (v Vertex) IncidentEdges() []HalfEdge {
	r := v.record()
	if r == nil {
		return nil
	}
	edges := make([]HalfEdge, len(r.incident))
	for i, id := range r.incident {
		edges[i] = HalfEdge{polytope: v.polytope, id: id}
	}
	return edges
}

// Faces returns the faces around the vertex, one per outgoing half-edge.
func (v Vertex) Faces() []Face {
	r := v.record()
	if r == nil {
		return nil
	}
	faces := make([]Face, 0, len(r.incident))
	for _, id := range r.incident {
		faces = append(faces, Face{polytope: v.polytope, id: v.polytope.edge(id).face})
	}
	return faces
}

// DotProduct returns the projection of the vertex position on direction.
func (v Vertex) DotProduct(direction mgl64.Vec3) float64 {
	return v.Position().Dot(direction)
}

func (v Vertex) String() string {
	p := v.Position()
	return fmt.Sprintf("(%g, %g, %g)", p.X(), p.Y(), p.Z())
}

func (v Vertex) record() *vertexRecord {
	if v.polytope == nil {
		return nil
	}
	return v.polytope.vertex(v.id)
}

func (r *vertexRecord) detach(edge EdgeID) {
	for i, id := range r.incident {
		if id == edge {
			last := len(r.incident) - 1
			r.incident[i] = r.incident[last]
			r.incident = r.incident[:last]
			return
		}
	}
}
