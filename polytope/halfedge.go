package polytope

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

type edgeRecord struct {
	origin      VertexID
	destination VertexID
	next        EdgeID
	previous    EdgeID
	twin        EdgeID
	face        FaceID
}

// HalfEdge is a read-only view of a directed edge on a face boundary.
type HalfEdge struct {
	polytope *Polytope
	id       EdgeID
}

func (e HalfEdge) ID() EdgeID {
	return e.id
}

// IsValid reports whether the half-edge still exists in its polytope.
func (e HalfEdge) IsValid() bool {
	return e.record() != nil
}

func (e HalfEdge) Origin() Vertex {
	return Vertex{polytope: e.polytope, id: e.recordOrZero().origin}
}

func (e HalfEdge) Destination() Vertex {
	return Vertex{polytope: e.polytope, id: e.recordOrZero().destination}
}

// Next returns the following half-edge of the same face loop.
func (e HalfEdge) Next() HalfEdge {
	return HalfEdge{polytope: e.polytope, id: e.recordOrZero().next}
}

// Previous returns the preceding half-edge of the same face loop.
func (e HalfEdge) Previous() HalfEdge {
	return HalfEdge{polytope: e.polytope, id: e.recordOrZero().previous}
}

// Twin returns the opposite half-edge. The second result is false on the
// boundary of a single planar face, where no twin exists.
func (e HalfEdge) Twin() (HalfEdge, bool) {
	r := e.record()
	if r == nil || e.polytope.edge(r.twin) == nil {
		return HalfEdge{}, false
	}
	return HalfEdge{polytope: e.polytope, id: r.twin}, true
}

// Face returns the face owning this half-edge.
func (e HalfEdge) Face() Face {
	return Face{polytope: e.polytope, id: e.recordOrZero().face}
}

// NeighboringFace returns the face on the other side of the edge.
func (e HalfEdge) NeighboringFace() (Face, error) {
	twin, ok := e.Twin()
	if !ok {
		return Face{}, ErrNoNeighbor
	}
	return twin.Face(), nil
}

// Direction returns destination minus origin.
func (e HalfEdge) Direction() mgl64.Vec3 {
	return e.Destination().Position().Sub(e.Origin().Position())
}

func (e HalfEdge) Length() float64 {
	return e.Direction().Len()
}

func (e HalfEdge) String() string {
	return fmt.Sprintf("%s -> %s", e.Origin(), e.Destination())
}

func (e HalfEdge) record() *edgeRecord {
	if e.polytope == nil {
		return nil
	}
	return e.polytope.edge(e.id)
}

func (e HalfEdge) recordOrZero() edgeRecord {
	if r := e.record(); r != nil {
		return *r
	}
	return edgeRecord{}
}
