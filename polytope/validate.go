package polytope

import (
	"errors"
)

// Validate checks the mesh structure and, with at least two faces, that the
// polytope is closed, satisfies Euler's formula and is convex within the
// polytope's epsilon. Every problem found is joined into the returned error.
func (p *Polytope) Validate() error {
	var errs []error
	closed := len(p.order) >= 2

	for index, fid := range p.order {
		f := p.face(fid)
		if f == nil {
			errs = append(errs, invariantError("face %d is stale", index))
			continue
		}
		if len(f.edges) == 0 {
			errs = append(errs, invariantError("face %d has no edges", index))
			continue
		}
		if closed && len(f.edges) < 3 {
			errs = append(errs, invariantError("face %d has %d edges", index, len(f.edges)))
		}

		for i, eid := range f.edges {
			e := p.edge(eid)
			if e == nil {
				errs = append(errs, invariantError("face %d edge %d is stale", index, i))
				continue
			}
			if e.face != fid {
				errs = append(errs, invariantError("face %d edge %d belongs to another face", index, i))
			}
			next := f.edges[(i+1)%len(f.edges)]
			if e.next != next || p.edge(next).previous != eid {
				errs = append(errs, invariantError("face %d edge %d is not linked to its successor", index, i))
			}
			if p.edge(next).origin != e.destination {
				errs = append(errs, invariantError("face %d edge %d does not end where the next edge starts", index, i))
			}

			origin := p.vertex(e.origin)
			if origin == nil {
				errs = append(errs, invariantError("face %d edge %d has a stale origin", index, i))
			} else if !containsEdge(origin.incident, eid) {
				errs = append(errs, invariantError("face %d edge %d missing from its origin's incident edges", index, i))
			}

			twin := p.edge(e.twin)
			switch {
			case twin == nil && closed:
				errs = append(errs, invariantError("face %d edge %d has no twin", index, i))
			case twin != nil && (twin.twin != eid || twin.origin != e.destination || twin.destination != e.origin):
				errs = append(errs, invariantError("face %d edge %d has an inconsistent twin", index, i))
			}
		}
	}

	if closed {
		v, e, f := p.NumberOfVertices(), p.NumberOfEdges(), p.NumberOfFaces()
		if v-e+f != 2 {
			errs = append(errs, invariantError("Euler characteristic V-E+F = %d-%d+%d != 2", v, e, f))
		}
		if p.vertices.count != v {
			errs = append(errs, invariantError("%d vertices stored, %d reachable", p.vertices.count, v))
		}
		errs = append(errs, p.validateGeometry()...)
	}

	return errors.Join(errs...)
}

func (p *Polytope) validateGeometry() []error {
	var errs []error
	vertices := p.vertexIDs()
	for index, fid := range p.order {
		f := p.face(fid)
		for _, eid := range f.edges {
			if d := p.signedDistance(f, p.position(p.edge(eid).origin)); d > p.epsilon || d < -p.epsilon {
				errs = append(errs, invariantError("face %d is not planar (%g)", index, d))
				break
			}
		}
		for _, vid := range vertices {
			if d := p.signedDistance(f, p.position(vid)); d > p.epsilon {
				errs = append(errs, invariantError("vertex %v is %g in front of face %d", p.position(vid), d, index))
			}
		}
	}
	return errs
}

func containsEdge(edges []EdgeID, id EdgeID) bool {
	for _, e := range edges {
		if e == id {
			return true
		}
	}
	return false
}
