package polytope

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// SupportingVertex returns a vertex maximizing its dot product with direction.
//
// It first climbs from face to face towards the normal closest to direction,
// takes the best vertex of that face, then climbs along edges while a
// neighbour projects strictly further. Vertices inside flat regions can stop
// that climb on a plateau; the search then spreads over the connected
// vertices whose height is within epsilon of the plateau and resumes from
// the first vertex it meets strictly above it. Only the top plateau of a
// convex polytope has none.
func (p *Polytope) SupportingVertex(direction mgl64.Vec3) (Vertex, error) {
	if len(p.order) == 0 {
		return Vertex{}, ErrEmptyPolytope
	}
	if !isFinite(direction) {
		return Vertex{}, fmt.Errorf("direction: %w", ErrNonFinitePoint)
	}

	if len(p.order) == 1 {
		return Vertex{polytope: p, id: p.faceSupport(p.face(p.order[0]), direction)}, nil
	}

	current := p.order[0]
	best := p.face(current).normal.Dot(direction)
	for range len(p.order) {
		candidate := current
		for _, eid := range p.face(current).edges {
			twin := p.edge(p.edge(eid).twin)
			if twin == nil {
				continue
			}
			if d := p.face(twin.face).normal.Dot(direction); d > best {
				best = d
				candidate = twin.face
			}
		}
		if candidate == current {
			break
		}
		current = candidate
	}

	vertex := p.faceSupport(p.face(current), direction)
	height := p.position(vertex).Dot(direction)
	tolerance := p.epsilon * direction.Len()
	// every step strictly raises the height
	for range p.vertices.count {
		next, h := p.climb(vertex, height, direction)
		if next == vertex {
			next, h = p.leavePlateau(vertex, height, tolerance, direction)
			if next == vertex {
				break
			}
		}
		vertex, height = next, h
	}

	return Vertex{polytope: p, id: vertex}, nil
}

// climb returns the highest neighbour of vertex along direction if it is
// strictly higher than height, vertex otherwise.
func (p *Polytope) climb(vertex VertexID, height float64, direction mgl64.Vec3) (VertexID, float64) {
	next := vertex
	for _, eid := range p.vertex(vertex).incident {
		w := p.edge(eid).destination
		if d := p.position(w).Dot(direction); d > height {
			height = d
			next = w
		}
	}
	return next, height
}

// leavePlateau searches breadth first from start through the vertices whose
// height stays within tolerance below height, and returns the first vertex
// met strictly above height. It returns start when there is none. Support
// queries never write to the polytope, so visits are tracked locally.
func (p *Polytope) leavePlateau(start VertexID, height, tolerance float64, direction mgl64.Vec3) (VertexID, float64) {
	seen := map[VertexID]bool{start: true}
	queue := []VertexID{start}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, eid := range p.vertex(v).incident {
			w := p.edge(eid).destination
			if seen[w] {
				continue
			}
			seen[w] = true
			d := p.position(w).Dot(direction)
			if d > height {
				return w, d
			}
			if d >= height-tolerance {
				queue = append(queue, w)
			}
		}
	}
	return start, height
}

// Support returns the position of the supporting vertex along direction.
func (p *Polytope) Support(direction mgl64.Vec3) (mgl64.Vec3, error) {
	v, err := p.SupportingVertex(direction)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return v.Position(), nil
}
