package polytope

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// span is a stretch of consecutive silhouette edges turned into one fan
// element: a new triangle, or when extend is set, the growth of the
// on-plane face owning every edge of the stretch.
type span struct {
	first, last int
	extend      bool
}

// Add inserts points in order using the polytope's default epsilon.
func (p *Polytope) Add(points ...mgl64.Vec3) error {
	return p.AddVertices(p.epsilon, points...)
}

// AddVertices inserts points in order and stops at the first one that fails.
func (p *Polytope) AddVertices(epsilon float64, points ...mgl64.Vec3) error {
	for i, point := range points {
		if err := p.AddVertex(point, epsilon); err != nil {
			return fmt.Errorf("point %d: %w", i, err)
		}
	}
	return nil
}

// AddVertex grows the polytope into the convex hull of itself and point.
// Points within epsilon of the current hull leave it unchanged. On error the
// polytope is left as it was.
func (p *Polytope) AddVertex(point mgl64.Vec3, epsilon float64) error {
	if math.IsNaN(epsilon) || math.IsInf(epsilon, 0) || epsilon < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidEpsilon, epsilon)
	}
	if !isFinite(point) {
		return fmt.Errorf("%w: %v", ErrNonFinitePoint, point)
	}

	p.clearMarks()

	var err error
	switch len(p.order) {
	case 0:
		p.start(point)
	case 1:
		err = p.insertIntoFace(point, epsilon)
	default:
		err = p.insertIntoHull(point, epsilon)
	}
	return err
}

func (p *Polytope) start(point mgl64.Vec3) {
	face := p.newFace()
	p.buildLoop(face, []VertexID{p.newVertex(point)})
	p.logger.Debug("polytope started", zap.Float64s("point", point[:]))
}

// insertIntoFace handles the planar stages: point, segment and polygon.
func (p *Polytope) insertIntoFace(point mgl64.Vec3, epsilon float64) error {
	id := p.order[0]
	if math.Abs(p.signedDistance(p.face(id), point)) <= epsilon {
		p.insertCoplanar(id, point, epsilon)
		p.pruneVertices()
		return nil
	}
	p.lift(id, point)
	p.pruneVertices()
	return nil
}

func (p *Polytope) insertCoplanar(id FaceID, point mgl64.Vec3, epsilon float64) {
	vertices := p.loopVertices(id)

	switch len(vertices) {
	case 1:
		if point.Sub(p.position(vertices[0])).Len() <= epsilon {
			return
		}
		p.replaceLoop(id, []VertexID{vertices[0], p.newVertex(point)})
	case 2:
		a, b := p.position(vertices[0]), p.position(vertices[1])
		ab, ap := b.Sub(a), point.Sub(a)
		length := ab.Len()
		if length == 0 {
			p.replaceLoop(id, []VertexID{vertices[0], p.newVertex(point)})
			break
		}
		if ab.Cross(ap).Len() > epsilon*length {
			p.replaceLoop(id, []VertexID{vertices[0], vertices[1], p.newVertex(point)})
			break
		}
		t := ap.Dot(ab) / (length * length)
		slack := epsilon / length
		switch {
		case t < -slack:
			p.replaceLoop(id, []VertexID{p.newVertex(point), vertices[1]})
		case t > 1+slack:
			p.replaceLoop(id, []VertexID{vertices[0], p.newVertex(point)})
		}
	default:
		p.insertIntoPolygon(id, vertices, point, epsilon)
	}
}

// insertIntoPolygon replaces the chain of edges that see point with the two
// edges through point.
func (p *Polytope) insertIntoPolygon(id FaceID, vertices []VertexID, point mgl64.Vec3, epsilon float64) {
	normal := p.face(id).normal
	n := len(vertices)
	visible := make([]bool, n)
	seen := 0

	for i := range vertices {
		u := p.position(vertices[i])
		w := p.position(vertices[(i+1)%n])
		edge := w.Sub(u)
		length := edge.Len()
		if length == 0 {
			continue
		}
		rel := point.Sub(u)
		// distance to the edge line, positive on the inner side
		side := edge.Cross(rel).Dot(normal) / length
		switch {
		case side < -epsilon:
			visible[i] = true
		case side <= epsilon:
			t := rel.Dot(edge) / (length * length)
			slack := epsilon / length
			visible[i] = t < -slack || t > 1+slack
		}
		if visible[i] {
			seen++
		}
	}
	if seen == 0 || seen == n {
		return
	}

	start := 0
	for visible[(start+n-1)%n] || !visible[start] {
		start++
	}
	end := start
	for visible[(end+1)%n] {
		end = (end + 1) % n
	}

	kept := make([]VertexID, 0, n-seen+2)
	for i := (end + 1) % n; ; i = (i + 1) % n {
		kept = append(kept, vertices[i])
		if i == start {
			break
		}
	}
	kept = append(kept, p.newVertex(point))
	p.replaceLoop(id, kept)
	p.logger.Debug("planar polygon grown", zap.Int("removed_edges", seen), zap.Int("vertices", len(kept)))
}

// lift turns the single planar face into a closed polytope with apex point.
// The face is flipped first when point is in front of it, so that it becomes
// the base and every fan triangle faces outward.
func (p *Polytope) lift(id FaceID, point mgl64.Vec3) {
	if p.signedDistance(p.face(id), point) > 0 {
		p.reverseLoop(id)
	}

	var boundary []EdgeID
	if p.policy == OnPlaneTriangulate && len(p.face(id).edges) > 3 {
		boundary = p.triangulateBase(id)
	} else {
		boundary = append(boundary, p.face(id).edges...)
	}

	spans := make([]span, len(boundary))
	for i := range boundary {
		spans[i] = span{first: i, last: i}
	}
	apex := p.newVertex(point)
	p.buildFan(boundary, spans, apex)

	p.logger.Debug("polytope lifted",
		zap.Int("base_edges", len(boundary)),
		zap.Int("faces", len(p.order)),
	)
}

// triangulateBase splits a planar face into a fan of triangles around its
// first vertex and returns the outer boundary in loop order.
func (p *Polytope) triangulateBase(id FaceID) []EdgeID {
	vertices := p.loopVertices(id)
	n := len(vertices)
	p.removeFace(id)
	p.compactOrder()

	boundary := make([]EdgeID, 0, n)
	var diagonal EdgeID
	for k := 1; k+1 < n; k++ {
		t := p.newFace()
		p.buildLoop(t, []VertexID{vertices[0], vertices[k], vertices[k+1]})
		edges := p.face(t).edges
		e0, e1, e2 := edges[0], edges[1], edges[2]

		if k == 1 {
			boundary = append(boundary, e0)
		} else {
			p.setTwins(e0, diagonal)
		}
		boundary = append(boundary, e1)
		if k+2 == n {
			boundary = append(boundary, e2)
		} else {
			diagonal = e2
		}
	}
	return boundary
}

// bands scale epsilon into the successively narrower on-plane bands tried
// when an insertion leaves the faces around the new vertex beyond epsilon.
var bands = []float64{1, 1.0 / 4, 1.0 / 16, 1.0 / 64, 0}

// insertIntoHull handles a closed polytope. A point that sees faces only
// beyond epsilon is inserted directly. Otherwise some face plane passes
// within epsilon of it: the result is checked around the new vertex and, if
// it is not planar and convex within epsilon there, redone with a narrower
// on-plane band.
func (p *Polytope) insertIntoHull(point mgl64.Vec3, epsilon float64) error {
	visible, onPlane := p.classify(point, epsilon)
	if visible == 0 {
		p.logger.Debug("point inside hull", zap.Float64s("point", point[:]))
		return nil
	}
	if onPlane == 0 {
		_, err := p.expand(point, visible, onPlane)
		return err
	}

	backup := p.Clone()
	for i, scale := range bands {
		band := epsilon * scale
		if i > 0 {
			p.restore(backup)
			visible, onPlane = p.classify(point, band)
		}
		apex, err := p.expand(point, visible, onPlane)
		if err != nil {
			if i == 0 {
				return err
			}
			continue
		}
		if p.convexAround(apex, epsilon) {
			return nil
		}
		p.logger.Debug("insertion exceeds epsilon", zap.Float64("band", band))
	}

	// No band met epsilon, typically because the neighbourhood was already
	// off: keep the plain insertion.
	p.restore(backup)
	visible, onPlane = p.classify(point, epsilon)
	if _, err := p.expand(point, visible, onPlane); err != nil {
		return err
	}
	p.logger.Warn("faces around inserted point exceed epsilon",
		zap.Float64s("point", point[:]),
		zap.Float64("epsilon", epsilon),
	)
	return nil
}

// expand replaces the faces classified visible by a cone from point and
// returns the new vertex. It fails before any change when the visible
// region or the on-plane policy does not allow it.
func (p *Polytope) expand(point mgl64.Vec3, visible, onPlane int) (VertexID, error) {
	seed, err := p.silhouetteSeed()
	if err != nil {
		return VertexID{}, err
	}
	horizon, err := p.silhouette(seed)
	if err != nil {
		return VertexID{}, err
	}

	// Hidden side of the silhouette, reversed so that each edge starts where
	// the previous one ends.
	fan := make([]EdgeID, len(horizon))
	for i, id := range horizon {
		twin := p.edge(id).twin
		if p.edge(twin) == nil {
			return VertexID{}, invariantError("silhouette edge without twin")
		}
		fan[len(horizon)-1-i] = twin
	}

	fan, spans, err := p.planSpans(fan)
	if err != nil {
		return VertexID{}, err
	}

	interior, border := p.visibleFaces()
	for _, id := range interior {
		p.removeFace(id)
	}
	for _, id := range border {
		p.removeFace(id)
	}
	p.compactOrder()

	apex := p.newVertex(point)
	extended := p.buildFan(fan, spans, apex)

	dissolved := 0
	if p.policy == OnPlaneExtendAll && len(extended) > 0 {
		dissolved = p.dissolveVertices(extended)
	}
	pruned := p.pruneVertices()

	p.logger.Debug("point inserted",
		zap.Int("visible", visible),
		zap.Int("on_plane", onPlane),
		zap.Int("interior_removed", len(interior)),
		zap.Int("silhouette", len(fan)),
		zap.Int("fan_elements", len(spans)),
		zap.Int("dissolved", dissolved),
		zap.Int("pruned", pruned),
		zap.Int("faces", len(p.order)),
	)
	return apex, nil
}

// convexAround reports whether the faces around vertex and their neighbours
// are planar within epsilon, and whether each of those faces has the other's
// vertices at most epsilon in front of it.
func (p *Polytope) convexAround(vertex VertexID, epsilon float64) bool {
	v := p.vertex(vertex)
	if v == nil {
		return true
	}
	for _, eid := range v.incident {
		fid := p.edge(eid).face
		if !p.planarWithin(fid, epsilon) {
			return false
		}
		for _, hid := range p.face(fid).edges {
			twin := p.edge(p.edge(hid).twin)
			if twin == nil {
				return false
			}
			if !p.planarWithin(twin.face, epsilon) ||
				!p.behindWithin(twin.face, fid, epsilon) ||
				!p.behindWithin(fid, twin.face, epsilon) {
				return false
			}
		}
	}
	return true
}

func (p *Polytope) planarWithin(id FaceID, epsilon float64) bool {
	f := p.face(id)
	for _, eid := range f.edges {
		if math.Abs(p.signedDistance(f, p.position(p.edge(eid).origin))) > epsilon {
			return false
		}
	}
	return true
}

// behindWithin reports whether every vertex of face is at most epsilon in
// front of the plane of the other face.
func (p *Polytope) behindWithin(face, plane FaceID, epsilon float64) bool {
	f := p.face(plane)
	for _, eid := range p.face(face).edges {
		if p.signedDistance(f, p.position(p.edge(eid).origin)) > epsilon {
			return false
		}
	}
	return true
}

// restore puts back the geometry saved in backup.
func (p *Polytope) restore(backup *Polytope) {
	p.Set(backup)
	p.pruneCandidates = p.pruneCandidates[:0]
}

func (p *Polytope) classify(point mgl64.Vec3, epsilon float64) (visible, onPlane int) {
	for _, id := range p.order {
		f := p.face(id)
		d := p.signedDistance(f, point)
		switch {
		case d > epsilon:
			f.class = faceVisible
			visible++
		case d >= -epsilon:
			f.class = faceOnPlane
			onPlane++
		default:
			f.class = faceHidden
		}
	}
	return visible, onPlane
}

func (p *Polytope) twinClass(edge EdgeID) (faceClass, bool) {
	twin := p.edge(p.edge(edge).twin)
	if twin == nil {
		return faceHidden, false
	}
	return p.face(twin.face).class, true
}

// silhouetteSeed returns a visible half-edge whose twin is not visible,
// preferring one bordering an on-plane face.
func (p *Polytope) silhouetteSeed() (EdgeID, error) {
	for _, id := range p.order {
		f := p.face(id)
		if f.class != faceOnPlane {
			continue
		}
		for _, eid := range f.edges {
			if class, ok := p.twinClass(eid); ok && class == faceVisible {
				return p.edge(eid).twin, nil
			}
		}
	}
	for _, id := range p.order {
		f := p.face(id)
		if f.class != faceVisible {
			continue
		}
		for _, eid := range f.edges {
			if class, _ := p.twinClass(eid); class != faceVisible {
				return eid, nil
			}
		}
	}
	return EdgeID{}, invariantError("visible region has no boundary")
}

// silhouette walks the boundary of the visible region from seed. From each
// boundary edge it turns around the destination vertex, crossing visible
// faces, until it meets the next edge with a non-visible twin.
func (p *Polytope) silhouette(seed EdgeID) ([]EdgeID, error) {
	limit := p.edges.count
	horizon := []EdgeID{seed}

	steps := 0
	for current := seed; ; {
		e := p.edge(current).next
		for {
			if class, _ := p.twinClass(e); class != faceVisible {
				break
			}
			e = p.edge(p.edge(e).twin).next
			if steps++; steps > limit {
				return nil, invariantError("silhouette walk does not close")
			}
		}
		if e == seed {
			break
		}
		horizon = append(horizon, e)
		current = e
		if steps++; steps > limit {
			return nil, invariantError("silhouette walk does not close")
		}
	}

	boundary := 0
	for _, id := range p.order {
		f := p.face(id)
		if f.class != faceVisible {
			continue
		}
		for _, eid := range f.edges {
			if class, _ := p.twinClass(eid); class != faceVisible {
				boundary++
			}
		}
	}
	if boundary != len(horizon) {
		return nil, invariantError("visible region has %d boundary edges, silhouette has %d", boundary, len(horizon))
	}
	return horizon, nil
}

// planSpans groups the silhouette into fan elements and checks the on-plane
// policy. The silhouette is rotated so that no span wraps around its end.
func (p *Polytope) planSpans(fan []EdgeID) ([]EdgeID, []span, error) {
	n := len(fan)
	owner := func(i int) FaceID {
		return p.edge(fan[i%n]).face
	}
	extendable := func(i int) bool {
		return p.policy != OnPlaneTriangulate && p.face(owner(i)).class == faceOnPlane
	}
	sameRun := func(i, j int) bool {
		return extendable(i) && extendable(j) && owner(i) == owner(j)
	}

	start := -1
	for i := 0; i < n; i++ {
		if !sameRun((i+n-1)%n, i) {
			start = i
			break
		}
	}
	if start < 0 {
		// The whole silhouette lies on one on-plane face.
		spans := make([]span, n)
		for i := range spans {
			spans[i] = span{first: i, last: i}
		}
		return fan, spans, nil
	}
	rotated := append(append(make([]EdgeID, 0, n), fan[start:]...), fan[:start]...)
	fan = rotated

	var spans []span
	runs := make(map[FaceID]int)
	for i := 0; i < n; {
		j := i
		for j+1 < n && sameRun(j, j+1) {
			j++
		}
		s := span{first: i, last: j, extend: extendable(i)}
		if s.extend {
			face := owner(i)
			runs[face]++
			if runs[face] > 1 {
				return nil, nil, fmt.Errorf("%w: face borders the silhouette more than once", ErrAmbiguousTopology)
			}
			if j-i+1 >= len(p.face(face).edges) {
				return nil, nil, fmt.Errorf("%w: silhouette covers a whole face", ErrAmbiguousTopology)
			}
		}
		spans = append(spans, s)
		i = j + 1
	}

	if p.policy == OnPlaneExtend && len(runs) > 1 {
		return nil, nil, fmt.Errorf("%w: %d on-plane faces border the silhouette", ErrAmbiguousTopology, len(runs))
	}
	return fan, spans, nil
}

// visibleFaces splits the visible faces into those surrounded by visible
// faces only and those on the silhouette.
func (p *Polytope) visibleFaces() (interior, border []FaceID) {
	for _, id := range p.order {
		f := p.face(id)
		if f.class != faceVisible {
			continue
		}
		surrounded := true
		for _, eid := range f.edges {
			if class, _ := p.twinClass(eid); class != faceVisible {
				surrounded = false
				break
			}
		}
		if surrounded {
			interior = append(interior, id)
		} else {
			border = append(border, id)
		}
	}
	return interior, border
}

// buildFan closes the hole left by the removed faces with apex. Each span
// yields an edge into apex and an edge out of it; consecutive spans are
// stitched together through those. It returns the endpoints of the extended
// spans.
func (p *Polytope) buildFan(fan []EdgeID, spans []span, apex VertexID) []VertexID {
	ins := make([]EdgeID, len(spans))
	outs := make([]EdgeID, len(spans))
	var endpoints []VertexID

	for i, s := range spans {
		if s.extend {
			run := fan[s.first : s.last+1]
			endpoints = append(endpoints, p.edge(run[0]).origin, p.edge(run[len(run)-1]).destination)
			ins[i], outs[i] = p.extendFace(run, apex)
			continue
		}
		ins[i], outs[i] = p.fanTriangle(fan[s.first], apex)
	}

	for i := range spans {
		p.setTwins(outs[i], ins[(i+1)%len(spans)])
	}
	return endpoints
}

// fanTriangle builds the triangle standing on the hidden half-edge h (x to y):
// y to x twinned with h, then x to apex, then apex to y.
func (p *Polytope) fanTriangle(h EdgeID, apex VertexID) (in, out EdgeID) {
	x, y := p.edge(h).origin, p.edge(h).destination

	face := p.newFace()
	p.buildLoop(face, []VertexID{y, x, apex})
	edges := p.face(face).edges
	p.setTwins(edges[0], h)
	return edges[1], edges[2]
}

// extendFace replaces the consecutive half-edges of run, all on one face,
// with two half-edges through apex.
func (p *Polytope) extendFace(run []EdgeID, apex VertexID) (in, out EdgeID) {
	head, tail := p.edge(run[0]), p.edge(run[len(run)-1])
	x, y := head.origin, tail.destination
	before, after := head.previous, tail.next
	face := head.face

	for _, id := range run {
		p.clearEdge(id)
	}

	in = p.newEdge(x, apex, face)
	out = p.newEdge(apex, y, face)
	p.link(before, in)
	p.link(in, out)
	p.link(out, after)
	p.face(face).first = in
	p.refreshFace(face)
	return in, out
}

// dissolveVertices removes the candidates left with exactly two outgoing
// edges, merging the edge pairs on both sides into single edges.
func (p *Polytope) dissolveVertices(candidates []VertexID) int {
	dissolved := 0
	for _, id := range candidates {
		v := p.vertex(id)
		if v == nil || len(v.incident) != 2 {
			continue
		}
		a2, b2 := v.incident[0], v.incident[1]
		a1, b1 := p.edge(a2).previous, p.edge(b2).previous
		faceA, faceB := p.edge(a2).face, p.edge(b2).face
		if faceA == faceB || len(p.face(faceA).edges) <= 3 || len(p.face(faceB).edges) <= 3 {
			continue
		}
		if p.edge(a1).twin != b2 || p.edge(b1).twin != a2 {
			continue
		}

		p.mergeEdges(a1, a2)
		p.mergeEdges(b1, b2)
		p.setTwins(a1, b1)
		dissolved++
	}
	return dissolved
}

// mergeEdges folds drop, the successor of keep, into keep.
func (p *Polytope) mergeEdges(keep, drop EdgeID) {
	d := p.edge(drop)
	destination, after, face := d.destination, d.next, d.face

	p.clearEdge(drop)
	p.edge(keep).destination = destination
	p.link(keep, after)
	p.face(face).first = keep
	p.refreshFace(face)
}

func (p *Polytope) loopVertices(id FaceID) []VertexID {
	f := p.face(id)
	vertices := make([]VertexID, len(f.edges))
	for i, eid := range f.edges {
		vertices[i] = p.edge(eid).origin
	}
	return vertices
}

func isFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
