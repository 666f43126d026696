// Package convex places convex hulls in a scene, rebuilds their world-space
// copies in parallel and finds the pairs of bodies that overlap.
package convex

import (
	"errors"
	"fmt"
	"sync"

	"github.com/akmonengine/convex/polytope"
	"github.com/akmonengine/convex/spatial"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

const (
	DEFAULT_WORKERS    = 1
	DEFAULT_CELL_SIZE  = 1.0
	DEFAULT_GRID_CELLS = 1024
)

// Scene owns a set of bodies. Its methods are safe for concurrent use; the
// bodies themselves must only be changed through the scene once added.
type Scene struct {
	// Number of goroutines used by Build, BroadPhase and Overlaps
	Workers int
	// Side of a broad-phase grid cell, in world units
	CellSize float64
	Logger   *zap.Logger

	mu          sync.RWMutex
	bodies      []*Body
	spatialGrid *SpatialGrid
	events      *Events
}

// AddBody adds body to the scene. Names need not be unique.
func (s *Scene) AddBody(body *Body) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bodies = append(s.bodies, body)
}

// RemoveBody removes body from the scene and reports whether it was present.
func (s *Scene) RemoveBody(body *Body) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := -1
	for i, b := range s.bodies {
		if b == body {
			k = i
			break
		}
	}

	if k == -1 {
		return false
	}
	s.bodies = append(s.bodies[:k], s.bodies[k+1:]...)
	if s.events != nil {
		s.events.removeBody(body)
	}
	return true
}

// Subscribe registers listener for eventType. Events are emitted by Overlaps,
// after the scene is unlocked.
func (s *Scene) Subscribe(eventType EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.overlapEvents().Subscribe(eventType, listener)
}

// Bodies returns the bodies in insertion order. Pair indices refer to it.
func (s *Scene) Bodies() []*Body {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return append([]*Body(nil), s.bodies...)
}

// Body returns the first body named name.
func (s *Scene) Body(name string) (*Body, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, b := range s.bodies {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// AddPoints grows the local hull of body. The world-space hull is stale until
// the next Build.
func (s *Scene) AddPoints(body *Body, points ...mgl64.Vec3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := body.Local.Add(points...); err != nil {
		return fmt.Errorf("body %q: %w", body.Name, err)
	}
	return nil
}

// SetTransform moves body. Support queries follow at once, the world-space
// hull and bounds at the next Build.
func (s *Scene) SetTransform(body *Body, transform spatial.Transform) error {
	if !transform.IsFinite() {
		return fmt.Errorf("body %q: transform: %w", body.Name, polytope.ErrNonFinitePoint)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	body.Transform = transform
	return nil
}

// Build rebuilds the world-space hull of every body, one body per worker at
// a time. A body that fails keeps its previous hull; every failure is joined
// into the returned error.
func (s *Scene) Build() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		errMu sync.Mutex
		errs  []error
	)
	task(s.workers(), s.bodies, func(body *Body) {
		if err := body.build(); err != nil {
			errMu.Lock()
			errs = append(errs, err)
			errMu.Unlock()
			return
		}
		s.logger().Debug("body built",
			zap.String("body", body.Name),
			zap.Int("vertices", body.world.NumberOfVertices()),
			zap.Int("faces", body.world.NumberOfFaces()),
		)
	})

	s.logger().Info("scene built",
		zap.Int("bodies", len(s.bodies)),
		zap.Int("failed", len(errs)),
	)
	return errors.Join(errs...)
}

// Snapshot returns deep copies of the world-space hulls, in body order. A
// body never built yields nil.
func (s *Scene) Snapshot() []*polytope.Polytope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hulls := make([]*polytope.Polytope, len(s.bodies))
	task(s.workers(), s.indices(), func(i int) {
		if world := s.bodies[i].world; world != nil {
			hulls[i] = world.Clone()
		}
	})
	return hulls
}

// BroadPhase returns the pairs of bodies whose last built bounds overlap,
// ordered by A then B.
func (s *Scene) BroadPhase() []Pair {
	s.mu.Lock()
	defer s.mu.Unlock()

	pairs := make([]Pair, 0)
	for pair := range BroadPhase(s.grid(), s.boxes(), s.workers()) {
		pairs = append(pairs, pair)
	}
	sortPairs(pairs)

	s.logger().Debug("broad phase", zap.Int("pairs", len(pairs)))
	return pairs
}

// Overlaps returns the pairs of bodies that intersect, touching included,
// ordered by A then B. Each call is one step for overlap events: pairs new
// since the previous call enter, pairs still intersecting stay, the others exit.
func (s *Scene) Overlaps() []Pair {
	s.mu.Lock()
	pairs := NarrowPhase(BroadPhase(s.grid(), s.boxes(), s.workers()), s.bodies, s.workers())

	events := s.overlapEvents()
	events.recordOverlaps(s.bodies, pairs)
	deliveries := events.flush()
	s.mu.Unlock()

	s.logger().Debug("narrow phase", zap.Int("overlaps", len(pairs)), zap.Int("events", len(deliveries)))
	deliver(deliveries)
	return pairs
}

// Contacts returns the intersecting pairs with the translation separating
// them, ordered by A then B.
func (s *Scene) Contacts() []Contact {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts := ContactPhase(BroadPhase(s.grid(), s.boxes(), s.workers()), s.bodies, s.workers(), s.logger())

	s.logger().Debug("contact phase", zap.Int("contacts", len(contacts)))
	return contacts
}

func (s *Scene) workers() int {
	return max(DEFAULT_WORKERS, s.Workers)
}

func (s *Scene) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Scene) overlapEvents() *Events {
	if s.events == nil {
		events := NewEvents()
		s.events = &events
	}
	return s.events
}

func (s *Scene) grid() *SpatialGrid {
	cellSize := s.CellSize
	if cellSize <= 0 {
		cellSize = DEFAULT_CELL_SIZE
	}
	if s.spatialGrid == nil || s.spatialGrid.cellSize != cellSize {
		s.spatialGrid = NewSpatialGrid(cellSize, DEFAULT_GRID_CELLS)
	}
	return s.spatialGrid
}

func (s *Scene) boxes() []spatial.AABB {
	boxes := make([]spatial.AABB, len(s.bodies))
	for i, body := range s.bodies {
		boxes[i] = body.AABB()
	}
	return boxes
}

func (s *Scene) indices() []int {
	indices := make([]int, len(s.bodies))
	for i := range indices {
		indices[i] = i
	}
	return indices
}
