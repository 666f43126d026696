package convex

import (
	"sort"
	"sync"

	"github.com/akmonengine/convex/epa"
	"github.com/akmonengine/convex/gjk"
	"github.com/akmonengine/convex/spatial"
	"go.uber.org/zap"
)

// CollisionPair is a pair found intersecting by GJK, with the simplex EPA
// starts from.
type CollisionPair struct {
	Pair
	simplex *gjk.Simplex
}

// Contact is an intersecting pair and the translation separating it.
type Contact struct {
	Pair
	epa.Penetration
}

// BroadPhase indexes boxes in spatialGrid and streams the pairs whose boxes
// overlap.
func BroadPhase(spatialGrid *SpatialGrid, boxes []spatial.AABB, workersCount int) <-chan Pair {
	spatialGrid.Clear()
	for i, box := range boxes {
		spatialGrid.Insert(i, box)
	}
	spatialGrid.SortCells()

	return spatialGrid.FindPairsParallel(boxes, workersCount)
}

// NarrowPhase runs GJK on every candidate pair and returns the intersecting
// pairs ordered by A then B. Shapes are indexed by the pair indices and must
// support concurrent queries.
func NarrowPhase[S gjk.Supporter](pairs <-chan Pair, shapes []S, workersCount int) []Pair {
	result := make([]Pair, 0)
	for cp := range GJK(pairs, shapes, workersCount) {
		gjk.SimplexPool.Put(cp.simplex)
		result = append(result, cp.Pair)
	}

	sortPairs(result)
	return result
}

// ContactPhase runs GJK then EPA on every candidate pair and returns the
// contacts ordered by A then B. Pairs whose EPA fails are logged and dropped.
func ContactPhase[S gjk.Supporter](pairs <-chan Pair, shapes []S, workersCount int, log *zap.Logger) []Contact {
	contacts := make([]Contact, 0)
	for c := range EPA(GJK(pairs, shapes, workersCount), shapes, workersCount, log) {
		contacts = append(contacts, c)
	}

	sort.Slice(contacts, func(i, j int) bool {
		return pairLess(contacts[i].Pair, contacts[j].Pair)
	})
	return contacts
}

// GJK streams the pairs that intersect. Each carries a pooled simplex that
// the consumer must put back into gjk.SimplexPool.
func GJK[S gjk.Supporter](pairChan <-chan Pair, shapes []S, workersCount int) <-chan CollisionPair {
	workersCount = max(1, workersCount)
	collisionChan := make(chan CollisionPair, workersCount)

	go func() {
		var wg sync.WaitGroup
		defer close(collisionChan)

		for range workersCount {
			wg.Add(1)
			go func() {
				defer wg.Done()

				for p := range pairChan {
					simplex := gjk.SimplexPool.Get().(*gjk.Simplex)
					simplex.Reset()

					if collision := gjk.GJK(shapes[p.A], shapes[p.B], simplex); collision {
						collisionChan <- CollisionPair{
							Pair:    p,
							simplex: simplex,
						}
					} else {
						gjk.SimplexPool.Put(simplex)
					}
				}
			}()
		}
		wg.Wait()
	}()

	return collisionChan
}

// EPA streams the penetration of every colliding pair and releases their
// simplices.
func EPA[S gjk.Supporter](p <-chan CollisionPair, shapes []S, workersCount int, log *zap.Logger) <-chan Contact {
	workersCount = max(1, workersCount)
	ch := make(chan Contact, workersCount)

	go func() {
		var wg sync.WaitGroup
		defer close(ch)

		for range workersCount {
			wg.Add(1)
			go func() {
				defer wg.Done()

				for cp := range p {
					penetration, err := epa.EPA(shapes[cp.A], shapes[cp.B], cp.simplex)
					gjk.SimplexPool.Put(cp.simplex)
					if err != nil {
						log.Warn("penetration not found", zap.Int("a", cp.A), zap.Int("b", cp.B), zap.Error(err))
						continue
					}

					ch <- Contact{Pair: cp.Pair, Penetration: penetration}
				}
			}()
		}
		wg.Wait()
	}()

	return ch
}

func sortPairs(pairs []Pair) {
	sort.Slice(pairs, func(i, j int) bool {
		return pairLess(pairs[i], pairs[j])
	})
}

func pairLess(a, b Pair) bool {
	if a.A != b.A {
		return a.A < b.A
	}
	return a.B < b.B
}
