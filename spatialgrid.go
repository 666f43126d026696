package convex

import (
	"math"
	"sort"
	"sync"

	"github.com/akmonengine/convex/spatial"
	"github.com/go-gl/mathgl/mgl64"
)

// CellKey is the integer coordinate of a grid cell.
type CellKey struct {
	X, Y, Z int
}

// Cell holds the indices of the boxes touching it, possibly from several
// world cells sharing the same hash.
type Cell struct {
	bodyIndices []int
}

// Pair is an unordered pair of body indices, A < B.
type Pair struct {
	A, B int
}

// SpatialGrid is a uniform hashed grid over axis-aligned boxes.
type SpatialGrid struct {
	cellSize float64
	cells    []Cell
	cellMask int
}

// NewSpatialGrid returns a grid of cubic cells of side cellSize. numCells is
// rounded up to a power of two.
func NewSpatialGrid(cellSize float64, numCells int) *SpatialGrid {
	numCells = nextPowerOfTwo(numCells)

	cells := make([]Cell, numCells)
	for i := range cells {
		cells[i].bodyIndices = make([]int, 0, 8)
	}

	return &SpatialGrid{
		cellSize: cellSize,
		cells:    cells,
		cellMask: numCells - 1,
	}
}

func nextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n++
	return n
}

// Insert registers box under bodyIndex in every cell it overlaps. Empty
// boxes are ignored.
func (sg *SpatialGrid) Insert(bodyIndex int, box spatial.AABB) {
	if box.IsEmpty() {
		return
	}

	sg.eachCell(box, func(cellIdx int) {
		sg.cells[cellIdx].bodyIndices = append(sg.cells[cellIdx].bodyIndices, bodyIndex)
	})
}

func (sg *SpatialGrid) Clear() {
	for i := range sg.cells {
		sg.cells[i].bodyIndices = sg.cells[i].bodyIndices[:0]
	}
}

func (sg *SpatialGrid) SortCells() {
	for i := range sg.cells {
		if len(sg.cells[i].bodyIndices) > 1 {
			sort.Ints(sg.cells[i].bodyIndices)
		}
	}
}

// FindPairs returns the pairs of overlapping boxes, boxes being indexed as
// they were inserted. Pairs are ordered by A then B.
func (sg *SpatialGrid) FindPairs(boxes []spatial.AABB) []Pair {
	pairs := make([]Pair, 0, len(boxes)/2)
	seen := make([]bool, len(boxes))

	for bodyIdx := range boxes {
		pairs = sg.appendPairs(pairs, boxes, bodyIdx, seen)
	}

	return pairs
}

// FindPairsParallel splits the boxes between numWorkers goroutines and
// streams the overlapping pairs. The channel is closed once every worker is
// done. Pairs arrive in no particular order.
func (sg *SpatialGrid) FindPairsParallel(boxes []spatial.AABB, numWorkers int) <-chan Pair {
	numWorkers = max(1, numWorkers)

	var wg sync.WaitGroup
	pairsChan := make(chan Pair, numWorkers*10)

	bodiesPerWorker := max(1, len(boxes)/numWorkers)

	for w := 0; w < numWorkers; w++ {
		startIdx := w * bodiesPerWorker
		endIdx := min(startIdx+bodiesPerWorker, len(boxes))
		if w == numWorkers-1 {
			endIdx = len(boxes)
		}
		if startIdx >= endIdx {
			continue
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			seen := make([]bool, len(boxes))
			var pairs []Pair
			for bodyIdx := start; bodyIdx < end; bodyIdx++ {
				pairs = sg.appendPairs(pairs[:0], boxes, bodyIdx, seen)
				for _, pair := range pairs {
					pairsChan <- pair
				}
			}
		}(startIdx, endIdx)
	}

	go func() {
		wg.Wait()
		close(pairsChan)
	}()

	return pairsChan
}

// appendPairs appends the pairs (bodyIdx, other) with other > bodyIdx. seen
// must be all false on entry and is left all false.
func (sg *SpatialGrid) appendPairs(pairs []Pair, boxes []spatial.AABB, bodyIdx int, seen []bool) []Pair {
	box := boxes[bodyIdx]
	if box.IsEmpty() {
		return pairs
	}

	first := len(pairs)
	sg.eachCell(box, func(cellIdx int) {
		for _, otherIdx := range sg.cells[cellIdx].bodyIndices {
			// (A,B) only, never (B,A)
			if otherIdx <= bodyIdx || seen[otherIdx] {
				continue
			}
			seen[otherIdx] = true

			if box.Overlaps(boxes[otherIdx]) {
				pairs = append(pairs, Pair{A: bodyIdx, B: otherIdx})
			}
		}
	})

	sg.eachCell(box, func(cellIdx int) {
		for _, otherIdx := range sg.cells[cellIdx].bodyIndices {
			seen[otherIdx] = false
		}
	})

	sort.Slice(pairs[first:], func(i, j int) bool {
		return pairs[first+i].B < pairs[first+j].B
	})
	return pairs
}

func (sg *SpatialGrid) eachCell(box spatial.AABB, fn func(cellIdx int)) {
	minCell := sg.worldToCell(box.Min)
	maxCell := sg.worldToCell(box.Max)

	for x := minCell.X; x <= maxCell.X; x++ {
		for y := minCell.Y; y <= maxCell.Y; y++ {
			for z := minCell.Z; z <= maxCell.Z; z++ {
				fn(sg.hashCell(CellKey{x, y, z}))
			}
		}
	}
}

func (sg *SpatialGrid) worldToCell(pos mgl64.Vec3) CellKey {
	return CellKey{
		X: int(math.Floor(pos.X() / sg.cellSize)),
		Y: int(math.Floor(pos.Y() / sg.cellSize)),
		Z: int(math.Floor(pos.Z() / sg.cellSize)),
	}
}

func (sg *SpatialGrid) hashCell(key CellKey) int {
	h := (key.X * 73856093) ^ (key.Y * 19349663) ^ (key.Z * 83492791)
	return h & sg.cellMask
}
