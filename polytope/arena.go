package polytope

// handle addresses a slot of an arena. A zero generation never matches a
// live slot, so the zero handle is the "none" value for every ID type.
type handle struct {
	index      int32
	generation uint32
}

// VertexID is a stable reference to a vertex of a Polytope.
type VertexID handle

// EdgeID is a stable reference to a half-edge of a Polytope.
type EdgeID handle

// FaceID is a stable reference to a face of a Polytope.
type FaceID handle

// IsValid reports whether the ID was ever issued; it does not check liveness.
func (id VertexID) IsValid() bool { return id.generation != 0 }

// IsValid reports whether the ID was ever issued; it does not check liveness.
func (id EdgeID) IsValid() bool { return id.generation != 0 }

// IsValid reports whether the ID was ever issued; it does not check liveness.
func (id FaceID) IsValid() bool { return id.generation != 0 }

type slot[T any] struct {
	value      T
	generation uint32
	live       bool
}

// arena stores records in a slice and recycles freed slots through a free
// list. Reused slots get a new generation so stale handles stop resolving.
type arena[T any] struct {
	slots []slot[T]
	free  []int32
	count int
}

func newArena[T any](capacity int) arena[T] {
	return arena[T]{
		slots: make([]slot[T], 0, capacity),
	}
}

func (a *arena[T]) insert(value T) handle {
	a.count++
	if n := len(a.free); n > 0 {
		index := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[index]
		s.value = value
		s.live = true
		s.generation++
		if s.generation == 0 {
			s.generation = 1
		}
		return handle{index: index, generation: s.generation}
	}

	a.slots = append(a.slots, slot[T]{value: value, generation: 1, live: true})
	return handle{index: int32(len(a.slots) - 1), generation: 1}
}

func (a *arena[T]) get(h handle) *T {
	if h.generation == 0 || h.index < 0 || int(h.index) >= len(a.slots) {
		return nil
	}
	s := &a.slots[h.index]
	if !s.live || s.generation != h.generation {
		return nil
	}
	return &s.value
}

func (a *arena[T]) remove(h handle) bool {
	if a.get(h) == nil {
		return false
	}
	s := &a.slots[h.index]
	var zero T
	s.value = zero
	s.live = false
	a.free = append(a.free, h.index)
	a.count--
	return true
}

// each visits live slots in index order until fn returns false.
func (a *arena[T]) each(fn func(h handle, value *T) bool) {
	for i := range a.slots {
		s := &a.slots[i]
		if !s.live {
			continue
		}
		if !fn(handle{index: int32(i), generation: s.generation}, &s.value) {
			return
		}
	}
}

func (a *arena[T]) reset() {
	a.slots = a.slots[:0]
	a.free = a.free[:0]
	a.count = 0
}

// clone copies the slot table; cloneValue deep-copies record internals.
func (a *arena[T]) clone(cloneValue func(T) T) arena[T] {
	out := arena[T]{
		slots: make([]slot[T], len(a.slots), cap(a.slots)),
		free:  append([]int32(nil), a.free...),
		count: a.count,
	}
	for i, s := range a.slots {
		if s.live && cloneValue != nil {
			s.value = cloneValue(s.value)
		}
		out.slots[i] = s
	}
	return out
}
