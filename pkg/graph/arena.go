package graph

import "fmt"

type slot[T any] struct {
	gen  uint32
	live bool
	val  T
}

// arena stores values addressed by generational handles and remembers the
// order in which live values were created.
type arena[T any] struct {
	slots []slot[T]
	free  []uint32
	order []uint32
}

func (a arena[T]) clone() arena[T] {
	return arena[T]{
		slots: append([]slot[T](nil), a.slots...),
		free:  append([]uint32(nil), a.free...),
		order: append([]uint32(nil), a.order...),
	}
}

func (a *arena[T]) alloc() Handle {
	if n := len(a.free); n > 0 {
		idx := a.free[n-1]
		a.free = a.free[:n-1]
		s := &a.slots[idx]
		s.gen++
		s.live = true
		a.order = append(a.order, idx)
		return Handle{Index: idx, Gen: s.gen}
	}
	idx := uint32(len(a.slots))
	a.slots = append(a.slots, slot[T]{gen: 1, live: true})
	a.order = append(a.order, idx)
	return Handle{Index: idx, Gen: 1}
}

func (a *arena[T]) lookup(h Handle) (*slot[T], bool) {
	if h.IsZero() || int(h.Index) >= len(a.slots) {
		return nil, false
	}
	s := &a.slots[h.Index]
	if !s.live || s.gen != h.Gen {
		return nil, false
	}
	return s, true
}

func (a *arena[T]) get(h Handle) (T, bool) {
	s, ok := a.lookup(h)
	if !ok {
		var zero T
		return zero, false
	}
	return s.val, true
}

func (a *arena[T]) set(h Handle, v T) bool {
	s, ok := a.lookup(h)
	if !ok {
		return false
	}
	s.val = v
	return true
}

func (a *arena[T]) remove(h Handle) bool {
	s, ok := a.lookup(h)
	if !ok {
		return false
	}
	var zero T
	s.live = false
	s.val = zero
	a.free = append(a.free, h.Index)
	for i, idx := range a.order {
		if idx == h.Index {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
	return true
}

// MaxHandleIndex bounds the slot index a snapshot may name, so a forged
// handle cannot make place allocate an arbitrarily large slot table.
const MaxHandleIndex = 1 << 16

// place installs v at exactly h, growing the slot table as needed. It is used
// when rebuilding an arena from a snapshot, where handles must survive.
func (a *arena[T]) place(h Handle, v T) error {
	if h.IsZero() {
		return fmt.Errorf("zero handle")
	}
	if h.Index >= MaxHandleIndex {
		return fmt.Errorf("handle index %d exceeds limit %d", h.Index, MaxHandleIndex)
	}
	for int(h.Index) >= len(a.slots) {
		a.slots = append(a.slots, slot[T]{})
	}
	s := &a.slots[h.Index]
	if s.live {
		return fmt.Errorf("duplicate handle %d.%d", h.Index, h.Gen)
	}
	s.gen = h.Gen
	s.live = true
	s.val = v
	a.order = append(a.order, h.Index)
	return nil
}

// seal rebuilds the free list after a series of place calls.
func (a *arena[T]) seal() {
	a.free = a.free[:0]
	for i := len(a.slots) - 1; i >= 0; i-- {
		if !a.slots[i].live {
			a.free = append(a.free, uint32(i))
		}
	}
}

func (a *arena[T]) values() []T {
	out := make([]T, 0, len(a.order))
	for _, idx := range a.order {
		out = append(out, a.slots[idx].val)
	}
	return out
}

func (a *arena[T]) len() int { return len(a.order) }
