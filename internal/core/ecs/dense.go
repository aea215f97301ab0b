package ecs

// Dense is an insertion-ordered store of T keyed by EntityID. Values live in
// one contiguous slice; a sparse slot table maps an ID's index to its
// position. Pointers returned by Get/At are valid until the next Insert or
// RemoveIf, so callers hold IDs across mutations, never pointers.
type Dense[T any] struct {
	ids   []EntityID
	items []T
	slots []int32 // by EntityID.Index(); -1 = vacant
}

func NewDense[T any](capacity int) *Dense[T] {
	return &Dense[T]{
		ids:   make([]EntityID, 0, capacity),
		items: make([]T, 0, capacity),
		slots: make([]int32, 0, capacity),
	}
}

// Insert appends v under id, which must not already be stored.
func (d *Dense[T]) Insert(id EntityID, v T) *T {
	idx := int(id.Index())
	for len(d.slots) <= idx {
		d.slots = append(d.slots, -1)
	}
	if d.slots[idx] >= 0 {
		panic("ecs: dense slot already occupied")
	}
	d.slots[idx] = int32(len(d.items))
	d.ids = append(d.ids, id)
	d.items = append(d.items, v)
	return &d.items[len(d.items)-1]
}

func (d *Dense[T]) slot(id EntityID) (int, bool) {
	idx := int(id.Index())
	if idx >= len(d.slots) {
		return 0, false
	}
	s := d.slots[idx]
	if s < 0 || d.ids[s] != id {
		return 0, false
	}
	return int(s), true
}

// Get resolves id. Stale or unknown IDs report false.
func (d *Dense[T]) Get(id EntityID) (*T, bool) {
	s, ok := d.slot(id)
	if !ok {
		return nil, false
	}
	return &d.items[s], true
}

func (d *Dense[T]) Has(id EntityID) bool {
	_, ok := d.slot(id)
	return ok
}

func (d *Dense[T]) Len() int {
	return len(d.items)
}

// At returns the i-th entry in insertion order.
func (d *Dense[T]) At(i int) (EntityID, *T) {
	return d.ids[i], &d.items[i]
}

func (d *Dense[T]) Each(fn func(EntityID, *T)) {
	for i := range d.items {
		fn(d.ids[i], &d.items[i])
	}
}

// RemoveIf drops every entry for which remove reports true, keeping the
// survivors in order. onRemove, if set, sees each dropped entry while it is
// still resolvable through Get. Returns the number removed.
func (d *Dense[T]) RemoveIf(remove func(EntityID, *T) bool, onRemove func(EntityID, *T)) int {
	w := 0
	for r := range d.items {
		id := d.ids[r]
		if remove(id, &d.items[r]) {
			if onRemove != nil {
				onRemove(id, &d.items[r])
			}
			d.slots[id.Index()] = -1
			continue
		}
		if w != r {
			d.ids[w] = id
			d.items[w] = d.items[r]
		}
		d.slots[id.Index()] = int32(w)
		w++
	}
	removed := len(d.items) - w
	var zero T
	for i := w; i < len(d.items); i++ {
		d.items[i] = zero
	}
	d.ids = d.ids[:w]
	d.items = d.items[:w]
	return removed
}

// Clear drops every entry.
func (d *Dense[T]) Clear() {
	for _, id := range d.ids {
		d.slots[id.Index()] = -1
	}
	d.ids = d.ids[:0]
	var zero T
	for i := range d.items {
		d.items[i] = zero
	}
	d.items = d.items[:0]
}
