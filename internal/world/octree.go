package world

import "github.com/flockcity/sim/internal/geom"

// Octree is a static broad-phase over boxes that rarely move (obstacles).
// An entry is stored in every leaf its bounds touch, so QueryBounds
// de-duplicates. Not on the boid hot path; the hash grid serves that.
type Octree[T comparable] struct {
	root        *octNode[T]
	maxDepth    int
	maxCapacity int
	count       int
}

type octEntry[T comparable] struct {
	value  T
	bounds geom.Bounds
}

type octNode[T comparable] struct {
	bounds   geom.Bounds
	depth    int
	children *[8]*octNode[T]
	entries  []octEntry[T]
}

func NewOctree[T comparable](bounds geom.Bounds, maxDepth, maxCapacity int) *Octree[T] {
	return &Octree[T]{
		root:        &octNode[T]{bounds: bounds},
		maxDepth:    maxDepth,
		maxCapacity: maxCapacity,
	}
}

// Insert adds v with its bounds. Bounds outside the root box are kept at the
// root level only until the root subdivides.
func (o *Octree[T]) Insert(v T, b geom.Bounds) {
	o.root.insert(o, octEntry[T]{value: v, bounds: b})
	o.count++
}

// Len is the number of inserted entries.
func (o *Octree[T]) Len() int { return o.count }

// Bounds is the root box.
func (o *Octree[T]) Bounds() geom.Bounds { return o.root.bounds }

// QueryBounds returns every entry whose bounds intersect q, each once.
func (o *Octree[T]) QueryBounds(q geom.Bounds) []T {
	var out []T
	seen := make(map[T]struct{})
	o.root.query(q, func(e octEntry[T]) {
		if _, dup := seen[e.value]; dup {
			return
		}
		seen[e.value] = struct{}{}
		out = append(out, e.value)
	})
	return out
}

// Depth returns the deepest subdivided level, for diagnostics.
func (o *Octree[T]) Depth() int {
	return o.root.maxDepth()
}

func (n *octNode[T]) leaf() bool { return n.children == nil }

func (n *octNode[T]) insert(o *Octree[T], e octEntry[T]) {
	if !n.leaf() {
		n.insertChildren(o, e)
		return
	}
	n.entries = append(n.entries, e)
	if len(n.entries) > o.maxCapacity && n.depth < o.maxDepth {
		n.subdivide(o)
	}
}

func (n *octNode[T]) insertChildren(o *Octree[T], e octEntry[T]) {
	for _, c := range n.children {
		if c.bounds.Intersects(e.bounds) {
			c.insert(o, e)
		}
	}
}

func (n *octNode[T]) subdivide(o *Octree[T]) {
	offset := n.bounds.Size.Mul(0.25)
	var children [8]*octNode[T]
	for i := range children {
		c := n.bounds.Center
		c[0] += sign(i&1) * offset[0]
		c[1] += sign(i&2) * offset[1]
		c[2] += sign(i&4) * offset[2]
		children[i] = &octNode[T]{
			bounds: geom.NewBounds(c, n.bounds.Extents),
			depth:  n.depth + 1,
		}
	}
	n.children = &children

	entries := n.entries
	n.entries = nil
	for _, e := range entries {
		n.insertChildren(o, e)
	}
}

func sign(bit int) float64 {
	if bit == 0 {
		return -1
	}
	return 1
}

func (n *octNode[T]) query(q geom.Bounds, fn func(octEntry[T])) {
	if !n.bounds.Intersects(q) {
		return
	}
	if n.leaf() {
		for _, e := range n.entries {
			if e.bounds.Intersects(q) {
				fn(e)
			}
		}
		return
	}
	for _, c := range n.children {
		c.query(q, fn)
	}
}

func (n *octNode[T]) maxDepth() int {
	if n.leaf() {
		return n.depth
	}
	d := n.depth
	for _, c := range n.children {
		if cd := c.maxDepth(); cd > d {
			d = cd
		}
	}
	return d
}
