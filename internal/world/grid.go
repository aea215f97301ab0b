package world

import (
	"fmt"
	"math"

	"github.com/flockcity/sim/internal/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// The spatial hash grid is a sparse 3-D bucket index. Cell size should be
// close to the largest query radius so a query touches a handful of cells.
// Accessed only from the tick goroutine; no locks.

// CellKey is the integer coordinate of one grid cell.
type CellKey struct {
	X, Y, Z int
}

// maxCell bounds each cell coordinate so far-off or non-finite positions
// land in an edge cell instead of overflowing the conversion.
const maxCell = math.MaxInt >> 2

// Locatable is anything the grid can bucket. Equality identifies an entry,
// so T is normally a small handle rather than a pointer.
type Locatable interface {
	comparable
	Position() mgl64.Vec3
	CellKey() CellKey
	SetCellKey(CellKey)
}

// HashGrid maps cell coordinates to the entries positioned inside them.
// It never owns entries and never re-reads positions on its own: the owner
// calls UpdateEntity whenever an entry may have changed cell.
type HashGrid[T Locatable] struct {
	cellSize float64
	cells    map[CellKey][]T
	count    int
}

func NewHashGrid[T Locatable](cellSize float64) *HashGrid[T] {
	if !(cellSize > 0) {
		panic(fmt.Sprintf("world: invalid grid cell size %v", cellSize))
	}
	return &HashGrid[T]{
		cellSize: cellSize,
		cells:    make(map[CellKey][]T, 256),
	}
}

func (g *HashGrid[T]) CellSize() float64 { return g.cellSize }

// CellOf returns the cell containing p: floor(p / cellSize) per axis.
func (g *HashGrid[T]) CellOf(p mgl64.Vec3) CellKey {
	return CellKey{
		X: g.coord(p[0]),
		Y: g.coord(p[1]),
		Z: g.coord(p[2]),
	}
}

func (g *HashGrid[T]) coord(v float64) int {
	c := math.Floor(v / g.cellSize)
	switch {
	case math.IsNaN(c):
		return 0
	case c >= maxCell:
		return maxCell
	case c <= -maxCell:
		return -maxCell
	}
	return int(c)
}

// AddEntity buckets e by its current position and stores the key on e.
func (g *HashGrid[T]) AddEntity(e T) {
	k := g.CellOf(e.Position())
	e.SetCellKey(k)
	g.cells[k] = append(g.cells[k], e)
	g.count++
}

// RemoveEntity drops e from the bucket named by its stored key. Missing
// buckets or entries are ignored.
func (g *HashGrid[T]) RemoveEntity(e T) {
	k := e.CellKey()
	bucket, ok := g.cells[k]
	if !ok {
		return
	}
	for i, other := range bucket {
		if other != e {
			continue
		}
		last := len(bucket) - 1
		bucket[i] = bucket[last]
		var zero T
		bucket[last] = zero
		bucket = bucket[:last]
		g.count--
		if len(bucket) == 0 {
			delete(g.cells, k)
		} else {
			g.cells[k] = bucket
		}
		return
	}
}

// UpdateEntity moves e to a new bucket if its position left the stored cell.
func (g *HashGrid[T]) UpdateEntity(e T) {
	if g.CellOf(e.Position()) == e.CellKey() {
		return
	}
	g.RemoveEntity(e)
	g.AddEntity(e)
}

// QueryInRadius returns every entry strictly within radius of p, in no
// particular order.
func (g *HashGrid[T]) QueryInRadius(p mgl64.Vec3, radius float64) []T {
	return g.QueryInRadiusBuf(p, radius, nil)
}

// QueryInRadiusBuf appends matches to buf[:0] and returns it, so a caller
// can reuse one buffer across queries.
func (g *HashGrid[T]) QueryInRadiusBuf(p mgl64.Vec3, radius float64, buf []T) []T {
	buf = buf[:0]
	r := mgl64.Vec3{radius, radius, radius}
	lo := g.CellOf(p.Sub(r))
	hi := g.CellOf(p.Add(r))
	radiusSq := radius * radius

	for x := lo.X; x <= hi.X; x++ {
		for y := lo.Y; y <= hi.Y; y++ {
			for z := lo.Z; z <= hi.Z; z++ {
				for _, e := range g.cells[CellKey{x, y, z}] {
					if geom.DistanceSq(e.Position(), p) < radiusSq {
						buf = append(buf, e)
					}
				}
			}
		}
	}
	return buf
}

// Clear drops all buckets. Entries keep their stale cell keys.
func (g *HashGrid[T]) Clear() {
	clear(g.cells)
	g.count = 0
}

// Len is the number of bucketed entries.
func (g *HashGrid[T]) Len() int { return g.count }

// Cells is the number of non-empty buckets.
func (g *HashGrid[T]) Cells() int { return len(g.cells) }
