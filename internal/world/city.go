package world

import (
	"math"
	"sort"

	"github.com/flockcity/sim/internal/geom"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	cityOctreeDepth    = 4
	cityOctreeCapacity = 4
)

// City is the static obstacle set: an ordered list of boxes, the highest
// top face among them (computed once), and an octree over the list indices.
type City struct {
	obstacles []geom.Bounds
	highest   float64
	index     *Octree[int]
}

func NewCity(obstacles []geom.Bounds) *City {
	c := &City{
		obstacles: obstacles,
		highest:   math.Inf(-1),
	}
	if len(obstacles) == 0 {
		return c
	}

	root := obstacles[0]
	for _, b := range obstacles {
		if b.Max[1] > c.highest {
			c.highest = b.Max[1]
		}
		root = geom.Encapsulate(root, b)
	}
	c.index = NewOctree[int](root, cityOctreeDepth, cityOctreeCapacity)
	for i, b := range obstacles {
		c.index.Insert(i, b)
	}
	return c
}

// Obstacles returns the obstacle boxes. Callers must not modify the slice.
func (c *City) Obstacles() []geom.Bounds { return c.obstacles }

// HighestTop is the largest Max.Y among obstacles, -Inf for an empty city.
func (c *City) HighestTop() float64 { return c.highest }

// Len is the obstacle count.
func (c *City) Len() int { return len(c.obstacles) }

// Near returns the indices of obstacles whose boxes intersect b, ascending.
func (c *City) Near(b geom.Bounds) []int {
	if c.index == nil {
		return nil
	}
	idx := c.index.QueryBounds(b)
	sort.Ints(idx)
	return idx
}

// Obstacle returns obstacle i.
func (c *City) Obstacle(i int) geom.Bounds { return c.obstacles[i] }

// Footprint returns the obstacle box standing on the ground at (x, z).
func Footprint(x, z, width, length, height float64) geom.Bounds {
	return geom.NewBounds(mgl64.Vec3{x, height / 2, z}, mgl64.Vec3{width, height, length})
}
