package world

import (
	"testing"

	"github.com/flockcity/sim/internal/geom"
	"github.com/go-gl/mathgl/mgl64"
)

func unitBox(x, y, z float64) geom.Bounds {
	return geom.NewBounds(mgl64.Vec3{x, y, z}, mgl64.Vec3{1, 1, 1})
}

func TestOctreeQueryMatchesBruteForce(t *testing.T) {
	root := geom.NewBounds(geom.Zero, mgl64.Vec3{40, 40, 40})
	o := NewOctree[int](root, 3, 2)

	var boxes []geom.Bounds
	for x := -15.0; x <= 15; x += 5 {
		for z := -15.0; z <= 15; z += 5 {
			boxes = append(boxes, unitBox(x, 0, z))
		}
	}
	for i, b := range boxes {
		o.Insert(i, b)
	}
	if o.Len() != len(boxes) {
		t.Fatalf("len = %d, want %d", o.Len(), len(boxes))
	}
	if o.Depth() == 0 {
		t.Fatal("octree never subdivided")
	}

	queries := []geom.Bounds{
		geom.NewBounds(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{6, 6, 6}),
		geom.NewBounds(mgl64.Vec3{-10, 0, 10}, mgl64.Vec3{12, 2, 2}),
		geom.NewBounds(mgl64.Vec3{100, 0, 0}, mgl64.Vec3{1, 1, 1}),
		root,
	}
	for _, q := range queries {
		got := map[int]bool{}
		for _, i := range o.QueryBounds(q) {
			if got[i] {
				t.Fatalf("duplicate %d in query result", i)
			}
			got[i] = true
		}
		for i, b := range boxes {
			if b.Intersects(q) != got[i] {
				t.Errorf("query %v: box %d intersects=%v returned=%v", q.Center, i, b.Intersects(q), got[i])
			}
		}
	}
}

func TestOctreeStraddlingEntryReturnedOnce(t *testing.T) {
	root := geom.NewBounds(geom.Zero, mgl64.Vec3{8, 8, 8})
	o := NewOctree[string](root, 2, 0)
	o.Insert("centre", geom.NewBounds(geom.Zero, mgl64.Vec3{2, 2, 2}))
	o.Insert("corner", unitBox(3, 3, 3))

	got := o.QueryBounds(root)
	if len(got) != 2 {
		t.Errorf("got %v, want both entries once", got)
	}
}
