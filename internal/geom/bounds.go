package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	left     = mgl64.Vec3{-1, 0, 0}
	right    = mgl64.Vec3{1, 0, 0}
	down     = mgl64.Vec3{0, -1, 0}
	forward  = mgl64.Vec3{0, 0, -1}
	backward = mgl64.Vec3{0, 0, 1}
)

// Bounds is an axis-aligned box. Extents, Min, Max and BiggestExtent are
// derived from Center and Size; use NewBounds or UpdateBounds, never assign
// Center directly.
type Bounds struct {
	Center  mgl64.Vec3
	Size    mgl64.Vec3
	Extents mgl64.Vec3
	Min     mgl64.Vec3
	Max     mgl64.Vec3

	// BiggestExtent is the radius of the sphere approximation used by
	// RadiusIntersects.
	BiggestExtent float64
}

func NewBounds(center, size mgl64.Vec3) Bounds {
	extents := size.Mul(0.5)
	return Bounds{
		Center:        center,
		Size:          size,
		Extents:       extents,
		Min:           center.Sub(extents),
		Max:           center.Add(extents),
		BiggestExtent: Biggest(extents),
	}
}

// BiggestExtentSq is BiggestExtent squared.
func (b Bounds) BiggestExtentSq() float64 {
	return b.BiggestExtent * b.BiggestExtent
}

// UpdateBounds moves the box to newCenter. Size and extents are kept.
func (b *Bounds) UpdateBounds(newCenter mgl64.Vec3) {
	b.Center = newCenter
	b.Min = newCenter.Sub(b.Extents)
	b.Max = newCenter.Add(b.Extents)
}

// Contains reports whether p lies inside the box, faces included.
func (b Bounds) Contains(p mgl64.Vec3) bool {
	return p[0] >= b.Min[0] && p[0] <= b.Max[0] &&
		p[1] >= b.Min[1] && p[1] <= b.Max[1] &&
		p[2] >= b.Min[2] && p[2] <= b.Max[2]
}

// Intersects is the AABB overlap test.
func (b Bounds) Intersects(o Bounds) bool {
	return b.Min[0] <= o.Max[0] && b.Max[0] >= o.Min[0] &&
		b.Min[1] <= o.Max[1] && b.Max[1] >= o.Min[1] &&
		b.Min[2] <= o.Max[2] && b.Max[2] >= o.Min[2]
}

// RadiusIntersects treats both boxes as spheres of radius BiggestExtent.
// It over-approximates for non-cubic boxes.
func (b Bounds) RadiusIntersects(o Bounds) bool {
	return DistanceSq(b.Center, o.Center) <= b.BiggestExtentSq()+o.BiggestExtentSq()
}

// IntersectsSphere tests the box against the sphere centred at
// sphere.Center with radius sphere.BiggestExtent.
func (b Bounds) IntersectsSphere(sphere Bounds) bool {
	closest := b.ClosestPoint(sphere.Center)
	return DistanceSq(sphere.Center, closest) < sphere.BiggestExtentSq()
}

// ClosestPoint clamps p into the box. Points already inside are returned as is.
func (b Bounds) ClosestPoint(p mgl64.Vec3) mgl64.Vec3 {
	return Clamp(p, b.Min, b.Max)
}

// ClosestPointOnBounds projects p onto the nearest face. Points outside the
// box behave like ClosestPoint. Ties go to the first face in the order
// X-min, X-max, Y-min, Y-max, Z-min, Z-max.
func (b Bounds) ClosestPointOnBounds(p mgl64.Vec3) mgl64.Vec3 {
	if !b.Contains(p) {
		return b.ClosestPoint(p)
	}

	faces := [6]struct {
		axis  int
		value float64
		dist  float64
	}{
		{0, b.Min[0], p[0] - b.Min[0]},
		{0, b.Max[0], b.Max[0] - p[0]},
		{1, b.Min[1], p[1] - b.Min[1]},
		{1, b.Max[1], b.Max[1] - p[1]},
		{2, b.Min[2], p[2] - b.Min[2]},
		{2, b.Max[2], b.Max[2] - p[2]},
	}

	best := math.MaxFloat64
	surface := p
	for _, f := range faces {
		if f.dist < best {
			best = f.dist
			surface = p
			surface[f.axis] = f.value
		}
	}
	return surface
}

// ClosestSurfaceNormal sums the outward axis normals of every face the
// closest surface point lies on and normalizes the result, so corners and
// edges yield a diagonal.
func (b Bounds) ClosestSurfaceNormal(p mgl64.Vec3) mgl64.Vec3 {
	c := b.ClosestPointOnBounds(p)
	normal := Zero

	if c[0] == b.Min[0] {
		normal = normal.Add(left)
	} else if c[0] == b.Max[0] {
		normal = normal.Add(right)
	}
	if c[1] == b.Min[1] {
		normal = normal.Add(down)
	} else if c[1] == b.Max[1] {
		normal = normal.Add(Up)
	}
	if c[2] == b.Min[2] {
		normal = normal.Add(forward)
	} else if c[2] == b.Max[2] {
		normal = normal.Add(backward)
	}

	return Normalize(normal)
}

// Encapsulate returns the smallest box containing both a and b.
func Encapsulate(a, b Bounds) Bounds {
	lo := mgl64.Vec3{math.Min(a.Min[0], b.Min[0]), math.Min(a.Min[1], b.Min[1]), math.Min(a.Min[2], b.Min[2])}
	hi := mgl64.Vec3{math.Max(a.Max[0], b.Max[0]), math.Max(a.Max[1], b.Max[1]), math.Max(a.Max[2], b.Max[2])}
	return NewBounds(lo.Add(hi).Mul(0.5), hi.Sub(lo))
}
