// Package geom holds the vector helpers and the axis-aligned Bounds primitive
// every spatial query in the simulation is built on.
package geom

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	Zero = mgl64.Vec3{0, 0, 0}
	One  = mgl64.Vec3{1, 1, 1}
	Up   = mgl64.Vec3{0, 1, 0}
)

// Normalize returns v scaled to unit length. A zero-length vector yields the
// zero vector so force sums stay well defined.
func Normalize(v mgl64.Vec3) mgl64.Vec3 {
	l := v.Len()
	if l == 0 {
		return Zero
	}
	return v.Mul(1 / l)
}

// LenSq is the squared length of v.
func LenSq(v mgl64.Vec3) float64 {
	return v.Dot(v)
}

// DistanceSq is the squared distance between a and b.
func DistanceSq(a, b mgl64.Vec3) float64 {
	return LenSq(a.Sub(b))
}

// Remap linearly maps value from [minOld, maxOld] onto [minNew, maxNew].
// The result is not clamped. minOld == maxOld is a caller bug.
func Remap(minOld, maxOld, value, minNew, maxNew float64) float64 {
	if minOld == maxOld {
		panic(fmt.Sprintf("geom: degenerate remap range [%v, %v]", minOld, maxOld))
	}
	factor := (value - minOld) / (maxOld - minOld)
	return minNew + (maxNew-minNew)*factor
}

// Biggest returns the largest component of v.
func Biggest(v mgl64.Vec3) float64 {
	return math.Max(math.Max(v[0], v[1]), v[2])
}

// Clamp clamps every component of v into [lo, hi].
func Clamp(v, lo, hi mgl64.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{
		mgl64.Clamp(v[0], lo[0], hi[0]),
		mgl64.Clamp(v[1], lo[1], hi[1]),
		mgl64.Clamp(v[2], lo[2], hi[2]),
	}
}

// Reflect mirrors v about the plane with unit normal n.
func Reflect(v, n mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(n.Mul(2 * v.Dot(n)))
}

// RandomBinomial returns a value in (-1, 1) peaked around zero.
func RandomBinomial(rng *rand.Rand) float64 {
	return rng.Float64() - rng.Float64()
}

// RandomDirection returns a random unit vector.
func RandomDirection(rng *rand.Rand) mgl64.Vec3 {
	for {
		v := mgl64.Vec3{RandomBinomial(rng), RandomBinomial(rng), RandomBinomial(rng)}
		if LenSq(v) > 1e-12 {
			return Normalize(v)
		}
	}
}
