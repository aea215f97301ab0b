package world

import (
	"math"

	"github.com/flockcity/sim/internal/geom"
	"github.com/go-gl/mathgl/mgl64"
)

// Camera is the moving viewpoint boids avoid and projectiles launch from.
// Without a driver it can orbit a pivot at fixed height so the avoidance
// force has something to react to in headless runs.
type Camera struct {
	pos   mgl64.Vec3
	dir   mgl64.Vec3
	pivot mgl64.Vec3

	orbitSpeed float64 // rad/s, 0 = static
	angle      float64
	radius     float64
}

func NewCamera(pos, dir mgl64.Vec3) *Camera {
	return &Camera{pos: pos, dir: geom.Normalize(dir)}
}

func (c *Camera) Position() mgl64.Vec3  { return c.pos }
func (c *Camera) Direction() mgl64.Vec3 { return c.dir }

// Set places the camera and stops any orbit.
func (c *Camera) Set(pos, dir mgl64.Vec3) {
	c.pos = pos
	c.dir = geom.Normalize(dir)
	c.orbitSpeed = 0
}

// Orbit starts circling pivot at the camera's current horizontal distance
// and height, looking at the pivot.
func (c *Camera) Orbit(pivot mgl64.Vec3, speed float64) {
	c.pivot = pivot
	c.orbitSpeed = speed
	dx, dz := c.pos[0]-pivot[0], c.pos[2]-pivot[2]
	c.radius = math.Hypot(dx, dz)
	c.angle = math.Atan2(dx, dz)
}

// Orbiting reports whether Update moves the camera.
func (c *Camera) Orbiting() bool { return c.orbitSpeed != 0 }

// Update advances the orbit by dt seconds.
func (c *Camera) Update(dt float64) {
	if c.orbitSpeed == 0 {
		return
	}
	c.angle = math.Mod(c.angle+c.orbitSpeed*dt, 2*math.Pi)
	c.pos = mgl64.Vec3{
		c.pivot[0] + c.radius*math.Sin(c.angle),
		c.pos[1],
		c.pivot[2] + c.radius*math.Cos(c.angle),
	}
	look := c.pivot
	look[1] = c.pos[1]
	c.dir = geom.Normalize(look.Sub(c.pos))
}
