package system

import (
	"github.com/flockcity/sim/internal/flock"
	"github.com/flockcity/sim/internal/projectile"
	"github.com/flockcity/sim/internal/scripting"
	"github.com/flockcity/sim/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Controls routes scenario commands to the simulation. Firing is a no-op
// when no projectile controller is configured.
type Controls struct {
	boids       *flock.Manager
	projectiles *projectile.Controller
	camera      *world.Camera
}

var _ scripting.Controls = (*Controls)(nil)

func NewControls(boids *flock.Manager, projectiles *projectile.Controller, camera *world.Camera) *Controls {
	return &Controls{boids: boids, projectiles: projectiles, camera: camera}
}

func (c *Controls) Spawn(n int)       { c.boids.Spawn(n) }
func (c *Controls) Despawn(n int) int { return c.boids.Despawn(n) }
func (c *Controls) Grow()             { c.boids.Grow() }
func (c *Controls) Shrink() int       { return c.boids.Shrink() }
func (c *Controls) IncreaseInterval() { c.boids.IncreaseInterval() }
func (c *Controls) DecreaseInterval() { c.boids.DecreaseInterval() }
func (c *Controls) Count() int        { return c.boids.Count() }
func (c *Controls) Interval() float64 { return c.boids.Interval() }

func (c *Controls) Fire(predator bool) {
	if c.projectiles != nil {
		c.projectiles.Fire(predator)
	}
}

func (c *Controls) SetCamera(pos, dir mgl64.Vec3) { c.camera.Set(pos, dir) }

// OrbitCamera circles the centre of the boid volume. Zero stops the orbit.
func (c *Controls) OrbitCamera(speed float64) {
	if speed == 0 {
		c.camera.Set(c.camera.Position(), c.camera.Direction())
		return
	}
	c.camera.Orbit(c.boids.Bounds().Center, speed)
}
