// Package projectile fires, moves and retires the projectiles launched from
// the camera. Predators hunt boids through the boid grid; spent projectiles
// ask the boid manager for a replacement.
package projectile

import (
	"math"

	"github.com/flockcity/sim/internal/component"
	"github.com/flockcity/sim/internal/config"
	"github.com/flockcity/sim/internal/core/ecs"
	"github.com/flockcity/sim/internal/core/event"
	"github.com/flockcity/sim/internal/flock"
	"github.com/flockcity/sim/internal/geom"
	"github.com/flockcity/sim/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Prey is the boid side a projectile can see and eat.
type Prey interface {
	Grid() *world.HashGrid[flock.Ref]
	Destroy(id ecs.EntityID) bool
	SpawnQueue() *flock.SpawnQueue
}

// Launcher supplies the muzzle position and aim.
type Launcher interface {
	Position() mgl64.Vec3
	Direction() mgl64.Vec3
}

type Controller struct {
	cfg  config.ProjectileConfig
	size mgl64.Vec3

	launcher Launcher
	city     *world.City
	prey     Prey

	pool  *ecs.EntityPool
	items *ecs.Dense[component.Agent]

	bus *event.Bus
	log *zap.Logger

	found []flock.Ref
}

func NewController(cfg config.ProjectileConfig, launcher Launcher, city *world.City, prey Prey, bus *event.Bus, log *zap.Logger) *Controller {
	if city == nil {
		city = world.NewCity(nil)
	}
	return &Controller{
		cfg:      cfg,
		size:     geom.One.Mul(cfg.Radius * 2),
		launcher: launcher,
		city:     city,
		prey:     prey,
		pool:     ecs.NewEntityPool(),
		items:    ecs.NewDense[component.Agent](32),
		bus:      bus,
		log:      log,
	}
}

// Fire launches one projectile from the launcher along its aim.
func (c *Controller) Fire(predator bool) ecs.EntityID {
	pos := c.launcher.Position()
	vel := geom.Normalize(c.launcher.Direction()).Mul(c.cfg.Speed)
	id := c.pool.Create()
	c.items.Insert(id, component.NewProjectile(pos, vel, c.size, c.cfg.Drag, c.cfg.Energy, predator))

	event.Emit(c.bus, event.ProjectileFired{Predator: predator})
	c.log.Debug("發射投射物", zap.Bool("predator", predator), zap.Int("active", c.items.Len()))
	return id
}

// Update bounces each projectile off obstacles, lets predators hunt, then
// applies drag, thrust and movement. Projectiles out of energy request a
// replacement boid and are flagged for RemovePending.
func (c *Controller) Update(dt float64) {
	for i := 0; i < c.items.Len(); i++ {
		_, p := c.items.At(i)
		if p.PendingDestroy {
			continue
		}
		c.bounce(p)
		c.hunt(p)
		c.move(p, dt)
	}
}

// bounce pushes p out of the first obstacle it touches and reflects its
// velocity about that face.
func (c *Controller) bounce(p *component.Agent) {
	for _, i := range c.city.Near(p.Bounds) {
		box := c.city.Obstacle(i)
		if !box.IntersectsSphere(p.Bounds) {
			continue
		}
		normal := box.ClosestSurfaceNormal(p.Position)
		depth := p.Bounds.BiggestExtent - p.Position.Sub(box.ClosestPoint(p.Position)).Len()
		if depth > 0 {
			p.Teleport(p.Position.Add(normal.Mul(depth)))
		}
		p.Velocity = geom.Reflect(p.Velocity, normal)
		return
	}
}

func (c *Controller) canConsume(p *component.Agent) bool {
	return p.Predator && p.Consumed < c.cfg.MaxConsumed
}

// hunt eats every boid touching a predator and steers it toward the closest
// remaining one. Without a target the previous heading is kept. Projectiles
// that cannot eat drift with zero thrust.
func (c *Controller) hunt(p *component.Agent) {
	if !c.canConsume(p) {
		p.Acceleration = geom.Zero
		return
	}

	c.found = c.prey.Grid().QueryInRadiusBuf(p.Position, c.cfg.PursueRadius, c.found)
	best := p.Acceleration
	closest := math.MaxFloat64

	for _, ref := range c.found {
		boid, ok := ref.Agent()
		if !ok || boid.PendingDestroy {
			continue
		}
		if c.canConsume(p) && p.Bounds.RadiusIntersects(boid.Bounds) {
			c.prey.Destroy(ref.ID())
			p.Consumed++
			p.Energy++
			event.Emit(c.bus, event.BoidConsumed{Boid: ref.ID(), Position: boid.Position})
			continue
		}
		toBoid := boid.Position.Sub(p.Position)
		if d2 := geom.LenSq(toBoid); d2 < closest {
			closest = d2
			best = toBoid
		}
	}
	p.Acceleration = geom.Normalize(best).Mul(c.cfg.Acceleration)
}

func (c *Controller) move(p *component.Agent, dt float64) {
	p.Velocity = p.Velocity.Mul(math.Max(0, 1-p.Drag*dt))

	if p.Energy <= 0 {
		c.prey.SpawnQueue().Push(flock.SpawnRequest{
			Position: p.Position,
			Velocity: p.SteeringDirection(),
			Flock:    flock.AnyFlock,
		})
		event.Emit(c.bus, event.ProjectileExpired{Position: p.Position, Consumed: p.Consumed})
		p.Destroy()
		return
	}

	p.Velocity = p.Velocity.Add(p.Acceleration.Mul(dt))
	p.Energy -= dt
	p.Integrate(dt)
}

// RemovePending drops spent projectiles and returns how many went.
func (c *Controller) RemovePending() int {
	return c.items.RemoveIf(
		func(_ ecs.EntityID, p *component.Agent) bool { return p.PendingDestroy },
		func(id ecs.EntityID, _ *component.Agent) { c.pool.Destroy(id) },
	)
}

// Threats appends every live projectile to buf as steering sees it.
func (c *Controller) Threats(buf []flock.Threat) []flock.Threat {
	buf = buf[:0]
	for i := 0; i < c.items.Len(); i++ {
		_, p := c.items.At(i)
		if p.PendingDestroy {
			continue
		}
		buf = append(buf, flock.Threat{Position: p.Position, Predator: p.Predator})
	}
	return buf
}

// Projectiles visits every projectile in firing order.
func (c *Controller) Projectiles(fn func(ecs.EntityID, *component.Agent)) {
	c.items.Each(fn)
}

// Get resolves a projectile id.
func (c *Controller) Get(id ecs.EntityID) (*component.Agent, bool) {
	return c.items.Get(id)
}

func (c *Controller) Count() int { return c.items.Len() }
