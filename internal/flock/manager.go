package flock

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/flockcity/sim/internal/component"
	"github.com/flockcity/sim/internal/config"
	"github.com/flockcity/sim/internal/core/ecs"
	"github.com/flockcity/sim/internal/core/event"
	"github.com/flockcity/sim/internal/geom"
	"github.com/flockcity/sim/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// Manager owns the boid population and its grid. Each tick it integrates
// every boid; on steering-due ticks it first refiles the boid in the grid
// and recomputes its acceleration.
type Manager struct {
	cfg      config.BoidsConfig
	bounds   geom.Bounds
	boidSize mgl64.Vec3

	pop      *Population
	grid     *world.HashGrid[Ref]
	steering *SteeringController
	env      Environment
	spawns   *SpawnQueue

	timer    float64
	interval float64

	rng *rand.Rand
	bus *event.Bus
	log *zap.Logger

	neighbors []Ref
}

// NewManager builds an empty population. Flocks outside [1, 256] is a
// configuration bug and panics.
func NewManager(cfg config.BoidsConfig, steer config.SteeringConfig, spawns *SpawnQueue, rng *rand.Rand, bus *event.Bus, log *zap.Logger) *Manager {
	if cfg.Flocks < 1 || cfg.Flocks > 256 {
		panic(fmt.Sprintf("flock: flock count %d out of range", cfg.Flocks))
	}
	if spawns == nil {
		spawns = NewSpawnQueue()
	}
	size := mgl64.Vec3{cfg.BoundsSize[0], cfg.BoundsSize[1], cfg.BoundsSize[2]}
	bounds := geom.NewBounds(geom.Up.Mul(size[1]/2), size)
	grid := world.NewHashGrid[Ref](cfg.CellSize)

	m := &Manager{
		cfg:      cfg,
		bounds:   bounds,
		boidSize: geom.One.Mul(cfg.Radius * 2),
		pop:      NewPopulation(cfg.InitialCount * 2),
		grid:     grid,
		steering: NewSteeringController(steer, bounds, grid),
		spawns:   spawns,
		interval: cfg.SteeringInterval,
		rng:      rng,
		bus:      bus,
		log:      log,
	}
	m.env.HighestObstacle = math.Inf(-1)
	return m
}

// Environment is the world state steering reads. The owner refreshes it
// before Update.
func (m *Manager) Environment() *Environment { return &m.env }

// Tick runs Update followed by RemovePending.
func (m *Manager) Tick(dt float64) {
	m.Update(dt)
	m.RemovePending()
}

// Update drains queued spawn requests, then steers (when due) and
// integrates every boid.
func (m *Manager) Update(dt float64) {
	m.drainSpawns()

	m.timer -= dt
	due := m.timer < 0

	for i := 0; i < m.pop.Len(); i++ {
		ref, a := m.pop.At(i)
		if due {
			m.grid.UpdateEntity(ref)
			var steer mgl64.Vec3
			steer, m.neighbors = m.steering.Steering(ref, &m.env, m.neighbors)
			a.Acceleration = steer.Mul(m.cfg.AccelerationMultiplier)
		}
		a.Velocity = a.Velocity.Add(a.Acceleration.Mul(dt))
		if a.Velocity == geom.Zero {
			a.Velocity = geom.RandomDirection(m.rng)
		}
		a.ClampSpeed(m.cfg.MinSpeed, m.cfg.MaxSpeed)
		a.Integrate(dt)
	}

	if due {
		m.timer = m.interval
	}
}

// RemovePending drops every boid flagged for destruction from the grid and
// the population in one pass and returns how many went.
func (m *Manager) RemovePending() int {
	n := m.pop.sweep(func(r Ref, _ *component.Agent) {
		m.grid.RemoveEntity(r)
	})
	if n > 0 {
		event.Emit(m.bus, event.BoidsRemoved{Count: n, Remaining: m.pop.Len()})
		m.log.Debug("移除鳥群個體", zap.Int("count", n), zap.Int("remaining", m.pop.Len()))
	}
	return n
}

func (m *Manager) drainSpawns() {
	n := m.spawns.Drain(func(r SpawnRequest) {
		flock := r.Flock
		if flock == AnyFlock {
			flock = m.rng.Intn(m.cfg.Flocks)
		}
		m.SpawnAt(r.Position, r.Velocity, flock)
	})
	if n > 0 {
		event.Emit(m.bus, event.BoidsSpawned{Count: n, Reason: "replacement"})
	}
}

// Spawn adds n boids at random positions in the upper part of the bounds,
// heading in random directions, with flocks assigned round-robin.
func (m *Manager) Spawn(n int) {
	m.spawn(n, "spawn")
}

func (m *Manager) spawn(n int, reason string) {
	if n <= 0 {
		return
	}
	size := m.bounds.Size
	for i := 0; i < n; i++ {
		offset := mgl64.Vec3{
			size[0] * m.rng.Float64(),
			size[1] * math.Max(m.cfg.MinHeightFactor, m.rng.Float64()),
			size[2] * m.rng.Float64(),
		}
		flock := 0
		if m.cfg.Flocks > 1 {
			flock = i % m.cfg.Flocks
		}
		m.SpawnAt(m.bounds.Min.Add(offset), geom.RandomDirection(m.rng), flock)
	}
	event.Emit(m.bus, event.BoidsSpawned{Count: n, Reason: reason})
	m.log.Debug("生成鳥群個體", zap.Int("count", n), zap.String("reason", reason), zap.Int("total", m.pop.Len()))
}

// SpawnAt adds one boid and files it in the grid. flock must be in
// [0, Flocks).
func (m *Manager) SpawnAt(pos, vel mgl64.Vec3, flock int) Ref {
	if flock < 0 || flock >= m.cfg.Flocks {
		panic(fmt.Sprintf("flock: flock id %d out of range [0, %d)", flock, m.cfg.Flocks))
	}
	ref := m.pop.Add(component.NewBoid(uint8(flock), pos, vel, m.boidSize))
	m.grid.AddEntity(ref)
	return ref
}

// Despawn flags the n oldest boids for the next sweep and returns how many
// were flagged.
func (m *Manager) Despawn(n int) int {
	n = min(n, m.pop.Len())
	for i := 0; i < n; i++ {
		_, a := m.pop.At(i)
		a.Destroy()
	}
	return max(n, 0)
}

// Grow spawns one configured increment of boids.
func (m *Manager) Grow() { m.spawn(m.cfg.SpawnIncrement, "grow") }

// Shrink flags one configured decrement of boids.
func (m *Manager) Shrink() int { return m.Despawn(m.cfg.DespawnDecrement) }

func (m *Manager) IncreaseInterval() {
	m.setInterval(m.interval + m.cfg.IntervalIncrement)
}

// DecreaseInterval lowers the steering interval, never below zero.
func (m *Manager) DecreaseInterval() {
	m.setInterval(math.Max(0, m.interval-m.cfg.IntervalDecrement))
}

func (m *Manager) setInterval(v float64) {
	m.interval = v
	event.Emit(m.bus, event.SteeringIntervalChanged{Interval: v})
	m.log.Info("轉向更新間隔變更", zap.Float64("interval", v))
}

// Destroy flags the boid id for the next sweep. Stale IDs report false.
func (m *Manager) Destroy(id ecs.EntityID) bool {
	a, ok := m.pop.Get(id)
	if !ok {
		return false
	}
	a.Destroy()
	return true
}

// Each visits every boid in insertion order. fn must not spawn.
func (m *Manager) Each(fn func(Ref, *component.Agent)) {
	for i := 0; i < m.pop.Len(); i++ {
		fn(m.pop.At(i))
	}
}

// FlockIntensity is the display brightness of flock i, in [0.5, 1].
func (m *Manager) FlockIntensity(i int) float64 {
	return geom.Remap(0, 1, 1-float64(i)/float64(m.cfg.Flocks), 0.5, 1)
}

func (m *Manager) Count() int                    { return m.pop.Len() }
func (m *Manager) Flocks() int                   { return m.cfg.Flocks }
func (m *Manager) Interval() float64             { return m.interval }
func (m *Manager) Bounds() geom.Bounds           { return m.bounds }
func (m *Manager) Grid() *world.HashGrid[Ref]    { return m.grid }
func (m *Manager) Population() *Population       { return m.pop }
func (m *Manager) SpawnQueue() *SpawnQueue       { return m.spawns }
func (m *Manager) Steering() *SteeringController { return m.steering }
