package flock

import (
	"math"
	"math/rand"
	"testing"

	"github.com/flockcity/sim/internal/component"
	"github.com/flockcity/sim/internal/config"
	"github.com/flockcity/sim/internal/core/ecs"
	"github.com/flockcity/sim/internal/core/event"
	"github.com/flockcity/sim/internal/geom"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

func newTestManager(t *testing.T, mutate func(*config.Config)) (*Manager, *event.Bus) {
	t.Helper()
	cfg := config.Default()
	cfg.Boids.InitialCount = 0
	if mutate != nil {
		mutate(cfg)
	}
	bus := event.NewBus()
	m := NewManager(cfg.Boids, cfg.Steering, NewSpawnQueue(), rand.New(rand.NewSource(7)), bus, zap.NewNop())
	m.Environment().Camera = mgl64.Vec3{0, 1000, 0}
	return m, bus
}

func TestSpawnStaysInsideUpperBounds(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.Spawn(200)

	if m.Count() != 200 || m.Grid().Len() != 200 {
		t.Fatalf("count = %d, grid = %d, want 200", m.Count(), m.Grid().Len())
	}
	b := m.Bounds()
	floor := b.Min[1] + b.Size[1]*0.5
	flocks := map[uint8]int{}
	m.Each(func(_ Ref, a *component.Agent) {
		if !b.Contains(a.Position) {
			t.Errorf("spawned outside bounds: %v", a.Position)
		}
		if a.Position[1] < floor {
			t.Errorf("spawned below min height: %v", a.Position)
		}
		if l := a.Velocity.Len(); math.Abs(l-1) > 1e-9 {
			t.Errorf("spawn velocity length = %v, want 1", l)
		}
		flocks[a.Flock]++
	})
	if flocks[0] != 100 || flocks[1] != 100 {
		t.Errorf("flock split = %v, want round-robin 100/100", flocks)
	}
}

func TestSingleFlockSpawnsFlockZero(t *testing.T) {
	m, _ := newTestManager(t, func(c *config.Config) { c.Boids.Flocks = 1 })
	m.Spawn(10)
	m.Each(func(_ Ref, a *component.Agent) {
		if a.Flock != 0 {
			t.Errorf("flock = %d, want 0", a.Flock)
		}
	})
}

func TestSpawnAtRejectsBadFlock(t *testing.T) {
	m, _ := newTestManager(t, nil)
	defer func() {
		if recover() == nil {
			t.Error("SpawnAt with flock >= flocks did not panic")
		}
	}()
	m.SpawnAt(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 2)
}

func TestNewManagerRejectsZeroFlocks(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("zero flocks did not panic")
		}
	}()
	newTestManager(t, func(c *config.Config) { c.Boids.Flocks = 0 })
}

func TestDespawnRemovesOldestFromListAndGrid(t *testing.T) {
	m, bus := newTestManager(t, nil)
	var ids []ecs.EntityID
	for i := 0; i < 10; i++ {
		ref := m.SpawnAt(mgl64.Vec3{float64(i) * 2, 20, 0}, mgl64.Vec3{7, 0, 0}, i%2)
		ids = append(ids, ref.ID())
	}

	if got := m.Despawn(3); got != 3 {
		t.Fatalf("Despawn(3) flagged %d", got)
	}
	for i, id := range ids {
		a, _ := m.Population().Get(id)
		if a.PendingDestroy != (i < 3) {
			t.Errorf("boid %d pending = %v", i, a.PendingDestroy)
		}
	}

	var removed []event.BoidsRemoved
	event.Subscribe(bus, func(e event.BoidsRemoved) { removed = append(removed, e) })

	if n := m.RemovePending(); n != 3 {
		t.Fatalf("RemovePending = %d, want 3", n)
	}
	if m.Count() != 7 || m.Grid().Len() != 7 {
		t.Fatalf("after sweep count = %d, grid = %d, want 7/7", m.Count(), m.Grid().Len())
	}
	for i, id := range ids {
		_, live := m.Population().Get(id)
		if live != (i >= 3) {
			t.Errorf("boid %d live = %v", i, live)
		}
	}
	for _, r := range m.Grid().QueryInRadius(mgl64.Vec3{9, 20, 0}, 100) {
		if r.ID() == ids[0] || r.ID() == ids[1] || r.ID() == ids[2] {
			t.Errorf("removed boid %v still in grid", r.ID())
		}
	}

	bus.SwapBuffers()
	bus.DispatchAll()
	if len(removed) != 1 || removed[0].Count != 3 || removed[0].Remaining != 7 {
		t.Errorf("removed events = %+v", removed)
	}
}

func TestDespawnMoreThanPopulation(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.Spawn(4)
	if got := m.Despawn(250); got != 4 {
		t.Errorf("Despawn(250) of 4 = %d", got)
	}
	m.RemovePending()
	if m.Count() != 0 || m.Grid().Len() != 0 {
		t.Errorf("count = %d, grid = %d", m.Count(), m.Grid().Len())
	}
}

func TestSlowBoidRenormalizedToMinSpeed(t *testing.T) {
	m, _ := newTestManager(t, nil)
	center := m.Bounds().Center
	ref := m.SpawnAt(center, mgl64.Vec3{0.5, 0, 0}, 0)

	m.Tick(0.01)

	a, _ := ref.Agent()
	if a.Acceleration != (mgl64.Vec3{}) {
		t.Fatalf("expected zero acceleration for isolated boid at centre, got %v", a.Acceleration)
	}
	if got := a.Velocity.Len(); math.Abs(got-m.cfg.MinSpeed) > 1e-12 {
		t.Errorf("speed = %v, want %v", got, m.cfg.MinSpeed)
	}
	if a.Velocity[1] != 0 || a.Velocity[2] != 0 {
		t.Errorf("direction changed: %v", a.Velocity)
	}
}

func TestSpeedStaysInBand(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.Spawn(300)
	for i := 0; i < 20; i++ {
		m.Tick(1.0 / 60)
		m.Each(func(_ Ref, a *component.Agent) {
			s := a.Velocity.Len()
			if s < m.cfg.MinSpeed-1e-9 || s > m.cfg.MaxSpeed+1e-9 {
				t.Fatalf("tick %d: speed %v outside [%v, %v]", i, s, m.cfg.MinSpeed, m.cfg.MaxSpeed)
			}
		})
	}
	if m.Count() != 300 {
		t.Errorf("count drifted to %d", m.Count())
	}
}

func TestExactBoundarySpeedUntouched(t *testing.T) {
	a := component.NewBoid(0, mgl64.Vec3{}, mgl64.Vec3{0, 10.5, 0}, mgl64.Vec3{1, 1, 1})
	a.ClampSpeed(6.5, 10.5)
	if a.Velocity != (mgl64.Vec3{0, 10.5, 0}) {
		t.Errorf("velocity = %v", a.Velocity)
	}
}

func TestStalledBoidRegainsSpeed(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ref := m.SpawnAt(m.Bounds().Center, geom.Zero, 0)
	for i := 0; i < 10; i++ {
		m.Update(0.016)
		a, _ := ref.Agent()
		s := a.Velocity.Len()
		if s < m.cfg.MinSpeed-1e-9 || s > m.cfg.MaxSpeed+1e-9 {
			t.Fatalf("tick %d: speed %v outside [%v, %v]", i, s, m.cfg.MinSpeed, m.cfg.MaxSpeed)
		}
	}
}

func TestSteeringCadence(t *testing.T) {
	m, _ := newTestManager(t, func(c *config.Config) { c.Boids.SteeringInterval = 0.05 })
	ref := m.SpawnAt(m.Bounds().Center, mgl64.Vec3{7, 0, 0}, 0)
	const dt = 0.02

	// First tick is due: the timer starts at zero.
	m.Update(dt)
	a, _ := ref.Agent()
	sentinel := mgl64.Vec3{1, 2, 3}
	a.Acceleration = sentinel

	// timer = 0.05 → 0.03 → 0.01, not due.
	m.Update(dt)
	m.Update(dt)
	a, _ = ref.Agent()
	if a.Acceleration != sentinel {
		t.Fatalf("steering recomputed before interval elapsed")
	}
	// 0.01 → -0.01, due.
	m.Update(dt)
	a, _ = ref.Agent()
	if a.Acceleration == sentinel {
		t.Fatalf("steering not recomputed after interval elapsed")
	}
}

func TestIntervalAdjustment(t *testing.T) {
	m, bus := newTestManager(t, nil)
	var seen []float64
	event.Subscribe(bus, func(e event.SteeringIntervalChanged) { seen = append(seen, e.Interval) })

	m.DecreaseInterval()
	if m.Interval() != 0 {
		t.Errorf("interval below zero: %v", m.Interval())
	}
	m.IncreaseInterval()
	m.IncreaseInterval()
	if want := 2 * m.cfg.IntervalIncrement; math.Abs(m.Interval()-want) > 1e-12 {
		t.Errorf("interval = %v, want %v", m.Interval(), want)
	}
	m.DecreaseInterval()
	if want := 2*m.cfg.IntervalIncrement - m.cfg.IntervalDecrement; math.Abs(m.Interval()-want) > 1e-12 {
		t.Errorf("interval = %v, want %v", m.Interval(), want)
	}

	bus.SwapBuffers()
	bus.DispatchAll()
	if len(seen) != 4 {
		t.Errorf("interval events = %v", seen)
	}
}

func TestGrowShrink(t *testing.T) {
	m, _ := newTestManager(t, nil)
	m.Grow()
	if m.Count() != m.cfg.SpawnIncrement {
		t.Fatalf("Grow: count = %d", m.Count())
	}
	m.Shrink()
	m.RemovePending()
	if want := m.cfg.SpawnIncrement - m.cfg.DespawnDecrement; m.Count() != want {
		t.Errorf("Shrink: count = %d, want %d", m.Count(), want)
	}
}

func TestSpawnQueueDrainedOnUpdate(t *testing.T) {
	m, _ := newTestManager(t, nil)
	q := m.SpawnQueue()
	q.Push(SpawnRequest{Position: mgl64.Vec3{1, 20, 1}, Velocity: mgl64.Vec3{0, 0, 7}, Flock: 1})
	q.Push(SpawnRequest{Position: mgl64.Vec3{-1, 20, 1}, Velocity: mgl64.Vec3{0, 0, 7}, Flock: AnyFlock})

	m.Update(0.01)

	if m.Count() != 2 || q.Len() != 0 {
		t.Fatalf("count = %d, queued = %d", m.Count(), q.Len())
	}
	_, first := m.Population().At(0)
	if first.Flock != 1 {
		t.Errorf("explicit flock lost: %d", first.Flock)
	}
	_, second := m.Population().At(1)
	if int(second.Flock) >= m.Flocks() {
		t.Errorf("random flock out of range: %d", second.Flock)
	}
}

func TestDestroyByID(t *testing.T) {
	m, _ := newTestManager(t, nil)
	ref := m.SpawnAt(mgl64.Vec3{0, 20, 0}, mgl64.Vec3{7, 0, 0}, 0)
	if !m.Destroy(ref.ID()) {
		t.Fatal("Destroy of live boid reported false")
	}
	m.RemovePending()
	if m.Destroy(ref.ID()) {
		t.Error("Destroy of swept boid reported true")
	}
	if p := ref.Position(); !math.IsNaN(p[0]) {
		t.Errorf("stale ref position = %v, want NaN", p)
	}
}

func TestFlockIntensity(t *testing.T) {
	m, _ := newTestManager(t, nil)
	if got := m.FlockIntensity(0); got != 1 {
		t.Errorf("flock 0 intensity = %v", got)
	}
	if got := m.FlockIntensity(1); got != 0.75 {
		t.Errorf("flock 1 intensity = %v", got)
	}
}
