package projectile

import (
	"math"
	"math/rand"
	"testing"

	"github.com/flockcity/sim/internal/config"
	"github.com/flockcity/sim/internal/core/ecs"
	"github.com/flockcity/sim/internal/core/event"
	"github.com/flockcity/sim/internal/flock"
	"github.com/flockcity/sim/internal/geom"
	"github.com/flockcity/sim/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

type fixture struct {
	cfg    *config.Config
	camera *world.Camera
	boids  *flock.Manager
	ctrl   *Controller
	bus    *event.Bus
}

func newFixture(t *testing.T, obstacles []geom.Bounds, mutate func(*config.Config)) *fixture {
	t.Helper()
	cfg := config.Default()
	cfg.Boids.InitialCount = 0
	if mutate != nil {
		mutate(cfg)
	}
	bus := event.NewBus()
	log := zap.NewNop()
	boids := flock.NewManager(cfg.Boids, cfg.Steering, flock.NewSpawnQueue(), rand.New(rand.NewSource(3)), bus, log)
	camera := world.NewCamera(mgl64.Vec3{0, 20, 0}, mgl64.Vec3{0, 0, 1})
	ctrl := NewController(cfg.Projectile, camera, world.NewCity(obstacles), boids, bus, log)
	return &fixture{cfg: cfg, camera: camera, boids: boids, ctrl: ctrl, bus: bus}
}

func (f *fixture) only(t *testing.T, id ecs.EntityID) (pos, vel, acc mgl64.Vec3, energy float64, consumed int) {
	t.Helper()
	p, ok := f.ctrl.Get(id)
	if !ok {
		t.Fatalf("projectile %v gone", id)
	}
	return p.Position, p.Velocity, p.Acceleration, p.Energy, p.Consumed
}

func TestFireFromCamera(t *testing.T) {
	f := newFixture(t, nil, nil)
	var fired []event.ProjectileFired
	event.Subscribe(f.bus, func(e event.ProjectileFired) { fired = append(fired, e) })

	id := f.ctrl.Fire(true)
	pos, vel, _, energy, _ := f.only(t, id)
	if pos != (mgl64.Vec3{0, 20, 0}) {
		t.Errorf("pos = %v", pos)
	}
	if vel != (mgl64.Vec3{0, 0, 65}) {
		t.Errorf("vel = %v", vel)
	}
	if energy != 5 {
		t.Errorf("energy = %v", energy)
	}

	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	if len(fired) != 1 || !fired[0].Predator {
		t.Errorf("fired events = %+v", fired)
	}
}

func TestDragAndMovement(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := f.ctrl.Fire(false)

	f.ctrl.Update(0.1)

	pos, vel, acc, energy, _ := f.only(t, id)
	// 65 · (1 - 2·0.1) = 52, no thrust.
	if math.Abs(vel[2]-52) > 1e-9 {
		t.Errorf("vel = %v, want z 52", vel)
	}
	if math.Abs(pos[2]-5.2) > 1e-9 {
		t.Errorf("pos = %v, want z 5.2", pos)
	}
	if acc != geom.Zero {
		t.Errorf("non-predator acceleration = %v", acc)
	}
	if math.Abs(energy-4.9) > 1e-9 {
		t.Errorf("energy = %v", energy)
	}
}

func TestDragNeverReverses(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := f.ctrl.Fire(false)
	f.ctrl.Update(1)
	_, vel, _, _, _ := f.only(t, id)
	if vel != geom.Zero {
		t.Errorf("vel = %v, want zero after overdamped step", vel)
	}
}

func TestExpiryRequestsReplacement(t *testing.T) {
	f := newFixture(t, nil, func(c *config.Config) { c.Projectile.Energy = 0.05 })
	var expired []event.ProjectileExpired
	event.Subscribe(f.bus, func(e event.ProjectileExpired) { expired = append(expired, e) })

	f.ctrl.Fire(false)
	f.ctrl.Update(0.1) // energy 0.05 → -0.05
	if f.boids.SpawnQueue().Len() != 0 {
		t.Fatal("replacement requested while energy remained")
	}
	f.ctrl.Update(0.1)
	if n := f.ctrl.RemovePending(); n != 1 {
		t.Fatalf("RemovePending = %d, want 1", n)
	}
	if f.ctrl.Count() != 0 {
		t.Errorf("count = %d", f.ctrl.Count())
	}
	if f.boids.SpawnQueue().Len() != 1 {
		t.Fatalf("spawn queue = %d, want 1", f.boids.SpawnQueue().Len())
	}

	f.boids.Update(0.01)
	if f.boids.Count() != 1 {
		t.Errorf("replacement boid not spawned: count %d", f.boids.Count())
	}

	f.bus.SwapBuffers()
	f.bus.DispatchAll()
	if len(expired) != 1 {
		t.Errorf("expired events = %+v", expired)
	}
}

func TestPredatorConsumesTouchingBoid(t *testing.T) {
	f := newFixture(t, nil, nil)
	prey := f.boids.SpawnAt(mgl64.Vec3{0, 20, 0.5}, mgl64.Vec3{7, 0, 0}, 0)
	id := f.ctrl.Fire(true)

	f.ctrl.Update(0.01)

	a, _ := prey.Agent()
	if !a.PendingDestroy {
		t.Fatal("touching boid not consumed")
	}
	_, _, _, energy, consumed := f.only(t, id)
	if consumed != 1 {
		t.Errorf("consumed = %d", consumed)
	}
	if math.Abs(energy-(5+1-0.01)) > 1e-9 {
		t.Errorf("energy = %v, want 5.99", energy)
	}
	f.boids.RemovePending()
	if f.boids.Count() != 0 || f.boids.Grid().Len() != 0 {
		t.Errorf("consumed boid not swept: count %d grid %d", f.boids.Count(), f.boids.Grid().Len())
	}
}

func TestPredatorPursuesClosestBoid(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.boids.SpawnAt(mgl64.Vec3{4, 20, 0}, mgl64.Vec3{7, 0, 0}, 0)
	f.boids.SpawnAt(mgl64.Vec3{0, 27, 0}, mgl64.Vec3{7, 0, 0}, 1)
	f.boids.SpawnAt(mgl64.Vec3{0, 20, 12}, mgl64.Vec3{7, 0, 0}, 1) // outside pursue radius
	id := f.ctrl.Fire(true)

	f.ctrl.Update(0.01)

	_, _, acc, _, consumed := f.only(t, id)
	if consumed != 0 {
		t.Fatalf("consumed = %d", consumed)
	}
	if !acc.ApproxEqualThreshold(mgl64.Vec3{30, 0, 0}, 1e-9) {
		t.Errorf("acc = %v, want toward closest boid", acc)
	}
}

func TestSatedPredatorStopsHunting(t *testing.T) {
	f := newFixture(t, nil, func(c *config.Config) { c.Projectile.MaxConsumed = 1 })
	f.boids.SpawnAt(mgl64.Vec3{0, 20, 0.3}, mgl64.Vec3{7, 0, 0}, 0)
	f.boids.SpawnAt(mgl64.Vec3{0, 20, -0.3}, mgl64.Vec3{7, 0, 0}, 1)
	id := f.ctrl.Fire(true)

	f.ctrl.Update(0.01)
	_, _, _, _, consumed := f.only(t, id)
	if consumed != 1 {
		t.Fatalf("consumed = %d, want capped at 1", consumed)
	}

	f.ctrl.Update(0.01)
	_, _, acc, _, _ := f.only(t, id)
	if acc != geom.Zero {
		t.Errorf("sated predator still accelerating: %v", acc)
	}
}

func TestBounceOffObstacle(t *testing.T) {
	// Wall face at z = 5.
	wall := geom.NewBounds(mgl64.Vec3{0, 20, 10}, mgl64.Vec3{20, 40, 10})
	f := newFixture(t, []geom.Bounds{wall}, nil)
	f.camera.Set(mgl64.Vec3{0, 20, 4.5}, mgl64.Vec3{0, 0, 1})
	id := f.ctrl.Fire(false)

	f.ctrl.Update(0.01)

	pos, vel, _, _, _ := f.only(t, id)
	if vel[2] >= 0 {
		t.Errorf("velocity not reflected: %v", vel)
	}
	// Pushed out to z = 4, then moved back along -z.
	if pos[2] >= 4 {
		t.Errorf("pos = %v, want z < 4", pos)
	}
}

func TestThreats(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.ctrl.Fire(true)
	f.ctrl.Fire(false)
	threats := f.ctrl.Threats(nil)
	if len(threats) != 2 || !threats[0].Predator || threats[1].Predator {
		t.Errorf("threats = %+v", threats)
	}
}
