package system

import (
	"time"

	"github.com/flockcity/sim/internal/component"
	"github.com/flockcity/sim/internal/core/ecs"
	coresys "github.com/flockcity/sim/internal/core/system"
	"github.com/flockcity/sim/internal/flock"
	"github.com/flockcity/sim/internal/net"
	"github.com/flockcity/sim/internal/projectile"
	"github.com/flockcity/sim/internal/world"
	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
)

// FrameSink receives encoded snapshots.
type FrameSink interface {
	WriteEncoded(b []byte) error
}

// OutputSystem builds a render snapshot every N ticks, encodes it once and
// fans it out to the recorder and connected viewers. It also adopts
// viewers that connected since the last tick. Phase 4 (Output).
type OutputSystem struct {
	boids       *flock.Manager
	projectiles *projectile.Controller
	camera      *world.Camera
	clock       *Clock
	recorder    FrameSink
	viewers     *net.ViewerServer
	log         *zap.Logger

	snap      net.Snapshot
	tickCount int
	interval  int
	frames    int
}

// NewOutputSystem wires the feed. recorder, viewers and projectiles may be
// nil.
func NewOutputSystem(
	boids *flock.Manager,
	projectiles *projectile.Controller,
	camera *world.Camera,
	clock *Clock,
	recorder FrameSink,
	viewers *net.ViewerServer,
	log *zap.Logger,
	intervalTicks int,
) *OutputSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	return &OutputSystem{
		boids:       boids,
		projectiles: projectiles,
		camera:      camera,
		clock:       clock,
		recorder:    recorder,
		viewers:     viewers,
		log:         log,
		interval:    intervalTicks,
	}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(_ time.Duration) {
	if s.viewers != nil {
		s.viewers.Poll()
	}

	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	if s.recorder == nil && (s.viewers == nil || s.viewers.Viewers() == 0) {
		return
	}

	s.Build()
	payload, err := net.EncodeSnapshot(&s.snap)
	if err != nil {
		s.log.Error("快照編碼失敗", zap.Uint64("tick", s.clock.Tick), zap.Error(err))
		return
	}

	if s.recorder != nil {
		if err := s.recorder.WriteEncoded(payload); err != nil {
			s.log.Error("錄製寫入失敗，停止錄製", zap.Error(err))
			s.recorder = nil
		}
	}
	if s.viewers != nil {
		s.viewers.Broadcast(payload)
	}
	s.frames++
}

// Build fills the reusable snapshot from current state and returns it.
// Boids and projectiles awaiting the churn sweep are left out.
func (s *OutputSystem) Build() *net.Snapshot {
	snap := &s.snap
	snap.Reset()
	snap.Tick = s.clock.Tick
	snap.Time = s.clock.Time
	snap.Interval = s.boids.Interval()

	b := s.boids.Bounds()
	snap.BoundsLo = vec32(b.Min)
	snap.BoundsHi = vec32(b.Max)
	snap.Camera = vec32(s.camera.Position())

	for i := 0; i < s.boids.Flocks(); i++ {
		snap.FlockIntensity = append(snap.FlockIntensity, float32(s.boids.FlockIntensity(i)))
	}

	s.boids.Each(func(ref flock.Ref, a *component.Agent) {
		if a.PendingDestroy {
			return
		}
		snap.Boids = append(snap.Boids, net.BoidState{
			ID:    uint64(ref.ID()),
			Pos:   vec32(a.Position),
			Flock: a.Flock,
		})
	})
	snap.Count = len(snap.Boids)

	if s.projectiles != nil {
		s.projectiles.Projectiles(func(id ecs.EntityID, p *component.Agent) {
			if p.PendingDestroy {
				return
			}
			snap.Projectiles = append(snap.Projectiles, net.ProjectileState{
				ID:       uint64(id),
				Pos:      vec32(p.Position),
				Predator: p.Predator,
				Energy:   float32(p.Energy),
			})
		})
	}
	return snap
}

// Frames is how many snapshots went out.
func (s *OutputSystem) Frames() int { return s.frames }

func vec32(v mgl64.Vec3) [3]float32 {
	return [3]float32{float32(v[0]), float32(v[1]), float32(v[2])}
}
