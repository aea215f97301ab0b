package system

import (
	"context"
	"time"

	"github.com/flockcity/sim/internal/component"
	"github.com/flockcity/sim/internal/core/event"
	coresys "github.com/flockcity/sim/internal/core/system"
	"github.com/flockcity/sim/internal/flock"
	"github.com/flockcity/sim/internal/persist"
	"github.com/flockcity/sim/internal/projectile"
	"go.uber.org/zap"
)

// SampleSink stores journal samples.
type SampleSink interface {
	RecordSample(ctx context.Context, s persist.Sample) error
}

// JournalSystem samples population counters every N ticks.
// Phase 5 (Persist).
type JournalSystem struct {
	ctx         context.Context
	sink        SampleSink
	boids       *flock.Manager
	projectiles *projectile.Controller
	clock       *Clock
	log         *zap.Logger
	consumed    int
	tickCount   int
	interval    int
	failures    int
}

func NewJournalSystem(
	ctx context.Context,
	sink SampleSink,
	boids *flock.Manager,
	projectiles *projectile.Controller,
	clock *Clock,
	bus *event.Bus,
	log *zap.Logger,
	intervalTicks int,
) *JournalSystem {
	if intervalTicks < 1 {
		intervalTicks = 1
	}
	s := &JournalSystem{
		ctx:         ctx,
		sink:        sink,
		boids:       boids,
		projectiles: projectiles,
		clock:       clock,
		log:         log,
		interval:    intervalTicks,
	}
	event.Subscribe(bus, func(event.BoidConsumed) { s.consumed++ })
	return s
}

func (s *JournalSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *JournalSystem) Update(_ time.Duration) {
	s.tickCount++
	if s.tickCount < s.interval {
		return
	}
	s.tickCount = 0

	if err := s.sink.RecordSample(s.ctx, s.Sample()); err != nil {
		s.failures++
		s.log.Warn("日誌取樣寫入失敗", zap.Uint64("tick", s.clock.Tick), zap.Error(err))
	}
}

// Sample reads the current counters. MeanSpeed covers live boids only.
// Consumed is the running total of consumption events delivered so far.
func (s *JournalSystem) Sample() persist.Sample {
	var sum float64
	n := 0
	s.boids.Each(func(_ flock.Ref, a *component.Agent) {
		if a.PendingDestroy {
			return
		}
		sum += a.Velocity.Len()
		n++
	})
	mean := 0.0
	if n > 0 {
		mean = sum / float64(n)
	}
	projectiles := 0
	if s.projectiles != nil {
		projectiles = s.projectiles.Count()
	}
	return persist.Sample{
		Tick:        s.clock.Tick,
		SimTime:     s.clock.Time,
		Boids:       s.boids.Count(),
		Projectiles: projectiles,
		Interval:    s.boids.Interval(),
		Consumed:    s.consumed,
		MeanSpeed:   mean,
	}
}

// Consumed is the running total of boids eaten by predators.
func (s *JournalSystem) Consumed() int { return s.consumed }

// Failures counts samples the sink rejected.
func (s *JournalSystem) Failures() int { return s.failures }
