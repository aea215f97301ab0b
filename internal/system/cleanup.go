package system

import (
	"time"

	coresys "github.com/flockcity/sim/internal/core/system"
	"github.com/flockcity/sim/internal/flock"
	"github.com/flockcity/sim/internal/projectile"
)

// CleanupSystem runs the churn sweeps at tick end: boids flagged by despawn
// or consumption, then expired projectiles. Phase 6 (Cleanup).
type CleanupSystem struct {
	boids       *flock.Manager
	projectiles *projectile.Controller
}

func NewCleanupSystem(boids *flock.Manager, projectiles *projectile.Controller) *CleanupSystem {
	return &CleanupSystem{boids: boids, projectiles: projectiles}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	s.boids.RemovePending()
	if s.projectiles != nil {
		s.projectiles.RemovePending()
	}
}
