package system

import (
	"time"

	coresys "github.com/flockcity/sim/internal/core/system"
	"github.com/flockcity/sim/internal/flock"
	"github.com/flockcity/sim/internal/projectile"
	"github.com/flockcity/sim/internal/world"
)

// BoidSystem refreshes the steering environment from the camera and live
// projectiles, then steers and integrates every boid. Phase 2 (Update).
type BoidSystem struct {
	boids       *flock.Manager
	camera      *world.Camera
	projectiles *projectile.Controller
	threats     []flock.Threat
}

// NewBoidSystem binds the static city into the manager's environment once.
// projectiles may be nil.
func NewBoidSystem(boids *flock.Manager, camera *world.Camera, city *world.City, projectiles *projectile.Controller) *BoidSystem {
	env := boids.Environment()
	if city != nil {
		env.Obstacles = city.Obstacles()
		env.HighestObstacle = city.HighestTop()
	}
	return &BoidSystem{boids: boids, camera: camera, projectiles: projectiles}
}

func (s *BoidSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *BoidSystem) Update(dt time.Duration) {
	env := s.boids.Environment()
	env.Camera = s.camera.Position()
	if s.projectiles != nil {
		s.threats = s.projectiles.Threats(s.threats)
		env.Threats = s.threats
	}
	s.boids.Update(dt.Seconds())
}

// ProjectileSystem moves projectiles after the boids so predators chase
// this tick's positions. Phase 3 (PostUpdate).
type ProjectileSystem struct {
	projectiles *projectile.Controller
}

func NewProjectileSystem(projectiles *projectile.Controller) *ProjectileSystem {
	return &ProjectileSystem{projectiles: projectiles}
}

func (s *ProjectileSystem) Phase() coresys.Phase { return coresys.PhasePostUpdate }

func (s *ProjectileSystem) Update(dt time.Duration) {
	s.projectiles.Update(dt.Seconds())
}
