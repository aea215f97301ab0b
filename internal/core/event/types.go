package event

import (
	"github.com/flockcity/sim/internal/core/ecs"
	"github.com/go-gl/mathgl/mgl64"
)

// BoidsSpawned is emitted once per spawn batch.
type BoidsSpawned struct {
	Count  int
	Reason string // "initial", "grow", "replacement"
}

// BoidsRemoved is emitted by a churn sweep that removed at least one boid.
type BoidsRemoved struct {
	Count     int
	Remaining int
}

// BoidConsumed is emitted when a predator projectile eats a boid.
type BoidConsumed struct {
	Boid     ecs.EntityID
	Position mgl64.Vec3
}

// ProjectileFired is emitted when a projectile leaves the camera.
type ProjectileFired struct {
	Predator bool
}

// ProjectileExpired is emitted when a projectile runs out of energy.
type ProjectileExpired struct {
	Position mgl64.Vec3
	Consumed int
}

// SteeringIntervalChanged is emitted when the recompute cadence is adjusted.
type SteeringIntervalChanged struct {
	Interval float64
}
