package component

import (
	"github.com/flockcity/sim/internal/geom"
	"github.com/flockcity/sim/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Kind tags which behaviour-specific fields of an Agent are meaningful.
type Kind uint8

const (
	KindBoid Kind = iota
	KindProjectile
)

func (k Kind) String() string {
	switch k {
	case KindBoid:
		return "boid"
	case KindProjectile:
		return "projectile"
	}
	return "unknown"
}

// Agent is the one concrete record for every simulated mover.
// Boids use Flock; projectiles use Predator, Energy, Drag and Consumed.
type Agent struct {
	Kind Kind

	Position     mgl64.Vec3
	Velocity     mgl64.Vec3
	Acceleration mgl64.Vec3
	Bounds       geom.Bounds

	// Cell is the grid bucket this agent was last filed under.
	Cell           world.CellKey
	PendingDestroy bool

	Flock uint8

	Predator bool
	Energy   float64
	Drag     float64
	Consumed int
}

func NewBoid(flock uint8, position, velocity, size mgl64.Vec3) Agent {
	return Agent{
		Kind:     KindBoid,
		Position: position,
		Velocity: velocity,
		Bounds:   geom.NewBounds(position, size),
		Flock:    flock,
	}
}

func NewProjectile(position, velocity, size mgl64.Vec3, drag, energy float64, predator bool) Agent {
	return Agent{
		Kind:     KindProjectile,
		Position: position,
		Velocity: velocity,
		Bounds:   geom.NewBounds(position, size),
		Drag:     drag,
		Energy:   energy,
		Predator: predator,
	}
}

// Destroy flags the agent for the owner's next churn sweep.
func (a *Agent) Destroy() { a.PendingDestroy = true }

// SteeringDirection is the normalized velocity (zero when at rest).
func (a *Agent) SteeringDirection() mgl64.Vec3 {
	return geom.Normalize(a.Velocity)
}

// Integrate advances position by velocity·dt and drags the bounds along.
func (a *Agent) Integrate(dt float64) {
	a.Position = a.Position.Add(a.Velocity.Mul(dt))
	a.Bounds.UpdateBounds(a.Position)
}

// Teleport moves the agent without touching its velocity.
func (a *Agent) Teleport(p mgl64.Vec3) {
	a.Position = p
	a.Bounds.UpdateBounds(p)
}

// ClampSpeed rescales velocity into [minSpeed, maxSpeed]. Exact boundary
// speeds are left alone. A zero velocity has no heading to rescale and
// stays zero; callers give it a direction first.
func (a *Agent) ClampSpeed(minSpeed, maxSpeed float64) {
	speedSq := geom.LenSq(a.Velocity)
	switch {
	case speedSq > maxSpeed*maxSpeed:
		a.Velocity = geom.Normalize(a.Velocity).Mul(maxSpeed)
	case speedSq < minSpeed*minSpeed:
		a.Velocity = geom.Normalize(a.Velocity).Mul(minSpeed)
	}
}
