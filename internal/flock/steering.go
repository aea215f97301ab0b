package flock

import (
	"math"

	"github.com/flockcity/sim/internal/config"
	"github.com/flockcity/sim/internal/geom"
	"github.com/flockcity/sim/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

// Threat is a live projectile as seen by steering.
type Threat struct {
	Position mgl64.Vec3
	Predator bool
}

// Environment is the read-only world state steering reacts to, refreshed by
// the owner before each steering-due tick.
type Environment struct {
	Camera          mgl64.Vec3
	Obstacles       []geom.Bounds
	HighestObstacle float64
	Threats         []Threat
}

// SteeringController blends seven forces into one acceleration. It holds
// only tuning; every call reads the grid and environment and writes nothing.
type SteeringController struct {
	bounds geom.Bounds
	grid   *world.HashGrid[Ref]

	visionRadius     float64
	visionRadiusSq   float64
	dotThreshold     float64
	boundsMargin     float64
	cameraRadiusSq   float64
	threatRadiusSq   float64
	obstacleDistance float64
	obstacleDistSq   float64

	boundsWeight     float64
	cameraWeight     float64
	threatWeight     float64
	obstacleWeight   float64
	cohesionWeight   float64
	alignmentWeight  float64
	separationWeight float64

	innerMax mgl64.Vec3
	innerMin mgl64.Vec3
}

func NewSteeringController(cfg config.SteeringConfig, bounds geom.Bounds, grid *world.HashGrid[Ref]) *SteeringController {
	margin := geom.One.Mul(cfg.BoundsMargin)
	return &SteeringController{
		bounds:           bounds,
		grid:             grid,
		visionRadius:     cfg.VisionRadius,
		visionRadiusSq:   cfg.VisionRadius * cfg.VisionRadius,
		dotThreshold:     math.Cos(mgl64.DegToRad(cfg.VisionHalfAngle)),
		boundsMargin:     cfg.BoundsMargin,
		cameraRadiusSq:   cfg.CameraRadius * cfg.CameraRadius,
		threatRadiusSq:   cfg.ProjectileRadius * cfg.ProjectileRadius,
		obstacleDistance: cfg.ObstacleDistance,
		obstacleDistSq:   cfg.ObstacleDistance * cfg.ObstacleDistance,
		boundsWeight:     cfg.BoundsWeight,
		cameraWeight:     cfg.CameraWeight,
		threatWeight:     cfg.ProjectileWeight,
		obstacleWeight:   cfg.ObstacleWeight,
		cohesionWeight:   cfg.CohesionWeight,
		alignmentWeight:  cfg.AlignmentWeight,
		separationWeight: cfg.SeparationWeight,
		innerMax:         bounds.Max.Sub(margin),
		innerMin:         bounds.Min.Add(margin),
	}
}

// VisionRadius is the neighbour query radius.
func (s *SteeringController) VisionRadius() float64 { return s.visionRadius }

// Steering returns the new acceleration direction for self. buf is scratch
// space for the neighbour query and is returned for reuse.
//
// With no visible neighbours the result is the raw environment sum; with
// neighbours the full seven-force sum is normalized to unit length.
func (s *SteeringController) Steering(self Ref, env *Environment, buf []Ref) (mgl64.Vec3, []Ref) {
	a, ok := self.Agent()
	if !ok {
		return geom.Zero, buf
	}
	pos := a.Position

	steering := s.BoundsSteering(pos).
		Add(s.CameraSteering(pos, env.Camera)).
		Add(s.ThreatSteering(pos, env.Threats)).
		Add(s.ObstacleSteering(pos, a.Bounds.BiggestExtentSq(), env))

	buf = s.Neighbors(self, buf)
	if len(buf) == 0 {
		return steering, buf
	}

	steering = steering.
		Add(s.cohesion(a.Flock, pos, buf)).
		Add(s.alignment(a.Flock, a.SteeringDirection(), buf)).
		Add(s.separation(pos, buf))
	return geom.Normalize(steering), buf
}

// BoundsSteering pushes inward on every axis where pos is inside the margin
// of a face. The max face wins over the min face on the same axis; the push
// ramps linearly from 0 at the margin and keeps growing past the face.
func (s *SteeringController) BoundsSteering(pos mgl64.Vec3) mgl64.Vec3 {
	var steering mgl64.Vec3
	for axis := 0; axis < 3; axis++ {
		neg := geom.Remap(s.innerMax[axis], s.bounds.Max[axis], pos[axis], 0, 1)
		if neg > 0 {
			steering[axis] = -neg
			continue
		}
		if posPush := geom.Remap(s.innerMin[axis], s.bounds.Min[axis], pos[axis], 0, 1); posPush > 0 {
			steering[axis] = posPush
		}
	}
	return steering.Mul(s.boundsWeight)
}

// CameraSteering pushes away from the camera inside its detection radius.
func (s *SteeringController) CameraSteering(pos, camera mgl64.Vec3) mgl64.Vec3 {
	away := pos.Sub(camera)
	d2 := geom.LenSq(away)
	if d2 > s.cameraRadiusSq {
		return geom.Zero
	}
	return geom.Normalize(away).Mul((1 - d2/s.cameraRadiusSq) * s.cameraWeight)
}

// ThreatSteering flees non-predator projectiles and closes on predators.
func (s *SteeringController) ThreatSteering(pos mgl64.Vec3, threats []Threat) mgl64.Vec3 {
	if len(threats) == 0 {
		return geom.Zero
	}
	var steering mgl64.Vec3
	for _, t := range threats {
		away := pos.Sub(t.Position)
		d2 := geom.LenSq(away)
		if d2 > s.threatRadiusSq {
			continue
		}
		dir := away
		if t.Predator {
			dir = dir.Mul(-1)
		}
		steering = steering.Add(geom.Normalize(dir).Mul(1 - d2/s.threatRadiusSq))
	}
	return steering.Mul(s.threatWeight)
}

// ObstacleSteering pushes away from every obstacle within the avoidance
// distance, measured from the closest box point and reduced by the agent's
// own radius. Agents already above the tallest obstacle skip the scan.
func (s *SteeringController) ObstacleSteering(pos mgl64.Vec3, radiusSq float64, env *Environment) mgl64.Vec3 {
	if len(env.Obstacles) == 0 || pos[1] > env.HighestObstacle+s.obstacleDistance {
		return geom.Zero
	}
	var steering mgl64.Vec3
	for i := range env.Obstacles {
		away := pos.Sub(env.Obstacles[i].ClosestPoint(pos))
		d2 := geom.LenSq(away) - radiusSq
		if d2 < s.obstacleDistSq {
			steering = steering.Add(geom.Normalize(away).Mul(1 - d2/s.obstacleDistSq))
		}
	}
	return steering.Mul(s.obstacleWeight)
}

// Neighbors returns the agents within vision radius and inside the forward
// cone of self, excluding self. The result reuses buf.
func (s *SteeringController) Neighbors(self Ref, buf []Ref) []Ref {
	a, ok := self.Agent()
	if !ok {
		return buf[:0]
	}
	pos, dir := a.Position, a.SteeringDirection()

	found := s.grid.QueryInRadiusBuf(pos, s.visionRadius, buf)
	n := 0
	for _, r := range found {
		if r == self {
			continue
		}
		toNeighbor := geom.Normalize(r.Position().Sub(pos))
		if dir.Dot(toNeighbor) < s.dotThreshold {
			continue
		}
		found[n] = r
		n++
	}
	return found[:n]
}

func (s *SteeringController) cohesion(flock uint8, pos mgl64.Vec3, neighbors []Ref) mgl64.Vec3 {
	var sum mgl64.Vec3
	count := 0
	for _, r := range neighbors {
		n, ok := r.Agent()
		if !ok || n.Flock != flock {
			continue
		}
		sum = sum.Add(n.Position)
		count++
	}
	if count == 0 {
		return geom.Zero
	}
	centroid := sum.Mul(1 / float64(count))
	return geom.Normalize(centroid.Sub(pos)).Mul(s.cohesionWeight)
}

// alignment subtracts the agent's own heading before averaging.
func (s *SteeringController) alignment(flock uint8, dir mgl64.Vec3, neighbors []Ref) mgl64.Vec3 {
	var sum mgl64.Vec3
	count := 0
	for _, r := range neighbors {
		n, ok := r.Agent()
		if !ok || n.Flock != flock {
			continue
		}
		sum = sum.Add(n.SteeringDirection())
		count++
	}
	if count == 0 {
		return geom.Zero
	}
	return sum.Sub(dir).Mul(s.alignmentWeight / float64(count))
}

func (s *SteeringController) separation(pos mgl64.Vec3, neighbors []Ref) mgl64.Vec3 {
	var steering mgl64.Vec3
	for _, r := range neighbors {
		away := pos.Sub(r.Position())
		push := 1 - geom.LenSq(away)/s.visionRadiusSq
		steering = steering.Add(geom.Normalize(away).Mul(push))
	}
	return steering.Mul(s.separationWeight)
}
