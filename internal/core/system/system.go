package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput      Phase = iota // 0: scenario commands, camera
	PhasePreUpdate               // 1: dispatch last tick's events
	PhaseUpdate                  // 2: boid steering + integration
	PhasePostUpdate              // 3: projectiles (pursuit, consumption, expiry)
	PhaseOutput                  // 4: render snapshots
	PhasePersist                 // 5: journal samples
	PhaseCleanup                 // 6: churn sweeps
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
