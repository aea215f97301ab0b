package system

import (
	"time"

	coresys "github.com/flockcity/sim/internal/core/system"
)

// Clock is the shared simulation clock. ClockSystem advances it; every
// other system only reads it.
type Clock struct {
	Tick uint64
	Time float64 // simulated seconds
}

// ClockSystem advances the Clock at the start of each tick. Register it
// before any other Input system. Phase 0 (Input).
type ClockSystem struct {
	clock *Clock
}

func NewClockSystem(clock *Clock) *ClockSystem {
	return &ClockSystem{clock: clock}
}

func (s *ClockSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ClockSystem) Update(dt time.Duration) {
	s.clock.Tick++
	s.clock.Time += dt.Seconds()
}
