package system

import (
	"time"

	coresys "github.com/flockcity/sim/internal/core/system"
	"github.com/flockcity/sim/internal/scripting"
	"github.com/flockcity/sim/internal/world"
)

// ScriptSystem hands each tick to the loaded Lua scenario, which drives the
// simulation through Controls. Phase 0 (Input).
type ScriptSystem struct {
	scenario *scripting.Scenario
	clock    *Clock
}

func NewScriptSystem(scenario *scripting.Scenario, clock *Clock) *ScriptSystem {
	return &ScriptSystem{scenario: scenario, clock: clock}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ScriptSystem) Update(_ time.Duration) {
	s.scenario.Tick(s.clock.Tick, s.clock.Time)
}

// CameraSystem moves the camera before anything reads its position.
// Phase 0 (Input).
type CameraSystem struct {
	camera *world.Camera
}

func NewCameraSystem(camera *world.Camera) *CameraSystem {
	return &CameraSystem{camera: camera}
}

func (s *CameraSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *CameraSystem) Update(dt time.Duration) {
	s.camera.Update(dt.Seconds())
}
