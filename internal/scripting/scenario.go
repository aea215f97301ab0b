package scripting

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Controls is what a scenario may do to the running simulation.
type Controls interface {
	Spawn(n int)
	Despawn(n int) int
	Grow()
	Shrink() int
	IncreaseInterval()
	DecreaseInterval()
	Fire(predator bool)
	SetCamera(pos, dir mgl64.Vec3)
	OrbitCamera(speed float64)
	Count() int
	Interval() float64
}

// Scenario runs a Lua script that drives the simulation through a global
// `sim` table. The script defines on_tick(tick, time); it is called once per
// simulation tick. Single-goroutine access only (tick loop).
type Scenario struct {
	vm     *lua.LState
	ctl    Controls
	log    *zap.Logger
	onTick lua.LValue
	calls  uint64
	errors uint64
}

// NewScenario creates a VM with the sim API installed and no script loaded.
func NewScenario(ctl Controls, log *zap.Logger) *Scenario {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	s := &Scenario{vm: vm, ctl: ctl, log: log, onTick: lua.LNil}
	vm.SetGlobal("sim", vm.SetFuncs(vm.NewTable(), map[string]lua.LGFunction{
		"spawn":         s.luaSpawn,
		"despawn":       s.luaDespawn,
		"grow":          s.luaGrow,
		"shrink":        s.luaShrink,
		"interval_up":   s.luaIntervalUp,
		"interval_down": s.luaIntervalDown,
		"fire":          s.luaFire,
		"camera":        s.luaCamera,
		"orbit":         s.luaOrbit,
		"count":         s.luaCount,
		"interval":      s.luaInterval,
		"log":           s.luaLog,
	}))
	return s
}

// LoadFile runs the script at path and binds its on_tick.
func (s *Scenario) LoadFile(path string) error {
	if err := s.vm.DoFile(path); err != nil {
		return fmt.Errorf("load scenario %s: %w", path, err)
	}
	s.bind()
	s.log.Debug("loaded lua script", zap.String("file", path))
	return nil
}

// LoadString runs src and binds its on_tick.
func (s *Scenario) LoadString(src string) error {
	if err := s.vm.DoString(src); err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	s.bind()
	return nil
}

func (s *Scenario) bind() {
	s.onTick = s.vm.GetGlobal("on_tick")
	if s.onTick.Type() != lua.LTFunction {
		s.log.Warn("劇本未定義 on_tick")
		s.onTick = lua.LNil
	}
}

// Tick calls on_tick(tick, time). Script errors are logged and do not stop
// the simulation.
func (s *Scenario) Tick(tick uint64, t float64) {
	if s.onTick == lua.LNil {
		return
	}
	s.calls++
	if err := s.vm.CallByParam(lua.P{
		Fn:      s.onTick,
		NRet:    0,
		Protect: true,
	}, lua.LNumber(tick), lua.LNumber(t)); err != nil {
		s.errors++
		s.log.Error("lua on_tick error", zap.Uint64("tick", tick), zap.Error(err))
	}
}

// Errors returns how many on_tick calls failed.
func (s *Scenario) Errors() uint64 { return s.errors }

// Calls returns how many times on_tick ran.
func (s *Scenario) Calls() uint64 { return s.calls }

func (s *Scenario) Close() {
	s.vm.Close()
}

// --- sim.* ---

func (s *Scenario) luaSpawn(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 0 {
		L.ArgError(1, "count must not be negative")
	}
	s.ctl.Spawn(n)
	return 0
}

func (s *Scenario) luaDespawn(L *lua.LState) int {
	n := L.CheckInt(1)
	L.Push(lua.LNumber(s.ctl.Despawn(n)))
	return 1
}

func (s *Scenario) luaGrow(L *lua.LState) int {
	s.ctl.Grow()
	return 0
}

func (s *Scenario) luaShrink(L *lua.LState) int {
	L.Push(lua.LNumber(s.ctl.Shrink()))
	return 1
}

func (s *Scenario) luaIntervalUp(L *lua.LState) int {
	s.ctl.IncreaseInterval()
	L.Push(lua.LNumber(s.ctl.Interval()))
	return 1
}

func (s *Scenario) luaIntervalDown(L *lua.LState) int {
	s.ctl.DecreaseInterval()
	L.Push(lua.LNumber(s.ctl.Interval()))
	return 1
}

// sim.fire([predator]) defaults to a predator shot.
func (s *Scenario) luaFire(L *lua.LState) int {
	s.ctl.Fire(L.OptBool(1, true))
	return 0
}

// sim.camera(x, y, z, dx, dy, dz)
func (s *Scenario) luaCamera(L *lua.LState) int {
	pos := mgl64.Vec3{float64(L.CheckNumber(1)), float64(L.CheckNumber(2)), float64(L.CheckNumber(3))}
	dir := mgl64.Vec3{float64(L.CheckNumber(4)), float64(L.CheckNumber(5)), float64(L.CheckNumber(6))}
	if dir.Len() == 0 {
		L.ArgError(4, "direction must not be zero")
	}
	s.ctl.SetCamera(pos, dir)
	return 0
}

func (s *Scenario) luaOrbit(L *lua.LState) int {
	s.ctl.OrbitCamera(float64(L.CheckNumber(1)))
	return 0
}

func (s *Scenario) luaCount(L *lua.LState) int {
	L.Push(lua.LNumber(s.ctl.Count()))
	return 1
}

func (s *Scenario) luaInterval(L *lua.LState) int {
	L.Push(lua.LNumber(s.ctl.Interval()))
	return 1
}

func (s *Scenario) luaLog(L *lua.LState) int {
	s.log.Info("劇本訊息", zap.String("msg", L.CheckString(1)))
	return 0
}
