package flock

import (
	"math"
	"testing"

	"github.com/flockcity/sim/internal/config"
	"github.com/flockcity/sim/internal/geom"
	"github.com/go-gl/mathgl/mgl64"
)

func vecNear(a, b mgl64.Vec3) bool {
	return a.ApproxEqualThreshold(b, 1e-9)
}

func TestBoundsSteering(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := m.Steering()
	b := m.Bounds() // min (-22.5, 0, -22.5), max (22.5, 35, 22.5), margin 5, weight 3

	tests := []struct {
		name string
		pos  mgl64.Vec3
		want mgl64.Vec3
	}{
		{"centre", b.Center, mgl64.Vec3{}},
		{"half into max x margin", mgl64.Vec3{20, 17.5, 0}, mgl64.Vec3{-1.5, 0, 0}},
		{"half into min z margin", mgl64.Vec3{0, 17.5, -20}, mgl64.Vec3{0, 0, 1.5}},
		{"on the floor", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{0, 3, 0}},
		{"past the ceiling", mgl64.Vec3{0, 37.5, 0}, mgl64.Vec3{0, -4.5, 0}},
		{"corner", mgl64.Vec3{22.5, 35, 22.5}, mgl64.Vec3{-3, -3, -3}},
	}
	for _, tt := range tests {
		if got := s.BoundsSteering(tt.pos); !vecNear(got, tt.want) {
			t.Errorf("%s: BoundsSteering(%v) = %v, want %v", tt.name, tt.pos, got, tt.want)
		}
	}
}

func TestCameraSteering(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := m.Steering()
	cam := mgl64.Vec3{0, 10, 0}

	if got := s.CameraSteering(mgl64.Vec3{0, 10, 6}, cam); got != geom.Zero {
		t.Errorf("outside radius: %v", got)
	}
	// d² = 9, r² = 25 → (1 - 9/25) · 2 along +z.
	want := mgl64.Vec3{0, 0, (1 - 9.0/25) * 2}
	if got := s.CameraSteering(mgl64.Vec3{0, 10, 3}, cam); !vecNear(got, want) {
		t.Errorf("inside radius: got %v, want %v", got, want)
	}
	if got := s.CameraSteering(cam, cam); got != geom.Zero {
		t.Errorf("at camera: %v, want zero", got)
	}
}

func TestThreatSteering(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := m.Steering()
	pos := mgl64.Vec3{0, 10, 0}
	ratio := (1 - 25.0/100) * 2.2

	flee := s.ThreatSteering(pos, []Threat{{Position: mgl64.Vec3{5, 10, 0}}})
	if !vecNear(flee, mgl64.Vec3{-ratio, 0, 0}) {
		t.Errorf("non-predator: %v", flee)
	}
	chase := s.ThreatSteering(pos, []Threat{{Position: mgl64.Vec3{5, 10, 0}, Predator: true}})
	if !vecNear(chase, mgl64.Vec3{ratio, 0, 0}) {
		t.Errorf("predator: %v", chase)
	}
	far := s.ThreatSteering(pos, []Threat{{Position: mgl64.Vec3{11, 10, 0}}})
	if far != geom.Zero {
		t.Errorf("outside radius: %v", far)
	}
	both := s.ThreatSteering(pos, []Threat{
		{Position: mgl64.Vec3{5, 10, 0}},
		{Position: mgl64.Vec3{0, 10, 5}},
	})
	if !vecNear(both, mgl64.Vec3{-ratio, 0, -ratio}) {
		t.Errorf("sum of two: %v", both)
	}
}

func TestObstacleSteering(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := m.Steering()
	tower := geom.NewBounds(mgl64.Vec3{0, 5, 0}, mgl64.Vec3{4, 10, 4}) // x in [-2, 2], top at 10
	env := &Environment{Obstacles: []geom.Bounds{tower}, HighestObstacle: tower.Max[1]}
	radiusSq := 0.36

	if got := s.ObstacleSteering(mgl64.Vec3{0, 13, 0}, radiusSq, env); got != geom.Zero {
		t.Errorf("above highest + distance: %v", got)
	}

	// 1.5 from the +x face: d² = 2.25 - 0.36 = 1.89.
	got := s.ObstacleSteering(mgl64.Vec3{3.5, 5, 0}, radiusSq, env)
	want := mgl64.Vec3{(1 - 1.89/6.25) * 4, 0, 0}
	if !vecNear(got, want) {
		t.Errorf("beside tower: got %v, want %v", got, want)
	}

	if got := s.ObstacleSteering(mgl64.Vec3{6, 5, 0}, radiusSq, env); got != geom.Zero {
		t.Errorf("out of range: %v", got)
	}
	if got := s.ObstacleSteering(mgl64.Vec3{3.5, 5, 0}, radiusSq, &Environment{}); got != geom.Zero {
		t.Errorf("empty city: %v", got)
	}
}

func TestNeighborsRespectVisionCone(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := m.Steering()
	self := m.SpawnAt(mgl64.Vec3{0, 20, 0}, mgl64.Vec3{7, 0, 0}, 0)
	ahead := m.SpawnAt(mgl64.Vec3{1, 20, 0}, mgl64.Vec3{7, 0, 0}, 0)
	side := m.SpawnAt(mgl64.Vec3{0, 20, 1}, mgl64.Vec3{7, 0, 0}, 1)
	behind := m.SpawnAt(mgl64.Vec3{-1, 20, 0}, mgl64.Vec3{7, 0, 0}, 0)
	m.SpawnAt(mgl64.Vec3{4, 20, 0}, mgl64.Vec3{7, 0, 0}, 0) // beyond vision radius

	got := map[Ref]bool{}
	for _, r := range s.Neighbors(self, nil) {
		got[r] = true
	}
	if !got[ahead] || !got[side] {
		t.Errorf("missing visible neighbours: %v", got)
	}
	if got[self] || got[behind] {
		t.Errorf("self or rear neighbour included: %v", got)
	}
	if len(got) != 2 {
		t.Errorf("neighbours = %d, want 2", len(got))
	}
}

func TestSteeringWithoutNeighborsIsUnnormalized(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := m.Steering()
	self := m.SpawnAt(mgl64.Vec3{22, 34, 22}, mgl64.Vec3{7, 0, 0}, 0)

	got, _ := s.Steering(self, m.Environment(), nil)
	if got.Len() <= 1 {
		t.Errorf("isolated boid near a corner: |steering| = %v, want > 1", got.Len())
	}
	if want := s.BoundsSteering(mgl64.Vec3{22, 34, 22}); !vecNear(got, want) {
		t.Errorf("steering = %v, want environment sum %v", got, want)
	}
}

func TestSteeringWithNeighborsIsUnit(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := m.Steering()
	self := m.SpawnAt(mgl64.Vec3{22, 34, 22}, mgl64.Vec3{7, 0, 0}, 0)
	m.SpawnAt(mgl64.Vec3{22.5, 34, 21}, mgl64.Vec3{7, 0, 0}, 0)

	got, _ := s.Steering(self, m.Environment(), nil)
	if math.Abs(got.Len()-1) > 1e-9 {
		t.Errorf("|steering| = %v, want 1", got.Len())
	}
}

func TestSocialForcesIgnoreOtherFlocks(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := m.Steering()
	self := m.SpawnAt(mgl64.Vec3{0, 20, 0}, mgl64.Vec3{7, 0, 0}, 0)
	m.SpawnAt(mgl64.Vec3{1, 20, 0.5}, mgl64.Vec3{0, 0, 7}, 1)
	// Same flock but outside the radius.
	m.SpawnAt(mgl64.Vec3{5, 20, 0}, mgl64.Vec3{0, 0, 7}, 0)

	neighbors := s.Neighbors(self, nil)
	if len(neighbors) != 1 {
		t.Fatalf("neighbours = %d, want 1", len(neighbors))
	}
	a, _ := self.Agent()
	if got := s.cohesion(a.Flock, a.Position, neighbors); got != geom.Zero {
		t.Errorf("cohesion = %v, want zero", got)
	}
	if got := s.alignment(a.Flock, a.SteeringDirection(), neighbors); got != geom.Zero {
		t.Errorf("alignment = %v, want zero", got)
	}
	if got := s.separation(a.Position, neighbors); got == geom.Zero {
		t.Error("separation ignored an other-flock neighbour")
	}
}

func TestAlignmentSubtractsBeforeAveraging(t *testing.T) {
	m, _ := newTestManager(t, nil)
	s := m.Steering()
	self := m.SpawnAt(mgl64.Vec3{0, 20, 0}, mgl64.Vec3{7, 0, 0}, 0)
	m.SpawnAt(mgl64.Vec3{1, 20, 0}, mgl64.Vec3{0, 0, 7}, 0)
	m.SpawnAt(mgl64.Vec3{1, 20, 1}, mgl64.Vec3{0, 0, 7}, 0)

	neighbors := s.Neighbors(self, nil)
	a, _ := self.Agent()
	// ((0,0,1) + (0,0,1) - (1,0,0)) / 2 · 1
	want := mgl64.Vec3{-0.5, 0, 1}
	if got := s.alignment(a.Flock, a.SteeringDirection(), neighbors); !vecNear(got, want) {
		t.Errorf("alignment = %v, want %v", got, want)
	}
	// centroid (1, 20, 0.5) → normalized (1, 0, 0.5) · 1.75
	wantC := geom.Normalize(mgl64.Vec3{1, 0, 0.5}).Mul(1.75)
	if got := s.cohesion(a.Flock, a.Position, neighbors); !vecNear(got, wantC) {
		t.Errorf("cohesion = %v, want %v", got, wantC)
	}
}

func TestSteeringConfigWeightsApplied(t *testing.T) {
	cfg := config.Default().Steering
	cfg.CameraWeight = 0
	m, _ := newTestManager(t, func(c *config.Config) { c.Steering = cfg })
	if got := m.Steering().CameraSteering(mgl64.Vec3{0, 10, 1}, mgl64.Vec3{0, 10, 0}); got != geom.Zero {
		t.Errorf("zero weight still pushes: %v", got)
	}
}
