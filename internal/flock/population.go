package flock

import (
	"math"

	"github.com/flockcity/sim/internal/component"
	"github.com/flockcity/sim/internal/core/ecs"
	"github.com/flockcity/sim/internal/world"
	"github.com/go-gl/mathgl/mgl64"
)

var nowhere = mgl64.Vec3{math.NaN(), math.NaN(), math.NaN()}

// Population is the boid arena: generational IDs from a pool, agent records
// packed densely in insertion order. The grid stores Refs into it.
type Population struct {
	pool   *ecs.EntityPool
	agents *ecs.Dense[component.Agent]
}

func NewPopulation(capacity int) *Population {
	return &Population{
		pool:   ecs.NewEntityPool(),
		agents: ecs.NewDense[component.Agent](capacity),
	}
}

// Add stores a and returns a handle to it.
func (p *Population) Add(a component.Agent) Ref {
	id := p.pool.Create()
	p.agents.Insert(id, a)
	return Ref{id: id, pop: p}
}

// Get resolves id; stale IDs report false.
func (p *Population) Get(id ecs.EntityID) (*component.Agent, bool) {
	return p.agents.Get(id)
}

func (p *Population) Len() int { return p.agents.Len() }

// At returns the handle and record of the i-th oldest agent.
func (p *Population) At(i int) (Ref, *component.Agent) {
	id, a := p.agents.At(i)
	return Ref{id: id, pop: p}, a
}

// Ref returns the handle for id without checking liveness.
func (p *Population) Ref(id ecs.EntityID) Ref {
	return Ref{id: id, pop: p}
}

// sweep drops every agent flagged PendingDestroy. onRemove sees each one
// while its handle still resolves. Returns the number removed.
func (p *Population) sweep(onRemove func(Ref, *component.Agent)) int {
	return p.agents.RemoveIf(
		func(_ ecs.EntityID, a *component.Agent) bool { return a.PendingDestroy },
		func(id ecs.EntityID, a *component.Agent) {
			if onRemove != nil {
				onRemove(Ref{id: id, pop: p}, a)
			}
			p.pool.Destroy(id)
		},
	)
}

// Ref is a generation-checked handle to a boid. A Ref whose boid has been
// swept reports a NaN position, so it never matches a radius query, and
// ignores cell-key writes.
type Ref struct {
	id  ecs.EntityID
	pop *Population
}

func (r Ref) ID() ecs.EntityID { return r.id }

// Agent resolves the handle.
func (r Ref) Agent() (*component.Agent, bool) {
	if r.pop == nil {
		return nil, false
	}
	return r.pop.agents.Get(r.id)
}

func (r Ref) Position() mgl64.Vec3 {
	a, ok := r.Agent()
	if !ok {
		return nowhere
	}
	return a.Position
}

func (r Ref) CellKey() world.CellKey {
	a, ok := r.Agent()
	if !ok {
		return world.CellKey{}
	}
	return a.Cell
}

func (r Ref) SetCellKey(k world.CellKey) {
	if a, ok := r.Agent(); ok {
		a.Cell = k
	}
}
