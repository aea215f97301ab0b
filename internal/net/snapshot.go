package net

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Snapshot is the read-only render feed for one tick. Positions are
// float32 to halve the wire size; they are never fed back into the
// simulation.
type Snapshot struct {
	Tick     uint64     `msgpack:"tick"`
	Time     float64    `msgpack:"time"`
	Interval float64    `msgpack:"interval"`
	Count    int        `msgpack:"count"`
	BoundsLo [3]float32 `msgpack:"lo"`
	BoundsHi [3]float32 `msgpack:"hi"`
	Camera   [3]float32 `msgpack:"cam"`

	FlockIntensity []float32         `msgpack:"flocks"`
	Boids          []BoidState       `msgpack:"boids"`
	Projectiles    []ProjectileState `msgpack:"proj"`
}

type BoidState struct {
	ID    uint64     `msgpack:"id"`
	Pos   [3]float32 `msgpack:"p"`
	Flock uint8      `msgpack:"f"`
}

type ProjectileState struct {
	ID       uint64     `msgpack:"id"`
	Pos      [3]float32 `msgpack:"p"`
	Predator bool       `msgpack:"pred"`
	Energy   float32    `msgpack:"e"`
}

// Reset empties s for reuse, keeping slice capacity.
func (s *Snapshot) Reset() {
	boids, proj, flocks := s.Boids[:0], s.Projectiles[:0], s.FlockIntensity[:0]
	*s = Snapshot{Boids: boids, Projectiles: proj, FlockIntensity: flocks}
}

func EncodeSnapshot(s *Snapshot) ([]byte, error) {
	b, err := msgpack.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return b, nil
}

func DecodeSnapshot(b []byte) (*Snapshot, error) {
	s := &Snapshot{}
	if err := msgpack.Unmarshal(b, s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return s, nil
}
