package flock

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestSpawnQueueDrainOrder(t *testing.T) {
	q := NewSpawnQueue()
	for i := 0; i < 3; i++ {
		q.Push(SpawnRequest{Position: mgl64.Vec3{float64(i), 0, 0}, Flock: i})
	}

	var got []int
	n := q.Drain(func(r SpawnRequest) { got = append(got, r.Flock) })
	if n != 3 || len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Fatalf("Drain = %d, order %v", n, got)
	}
	if q.Len() != 0 {
		t.Errorf("queue not empty: %d", q.Len())
	}
}

func TestSpawnQueuePushDuringDrain(t *testing.T) {
	q := NewSpawnQueue()
	q.Push(SpawnRequest{Flock: 0})

	calls := 0
	q.Drain(func(r SpawnRequest) {
		calls++
		q.Push(SpawnRequest{Flock: r.Flock + 1})
	})
	if calls != 1 {
		t.Fatalf("drain handled %d requests, want 1", calls)
	}
	if q.Len() != 1 {
		t.Fatalf("request pushed during drain lost: len %d", q.Len())
	}
	q.Drain(func(r SpawnRequest) {
		if r.Flock != 1 {
			t.Errorf("flock = %d, want 1", r.Flock)
		}
	})
}
