package flock

import "github.com/go-gl/mathgl/mgl64"

// AnyFlock asks the manager to pick a flock at random.
const AnyFlock = -1

// SpawnRequest asks for one replacement boid.
type SpawnRequest struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
	Flock    int
}

// SpawnQueue carries replacement-boid requests from other subsystems to the
// manager. Producers push during their tick; the manager drains it at the
// start of its next Update, so a request never lands in a sweep already in
// progress.
type SpawnQueue struct {
	pending []SpawnRequest
}

func NewSpawnQueue() *SpawnQueue {
	return &SpawnQueue{pending: make([]SpawnRequest, 0, 16)}
}

func (q *SpawnQueue) Push(r SpawnRequest) {
	q.pending = append(q.pending, r)
}

func (q *SpawnQueue) Len() int { return len(q.pending) }

// Drain hands every queued request to fn in push order and empties the queue.
// Requests pushed by fn itself are kept for the next drain.
func (q *SpawnQueue) Drain(fn func(SpawnRequest)) int {
	batch := q.pending
	q.pending = nil
	for _, r := range batch {
		fn(r)
	}
	if q.pending == nil {
		q.pending = batch[:0]
	} else {
		q.pending = append(batch[:0], q.pending...)
	}
	return len(batch)
}
