package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// DispatchEvent is a structured record enqueued during a tick and forwarded
// to named external handlers at the tick's end.
type DispatchEvent struct {
	ID        uuid.UUID
	Handlers  []string
	Data      map[string]any
	Origin    string
	CreatedAt time.Time
}

// NewDispatchEvent stamps an ID and CreatedAt and returns a ready-to-enqueue event.
func NewDispatchEvent(handlers []string, data map[string]any, origin string) DispatchEvent {
	return DispatchEvent{
		ID:        uuid.New(),
		Handlers:  handlers,
		Data:      data,
		Origin:    origin,
		CreatedAt: time.Now(),
	}
}

// DispatchQueue is the in-tick event buffer. It is confined to the main
// thread: appended by tasks running synchronously within a tick, drained
// and cleared by EventDispatchTask. No cross-thread access is permitted,
// so no locking is needed here by design.
type DispatchQueue struct {
	events []DispatchEvent
}

// NewDispatchQueue returns an empty queue.
func NewDispatchQueue() *DispatchQueue {
	return &DispatchQueue{}
}

// Enqueue appends one event to the queue.
func (q *DispatchQueue) Enqueue(e DispatchEvent) {
	q.events = append(q.events, e)
}

// Len reports the current queue depth.
func (q *DispatchQueue) Len() int {
	return len(q.events)
}

// DrainAll swaps the internal buffer for a fresh one and returns everything
// that had been queued, atomically with respect to the single-threaded
// caller discipline described above.
func (q *DispatchQueue) DrainAll() []DispatchEvent {
	drained := q.events
	q.events = nil
	return drained
}
