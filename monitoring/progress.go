package monitoring

import (
	"encoding/json"
	"sync"
	"time"
)

// A ProgressBar tracks how many items of a known total are done. It is safe
// for concurrent use.
type ProgressBar struct {
	mu sync.Mutex

	id         string
	name       string
	startTime  time.Time
	total      uint64
	finished   uint64
	inProgress uint64
}

// ProgressSnapshot is the state of a ProgressBar at one moment.
type ProgressSnapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	StartTime  time.Time `json:"start_time"`
	Total      uint64    `json:"total"`
	Finished   uint64    `json:"finished"`
	InProgress uint64    `json:"in_progress"`
}

// Snapshot copies the current counters.
func (b *ProgressBar) Snapshot() ProgressSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	return ProgressSnapshot{
		ID:         b.id,
		Name:       b.name,
		StartTime:  b.startTime,
		Total:      b.total,
		Finished:   b.finished,
		InProgress: b.inProgress,
	}
}

// MarshalJSON encodes a snapshot of the bar.
func (b *ProgressBar) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Snapshot())
}

// IncrementInProgress marks items as started.
func (b *ProgressBar) IncrementInProgress(amount uint64) {
	b.mu.Lock()
	b.inProgress += amount
	b.mu.Unlock()
}

// IncrementFinished marks items as done without them being started first.
func (b *ProgressBar) IncrementFinished(amount uint64) {
	b.mu.Lock()
	b.finished += amount
	b.mu.Unlock()
}

// MoveInProgressToFinished marks started items as done. At most the number
// of started items is moved.
func (b *ProgressBar) MoveInProgressToFinished(amount uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	amount = min(amount, b.inProgress)
	b.inProgress -= amount
	b.finished += amount
}
