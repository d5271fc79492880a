package grading

import (
	"fmt"
	"sync"
)

const (
	StatusPending    = "pending"
	StatusInProgress = "in progress"
	StatusDone       = "done"
)

// ProgressFunc receives a snapshot after every status change: completed
// count, total, and a one-line summary. Calls are serialized by the
// board's mutex.
type ProgressFunc func(completed, total int, line string)

// statusBoard is the only shared-mutable state in a grading run. All
// access goes through its single mutex.
type statusBoard struct {
	mu        sync.Mutex
	students  map[int64]string
	names     map[int64]string
	total     int
	completed int
	onChange  ProgressFunc
}

func newStatusBoard(total int, onChange ProgressFunc) *statusBoard {
	return &statusBoard{
		students: make(map[int64]string, total),
		names:    make(map[int64]string, total),
		total:    total,
		onChange: onChange,
	}
}

func (b *statusBoard) register(userID int64, name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.students[userID] = StatusPending
	b.names[userID] = name
}

func (b *statusBoard) start(userID int64) {
	b.set(userID, StatusInProgress)
}

func (b *statusBoard) finish(userID int64) {
	b.mu.Lock()
	b.students[userID] = StatusDone
	b.completed++
	b.notifyLocked(userID)
	b.mu.Unlock()
}

func (b *statusBoard) set(userID int64, status string) {
	b.mu.Lock()
	b.students[userID] = status
	b.notifyLocked(userID)
	b.mu.Unlock()
}

func (b *statusBoard) notifyLocked(userID int64) {
	if b.onChange != nil {
		line := fmt.Sprintf("%s: %s (%d/%d)", b.names[userID], b.students[userID], b.completed, b.total)
		b.onChange(b.completed, b.total, line)
	}
}

// snapshot copies the board for external consumers.
func (b *statusBoard) snapshot() (completed, total int, students map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	students = make(map[string]string, len(b.students))
	for id, status := range b.students {
		students[b.names[id]] = status
	}
	return b.completed, b.total, students
}
