package sched

import "time"

// TaskID uniquely identifies a task in the scheduler. IDs are never reused.
type TaskID uint64

// TaskHandle is returned by Schedule and accepted by Cancel.
type TaskHandle struct {
	ID TaskID
}

// Work is one slice of a task. It receives the time left in the current frame
// and whether the task is being forced to run past an exhausted budget.
type Work func(remaining time.Duration, didTimeout bool) Result

// Result tells the scheduler whether a task is complete.
type Result struct {
	next Work
}

// Done reports that the task has no more work.
func Done() Result { return Result{} }

// Continue reports that the task has more work, to be run as next under the
// same priority and ID.
func Continue(next Work) Result { return Result{next: next} }

// Next returns the continuation, or nil for a finished task.
func (r Result) Next() Work { return r.next }

// Record is one queued task. Only the scheduler mutates a record once it has
// been pushed.
type Record struct {
	ID      TaskID
	SortKey time.Duration // expiration time on the host clock; smaller runs first

	work     Work
	forceAt  time.Duration // host time after which the task runs regardless of budget
	hasForce bool
}

// NewRecord creates a record with no force timeout.
func NewRecord(id TaskID, sortKey time.Duration, work Work) *Record {
	return &Record{ID: id, SortKey: sortKey, work: work}
}

// Cancelled reports whether the record is a tombstone.
func (r *Record) Cancelled() bool { return r.work == nil }

// expired reports whether the record's force timeout has passed at now.
func (r *Record) expired(now time.Duration) bool {
	return r.hasForce && now >= r.forceAt
}

// continuation builds the record that replaces r when its work yields.
func (r *Record) continuation(next Work) *Record {
	return &Record{
		ID:       r.ID,
		SortKey:  r.SortKey,
		work:     next,
		forceAt:  r.forceAt,
		hasForce: r.hasForce,
	}
}
