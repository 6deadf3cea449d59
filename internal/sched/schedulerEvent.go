// internal/sched/schedulerEvent.go

package sched

import "time"

// EventKind represents the type of scheduler event
type EventKind int

const (
	EventIdle EventKind = iota
	EventEnqueue
	EventFrame
	EventDispatch
	EventContinue
	EventFinish
	EventCancel
	EventDiscard
	EventYield
)

// Event is emitted on every state change of a task or of the loop.
type Event struct {
	Time       time.Duration // host time
	Kind       EventKind
	TaskID     TaskID
	SortKey    time.Duration
	Remaining  time.Duration // time left in the frame
	Budget     time.Duration // active frame estimate
	DidTimeout bool
}

// Observer receives scheduler events. It runs while the scheduler is locked
// and must not call back into it.
type Observer func(Event)

func (k EventKind) String() string {
	switch k {
	case EventIdle:
		return "Idle"
	case EventEnqueue:
		return "Enqueued"
	case EventFrame:
		return "Frame"
	case EventDispatch:
		return "Dispatch"
	case EventContinue:
		return "Continue"
	case EventFinish:
		return "Finish"
	case EventCancel:
		return "Cancel"
	case EventDiscard:
		return "Discard"
	case EventYield:
		return "Yield"
	default:
		return "Unknown"
	}
}
