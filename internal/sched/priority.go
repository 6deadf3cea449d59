package sched

import (
	"math"
	"time"
)

// Priority is a named urgency level. Each level maps to a timeout that
// becomes both the sort key and the force timeout of the task.
type Priority int

const (
	PriorityImmediate Priority = iota + 1
	PriorityUserBlocking
	PriorityNormal
	PriorityLow
	PriorityIdle

	MinPriority = PriorityImmediate
	MaxPriority = PriorityIdle
)

// Timeouts per level. Immediate is already expired when scheduled.
const (
	ImmediateTimeout    = -1 * time.Millisecond
	UserBlockingTimeout = 250 * time.Millisecond
	NormalTimeout       = 5 * time.Second
	LowTimeout          = 10 * time.Second
	IdleTimeout         = math.MaxInt32 * time.Millisecond // never forced
)

// Clamp returns p within [MinPriority, MaxPriority].
func (p Priority) Clamp() Priority {
	if p < MinPriority {
		return MinPriority
	} else if p > MaxPriority {
		return MaxPriority
	}
	return p
}

// Timeout returns the level's timeout after clamping.
func (p Priority) Timeout() time.Duration {
	switch p.Clamp() {
	case PriorityImmediate:
		return ImmediateTimeout
	case PriorityUserBlocking:
		return UserBlockingTimeout
	case PriorityLow:
		return LowTimeout
	case PriorityIdle:
		return IdleTimeout
	default:
		return NormalTimeout
	}
}

func (p Priority) String() string {
	switch p.Clamp() {
	case PriorityImmediate:
		return "Immediate"
	case PriorityUserBlocking:
		return "UserBlocking"
	case PriorityLow:
		return "Low"
	case PriorityIdle:
		return "Idle"
	default:
		return "Normal"
	}
}
