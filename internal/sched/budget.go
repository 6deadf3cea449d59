// internal/sched/budget.go

package sched

import "time"

const (
	// DefaultFrameTime assumes a 30Hz host until frames prove otherwise.
	DefaultFrameTime = 33 * time.Millisecond
	// DefaultFrameFloor rejects estimates above 120Hz as probably erroneous.
	DefaultFrameFloor = 8 * time.Millisecond
)

// BudgetConfig tunes a FrameBudget. Zero fields take the defaults.
type BudgetConfig struct {
	Initial time.Duration
	Floor   time.Duration
}

func (c BudgetConfig) withDefaults() BudgetConfig {
	if c.Initial <= 0 {
		c.Initial = DefaultFrameTime
	}
	if c.Floor <= 0 {
		c.Floor = DefaultFrameFloor
	}
	if c.Floor > c.Initial {
		c.Floor = c.Initial
	}
	return c
}

// FrameBudget estimates how much time each host callback can spend before the
// host needs control back. It re-estimates the frame length from the observed
// frame start times.
//
// A single longer frame grows the estimate at once. Shrinking needs two
// consecutive frames shorter than the current estimate.
type FrameBudget struct {
	floor    time.Duration
	deadline time.Duration
	active   time.Duration
	previous time.Duration
}

// NewFrameBudget returns a tracker with both estimates set to cfg.Initial.
func NewFrameBudget(cfg BudgetConfig) *FrameBudget {
	cfg = cfg.withDefaults()
	return &FrameBudget{
		floor:    cfg.Floor,
		active:   cfg.Initial,
		previous: cfg.Initial,
	}
}

// Tick records the start of a frame and moves the deadline.
func (b *FrameBudget) Tick(frameStart time.Duration) {
	next := frameStart - b.deadline + b.active
	if next < b.active && b.previous < b.active {
		if next < b.floor {
			next = b.floor
		}
		// Take the larger of the two in case one of them was a missed deadline.
		b.active = max(b.previous, next)
	} else {
		b.previous = next
	}
	b.deadline = frameStart + b.active
}

// TimeRemaining returns the time left in the current frame at now. It is
// zero or negative once the deadline has passed.
func (b *FrameBudget) TimeRemaining(now time.Duration) time.Duration {
	return b.deadline - now
}

// Active returns the current frame length estimate.
func (b *FrameBudget) Active() time.Duration { return b.active }

// Previous returns the last frame length reading that did not shrink the estimate.
func (b *FrameBudget) Previous() time.Duration { return b.previous }

// Deadline returns the host time at which the current frame ends.
func (b *FrameBudget) Deadline() time.Duration { return b.deadline }
