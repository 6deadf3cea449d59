package job

import (
	"time"

	"framesched/internal/sched"
)

// SpendFunc consumes d of time, really or on a virtual clock.
type SpendFunc func(d time.Duration)

// Spin busy-waits for d of wall-clock time, holding the goroutine the way a
// CPU-bound task would.
func Spin(d time.Duration) {
	for start := time.Now(); time.Since(start) < d; {
	}
}

// Advancer is satisfied by sched.VirtualHost.
type Advancer interface {
	Advance(d time.Duration)
}

// Virtual spends time on a virtual clock.
func Virtual(a Advancer) SpendFunc {
	return a.Advance
}

// Chunked returns work that spends total in chunk-sized slices. Between
// slices it asks probe how much of the frame is left and yields a
// continuation once nothing remains. A forced call runs one slice past the
// budget. done, if set, runs after the last slice.
func Chunked(total, chunk time.Duration, spend SpendFunc, probe func() time.Duration, done func()) sched.Work {
	if chunk <= 0 {
		chunk = total
	}
	left := total

	var work sched.Work
	work = func(remaining time.Duration, didTimeout bool) sched.Result {
		for left > 0 {
			if remaining <= 0 && !didTimeout {
				return sched.Continue(work)
			}
			step := min(chunk, left)
			spend(step)
			left -= step
			didTimeout = false
			remaining = probe()
		}
		if done != nil {
			done()
		}
		return sched.Done()
	}
	return work
}

// Once wraps fn as work that completes in a single slice.
func Once(fn func()) sched.Work {
	return func(time.Duration, bool) sched.Result {
		fn()
		return sched.Done()
	}
}
