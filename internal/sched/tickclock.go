// internal/sched/tickclock.go

package sched

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// TickerHost is a real-time Host. A single goroutine drives frames from a
// ticker and fires the pending callback on the next tick, or when the
// timeout hint expires first. Every callback runs on that goroutine.
type TickerHost struct {
	interval time.Duration
	origin   time.Time
	frames   atomic.Int64
	started  atomic.Bool

	mu        sync.Mutex
	pending   FrameCallback
	timeoutAt time.Time
	seq       uint64

	rearm    chan struct{}
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// NewTickerHost creates a host with the given frame interval. It does not
// fire anything until Start.
func NewTickerHost(interval time.Duration) *TickerHost {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}
	return &TickerHost{
		interval: interval,
		origin:   time.Now(),
		rearm:    make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (h *TickerHost) Now() time.Duration { return time.Since(h.origin) }

func (h *TickerHost) RequestCallback(fn FrameCallback, timeoutHint time.Duration) CallbackHandle {
	h.mu.Lock()
	h.pending = fn
	h.timeoutAt = time.Time{}
	if timeoutHint > 0 {
		h.timeoutAt = time.Now().Add(timeoutHint)
	}
	h.seq++
	seq := h.seq
	h.mu.Unlock()

	select {
	case h.rearm <- struct{}{}:
	default:
	}
	return CallbackHandle(seq)
}

// Start begins emitting frames. The host stops when ctx is done or Stop is
// called.
func (h *TickerHost) Start(ctx context.Context) {
	if !h.started.CompareAndSwap(false, true) {
		return
	}
	ticker := time.NewTicker(h.interval)
	timer := time.NewTimer(time.Hour)
	timer.Stop()

	go func() {
		defer close(h.done)
		defer ticker.Stop()
		defer timer.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-h.stop:
				return
			case <-ticker.C:
				h.frames.Add(1)
				h.fire(false)
			case <-timer.C:
				h.fire(true)
			case <-h.rearm:
				timer.Stop()
				h.mu.Lock()
				at := h.timeoutAt
				h.mu.Unlock()
				if !at.IsZero() {
					timer.Reset(time.Until(at))
				}
			}
		}
	}()
}

// Stop halts the host and waits for its goroutine to exit. It must not be
// called from inside a callback.
func (h *TickerHost) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	if h.started.Load() {
		<-h.done
	}
}

// Frames returns the number of ticks seen so far.
func (h *TickerHost) Frames() int64 { return h.frames.Load() }

func (h *TickerHost) fire(timedOut bool) {
	h.mu.Lock()
	fn := h.pending
	if timedOut && (h.timeoutAt.IsZero() || time.Now().Before(h.timeoutAt)) {
		fn = nil
	}
	if fn != nil {
		h.pending = nil
		h.timeoutAt = time.Time{}
	}
	h.mu.Unlock()

	if fn != nil {
		fn(h.Now(), timedOut)
	}
}

var _ Host = (*TickerHost)(nil)
