package sched

import (
	"math/rand"
	"sync"
	"time"
)

// VirtualHost is a deterministic Host driven by its caller. Time only moves
// through Advance, Fire and the frame stepping methods.
type VirtualHost struct {
	mu        sync.Mutex
	now       time.Duration
	period    time.Duration
	jitter    time.Duration
	rng       *rand.Rand
	nextFrame time.Duration
	pending   FrameCallback
	timeoutAt time.Duration
	hasTO     bool
	seq       uint64
	requests  int
}

// NewVirtualHost returns a host with frames every period starting at period.
func NewVirtualHost(period time.Duration) *VirtualHost {
	if period <= 0 {
		period = 16 * time.Millisecond
	}
	return &VirtualHost{period: period, nextFrame: period}
}

// WithJitter delays every frame by a pseudo-random amount in [0, jitter),
// drawn from a source seeded with seed.
func (h *VirtualHost) WithJitter(jitter time.Duration, seed int64) *VirtualHost {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jitter = jitter
	h.rng = rand.New(rand.NewSource(seed))
	return h
}

func (h *VirtualHost) Now() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

func (h *VirtualHost) RequestCallback(fn FrameCallback, timeoutHint time.Duration) CallbackHandle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pending = fn
	h.hasTO = timeoutHint > 0
	h.timeoutAt = h.now + timeoutHint
	h.seq++
	h.requests++
	return CallbackHandle(h.seq)
}

// Advance moves time forward by d without firing anything. Work functions
// use it to simulate spending time.
func (h *VirtualHost) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	h.mu.Lock()
	h.now += d
	h.mu.Unlock()
}

// Pending reports whether a callback is waiting to fire.
func (h *VirtualHost) Pending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.pending != nil
}

// Requests returns how many callbacks have been requested so far.
func (h *VirtualHost) Requests() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.requests
}

// Fire runs the pending callback at time at, which is clamped to not go
// backwards. It returns false if nothing was pending.
func (h *VirtualHost) Fire(at time.Duration, didTimeout bool) bool {
	h.mu.Lock()
	fn := h.pending
	if fn == nil {
		h.mu.Unlock()
		return false
	}
	h.pending = nil
	if at > h.now {
		h.now = at
	}
	start := h.now
	h.mu.Unlock()

	fn(start, didTimeout)
	return true
}

// NextFrame fires the pending callback at the next frame boundary, or at the
// timeout hint if that comes first. Missed frame boundaries are skipped.
// It returns false if nothing was pending.
func (h *VirtualHost) NextFrame() bool {
	h.mu.Lock()
	if h.pending == nil {
		h.mu.Unlock()
		return false
	}
	for h.nextFrame <= h.now {
		h.nextFrame += h.period
	}
	at := h.nextFrame
	if h.jitter > 0 {
		at += time.Duration(h.rng.Int63n(int64(h.jitter)))
	}
	h.nextFrame += h.period
	timedOut := h.hasTO && h.timeoutAt < at
	if timedOut {
		at = max(h.timeoutAt, h.now)
	}
	h.mu.Unlock()

	return h.Fire(at, timedOut)
}

// RunUntilIdle steps frames until no callback is pending or limit frames
// have fired. It returns the number of frames fired.
func (h *VirtualHost) RunUntilIdle(limit int) int {
	n := 0
	for n < limit && h.NextFrame() {
		n++
	}
	return n
}

var _ Host = (*VirtualHost)(nil)
