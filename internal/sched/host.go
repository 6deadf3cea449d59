package sched

import "time"

// FrameCallback is invoked by a Host at the start of a frame. frameStart is
// the host time the callback actually started; didTimeout is set when the
// timeout hint expired before the host was ready.
type FrameCallback func(frameStart time.Duration, didTimeout bool)

// CallbackHandle identifies one callback request. Zero means none.
type CallbackHandle uint64

// Host is the scheduler's only external capability: a clock and a way to be
// called back at the next yield point.
//
// A Host keeps at most one pending callback; requesting again replaces it.
// Callbacks must not be invoked from inside RequestCallback.
type Host interface {
	// Now returns the host's monotonic time.
	Now() time.Duration
	// RequestCallback asks for fn to run at or before the next frame, or
	// after timeoutHint with didTimeout set. A non-positive hint means no
	// timeout.
	RequestCallback(fn FrameCallback, timeoutHint time.Duration) CallbackHandle
}
