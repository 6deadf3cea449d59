package sched

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []Event
}

func (r *recorder) observe(ev Event) { r.events = append(r.events, ev) }

func (r *recorder) kinds() []EventKind {
	out := make([]EventKind, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Kind
	}
	return out
}

func (r *recorder) count(k EventKind) int {
	n := 0
	for _, ev := range r.events {
		if ev.Kind == k {
			n++
		}
	}
	return n
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestScheduler(t *testing.T, opts ...Option) (*Scheduler, *VirtualHost, *recorder) {
	t.Helper()
	host := NewVirtualHost(16 * ms)
	rec := &recorder{}
	opts = append([]Option{WithLogger(discardLogger()), WithObserver(rec.observe)}, opts...)
	return New(host, opts...), host, rec
}

// spending returns work that advances host by d and logs name to ran.
func spending(host *VirtualHost, d time.Duration, name string, ran *[]string) Work {
	return func(time.Duration, bool) Result {
		host.Advance(d)
		*ran = append(*ran, name)
		return Done()
	}
}

func TestSchedulerRunsTasksInOrderThenIdles(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	var ran []string

	assert.Equal(t, StateIdle, s.State())
	for _, name := range []string{"task1", "task2", "task3"} {
		s.Schedule(100*ms, spending(host, 0, name, &ran))
	}
	assert.Equal(t, StateCallbackPending, s.State())
	assert.NotZero(t, s.Handle())
	assert.Equal(t, 1, host.Requests(), "only the first enqueue requests a callback")

	require.True(t, host.Fire(16*ms, false))

	assert.Equal(t, []string{"task1", "task2", "task3"}, ran)
	assert.Equal(t, StateIdle, s.State())
	assert.Zero(t, s.Handle())
	assert.False(t, host.Pending())
	assert.Empty(t, s.Pending())
}

func TestSchedulerYieldsWhenBudgetRunsOut(t *testing.T) {
	s, host, rec := newTestScheduler(t)
	var ran []string
	for _, name := range []string{"a", "b", "c"} {
		s.Schedule(1, spending(host, 20*ms, name, &ran))
	}

	host.Fire(16*ms, false) // deadline 49: a ends at 36, b ends at 56

	assert.Equal(t, []string{"a", "b"}, ran)
	assert.Equal(t, StateCallbackPending, s.State())
	assert.True(t, host.Pending())
	assert.Equal(t, 2, host.Requests())
	assert.Equal(t, EventYield, rec.events[len(rec.events)-1].Kind)

	host.NextFrame()

	assert.Equal(t, []string{"a", "b", "c"}, ran)
	assert.Equal(t, StateIdle, s.State())
}

func TestSchedulerTimeoutOverridesExhaustedBudget(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	type call struct {
		remaining  time.Duration
		didTimeout bool
	}
	var calls []call
	for i := 0; i < 3; i++ {
		s.Schedule(1, func(remaining time.Duration, didTimeout bool) Result {
			calls = append(calls, call{remaining, didTimeout})
			host.Advance(40 * ms)
			return Done()
		})
	}

	host.Fire(16*ms, true)

	require.Len(t, calls, 3)
	assert.True(t, calls[1].didTimeout)
	assert.LessOrEqual(t, int64(calls[1].remaining), int64(0))
	assert.Equal(t, StateIdle, s.State())
}

func TestSchedulerForcesExpiredTask(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	var ran []string
	var forced bool

	s.Schedule(1, spending(host, 40*ms, "slow", &ran))
	s.Schedule(2, func(_ time.Duration, didTimeout bool) Result {
		forced = didTimeout
		ran = append(ran, "expiring")
		return Done()
	}, WithTimeout(5*ms))
	s.Schedule(3, spending(host, 0, "patient", &ran))

	host.Fire(16*ms, false)

	assert.Equal(t, []string{"slow", "expiring"}, ran)
	assert.True(t, forced)
	assert.Equal(t, []TaskID{3}, s.Pending())
}

func TestSchedulerContinuationKeepsPriorityAndID(t *testing.T) {
	s, host, rec := newTestScheduler(t)
	var ran []string

	slices := 0
	var long Work
	long = func(time.Duration, bool) Result {
		host.Advance(20 * ms)
		ran = append(ran, "long")
		slices++
		if slices < 3 {
			return Continue(long)
		}
		return Done()
	}
	s.Schedule(5, long)
	s.Schedule(5, spending(host, 0, "later", &ran))

	host.Fire(16*ms, false)
	assert.Equal(t, []string{"long", "long"}, ran)
	assert.Equal(t, []TaskID{1, 2}, s.Pending())

	host.NextFrame()
	assert.Equal(t, []string{"long", "long", "long", "later"}, ran)

	for _, ev := range rec.events {
		if ev.Kind == EventContinue {
			assert.Equal(t, TaskID(1), ev.TaskID)
			assert.Equal(t, time.Duration(5), ev.SortKey)
		}
	}
	assert.Equal(t, 2, rec.count(EventContinue))
}

func TestSchedulerCancelTombstones(t *testing.T) {
	s, host, rec := newTestScheduler(t)
	var ran []string

	s.Schedule(1, spending(host, 0, "a", &ran))
	b := s.Schedule(2, spending(host, 0, "b", &ran))
	s.Schedule(3, spending(host, 0, "c", &ran))

	s.Cancel(b)
	assert.Equal(t, 3, s.Len(), "cancelled record stays queued")
	assert.Equal(t, []TaskID{1, 3}, s.Pending())

	host.Fire(16*ms, false)

	assert.Equal(t, []string{"a", "c"}, ran)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 1, rec.count(EventDiscard))
	assert.Equal(t, 2, rec.count(EventFinish))
}

func TestSchedulerCancelledHeadDiscardedWithoutBudget(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	var ran []string

	s.Schedule(1, spending(host, 40*ms, "a", &ran))
	b := s.Schedule(2, spending(host, 0, "b", &ran))
	s.Cancel(b)

	host.Fire(16*ms, false)

	assert.Equal(t, []string{"a"}, ran)
	assert.Equal(t, StateIdle, s.State(), "a trailing tombstone must not keep the loop alive")
}

func TestSchedulerCancelInactiveIsNoop(t *testing.T) {
	s, host, rec := newTestScheduler(t)
	var ran []string

	s.Cancel(TaskHandle{ID: 99})
	h := s.Schedule(1, spending(host, 0, "a", &ran))
	host.Fire(16*ms, false)

	before := len(rec.events)
	s.Cancel(h)
	s.Cancel(h)

	assert.Equal(t, before, len(rec.events))
	assert.Equal(t, StateIdle, s.State())
}

func TestSchedulerCancelFromOwnWorkDropsContinuation(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	runs := 0

	var h TaskHandle
	var work Work
	work = func(time.Duration, bool) Result {
		runs++
		s.Cancel(h)
		return Continue(work)
	}
	h = s.Schedule(1, work)

	host.Fire(16*ms, false)

	assert.Equal(t, 1, runs)
	assert.Empty(t, s.Pending())
	assert.Equal(t, StateIdle, s.State())
}

func TestSchedulerCancelContinuation(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	runs := 0

	var work Work
	work = func(time.Duration, bool) Result {
		runs++
		host.Advance(40 * ms)
		return Continue(work)
	}
	h := s.Schedule(1, work)

	host.Fire(16*ms, false)
	require.Equal(t, 1, runs)
	require.Equal(t, []TaskID{h.ID}, s.Pending())

	s.Cancel(h)
	host.NextFrame()

	assert.Equal(t, 1, runs)
	assert.Equal(t, StateIdle, s.State())
}

func TestSchedulerScheduleWhileDraining(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	var ran []string

	s.Schedule(10, func(time.Duration, bool) Result {
		ran = append(ran, "parent")
		s.Schedule(0, spending(host, 0, "child", &ran))
		return Done()
	})

	host.Fire(16*ms, false)

	assert.Equal(t, []string{"parent", "child"}, ran)
	assert.Equal(t, 1, host.Requests())
	assert.Equal(t, StateIdle, s.State())
}

func TestSchedulerPanicPropagates(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	var ran []string

	s.Schedule(1, func(time.Duration, bool) Result { panic("boom") })
	s.Schedule(2, spending(host, 0, "b", &ran))

	assert.PanicsWithValue(t, "boom", func() { host.Fire(16*ms, false) })

	assert.Equal(t, StateCallbackPending, s.State())
	assert.Equal(t, []TaskID{2}, s.Pending())

	host.NextFrame()
	assert.Equal(t, []string{"b"}, ran)
	assert.Equal(t, StateIdle, s.State())
}

func TestSchedulerTimeRemainingProbe(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	var passed, probed, later time.Duration

	s.Schedule(1, func(remaining time.Duration, _ bool) Result {
		passed = remaining
		probed = s.TimeRemaining()
		host.Advance(10 * ms)
		later = s.TimeRemaining()
		return Done()
	})
	host.Fire(16*ms, false)

	assert.Equal(t, 33*ms, passed)
	assert.Equal(t, passed, probed)
	assert.Equal(t, 23*ms, later)
}

func TestSchedulerPriorityLevels(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	var ran []string

	s.SchedulePriority(PriorityLow, spending(host, 0, "low", &ran))
	s.SchedulePriority(PriorityNormal, spending(host, 0, "normal", &ran))
	s.SchedulePriority(PriorityIdle, spending(host, 0, "idle", &ran))
	s.SchedulePriority(PriorityUserBlocking, spending(host, 0, "blocking", &ran))
	s.SchedulePriority(PriorityImmediate, spending(host, 0, "immediate", &ran))

	host.Fire(16*ms, false)

	assert.Equal(t, []string{"immediate", "blocking", "normal", "low", "idle"}, ran)
}

func TestSchedulerImmediateRunsPastBudget(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	var ran []string
	var forced bool

	s.SchedulePriority(PriorityIdle, spending(host, 0, "idle", &ran))
	s.SchedulePriority(PriorityNormal, func(time.Duration, bool) Result {
		host.Advance(40 * ms)
		ran = append(ran, "normal")
		s.SchedulePriority(PriorityImmediate, func(_ time.Duration, didTimeout bool) Result {
			forced = didTimeout
			ran = append(ran, "immediate")
			return Done()
		})
		return Done()
	})

	host.Fire(16*ms, false)

	assert.Equal(t, []string{"normal", "immediate"}, ran)
	assert.True(t, forced)
	assert.Equal(t, StateCallbackPending, s.State(), "idle work waits for the next frame")
}

func TestSchedulerNilWork(t *testing.T) {
	s, host, _ := newTestScheduler(t)

	h := s.Schedule(1, nil)

	assert.NotZero(t, h.ID)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 0, host.Requests())
}

func TestSchedulerIDsIncrease(t *testing.T) {
	s, _, _ := newTestScheduler(t)
	noop := func(time.Duration, bool) Result { return Done() }

	a := s.Schedule(1, noop)
	b := s.Schedule(1, noop)
	c := s.SchedulePriority(PriorityNormal, noop)

	assert.Less(t, a.ID, b.ID)
	assert.Less(t, b.ID, c.ID)
}

func TestSchedulerHostTimeoutHint(t *testing.T) {
	host := NewVirtualHost(100 * ms)
	s := New(host, WithTimeoutHint(10*ms), WithLogger(discardLogger()))
	var forced bool
	var at time.Duration

	s.Schedule(1, func(_ time.Duration, didTimeout bool) Result {
		forced = didTimeout
		at = host.Now()
		return Done()
	})
	host.NextFrame()

	assert.True(t, forced)
	assert.Equal(t, 10*ms, at)
}

func TestSchedulerEventSequence(t *testing.T) {
	s, host, rec := newTestScheduler(t)

	s.Schedule(1, func(time.Duration, bool) Result { return Done() })
	host.Fire(16*ms, false)

	assert.Equal(t, []EventKind{EventEnqueue, EventFrame, EventDispatch, EventFinish, EventIdle}, rec.kinds())
	frame := rec.events[1]
	assert.Equal(t, 16*ms, frame.Time)
	assert.Equal(t, 33*ms, frame.Remaining)
	assert.Equal(t, 33*ms, frame.Budget)
}

func TestSchedulerBudgetOption(t *testing.T) {
	s, host, _ := newTestScheduler(t, WithBudget(BudgetConfig{Initial: 20 * ms}))
	var passed time.Duration

	assert.Equal(t, 20*ms, s.FrameTime())
	s.Schedule(1, func(remaining time.Duration, _ bool) Result {
		passed = remaining
		return Done()
	})
	host.Fire(16*ms, false)

	assert.Equal(t, 20*ms, passed)
}

func TestSchedulerAdaptsToFastHost(t *testing.T) {
	s, host, _ := newTestScheduler(t)
	var ran []string

	// Short tasks leave most of each frame unused, so frames keep arriving
	// on the host's 16ms cadence.
	for i := 0; i < 6; i++ {
		s.Schedule(1, spending(host, ms, "tick", &ran))
		require.True(t, host.NextFrame())
	}

	assert.Len(t, ran, 6)
	assert.Equal(t, 16*ms, s.FrameTime())
}
