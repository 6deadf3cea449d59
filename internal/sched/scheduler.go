// internal/sched/scheduler.go

package sched

import (
	"log/slog"
	"sync"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"
)

// State is the scheduler's loop state.
type State int

const (
	// StateIdle: no host callback pending.
	StateIdle State = iota
	// StateCallbackPending: a host callback was requested and has not fired.
	StateCallbackPending
	// StateDraining: inside a fired callback, running tasks.
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateCallbackPending:
		return "CallbackPending"
	case StateDraining:
		return "Draining"
	default:
		return "Unknown"
	}
}

// Scheduler runs queued work in (SortKey, ID) order inside host callbacks,
// for as long as the frame budget lasts or a timeout forces it on.
//
// Work runs on whichever goroutine the host fires callbacks from, one task at
// a time and without preemption. The scheduler lock is released while work
// runs, so work may call Schedule, Cancel and TimeRemaining.
type Scheduler struct {
	mu          sync.Mutex // protects everything below
	host        Host
	queue       *Queue
	budget      *FrameBudget
	live        *redblacktree.Tree // TaskID -> *Record, for tasks not yet finished or cancelled
	state       State
	handle      CallbackHandle
	nextID      TaskID
	timeoutHint time.Duration

	logger   *slog.Logger
	observer Observer
}

// New creates a Scheduler driven by host.
func New(host Host, opts ...Option) *Scheduler {
	o := resolveOptions(opts)
	return &Scheduler{
		host:        host,
		queue:       NewQueue(),
		budget:      NewFrameBudget(o.budget),
		live:        redblacktree.NewWith(cmpTaskID),
		timeoutHint: o.timeoutHint,
		logger:      o.logger,
		observer:    o.observer,
	}
}

// Schedule enqueues work under sortKey, an expiration time on the host clock.
// Smaller keys run first; equal keys run in scheduling order.
func (s *Scheduler) Schedule(sortKey time.Duration, work Work, opts ...ScheduleOption) TaskHandle {
	var so scheduleOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&so)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var forceAt time.Duration
	if so.hasTimeout {
		forceAt = s.host.Now() + so.timeout
	}
	return s.enqueueLocked(sortKey, work, forceAt, so.hasTimeout)
}

// SchedulePriority enqueues work at a named priority level. The level's
// timeout sets both the sort key and the force timeout; PriorityIdle work is
// never forced.
func (s *Scheduler) SchedulePriority(p Priority, work Work) TaskHandle {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiration := s.host.Now() + p.Timeout()
	return s.enqueueLocked(expiration, work, expiration, p.Clamp() != PriorityIdle)
}

func (s *Scheduler) enqueueLocked(sortKey time.Duration, work Work, forceAt time.Duration, hasForce bool) TaskHandle {
	s.nextID++
	rec := NewRecord(s.nextID, sortKey, work)
	rec.forceAt, rec.hasForce = forceAt, hasForce
	if work == nil {
		// Nothing to run; the handle is valid but already finished.
		return TaskHandle{ID: rec.ID}
	}

	s.queue.Push(rec)
	s.live.Put(rec.ID, rec)
	s.emit(Event{Kind: EventEnqueue, TaskID: rec.ID, SortKey: rec.SortKey})

	if s.state == StateIdle {
		s.state = StateCallbackPending
		s.handle = s.host.RequestCallback(s.onFrame, s.timeoutHint)
	}
	return TaskHandle{ID: rec.ID}
}

// Cancel tombstones the task. The record stays queued until it reaches the
// head, where it is discarded without running. Cancelling an unknown,
// finished or already cancelled task does nothing.
func (s *Scheduler) Cancel(h TaskHandle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.live.Get(h.ID)
	if !ok {
		s.logger.Debug("cancel of inactive task", "task", h.ID)
		return
	}
	rec := v.(*Record)
	rec.work = nil
	s.live.Remove(h.ID)
	s.emit(Event{Kind: EventCancel, TaskID: rec.ID, SortKey: rec.SortKey})
}

// TimeRemaining returns the time left in the current frame. Work uses it to
// decide whether to yield.
func (s *Scheduler) TimeRemaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.TimeRemaining(s.host.Now())
}

// State returns the loop state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Handle returns the pending host callback handle, or 0 when idle.
func (s *Scheduler) Handle() CallbackHandle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

// Len returns the number of queued records, tombstones included.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// Pending returns the IDs of scheduled tasks that have neither finished nor
// been cancelled, in ID order.
func (s *Scheduler) Pending() []TaskID {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := s.live.Keys()
	ids := make([]TaskID, len(keys))
	for i, k := range keys {
		ids[i] = k.(TaskID)
	}
	return ids
}

// FrameTime returns the current frame budget estimate.
func (s *Scheduler) FrameTime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.Active()
}

// onFrame is the host callback.
func (s *Scheduler) onFrame(frameStart time.Duration, didTimeout bool) {
	s.mu.Lock()
	// finishFrame also runs if a task panics, after run has re-locked.
	defer s.finishFrame()

	s.state = StateDraining
	prev := s.budget.Active()
	s.budget.Tick(frameStart)
	if active := s.budget.Active(); active != prev {
		s.logger.Debug("frame budget changed", "from", prev, "to", active)
	}
	s.emit(Event{
		Kind:       EventFrame,
		Remaining:  s.budget.TimeRemaining(frameStart),
		DidTimeout: didTimeout,
	})

	s.drain(didTimeout)
}

// drain pops and runs tasks while the frame has time left or the task is
// forced. The lock is held on entry and on return.
func (s *Scheduler) drain(didTimeout bool) {
	for {
		rec := s.queue.Peek()
		if rec == nil {
			return
		}
		if rec.Cancelled() {
			s.queue.Pop()
			s.emit(Event{Kind: EventDiscard, TaskID: rec.ID, SortKey: rec.SortKey})
			continue
		}

		now := s.host.Now()
		remaining := s.budget.TimeRemaining(now)
		forced := didTimeout || rec.expired(now)
		if remaining <= 0 && !forced {
			return
		}

		s.queue.Pop()
		s.emit(Event{
			Kind:       EventDispatch,
			TaskID:     rec.ID,
			SortKey:    rec.SortKey,
			Remaining:  remaining,
			DidTimeout: forced,
		})

		next := s.run(rec, remaining, forced).Next()
		switch {
		case rec.Cancelled():
			// Cancelled by its own work or by another caller while it ran.
		case next != nil:
			c := rec.continuation(next)
			s.queue.Push(c)
			s.live.Put(c.ID, c)
			s.emit(Event{Kind: EventContinue, TaskID: c.ID, SortKey: c.SortKey})
		default:
			s.live.Remove(rec.ID)
			s.emit(Event{Kind: EventFinish, TaskID: rec.ID, SortKey: rec.SortKey})
		}
	}
}

// run invokes the record's work with the lock released. A panic is not
// recovered; the record is dropped and the lock re-acquired on the way out.
func (s *Scheduler) run(rec *Record, remaining time.Duration, forced bool) Result {
	work := rec.work
	completed := false
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		if !completed {
			s.live.Remove(rec.ID)
		}
	}()

	res := work(remaining, forced)
	completed = true
	return res
}

// finishFrame leaves the Draining state and unlocks.
func (s *Scheduler) finishFrame() {
	defer s.mu.Unlock()

	if n := s.queue.Len(); n > 0 {
		s.state = StateCallbackPending
		s.emit(Event{Kind: EventYield, Remaining: s.budget.TimeRemaining(s.host.Now())})
		s.logger.Debug("yielding to host", "queued", n, "budget", s.budget.Active())
		s.handle = s.host.RequestCallback(s.onFrame, s.timeoutHint)
		return
	}
	s.state = StateIdle
	s.handle = 0
	s.emit(Event{Kind: EventIdle})
}

func (s *Scheduler) emit(ev Event) {
	if s.observer == nil {
		return
	}
	ev.Time = s.host.Now()
	ev.Budget = s.budget.Active()
	s.observer(ev)
}

// cmpTaskID orders the live-task tree by ID.
func cmpTaskID(a, b any) int {
	ka, kb := a.(TaskID), b.(TaskID)
	switch {
	case ka < kb:
		return -1
	case ka > kb:
		return 1
	default:
		return 0
	}
}
