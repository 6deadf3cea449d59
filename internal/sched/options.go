package sched

import (
	"log/slog"
	"time"
)

// DefaultTimeoutHint is how long a continuation request may wait for a frame
// before the host fires it with didTimeout set.
const DefaultTimeoutHint = time.Second

type options struct {
	logger      *slog.Logger
	observer    Observer
	timeoutHint time.Duration
	budget      BudgetConfig
}

// Option configures a Scheduler.
type Option func(*options)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver registers fn to receive every scheduler event.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// WithTimeoutHint sets the timeout passed along with every host callback
// request. A non-positive value disables the timeout.
func WithTimeoutHint(d time.Duration) Option {
	return func(o *options) { o.timeoutHint = d }
}

// WithBudget tunes the frame budget tracker.
func WithBudget(cfg BudgetConfig) Option {
	return func(o *options) { o.budget = cfg }
}

func resolveOptions(opts []Option) options {
	o := options{timeoutHint: DefaultTimeoutHint}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

type scheduleOptions struct {
	timeout    time.Duration
	hasTimeout bool
}

// ScheduleOption configures a single Schedule call.
type ScheduleOption func(*scheduleOptions)

// WithTimeout forces the task to run once d has passed since scheduling,
// even when the frame budget is exhausted.
func WithTimeout(d time.Duration) ScheduleOption {
	return func(o *scheduleOptions) {
		o.timeout = d
		o.hasTimeout = true
	}
}
