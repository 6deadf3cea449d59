package sched

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

var traceHeader = []string{"host_time_us", "event", "task_id", "sort_key_us", "remaining_us", "budget_us", "did_timeout"}

// CSVTrace writes scheduler events as CSV rows.
type CSVTrace struct {
	mu  sync.Mutex
	w   *csv.Writer
	err error
}

// NewCSVTrace writes the header to w and returns a trace ready for Observe.
func NewCSVTrace(w io.Writer) (*CSVTrace, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(traceHeader); err != nil {
		return nil, fmt.Errorf("write trace header: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("write trace header: %w", err)
	}
	return &CSVTrace{w: cw}, nil
}

// Observe records one event. Write errors are kept for Flush.
func (t *CSVTrace) Observe(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.err != nil {
		return
	}
	var id string
	if ev.TaskID != 0 {
		id = strconv.FormatUint(uint64(ev.TaskID), 10)
	}
	rec := []string{
		micros(ev.Time),
		ev.Kind.String(),
		id,
		micros(ev.SortKey),
		micros(ev.Remaining),
		micros(ev.Budget),
		strconv.FormatBool(ev.DidTimeout),
	}
	if err := t.w.Write(rec); err != nil {
		t.err = err
	}
}

// Flush writes buffered rows and returns the first error seen.
func (t *CSVTrace) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.w.Flush()
	if t.err == nil {
		t.err = t.w.Error()
	}
	if t.err != nil {
		return fmt.Errorf("write trace: %w", t.err)
	}
	return nil
}

func micros(d time.Duration) string {
	return strconv.FormatInt(d.Microseconds(), 10)
}
