package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/urfave/cli"

	"framesched/internal/job"
	"framesched/internal/sched"
)

// frameStat is what one simulated frame did.
type frameStat struct {
	start      time.Duration
	budget     time.Duration
	ran        int
	didTimeout bool
}

type simulation struct {
	frames    []frameStat
	finished  int
	forced    int
	remaining int
	budget    time.Duration
	elapsed   time.Duration
}

func simulate(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	trace, closeTrace, err := openTrace(cfg.TraceCSV)
	if err != nil {
		return err
	}
	var observe sched.Observer
	if trace != nil {
		observe = trace.Observe
	}

	res := runSimulation(cfg, c.Int("max-frames"), logger, observe)
	printSimulation(c.App.Writer, res, c.Bool("frames"))
	return closeTrace()
}

// runSimulation schedules the configured workload on a virtual host and
// steps frames until the scheduler goes idle or maxFrames have fired.
func runSimulation(cfg sched.Config, maxFrames int, logger *slog.Logger, observe sched.Observer) simulation {
	host := sched.NewVirtualHost(cfg.FrameInterval())
	if cfg.Workload.JitterMS > 0 {
		host.WithJitter(ms(cfg.Workload.JitterMS), cfg.Workload.Seed)
	}

	var res simulation
	observer := func(ev sched.Event) {
		if observe != nil {
			observe(ev)
		}
		switch ev.Kind {
		case sched.EventFrame:
			res.frames = append(res.frames, frameStat{start: ev.Time, budget: ev.Budget, didTimeout: ev.DidTimeout})
		case sched.EventDispatch:
			if n := len(res.frames); n > 0 {
				res.frames[n-1].ran++
			}
			if ev.DidTimeout {
				res.forced++
			}
		case sched.EventFinish:
			res.finished++
		}
	}

	s := sched.New(host, append(cfg.Options(), sched.WithLogger(logger), sched.WithObserver(observer))...)
	work, chunk := ms(cfg.Workload.WorkMS), ms(cfg.Workload.ChunkMS)
	for i := 0; i < cfg.Workload.Tasks; i++ {
		s.SchedulePriority(sched.PriorityNormal, job.Chunked(work, chunk, job.Virtual(host), s.TimeRemaining, nil))
	}

	host.RunUntilIdle(maxFrames)

	res.remaining = len(s.Pending())
	res.budget = s.FrameTime()
	res.elapsed = host.Now()
	return res
}

func printSimulation(w io.Writer, res simulation, perFrame bool) {
	if perFrame {
		for i, f := range res.frames {
			fmt.Fprintf(w, "frame %4d  t=%-10s budget=%-8s ran=%d timeout=%t\n", i+1, f.start, f.budget, f.ran, f.didTimeout)
		}
	}
	fmt.Fprintf(w, "frames:    %d\n", len(res.frames))
	fmt.Fprintf(w, "finished:  %d\n", res.finished)
	fmt.Fprintf(w, "remaining: %d\n", res.remaining)
	fmt.Fprintf(w, "forced:    %d\n", res.forced)
	fmt.Fprintf(w, "budget:    %s\n", res.budget)
	fmt.Fprintf(w, "elapsed:   %s\n", res.elapsed)
}
