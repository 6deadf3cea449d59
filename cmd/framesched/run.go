package main

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"framesched/internal/job"
	"framesched/internal/sched"
)

func run(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	trace, closeTrace, err := openTrace(cfg.TraceCSV)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tasks := cfg.Workload.Tasks
	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(c.App.Writer))
	name := "Running"
	bar := p.New(int64(tasks),
		mpb.BarStyle().Lbound("╢").Filler("█").Tip("█").Padding("░").Rbound("╟"),
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{W: len(name) + 1, C: decor.DindentRight}),
			decor.CountersNoUnit("%d / %d", decor.WC{W: 8}),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 5}), "Complete"),
		),
	)

	idle := make(chan struct{}, 1)
	observer := func(ev sched.Event) {
		if trace != nil {
			trace.Observe(ev)
		}
		switch ev.Kind {
		case sched.EventFinish:
			bar.Increment()
		case sched.EventIdle:
			select {
			case idle <- struct{}{}:
			default:
			}
		}
	}

	host := sched.NewTickerHost(cfg.FrameInterval())
	s := sched.New(host, append(cfg.Options(), sched.WithLogger(logger), sched.WithObserver(observer))...)

	work, chunk := ms(cfg.Workload.WorkMS), ms(cfg.Workload.ChunkMS)
	for i := 0; i < tasks; i++ {
		s.SchedulePriority(sched.PriorityNormal, job.Chunked(work, chunk, job.Spin, s.TimeRemaining, nil))
	}

	started := time.Now()
	host.Start(ctx)
	if tasks > 0 {
		select {
		case <-idle:
		case <-ctx.Done():
			bar.Abort(false)
		}
	} else {
		bar.Abort(true)
	}
	host.Stop()
	p.Wait()

	logger.Info("run finished",
		"tasks", tasks,
		"unfinished", len(s.Pending()),
		"frames", host.Frames(),
		"frame_budget", s.FrameTime(),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return closeTrace()
}
