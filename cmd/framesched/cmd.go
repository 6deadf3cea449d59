package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli"

	"framesched/internal/logging"
	"framesched/internal/sched"
)

var commonFlags = []cli.Flag{
	cli.StringFlag{
		Name:   "config, c",
		Usage:  "path to a YAML config file",
		EnvVar: "FRAMESCHED_CONFIG",
		Value:  "config.yml",
	},
	cli.IntFlag{
		Name:  "tasks, n",
		Usage: "number of demo tasks to schedule",
	},
	cli.IntFlag{
		Name:  "work-ms",
		Usage: "total work per task in milliseconds",
	},
	cli.IntFlag{
		Name:  "chunk-ms",
		Usage: "work done between yield checks in milliseconds",
	},
	cli.IntFlag{
		Name:  "frame-ms",
		Usage: "host frame interval in milliseconds",
	},
	cli.StringFlag{
		Name:  "trace",
		Usage: "write every scheduler event to this CSV file",
	},
	cli.StringFlag{
		Name:  "log-format",
		Usage: "pretty, json or text",
	},
	cli.StringFlag{
		Name:  "log-level",
		Usage: "debug, info, warn or error",
	},
}

var simulateFlags = append([]cli.Flag{
	cli.IntFlag{
		Name:  "jitter-ms",
		Usage: "maximum random delay added to each simulated frame",
	},
	cli.Int64Flag{
		Name:  "seed",
		Usage: "seed for the jitter source",
	},
	cli.IntFlag{
		Name:  "max-frames",
		Usage: "stop after this many frames even if work remains",
		Value: 10000,
	},
	cli.BoolFlag{
		Name:  "frames",
		Usage: "print one line per frame",
	},
}, commonFlags...)

func newApp(w io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "framesched"
	app.HelpName = "framesched"
	app.Usage = "run cooperative work in frame-sized slices"
	app.UsageText = "framesched <command> [arguments...]"
	app.Version = version
	app.Writer = w
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "drive the scheduler from a real-time frame ticker",
			Flags:  commonFlags,
			Action: run,
		},
		{
			Name:   "simulate",
			Usage:  "drive the scheduler from a deterministic virtual clock",
			Flags:  simulateFlags,
			Action: simulate,
		},
	}
	return app
}

// loadConfig reads the config file and applies flag overrides.
func loadConfig(c *cli.Context) (sched.Config, error) {
	cfg, err := sched.Load(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("tasks") {
		cfg.Workload.Tasks = c.Int("tasks")
	}
	if c.IsSet("work-ms") {
		cfg.Workload.WorkMS = c.Int("work-ms")
	}
	if c.IsSet("chunk-ms") {
		cfg.Workload.ChunkMS = c.Int("chunk-ms")
	}
	if c.IsSet("frame-ms") {
		cfg.FrameMS = c.Int("frame-ms")
	}
	if c.IsSet("jitter-ms") {
		cfg.Workload.JitterMS = c.Int("jitter-ms")
	}
	if c.IsSet("seed") {
		cfg.Workload.Seed = c.Int64("seed")
	}
	if c.IsSet("trace") {
		cfg.TraceCSV = c.String("trace")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if cfg.Workload.Tasks < 0 || cfg.Workload.WorkMS <= 0 || cfg.Workload.ChunkMS <= 0 || cfg.FrameMS <= 0 {
		return cfg, fmt.Errorf("tasks must be >= 0 and work-ms, chunk-ms, frame-ms > 0")
	}
	return cfg, nil
}

func newLogger(cfg sched.Config) *slog.Logger {
	logger := logging.New(os.Stderr, logging.ParseFormat(cfg.LogFormat), logging.ParseLevel(cfg.LogLevel))
	slog.SetDefault(logger)
	return logger
}

// openTrace creates the CSV trace file, if one is configured. The returned
// close func flushes and closes it.
func openTrace(path string) (*sched.CSVTrace, func() error, error) {
	if path == "" {
		return nil, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create trace: %w", err)
	}
	trace, err := sched.NewCSVTrace(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return trace, func() error {
		ferr := trace.Flush()
		if cerr := f.Close(); ferr == nil && cerr != nil {
			ferr = fmt.Errorf("close trace: %w", cerr)
		}
		return ferr
	}, nil
}

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }
