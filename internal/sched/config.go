package sched

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	yaml "github.com/goccy/go-yaml"
)

// Config mirrors config.yml
type Config struct {
	FrameMS        int    `yaml:"frame_ms"`         // 16 (by default), host frame interval
	TimeoutHintMS  int    `yaml:"timeout_hint_ms"`  // 1000 (by default)
	InitialFrameMS int    `yaml:"initial_frame_ms"` // 33 (by default)
	MinFrameMS     int    `yaml:"min_frame_ms"`     // 8 (by default)
	LogFormat      string `yaml:"log_format"`       // pretty, json or text
	LogLevel       string `yaml:"log_level"`        // debug, info, warn, error
	TraceCSV       string `yaml:"trace_csv"`        // empty = no trace

	Workload Workload `yaml:"workload"`
}

// Workload describes the demo tasks the CLI schedules.
type Workload struct {
	Tasks    int   `yaml:"tasks"`     // 3 (by default)
	WorkMS   int   `yaml:"work_ms"`   // 50 (by default), total work per task
	ChunkMS  int   `yaml:"chunk_ms"`  // 5 (by default), work done between yield checks
	JitterMS int   `yaml:"jitter_ms"` // 0 (by default), simulated frame jitter
	Seed     int64 `yaml:"seed"`      // 1 (by default)
}

// DefaultConfig returns the values used when no file is given.
func DefaultConfig() Config {
	return Config{
		FrameMS:        16,
		TimeoutHintMS:  1000,
		InitialFrameMS: 33,
		MinFrameMS:     8,
		LogFormat:      "pretty",
		LogLevel:       "info",
		Workload: Workload{
			Tasks:   3,
			WorkMS:  50,
			ChunkMS: 5,
			Seed:    1,
		},
	}
}

// Load reads YAML and overrides defaults; empty path or a missing file means
// defaults only. Malformed YAML is an error.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.clamp()
	return cfg, nil
}

// sanity clamps
func (c *Config) clamp() {
	d := DefaultConfig()
	if c.FrameMS <= 0 {
		c.FrameMS = d.FrameMS
	}
	if c.InitialFrameMS <= 0 {
		c.InitialFrameMS = d.InitialFrameMS
	}
	if c.MinFrameMS <= 0 {
		c.MinFrameMS = d.MinFrameMS
	}
	if c.MinFrameMS > c.InitialFrameMS {
		c.MinFrameMS = c.InitialFrameMS
	}
	if c.TimeoutHintMS < 0 {
		c.TimeoutHintMS = 0
	}
	if c.Workload.Tasks < 0 {
		c.Workload.Tasks = 0
	}
	if c.Workload.WorkMS <= 0 {
		c.Workload.WorkMS = d.Workload.WorkMS
	}
	if c.Workload.ChunkMS <= 0 {
		c.Workload.ChunkMS = d.Workload.ChunkMS
	}
	if c.Workload.JitterMS < 0 {
		c.Workload.JitterMS = 0
	}
}

// FrameInterval returns the host frame interval.
func (c Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameMS) * time.Millisecond
}

// Options converts the scheduler knobs into Scheduler options.
func (c Config) Options() []Option {
	return []Option{
		WithTimeoutHint(time.Duration(c.TimeoutHintMS) * time.Millisecond),
		WithBudget(BudgetConfig{
			Initial: time.Duration(c.InitialFrameMS) * time.Millisecond,
			Floor:   time.Duration(c.MinFrameMS) * time.Millisecond,
		}),
	}
}
