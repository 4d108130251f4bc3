package appworker

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/events"
	"github.com/nerrad567/gray-logic-uplink/internal/worker"
)

// Task is one run of a periodic job. Errors are logged and the ticker
// carries on.
type Task func(ctx context.Context) error

// Logger defines the logging interface for application workers.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Ticker runs a task, then waits interval, until its context ends.
type Ticker struct {
	name     string
	interval time.Duration
	sleeper  worker.Sleeper
	task     Task
	logger   Logger

	runs atomic.Uint64
}

// NewTicker creates a Ticker. sleeper is the worker's handle.
func NewTicker(name string, interval time.Duration, sleeper worker.Sleeper, task Task) *Ticker {
	return &Ticker{
		name:     name,
		interval: interval,
		sleeper:  sleeper,
		task:     task,
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger.
func (t *Ticker) SetLogger(logger Logger) {
	if logger != nil {
		t.logger = logger
	}
}

// Runs returns how many times the task has run.
func (t *Ticker) Runs() uint64 {
	return t.runs.Load()
}

// Run loops until the sleeper returns an error, which it returns.
func (t *Ticker) Run(ctx context.Context) error {
	for {
		t.runs.Add(1)
		if err := t.task(ctx); err != nil {
			t.logger.Warn("task failed", "worker", t.name, "error", err)
		}
		if err := t.sleeper.Sleep(ctx, t.interval); err != nil {
			return err
		}
	}
}

// Heartbeat returns a task that records a heartbeat event for the worker.
func Heartbeat(rec events.Recorder, workerName string) Task {
	var beats atomic.Int64
	tags := map[string]string{"worker": workerName}
	return func(context.Context) error {
		rec.Record(events.Heartbeat, tags, int(beats.Add(1)))
		return nil
	}
}

// Probe is a named value sampled by StatusReport.
type Probe struct {
	Name  string
	Value func() any
}

// StatusReport returns a task that logs every probe at debug level.
func StatusReport(logger Logger, probes ...Probe) Task {
	return func(context.Context) error {
		args := make([]any, 0, len(probes)*2)
		for _, p := range probes {
			args = append(args, p.Name, p.Value())
		}
		logger.Debug("status", args...)
		return nil
	}
}
