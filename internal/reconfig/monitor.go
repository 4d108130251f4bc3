package reconfig

import (
	"context"
	"fmt"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/credentials"
	"github.com/nerrad567/gray-logic-uplink/internal/events"
	"github.com/nerrad567/gray-logic-uplink/internal/portal"
	"github.com/nerrad567/gray-logic-uplink/internal/restart"
	"github.com/nerrad567/gray-logic-uplink/internal/worker"
)

// Input is a digital input line. Read returns the raw level, 0 or 1.
type Input interface {
	Read() (int, error)
}

// Suspender stops every worker except the caller. *worker.Group implements it.
type Suspender interface {
	SuspendOthers(ctx context.Context, self *worker.Handle) error
}

// CredentialStore is the part of the credential store the monitor writes.
type CredentialStore interface {
	Reset(ctx context.Context) error
	Save(ctx context.Context, primary, secondary credentials.Pair) error
}

// Portal collects new credentials.
type Portal interface {
	Start(ctx context.Context, apName, apPassword string) (portal.Result, bool)
}

// Logger defines the logging interface for the monitor.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds monitor settings.
type Config struct {
	PollInterval time.Duration

	// ActiveLow treats level 0 as pressed (button to ground with pull-up).
	ActiveLow bool

	APName     string
	APPassword string
}

// Deps are the monitor's collaborators.
type Deps struct {
	Input     Input
	Suspender Suspender
	Self      *worker.Handle
	Store     CredentialStore
	Portal    Portal
}

// Monitor polls the reset input.
type Monitor struct {
	cfg  Config
	deps Deps

	logger   Logger
	recorder events.Recorder
}

// NewMonitor creates a Monitor. deps.Self is the monitor's own worker
// handle; it is excluded from suspension and used for polling waits.
func NewMonitor(cfg Config, deps Deps) (*Monitor, error) {
	if deps.Input == nil || deps.Suspender == nil || deps.Self == nil || deps.Store == nil || deps.Portal == nil {
		return nil, fmt.Errorf("%w: missing dependency", ErrInvalidConfig)
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("%w: poll interval must be positive", ErrInvalidConfig)
	}
	return &Monitor{
		cfg:      cfg,
		deps:     deps,
		logger:   noopLogger{},
		recorder: events.Nop{},
	}, nil
}

// SetLogger sets the logger.
func (m *Monitor) SetLogger(logger Logger) {
	if logger != nil {
		m.logger = logger
	}
}

// SetRecorder sets the event recorder.
func (m *Monitor) SetRecorder(r events.Recorder) {
	if r != nil {
		m.recorder = r
	}
}

// Run polls the input until it reads active, then reconfigures. It returns
// a *restart.Request after reconfiguration, or the context's error.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		level, err := m.deps.Input.Read()
		if err != nil {
			m.logger.Warn("failed to read reset input", "error", err)
		} else if m.active(level) {
			return m.reconfigure(ctx)
		}

		if err := m.deps.Self.Sleep(ctx, m.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (m *Monitor) active(level int) bool {
	if m.cfg.ActiveLow {
		return level == 0
	}
	return level != 0
}

// reconfigure runs the re-provisioning sequence. Nothing touches the radio
// or the store until every other worker is parked.
func (m *Monitor) reconfigure(ctx context.Context) error {
	m.logger.Info("reset input active, starting reconfiguration")
	m.recorder.Record(events.ReconfigRequested, nil, 1)

	if err := m.deps.Suspender.SuspendOthers(ctx, m.deps.Self); err != nil {
		return err
	}
	m.logger.Info("workers suspended")

	if err := m.deps.Store.Reset(ctx); err != nil {
		m.logger.Error("failed to erase stored networks", "error", err)
	}

	res, ok := m.deps.Portal.Start(ctx, m.cfg.APName, m.cfg.APPassword)
	if !ok {
		if err := ctx.Err(); err != nil {
			return err
		}
		m.logger.Error("provisioning portal ended without credentials")
		m.recorder.Record(events.PortalFailed, nil, 1)
		return restart.New(events.PortalFailed, "portal ended without credentials")
	}

	if err := m.deps.Store.Save(ctx, res.Primary, res.Secondary); err != nil {
		m.logger.Error("failed to save networks", "error", err)
		m.recorder.Record(events.PortalFailed, nil, 1)
		return restart.New(events.PortalFailed, fmt.Sprintf("saving networks: %v", err))
	}

	m.logger.Info("networks saved", "primary", res.Primary.String(), "secondary", res.Secondary.String())
	return restart.New(events.ReconfigRequested, "networks updated")
}
