package supervisor

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/credentials"
	"github.com/nerrad567/gray-logic-uplink/internal/events"
	"github.com/nerrad567/gray-logic-uplink/internal/link"
	"github.com/nerrad567/gray-logic-uplink/internal/restart"
	"github.com/nerrad567/gray-logic-uplink/internal/transport"
	"github.com/nerrad567/gray-logic-uplink/internal/worker"
)

// State is the supervisor's view of connectivity.
type State int32

const (
	LinkDown State = iota
	TransportDown
	TransportUp
)

func (s State) String() string {
	switch s {
	case TransportDown:
		return "transport_down"
	case TransportUp:
		return "transport_up"
	default:
		return "link_down"
	}
}

// CredentialLoader reads the stored network pairs.
type CredentialLoader interface {
	Load(ctx context.Context) (primary, secondary credentials.Pair, err error)
}

// Radio is the part of the link driver the supervisor polls directly.
type Radio interface {
	SetStationMode(ctx context.Context) error
	Status(ctx context.Context) link.State
}

// LinkConnector joins one network.
type LinkConnector interface {
	Connect(ctx context.Context, pair credentials.Pair, maxAttempts int, attemptDelay time.Duration) bool
}

// Reconnector reopens the broker session.
type Reconnector interface {
	Reconnect(ctx context.Context, session transport.Session) error
}

// Session is the broker session, including the message pump.
type Session interface {
	transport.Session
	Loop() int
}

// Logger defines the logging interface for the supervisor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the supervisor's limits.
type Config struct {
	// MaxAttempts and AttemptDelay are passed to each link attempt.
	MaxAttempts  int
	AttemptDelay time.Duration

	// MaxLinkFailures is the number of consecutive failed cycles (both
	// pairs failed) that triggers a restart.
	MaxLinkFailures int

	// LinkRest is the pause after a failed cycle below the ceiling.
	LinkRest time.Duration

	// PumpInterval is the yield after each session pump.
	PumpInterval time.Duration
}

// DefaultConfig returns 30 polls 500 ms apart, 5 failed cycles, a 2 minute
// rest and a 10 ms pump interval.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:     30,
		AttemptDelay:    500 * time.Millisecond,
		MaxLinkFailures: 5,
		LinkRest:        2 * time.Minute,
		PumpInterval:    10 * time.Millisecond,
	}
}

// Deps are the supervisor's collaborators.
type Deps struct {
	Store       CredentialLoader
	Radio       Radio
	Connector   LinkConnector
	Reconnector Reconnector
	Session     Session
	Sleeper     worker.Sleeper
}

// Supervisor runs the connectivity loop.
type Supervisor struct {
	cfg  Config
	deps Deps

	logger   Logger
	recorder events.Recorder

	state    atomic.Int32
	failures atomic.Int32
}

// New creates a Supervisor.
func New(cfg Config, deps Deps) (*Supervisor, error) {
	switch {
	case deps.Store == nil, deps.Radio == nil, deps.Connector == nil,
		deps.Reconnector == nil, deps.Session == nil, deps.Sleeper == nil:
		return nil, fmt.Errorf("%w: missing dependency", ErrInvalidConfig)
	case cfg.MaxAttempts < 1:
		return nil, fmt.Errorf("%w: max attempts must be at least 1", ErrInvalidConfig)
	case cfg.MaxLinkFailures < 1:
		return nil, fmt.Errorf("%w: max link failures must be at least 1", ErrInvalidConfig)
	}

	return &Supervisor{
		cfg:      cfg,
		deps:     deps,
		logger:   noopLogger{},
		recorder: events.Nop{},
	}, nil
}

// SetLogger sets the logger.
func (s *Supervisor) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetRecorder sets the event recorder.
func (s *Supervisor) SetRecorder(r events.Recorder) {
	if r != nil {
		s.recorder = r
	}
}

// State returns the state reached by the last Step.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Failures returns the number of consecutive failed link cycles.
func (s *Supervisor) Failures() int {
	return int(s.failures.Load())
}

// Run calls Step until it returns an error. A cancelled context closes the
// session before returning, unless the worker was suspended.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("supervisor started")
	for {
		if err := s.Step(ctx); err != nil {
			if ctx.Err() != nil && !s.suspended() {
				s.deps.Session.Disconnect()
				s.logger.Info("supervisor stopped")
			}
			return err
		}
	}
}

// Step runs one pass of the connectivity loop. It returns nil to be
// called again, a *restart.Request, or the context's error.
func (s *Supervisor) Step(ctx context.Context) error {
	if s.deps.Radio.Status(ctx) != link.Connected {
		s.setState(LinkDown)
		up, err := s.joinLink(ctx)
		if err != nil || !up {
			return err
		}
	}

	if !s.deps.Session.Connected() {
		s.setState(TransportDown)
		if err := s.deps.Reconnector.Reconnect(ctx, s.deps.Session); err != nil {
			return err
		}
	}

	s.setState(TransportUp)
	s.deps.Session.Loop()
	return s.deps.Sleeper.Sleep(ctx, s.cfg.PumpInterval)
}

// joinLink tries the primary pair, then the secondary. It returns true once
// the link is up, false after a rest, or a restart request at the failure
// ceiling.
func (s *Supervisor) joinLink(ctx context.Context) (bool, error) {
	if err := s.deps.Radio.SetStationMode(ctx); err != nil {
		s.logger.Warn("failed to set station mode", "error", err)
	}

	primary, secondary, err := s.deps.Store.Load(ctx)
	if err != nil {
		s.logger.Error("failed to read stored networks", "error", err)
		primary = credentials.Pair{Label: credentials.Primary}
		secondary = credentials.Pair{Label: credentials.Secondary}
	}

	if s.deps.Connector.Connect(ctx, primary, s.cfg.MaxAttempts, s.cfg.AttemptDelay) ||
		s.deps.Connector.Connect(ctx, secondary, s.cfg.MaxAttempts, s.cfg.AttemptDelay) {
		s.failures.Store(0)
		return true, nil
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	failures := s.failures.Add(1)
	s.logger.Warn("both networks failed",
		"failures", failures,
		"max_failures", s.cfg.MaxLinkFailures,
	)

	if int(failures) >= s.cfg.MaxLinkFailures {
		s.logger.Error("link failure ceiling reached", "failures", failures)
		return false, restart.New(events.LinkAttemptFailed,
			fmt.Sprintf("no network after %d cycles", failures))
	}

	s.recorder.Record(events.RestCycle, map[string]string{"stage": "link"}, int(failures))
	s.logger.Info("resting before next link cycle", "rest", s.cfg.LinkRest)
	if err := s.deps.Sleeper.Sleep(ctx, s.cfg.LinkRest); err != nil {
		return false, err
	}
	return false, nil
}

// suspended reports whether the worker behind the sleeper was suspended.
// A suspended supervisor leaves the session untouched on shutdown.
func (s *Supervisor) suspended() bool {
	sp, ok := s.deps.Sleeper.(interface{ Suspended() bool })
	return ok && sp.Suspended()
}

func (s *Supervisor) setState(st State) {
	if old := State(s.state.Swap(int32(st))); old != st {
		s.logger.Debug("state changed", "from", old.String(), "to", st.String())
	}
}
