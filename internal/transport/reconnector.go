package transport

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-uplink/internal/events"
	"github.com/nerrad567/gray-logic-uplink/internal/restart"
	"github.com/nerrad567/gray-logic-uplink/internal/worker"
)

// SessionState is the broker session state.
type SessionState int

const (
	Closed SessionState = iota
	Opening
	Open
)

func (s SessionState) String() string {
	switch s {
	case Opening:
		return "opening"
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// Session is the broker session.
type Session interface {
	// Connect opens a session with the given client ID and credentials.
	Connect(ctx context.Context, clientID, user, secret string) bool

	// Connected reports whether the session is open.
	Connected() bool

	// Subscribe subscribes to topic and waits for the acknowledgement.
	Subscribe(ctx context.Context, topic string) error

	// Disconnect closes the session.
	Disconnect()

	// State returns the last connection status code.
	State() int
}

// Policy bounds the reconnect effort.
type Policy struct {
	MaxRetries    int
	RetryDelay    time.Duration
	MaxRestCycles int
	RestDelay     time.Duration
}

// DefaultPolicy is 5 attempts 5 s apart, up to 5 rests of 3 minutes.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:    5,
		RetryDelay:    5 * time.Second,
		MaxRestCycles: 5,
		RestDelay:     3 * time.Minute,
	}
}

// Validate checks the policy's ceilings and that a rest is strictly longer
// than a retry delay.
func (p Policy) Validate() error {
	switch {
	case p.MaxRetries < 1:
		return fmt.Errorf("%w: max retries must be at least 1", ErrInvalidPolicy)
	case p.MaxRestCycles < 1:
		return fmt.Errorf("%w: max rest cycles must be at least 1", ErrInvalidPolicy)
	case p.RetryDelay < 0:
		return fmt.Errorf("%w: negative retry delay", ErrInvalidPolicy)
	case p.RestDelay <= p.RetryDelay:
		return fmt.Errorf("%w: rest delay %v must exceed retry delay %v", ErrInvalidPolicy, p.RestDelay, p.RetryDelay)
	}
	return nil
}

// Credentials authenticate against the broker and name the topic to
// subscribe to.
type Credentials struct {
	User   string
	Secret string
	Topic  string
}

// Logger defines the logging interface for the reconnector.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Reconnector drives a Session from Closed to Open.
type Reconnector struct {
	policy   Policy
	creds    Credentials
	prefix   string
	sleeper  worker.Sleeper
	newID    func() string
	logger   Logger
	recorder events.Recorder

	state atomic.Int32
}

// NewReconnector creates a Reconnector. Client IDs are prefix followed by
// eight random hex digits.
func NewReconnector(policy Policy, creds Credentials, prefix string, sleeper worker.Sleeper) (*Reconnector, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Reconnector{
		policy:   policy,
		creds:    creds,
		prefix:   prefix,
		sleeper:  sleeper,
		newID:    func() string { return RandomClientID(prefix) },
		logger:   noopLogger{},
		recorder: events.Nop{},
	}, nil
}

// SetLogger sets the logger.
func (r *Reconnector) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// SetRecorder sets the event recorder.
func (r *Reconnector) SetRecorder(rec events.Recorder) {
	if rec != nil {
		r.recorder = rec
	}
}

// State returns the session state as last seen by Reconnect.
func (r *Reconnector) State() SessionState {
	return SessionState(r.state.Load())
}

// RandomClientID returns prefix plus eight hex digits from a random UUID.
// IDs must not repeat across restarts or the broker drops the older session.
func RandomClientID(prefix string) string {
	id := uuid.New()
	return prefix + strings.ToUpper(fmt.Sprintf("%x", id[:4]))
}

// budget is the retry state of one Reconnect call.
type budget struct {
	retries    int
	restCycles int
}

// Reconnect blocks until session is open and subscribed (nil), the rest
// ceiling is reached (*restart.Request), or ctx is cancelled (ctx.Err()).
// A session that is already connected is returned as-is.
func (r *Reconnector) Reconnect(ctx context.Context, session Session) error {
	if session.Connected() {
		r.state.Store(int32(Open))
		return nil
	}

	var b budget
	for {
		for b.retries < r.policy.MaxRetries {
			r.state.Store(int32(Opening))
			if r.attempt(ctx, session, b) {
				r.state.Store(int32(Open))
				return nil
			}
			r.state.Store(int32(Closed))

			b.retries++
			r.logger.Warn("broker connection failed",
				"state", session.State(),
				"retry", strconv.Itoa(b.retries)+"/"+strconv.Itoa(r.policy.MaxRetries),
			)
			r.recorder.Record(events.SessionOpenFailed, nil, b.retries)

			if err := r.sleeper.Sleep(ctx, r.policy.RetryDelay); err != nil {
				return err
			}
		}

		b.restCycles++
		r.logger.Warn("broker retries exhausted, resting",
			"rest", r.policy.RestDelay,
			"cycle", strconv.Itoa(b.restCycles)+"/"+strconv.Itoa(r.policy.MaxRestCycles),
		)
		r.recorder.Record(events.RetryCeilingReached, nil, b.restCycles)
		r.recorder.Record(events.RestCycle, nil, b.restCycles)

		if err := r.sleeper.Sleep(ctx, r.policy.RestDelay); err != nil {
			return err
		}

		if b.restCycles >= r.policy.MaxRestCycles {
			r.logger.Error("broker unreachable after rest cycles", "cycles", b.restCycles)
			r.recorder.Record(events.RestCeilingReached, nil, b.restCycles)
			return restart.New(events.RestCeilingReached,
				fmt.Sprintf("broker unreachable after %d rest cycles", b.restCycles))
		}

		b.retries = 0
	}
}

// attempt opens the session and subscribes.
func (r *Reconnector) attempt(ctx context.Context, session Session, b budget) bool {
	clientID := r.newID()
	r.logger.Info("connecting to broker", "client_id", clientID, "retry", b.retries, "rest_cycle", b.restCycles)

	if !session.Connect(ctx, clientID, r.creds.User, r.creds.Secret) {
		return false
	}

	if err := session.Subscribe(ctx, r.creds.Topic); err != nil {
		r.logger.Warn("subscription refused, closing session", "topic", r.creds.Topic, "error", err)
		session.Disconnect()
		return false
	}

	r.logger.Info("broker session open", "client_id", clientID, "topic", r.creds.Topic)
	r.recorder.Record(events.SessionOpened, nil, b.retries+1)
	return true
}
