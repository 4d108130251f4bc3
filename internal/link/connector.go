package link

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/credentials"
	"github.com/nerrad567/gray-logic-uplink/internal/events"
	"github.com/nerrad567/gray-logic-uplink/internal/worker"
)

// State is the link state reported by the radio driver.
type State int

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Driver is the radio driver.
type Driver interface {
	// SetStationMode puts the radio in client (station) mode.
	SetStationMode(ctx context.Context) error

	// Begin initiates association with the given network. It does not wait
	// for the link to come up.
	Begin(ctx context.Context, ssid, secret string) error

	// Status reports the current link state.
	Status(ctx context.Context) State
}

// Logger defines the logging interface for the connector.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// Connector joins a network with one credential pair.
type Connector struct {
	driver   Driver
	sleeper  worker.Sleeper
	logger   Logger
	recorder events.Recorder
}

// NewConnector creates a Connector. The sleeper is the calling worker's
// yield point.
func NewConnector(driver Driver, sleeper worker.Sleeper) *Connector {
	return &Connector{
		driver:   driver,
		sleeper:  sleeper,
		logger:   noopLogger{},
		recorder: events.Nop{},
	}
}

// SetLogger sets the logger.
func (c *Connector) SetLogger(logger Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// SetRecorder sets the event recorder.
func (c *Connector) SetRecorder(r events.Recorder) {
	if r != nil {
		c.recorder = r
	}
}

// Connect tries to bring the link up with pair. It polls the driver up to
// maxAttempts times, waiting attemptDelay after each unsuccessful poll, and
// returns true on the first Connected status.
func (c *Connector) Connect(ctx context.Context, pair credentials.Pair, maxAttempts int, attemptDelay time.Duration) bool {
	tags := map[string]string{"label": string(pair.Label)}

	if pair.Empty() {
		c.logger.Warn("no network stored", "label", string(pair.Label))
		c.recorder.Record(events.LinkAttemptFailed, tags, 0)
		return false
	}

	c.logger.Info("connecting to network", "label", string(pair.Label), "ssid", pair.SSID)
	if err := c.driver.Begin(ctx, pair.SSID, pair.Secret); err != nil {
		c.logger.Warn("link request failed", "label", string(pair.Label), "error", err)
		c.recorder.Record(events.LinkAttemptFailed, tags, 0)
		return false
	}

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.driver.Status(ctx) == Connected {
			c.logger.Info("link up", "label", string(pair.Label), "ssid", pair.SSID, "attempt", attempt)
			c.recorder.Record(events.LinkConnected, tags, attempt)
			return true
		}
		if err := c.sleeper.Sleep(ctx, attemptDelay); err != nil {
			return false
		}
		c.logger.Debug("waiting for link", "label", string(pair.Label), "attempt", attempt, "max", maxAttempts)
	}

	c.logger.Warn("link attempt failed", "label", string(pair.Label), "ssid", pair.SSID, "attempts", maxAttempts)
	c.recorder.Record(events.LinkAttemptFailed, tags, maxAttempts)
	return false
}
