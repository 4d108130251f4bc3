package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-uplink/internal/infrastructure/config"
)

// Connection status codes reported by State. Positive values 1-5 are the
// CONNACK refusal codes returned by the broker.
const (
	StateConnectionTimeout = -4
	StateConnectionLost    = -3
	StateConnectFailed     = -2
	StateDisconnected      = -1
	StateConnected         = 0
)

// inboundQueueSize bounds messages waiting for the next Loop call.
const inboundQueueSize = 64

// subscribeFailure is the SUBACK return code for a refused subscription.
const subscribeFailure = 0x80

// Message is an inbound message waiting to be dispatched.
type Message struct {
	Topic   string
	Payload []byte
}

// MessageHandler is the callback signature for received messages.
//
// Handlers run on the goroutine calling Loop, never on a paho goroutine.
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
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

// Session is a single broker session built on paho.mqtt.golang.
//
// Each Connect builds a fresh paho client with its own client ID. Paho's
// automatic reconnect is disabled: a lost connection is reported through
// State and Connected, and the caller decides when to try again.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
//   - Message handlers run only from Loop.
type Session struct {
	cfg    config.MQTTConfig
	topics Topics

	// newClient builds the paho client; replaced in tests.
	newClient func(*pahomqtt.ClientOptions) pahomqtt.Client

	mu       sync.RWMutex
	client   pahomqtt.Client
	clientID string
	state    int

	inbound chan Message

	handler MessageHandler
	logger  Logger
	hmu     sync.RWMutex
}

// NewSession creates a closed session for the given broker configuration.
// deviceID names the retained status topic.
func NewSession(cfg config.MQTTConfig, deviceID string) *Session {
	s := &Session{
		cfg:       cfg,
		topics:    Topics{DeviceID: deviceID},
		newClient: pahomqtt.NewClient,
		state:     StateDisconnected,
		inbound:   make(chan Message, inboundQueueSize),
		logger:    noopLogger{},
	}
	s.handler = s.logMessage
	return s
}

// SetLogger sets the logger.
func (s *Session) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	s.hmu.Lock()
	s.logger = logger
	s.hmu.Unlock()
}

// SetHandler sets the handler for inbound messages. The default handler
// logs each message at debug level.
func (s *Session) SetHandler(handler MessageHandler) {
	if handler == nil {
		return
	}
	s.hmu.Lock()
	s.handler = handler
	s.hmu.Unlock()
}

func (s *Session) getLogger() Logger {
	s.hmu.RLock()
	defer s.hmu.RUnlock()
	return s.logger
}

func (s *Session) getHandler() MessageHandler {
	s.hmu.RLock()
	defer s.hmu.RUnlock()
	return s.handler
}

// Connect opens a session to the broker.
//
// Any previous client is discarded first. On success the retained online
// status is published.
//
// Parameters:
//   - ctx: Cancels the wait for CONNACK
//   - clientID: Unique client ID for this attempt
//   - user, secret: Broker credentials
//
// Returns:
//   - bool: true if the broker accepted the connection; State explains a false
func (s *Session) Connect(ctx context.Context, clientID, user, secret string) bool {
	s.dropClient()

	opts := buildClientOptions(s.cfg, clientID, user, secret)
	configureLWT(opts, s.topics.Status(), clientID)
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		s.handleConnectionLost(err)
	})

	client := s.newClient(opts)
	token := client.Connect()

	err := waitToken(ctx, token, opts.ConnectTimeout)
	if err != nil {
		state := StateConnectFailed
		switch {
		case errors.Is(err, ErrTimeout):
			state = StateConnectionTimeout
		case returnCode(token) >= 1 && returnCode(token) <= 5:
			state = int(returnCode(token))
		}
		client.Disconnect(0)

		s.mu.Lock()
		s.state = state
		s.mu.Unlock()

		s.getLogger().Debug("broker connect failed", "client_id", clientID, "state", state, "error", err)
		return false
	}

	s.mu.Lock()
	s.client = client
	s.clientID = clientID
	s.state = StateConnected
	s.mu.Unlock()

	s.publishOnlineStatus()
	return true
}

// Connected reports whether the session is open.
func (s *Session) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.client != nil && s.state == StateConnected && s.client.IsConnected()
}

// State returns the last connection status code (see the State* constants).
func (s *Session) State() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ClientID returns the client ID of the current or last session.
func (s *Session) ClientID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientID
}

// Loop dispatches inbound messages queued since the last call and returns
// how many were handled. It never blocks.
func (s *Session) Loop() int {
	handled := 0
	for {
		select {
		case msg := <-s.inbound:
			s.dispatch(msg)
			handled++
		default:
			return handled
		}
	}
}

// Disconnect publishes the graceful offline status and closes the session.
func (s *Session) Disconnect() {
	if s.Connected() {
		s.mu.RLock()
		clientID := s.clientID
		s.mu.RUnlock()
		if err := s.Publish(s.topics.Status(), []byte(buildOfflinePayload(clientID)), 1, true); err != nil {
			s.getLogger().Warn("failed to publish offline status", "error", err)
		}
	}
	s.dropClient()
}

// HealthCheck verifies the session is open.
func (s *Session) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !s.Connected() {
		return ErrNotConnected
	}
	return nil
}

func (s *Session) dropClient() {
	s.mu.Lock()
	client := s.client
	s.client = nil
	s.state = StateDisconnected
	s.mu.Unlock()

	if client != nil {
		client.Disconnect(defaultDisconnectQuiesce)
	}
}

func (s *Session) handleConnectionLost(err error) {
	s.mu.Lock()
	s.state = StateConnectionLost
	s.mu.Unlock()

	s.getLogger().Warn("broker connection lost", "error", err)
}

func (s *Session) publishOnlineStatus() {
	s.mu.RLock()
	clientID := s.clientID
	s.mu.RUnlock()

	if err := s.Publish(s.topics.Status(), []byte(buildOnlinePayload(clientID)), 1, true); err != nil {
		s.getLogger().Warn("failed to publish online status", "error", err)
	}
}

// enqueue is the paho callback for subscribed topics. It runs on a paho
// goroutine and only queues the message.
func (s *Session) enqueue(_ pahomqtt.Client, msg pahomqtt.Message) {
	select {
	case s.inbound <- Message{Topic: msg.Topic(), Payload: msg.Payload()}:
	default:
		s.getLogger().Warn("inbound queue full, dropping message", "topic", msg.Topic())
	}
}

// dispatch runs the handler with panic recovery.
func (s *Session) dispatch(msg Message) {
	logger := s.getLogger()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("MQTT handler panic recovered",
				"topic", msg.Topic,
				"panic", r,
			)
		}
	}()

	if err := s.getHandler()(msg.Topic, msg.Payload); err != nil {
		logger.Warn("MQTT handler returned error",
			"topic", msg.Topic,
			"error", err,
		)
	}
}

func (s *Session) logMessage(topic string, payload []byte) error {
	s.getLogger().Debug("message received", "topic", topic, "payload", string(payload))
	return nil
}

// waitToken waits for a paho token, bounded by timeout and ctx.
func waitToken(ctx context.Context, token pahomqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// returnCode extracts the CONNACK return code from a connect token.
func returnCode(token pahomqtt.Token) byte {
	if ct, ok := token.(interface{ ReturnCode() byte }); ok {
		return ct.ReturnCode()
	}
	return 0
}
