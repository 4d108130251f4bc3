package mqtt

import (
	"context"
	"fmt"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Subscribe subscribes to topic at the configured QoS and waits for the
// broker's acknowledgement.
//
// Messages on the topic are queued and handled by the next Loop call.
//
// Parameters:
//   - ctx: Cancels the wait for SUBACK
//   - topic: The topic pattern to subscribe to
//
// Returns:
//   - error: nil once acknowledged; ErrSubscribeRefused if the broker
//     rejected the filter; otherwise a wrapped ErrSubscribeFailed
func (s *Session) Subscribe(ctx context.Context, topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	qos := byte(s.cfg.QoS)
	if qos > maxQoS {
		return ErrInvalidQoS
	}

	s.mu.RLock()
	client := s.client
	s.mu.RUnlock()
	if client == nil || !s.Connected() {
		return ErrNotConnected
	}

	token := client.Subscribe(topic, qos, s.enqueue)
	if err := waitToken(ctx, token, defaultPublishTimeout); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}
	if granted, ok := grantedQoS(token, topic); ok && granted == subscribeFailure {
		return fmt.Errorf("%w: %s", ErrSubscribeRefused, topic)
	}

	return nil
}

// grantedQoS returns the SUBACK code the broker returned for topic.
func grantedQoS(token pahomqtt.Token, topic string) (byte, bool) {
	st, ok := token.(interface{ Result() map[string]byte })
	if !ok {
		return 0, false
	}
	code, ok := st.Result()[topic]
	return code, ok
}
