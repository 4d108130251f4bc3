//go:build integration

package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-uplink/internal/infrastructure/config"
)

// Integration tests against a real broker.
// These tests require a running MQTT broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...

func integrationConfig() config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:           "127.0.0.1",
			Port:           1883,
			ConnectTimeout: 5 * time.Second,
			KeepAlive:      15 * time.Second,
		},
		Topic: "uplink/int/command",
		QoS:   1,
	}
}

func TestIntegration_ConnectSubscribe(t *testing.T) {
	s := NewSession(integrationConfig(), "uplink-int")
	ctx := context.Background()

	if !s.Connect(ctx, "uplink-int-sub", "", "") {
		t.Fatalf("Connect() = false, state %d", s.State())
	}
	defer s.Disconnect()

	if err := s.Subscribe(ctx, "uplink/int/command"); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
}

func TestIntegration_MessageRoundtrip(t *testing.T) {
	ctx := context.Background()

	sub := NewSession(integrationConfig(), "uplink-int-a")
	if !sub.Connect(ctx, "uplink-int-roundtrip-sub", "", "") {
		t.Fatalf("subscriber Connect() = false, state %d", sub.State())
	}
	defer sub.Disconnect()

	pub := NewSession(integrationConfig(), "uplink-int-b")
	if !pub.Connect(ctx, "uplink-int-roundtrip-pub", "", "") {
		t.Fatalf("publisher Connect() = false, state %d", pub.State())
	}
	defer pub.Disconnect()

	topic := "uplink/int/roundtrip"
	received := make(chan string, 1)
	sub.SetHandler(func(_ string, p []byte) error {
		select {
		case received <- string(p):
		default:
		}
		return nil
	})
	if err := sub.Subscribe(ctx, topic); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	if err := pub.Publish(topic, []byte("ping"), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		sub.Loop()
		select {
		case msg := <-received:
			if msg != "ping" {
				t.Errorf("received %q, want %q", msg, "ping")
			}
			return
		case <-deadline:
			t.Fatal("timeout waiting for message")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestIntegration_UnreachableBroker(t *testing.T) {
	cfg := integrationConfig()
	cfg.Broker.Port = 19999
	s := NewSession(cfg, "uplink-int")

	if s.Connect(context.Background(), "uplink-int-bad", "", "") {
		t.Fatal("Connect() = true for unreachable broker")
	}
	if s.State() != StateConnectFailed && s.State() != StateConnectionTimeout {
		t.Errorf("State() = %d, want connect failed or timeout", s.State())
	}
}
