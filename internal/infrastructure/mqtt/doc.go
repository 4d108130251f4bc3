// Package mqtt provides the broker session used by the uplink.
//
// This package manages:
//   - One paho.mqtt.golang client per connection attempt, with a caller-chosen client ID
//   - Subscription with acknowledgement checking
//   - Inbound message queueing, dispatched only from Session.Loop
//   - Last Will and Testament (LWT) plus a retained online/offline status
//
// # Reconnection
//
// Paho's automatic reconnect is switched off. When the connection drops,
// State reports StateConnectionLost and Connected returns false; the
// transport reconnector then opens a fresh session. Status codes follow the
// familiar embedded-client convention:
//
//	-4 connection timeout   -3 connection lost   -2 connect failed
//	-1 disconnected          0 connected          1-5 CONNACK refusal
//
// # Security Considerations
//
//   - Plain TCP only; deploy on a trusted network or behind a TLS-terminating proxy
//   - Credentials are validated against broker ACL
//   - Payloads are logged at debug level only
//
// # Usage
//
//	session := mqtt.NewSession(cfg.MQTT, cfg.Device.ID)
//	if session.Connect(ctx, "uplink-1A2B3C4D", user, pass) {
//	    err := session.Subscribe(ctx, cfg.MQTT.Topic)
//	    ...
//	}
//	for {
//	    session.Loop()
//	    time.Sleep(10 * time.Millisecond)
//	}
package mqtt
