// Package logging provides structured logging for Gray Logic Uplink.
//
// This package wraps Go's standard log/slog package. Output goes to the
// device's serial console or journald, so the text format is the usual
// choice on hardware and JSON is used when logs are shipped.
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "text"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, version, cfg.Device.ID)
//	logger.Component("supervisor").Info("link up", "label", "primary")
//
// # Security
//
// Never log Wi-Fi passphrases or broker passwords. Log the SSID and the
// credential label instead.
package logging
