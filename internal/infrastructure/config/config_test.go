package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `
device:
  id: "pump-house-2"
credentials:
  path: "/tmp/uplink.db"
link:
  interface: "wlan1"
  max_attempts: 10
  attempt_delay: 250ms
mqtt:
  broker:
    host: "broker.local"
    port: 1884
  topic: "site/7/command"
  retry:
    max_retries: 3
    retry_delay: 2s
    max_rest_cycles: 4
    rest_delay: 1m
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Device.ID != "pump-house-2" {
		t.Errorf("Device.ID = %q, want %q", cfg.Device.ID, "pump-house-2")
	}
	if cfg.Link.Interface != "wlan1" {
		t.Errorf("Link.Interface = %q, want %q", cfg.Link.Interface, "wlan1")
	}
	if cfg.Link.AttemptDelay != 250*time.Millisecond {
		t.Errorf("Link.AttemptDelay = %v, want 250ms", cfg.Link.AttemptDelay)
	}
	if cfg.MQTT.Retry.RestDelay != time.Minute {
		t.Errorf("MQTT.Retry.RestDelay = %v, want 1m", cfg.MQTT.Retry.RestDelay)
	}
	if cfg.MQTT.BrokerURL() != "tcp://broker.local:1884" {
		t.Errorf("BrokerURL() = %q, want %q", cfg.MQTT.BrokerURL(), "tcp://broker.local:1884")
	}

	// Untouched sections keep their defaults.
	if cfg.Supervisor.LinkRest != 2*time.Minute {
		t.Errorf("Supervisor.LinkRest = %v, want 2m", cfg.Supervisor.LinkRest)
	}
	if cfg.Credentials.Namespace != "wifi-config" {
		t.Errorf("Credentials.Namespace = %q, want %q", cfg.Credentials.Namespace, "wifi-config")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "invalid: [yaml: content")

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
mqtt:
  retry:
    retry_delay: 10s
    rest_delay: 5s
`)

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for rest_delay <= retry_delay, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{
			name:    "defaults are valid",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:    "missing device ID",
			mutate:  func(c *Config) { c.Device.ID = "" },
			wantErr: true,
		},
		{
			name:    "unknown restart mode",
			mutate:  func(c *Config) { c.Device.Restart.Mode = "halt" },
			wantErr: true,
		},
		{
			name: "command mode without command",
			mutate: func(c *Config) {
				c.Device.Restart.Mode = "command"
				c.Device.Restart.Command = nil
			},
			wantErr: true,
		},
		{
			name:    "missing credentials path",
			mutate:  func(c *Config) { c.Credentials.Path = "" },
			wantErr: true,
		},
		{
			name:    "zero link attempts",
			mutate:  func(c *Config) { c.Link.MaxAttempts = 0 },
			wantErr: true,
		},
		{
			name:    "zero link failure ceiling",
			mutate:  func(c *Config) { c.Supervisor.MaxLinkFailures = 0 },
			wantErr: true,
		},
		{
			name:    "invalid QoS",
			mutate:  func(c *Config) { c.MQTT.QoS = 3 },
			wantErr: true,
		},
		{
			name:    "invalid port high",
			mutate:  func(c *Config) { c.MQTT.Broker.Port = 70000 },
			wantErr: true,
		},
		{
			name:    "empty topic",
			mutate:  func(c *Config) { c.MQTT.Topic = "" },
			wantErr: true,
		},
		{
			name:    "rest delay equal to retry delay",
			mutate:  func(c *Config) { c.MQTT.Retry.RestDelay = c.MQTT.Retry.RetryDelay },
			wantErr: true,
		},
		{
			name:    "short portal password",
			mutate:  func(c *Config) { c.Portal.APPassword = "short" },
			wantErr: true,
		},
		{
			name:    "open portal access point",
			mutate:  func(c *Config) { c.Portal.APPassword = "" },
			wantErr: false,
		},
		{
			name:    "zero worker interval",
			mutate:  func(c *Config) { c.Workers.Main.Interval = 0 },
			wantErr: true,
		},
		{
			name:    "influxdb enabled without URL",
			mutate:  func(c *Config) { c.InfluxDB.Enabled = true },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()

	t.Setenv("UPLINK_DEVICE_ID", "uplink-77")
	t.Setenv("UPLINK_CREDENTIALS_PATH", "/custom/path.db")
	t.Setenv("UPLINK_MQTT_HOST", "mqtt.example.com")
	t.Setenv("UPLINK_MQTT_USERNAME", "testuser")
	t.Setenv("UPLINK_MQTT_PASSWORD", "testpass")
	t.Setenv("UPLINK_INFLUXDB_TOKEN", "secret-token")

	applyEnvOverrides(cfg)

	if cfg.Device.ID != "uplink-77" {
		t.Errorf("Device.ID = %q, want %q", cfg.Device.ID, "uplink-77")
	}
	if cfg.Credentials.Path != "/custom/path.db" {
		t.Errorf("Credentials.Path = %q, want %q", cfg.Credentials.Path, "/custom/path.db")
	}
	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}
	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}
	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}
	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Link.MaxAttempts != 30 {
		t.Errorf("Link.MaxAttempts = %d, want 30", cfg.Link.MaxAttempts)
	}
	if cfg.Link.AttemptDelay != 500*time.Millisecond {
		t.Errorf("Link.AttemptDelay = %v, want 500ms", cfg.Link.AttemptDelay)
	}
	if cfg.Supervisor.MaxLinkFailures != 5 {
		t.Errorf("Supervisor.MaxLinkFailures = %d, want 5", cfg.Supervisor.MaxLinkFailures)
	}
	if cfg.Supervisor.PumpInterval != 10*time.Millisecond {
		t.Errorf("Supervisor.PumpInterval = %v, want 10ms", cfg.Supervisor.PumpInterval)
	}
	if cfg.MQTT.Retry.MaxRetries != 5 || cfg.MQTT.Retry.MaxRestCycles != 5 {
		t.Errorf("MQTT.Retry = %+v, want 5 retries and 5 rest cycles", cfg.MQTT.Retry)
	}
	if cfg.Reconfig.PollInterval != 100*time.Millisecond {
		t.Errorf("Reconfig.PollInterval = %v, want 100ms", cfg.Reconfig.PollInterval)
	}
	if !cfg.Reconfig.ActiveLow {
		t.Error("Reconfig.ActiveLow = false, want true")
	}
}
