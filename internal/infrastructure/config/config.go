package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for Gray Logic Uplink.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Device      DeviceConfig      `yaml:"device"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Link        LinkConfig        `yaml:"link"`
	Supervisor  SupervisorConfig  `yaml:"supervisor"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Reconfig    ReconfigConfig    `yaml:"reconfig"`
	Portal      PortalConfig      `yaml:"portal"`
	Workers     WorkersConfig     `yaml:"workers"`
	InfluxDB    InfluxDBConfig    `yaml:"influxdb"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// DeviceConfig identifies the device and describes how it restarts itself.
type DeviceConfig struct {
	ID      string        `yaml:"id"`
	Restart RestartConfig `yaml:"restart"`
}

// RestartConfig selects the restart mechanism used by the top-level harness.
type RestartConfig struct {
	// Mode is "exit" (terminate the process and let the service manager
	// restart it) or "command" (run Command, e.g. a system reboot).
	Mode string `yaml:"mode"`

	// Command is the argv executed in "command" mode.
	Command []string `yaml:"command"`

	// ExitCode is the process exit status used in "exit" mode.
	ExitCode int `yaml:"exit_code"`
}

// CredentialsConfig contains the durable credential store settings.
type CredentialsConfig struct {
	Path        string `yaml:"path"`
	Namespace   string `yaml:"namespace"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// LinkConfig contains wireless link settings.
type LinkConfig struct {
	// Interface is the wireless network interface managed by the driver.
	Interface string `yaml:"interface"`

	// NMCLIBinary is the path to the NetworkManager CLI.
	NMCLIBinary string `yaml:"nmcli_binary"`

	// MaxAttempts is the number of status polls per credential pair.
	MaxAttempts int `yaml:"max_attempts"`

	// AttemptDelay is the wait between status polls.
	AttemptDelay time.Duration `yaml:"attempt_delay"`
}

// SupervisorConfig contains the outer reconnect loop settings.
type SupervisorConfig struct {
	// MaxLinkFailures is the number of consecutive cycles in which both
	// credential pairs failed before the device restarts.
	MaxLinkFailures int `yaml:"max_link_failures"`

	// LinkRest is the pause after both pairs failed.
	LinkRest time.Duration `yaml:"link_rest"`

	// PumpInterval is the pause between message pump invocations.
	PumpInterval time.Duration `yaml:"pump_interval"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker MQTTBrokerConfig `yaml:"broker"`
	Auth   MQTTAuthConfig   `yaml:"auth"`
	Topic  string           `yaml:"topic"`
	QoS    int              `yaml:"qos"`
	Retry  MQTTRetryConfig  `yaml:"retry"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// ClientIDPrefix is prepended to the random suffix of every client ID.
	ClientIDPrefix string `yaml:"client_id_prefix"`

	// ConnectTimeout bounds a single connect or subscribe handshake.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	KeepAlive time.Duration `yaml:"keep_alive"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTRetryConfig contains the session reconnect budget.
type MQTTRetryConfig struct {
	MaxRetries    int           `yaml:"max_retries"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MaxRestCycles int           `yaml:"max_rest_cycles"`
	RestDelay     time.Duration `yaml:"rest_delay"`
}

// ReconfigConfig contains the reset button settings.
type ReconfigConfig struct {
	Enabled bool `yaml:"enabled"`

	// Chip is the GPIO character device, e.g. "gpiochip0".
	Chip string `yaml:"chip"`

	// Line is the GPIO line offset of the button.
	Line int `yaml:"line"`

	// ActiveLow means a low level signals a press.
	ActiveLow bool `yaml:"active_low"`

	PollInterval time.Duration `yaml:"poll_interval"`
}

// PortalConfig contains provisioning portal settings.
type PortalConfig struct {
	APName     string        `yaml:"ap_name"`
	APPassword string        `yaml:"ap_password"`
	Listen     string        `yaml:"listen"`
	Timeout    time.Duration `yaml:"timeout"`
}

// WorkersConfig contains the declarative worker layout.
type WorkersConfig struct {
	Network   WorkerConfig `yaml:"network"`
	Reconfig  WorkerConfig `yaml:"reconfig"`
	Main      WorkerConfig `yaml:"main"`
	Secondary WorkerConfig `yaml:"secondary"`
}

// WorkerConfig describes one concurrent worker.
type WorkerConfig struct {
	Priority int `yaml:"priority"`

	// Affinity pins the worker to a dedicated OS thread when >= 0.
	Affinity int `yaml:"affinity"`

	// Interval is the task period for application workers.
	Interval time.Duration `yaml:"interval"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Credential length limits imposed by the wireless standard.
const (
	MaxSSIDLength   = 32
	MaxSecretLength = 64
)

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: UPLINK_SECTION_KEY
// For example: UPLINK_MQTT_HOST, UPLINK_CREDENTIALS_PATH
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with the field-proven connection timings.
func Default() *Config {
	return &Config{
		Device: DeviceConfig{
			ID: "uplink-01",
			Restart: RestartConfig{
				Mode:     "exit",
				Command:  []string{"systemctl", "reboot"},
				ExitCode: 3,
			},
		},
		Credentials: CredentialsConfig{
			Path:        "./data/uplink.db",
			Namespace:   "wifi-config",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Link: LinkConfig{
			Interface:    "wlan0",
			NMCLIBinary:  "/usr/bin/nmcli",
			MaxAttempts:  30,
			AttemptDelay: 500 * time.Millisecond,
		},
		Supervisor: SupervisorConfig{
			MaxLinkFailures: 5,
			LinkRest:        2 * time.Minute,
			PumpInterval:    10 * time.Millisecond,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:           "localhost",
				Port:           1883,
				ClientIDPrefix: "uplink-",
				ConnectTimeout: 10 * time.Second,
				KeepAlive:      15 * time.Second,
			},
			Topic: "uplink/command",
			QoS:   0,
			Retry: MQTTRetryConfig{
				MaxRetries:    5,
				RetryDelay:    5 * time.Second,
				MaxRestCycles: 5,
				RestDelay:     3 * time.Minute,
			},
		},
		Reconfig: ReconfigConfig{
			Enabled:      true,
			Chip:         "gpiochip0",
			Line:         23,
			ActiveLow:    true,
			PollInterval: 100 * time.Millisecond,
		},
		Portal: PortalConfig{
			APName:     "Uplink-Setup",
			APPassword: "password123",
			Listen:     ":80",
			Timeout:    5 * time.Minute,
		},
		Workers: WorkersConfig{
			Network:   WorkerConfig{Priority: 1, Affinity: 0},
			Reconfig:  WorkerConfig{Priority: 1, Affinity: 0},
			Main:      WorkerConfig{Priority: 1, Affinity: 1, Interval: time.Second},
			Secondary: WorkerConfig{Priority: 1, Affinity: 1, Interval: time.Second},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: UPLINK_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("UPLINK_DEVICE_ID"); v != "" {
		cfg.Device.ID = v
	}

	if v := os.Getenv("UPLINK_CREDENTIALS_PATH"); v != "" {
		cfg.Credentials.Path = v
	}

	// MQTT
	if v := os.Getenv("UPLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("UPLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("UPLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("UPLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Device.ID == "" {
		errs = append(errs, "device.id is required")
	}
	switch c.Device.Restart.Mode {
	case "exit":
	case "command":
		if len(c.Device.Restart.Command) == 0 {
			errs = append(errs, "device.restart.command is required in command mode")
		}
	default:
		errs = append(errs, "device.restart.mode must be exit or command")
	}

	if c.Credentials.Path == "" {
		errs = append(errs, "credentials.path is required")
	}
	if c.Credentials.Namespace == "" {
		errs = append(errs, "credentials.namespace is required")
	}

	if c.Link.MaxAttempts < 1 {
		errs = append(errs, "link.max_attempts must be at least 1")
	}
	if c.Link.AttemptDelay <= 0 {
		errs = append(errs, "link.attempt_delay must be positive")
	}

	if c.Supervisor.MaxLinkFailures < 1 {
		errs = append(errs, "supervisor.max_link_failures must be at least 1")
	}
	if c.Supervisor.LinkRest <= 0 {
		errs = append(errs, "supervisor.link_rest must be positive")
	}
	if c.Supervisor.PumpInterval <= 0 {
		errs = append(errs, "supervisor.pump_interval must be positive")
	}

	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.Topic == "" {
		errs = append(errs, "mqtt.topic is required")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Retry.MaxRetries < 1 {
		errs = append(errs, "mqtt.retry.max_retries must be at least 1")
	}
	if c.MQTT.Retry.MaxRestCycles < 1 {
		errs = append(errs, "mqtt.retry.max_rest_cycles must be at least 1")
	}
	if c.MQTT.Retry.RestDelay <= c.MQTT.Retry.RetryDelay {
		errs = append(errs, "mqtt.retry.rest_delay must be longer than mqtt.retry.retry_delay")
	}

	if c.Reconfig.Enabled && c.Reconfig.PollInterval <= 0 {
		errs = append(errs, "reconfig.poll_interval must be positive")
	}

	if c.Portal.APName == "" || len(c.Portal.APName) > MaxSSIDLength {
		errs = append(errs, "portal.ap_name must be 1 to 32 characters")
	}
	// WPA2 passphrases are 8 to 63 characters; an empty password opens the AP.
	if n := len(c.Portal.APPassword); n != 0 && (n < 8 || n >= MaxSecretLength) {
		errs = append(errs, "portal.ap_password must be empty or 8 to 63 characters")
	}

	if c.Workers.Main.Interval <= 0 || c.Workers.Secondary.Interval <= 0 {
		errs = append(errs, "workers.main.interval and workers.secondary.interval must be positive")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// BrokerURL returns the broker address in paho URL form.
func (c MQTTConfig) BrokerURL() string {
	return fmt.Sprintf("tcp://%s:%d", c.Broker.Host, c.Broker.Port)
}
