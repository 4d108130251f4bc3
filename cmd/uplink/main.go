// Gray Logic Uplink - connectivity supervisor for gateway devices
//
// This is the main entry point for the uplink daemon. It keeps the device
// on one of two stored Wi-Fi networks, holds an MQTT session open to the
// broker, and re-provisions the networks when the reset button is held.
//
// The daemon is expected to run under a service manager that restarts it:
// when retries are exhausted it exits with the configured restart code (or
// runs the configured restart command).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/gray-logic-uplink/migrations"

	"github.com/nerrad567/gray-logic-uplink/internal/appworker"
	"github.com/nerrad567/gray-logic-uplink/internal/credentials"
	"github.com/nerrad567/gray-logic-uplink/internal/events"
	"github.com/nerrad567/gray-logic-uplink/internal/infrastructure/config"
	"github.com/nerrad567/gray-logic-uplink/internal/infrastructure/database"
	"github.com/nerrad567/gray-logic-uplink/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-uplink/internal/infrastructure/logging"
	"github.com/nerrad567/gray-logic-uplink/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-uplink/internal/link"
	"github.com/nerrad567/gray-logic-uplink/internal/portal"
	"github.com/nerrad567/gray-logic-uplink/internal/reconfig"
	"github.com/nerrad567/gray-logic-uplink/internal/restart"
	"github.com/nerrad567/gray-logic-uplink/internal/supervisor"
	"github.com/nerrad567/gray-logic-uplink/internal/transport"
	"github.com/nerrad567/gray-logic-uplink/internal/worker"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, serves until shutdown or a restart request, and
// executes the restart once every resource is closed.
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting Gray Logic Uplink",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version, cfg.Device.ID)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	err = serve(ctx, cfg, log)
	if req, ok := restart.As(err); ok {
		restarter := restart.NewRestarter(
			restart.Mode(cfg.Device.Restart.Mode),
			cfg.Device.Restart.Command,
			cfg.Device.Restart.ExitCode,
			log.Component("restart"),
		)
		// The signal context may already be done; the restart must still run.
		restarter.Restart(context.Background(), req)
		return nil
	}
	if err != nil {
		return err
	}

	log.Info("Gray Logic Uplink stopped")
	return nil
}

// serve wires the components and runs the workers until one of them ends
// the group. Resources are closed before it returns.
//
// Returns:
//   - error: nil on shutdown, a *restart.Request, or a startup error
func serve(ctx context.Context, cfg *config.Config, log *logging.Logger) error {
	db, err := database.Open(database.Config{
		Path:        cfg.Credentials.Path,
		WALMode:     cfg.Credentials.WALMode,
		BusyTimeout: cfg.Credentials.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening credential store: %w", err)
	}
	defer func() {
		log.Info("closing credential store")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing credential store", "error", closeErr)
		}
	}()

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("credential store ready", "path", cfg.Credentials.Path)

	store := credentials.NewStore(db.DB, cfg.Credentials.Namespace)

	// Telemetry (optional)
	var recorder events.Recorder = events.Nop{}
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.New(cfg.InfluxDB, cfg.Device.ID)
		if err != nil {
			return fmt.Errorf("creating InfluxDB client: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB client")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Warn("InfluxDB write error", "error", err)
		})
		recorder = influxClient
		log.Info("InfluxDB telemetry enabled", "url", cfg.InfluxDB.URL, "bucket", cfg.InfluxDB.Bucket)
	} else {
		log.Info("InfluxDB disabled")
	}

	if err := healthCheck(ctx, db, influxClient); err != nil {
		return err
	}

	radio := link.NewNMCLI(cfg.Link.NMCLIBinary, cfg.Link.Interface)

	session := mqtt.NewSession(cfg.MQTT, cfg.Device.ID)
	session.SetLogger(log.Component("mqtt"))

	// The reset input is optional hardware; without it the device still
	// supervises connectivity.
	var input *reconfig.GPIOInput
	if cfg.Reconfig.Enabled {
		input, err = reconfig.OpenGPIO(cfg.Reconfig.Chip, cfg.Reconfig.Line)
		if err != nil {
			log.Warn("reset input unavailable, reconfiguration disabled",
				"chip", cfg.Reconfig.Chip,
				"line", cfg.Reconfig.Line,
				"error", err,
			)
			input = nil
		} else {
			defer input.Close()
		}
	}

	group := worker.NewGroup(ctx, log.Component("worker"))
	handles, err := registerWorkers(group, cfg, input != nil)
	if err != nil {
		return err
	}

	sup, err := buildSupervisor(cfg, log, recorder, store, radio, session, handles.network)
	if err != nil {
		return err
	}
	group.Go(handles.network, sup.Run)

	if input != nil {
		p := portal.New(radio, portal.Config{Listen: cfg.Portal.Listen, Timeout: cfg.Portal.Timeout})
		p.SetLogger(log.Component("portal"))

		mon, err := reconfig.NewMonitor(reconfig.Config{
			PollInterval: cfg.Reconfig.PollInterval,
			ActiveLow:    cfg.Reconfig.ActiveLow,
			APName:       cfg.Portal.APName,
			APPassword:   cfg.Portal.APPassword,
		}, reconfig.Deps{
			Input:     input,
			Suspender: group,
			Self:      handles.reconfig,
			Store:     store,
			Portal:    p,
		})
		if err != nil {
			return err
		}
		mon.SetLogger(log.Component("reconfig"))
		mon.SetRecorder(recorder)
		group.Go(handles.reconfig, mon.Run)
	}

	mainTask := appworker.NewTicker("main", cfg.Workers.Main.Interval, handles.main,
		appworker.Heartbeat(recorder, "main"))
	mainTask.SetLogger(log.Component("main"))
	group.Go(handles.main, mainTask.Run)

	statusLog := log.Component("secondary")
	secondaryTask := appworker.NewTicker("secondary", cfg.Workers.Secondary.Interval, handles.secondary,
		appworker.StatusReport(statusLog,
			appworker.Probe{Name: "state", Value: func() any { return sup.State().String() }},
			appworker.Probe{Name: "link_failures", Value: func() any { return sup.Failures() }},
			appworker.Probe{Name: "mqtt_state", Value: func() any { return session.State() }},
			appworker.Probe{Name: "client_id", Value: func() any { return session.ClientID() }},
		))
	secondaryTask.SetLogger(statusLog)
	group.Go(handles.secondary, secondaryTask.Run)

	log.Info("Gray Logic Uplink started", "workers", group.Names())

	err = group.Wait()
	if _, ok := restart.As(err); ok {
		return err
	}
	if ctx.Err() != nil {
		log.Info("shutdown signal received")
		return nil
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("worker failed: %w", err)
	}
	return nil
}

// workerHandles are the registered workers. reconfig is nil when the reset
// input is disabled or could not be opened.
type workerHandles struct {
	network   *worker.Handle
	reconfig  *worker.Handle
	main      *worker.Handle
	secondary *worker.Handle
}

func registerWorkers(group *worker.Group, cfg *config.Config, withReconfig bool) (workerHandles, error) {
	var h workerHandles
	var err error

	spec := func(name string, wc config.WorkerConfig) worker.Spec {
		return worker.Spec{Name: name, Priority: wc.Priority, Affinity: wc.Affinity}
	}

	if h.network, err = group.Register(spec("network", cfg.Workers.Network)); err != nil {
		return h, err
	}
	if withReconfig {
		if h.reconfig, err = group.Register(spec("reconfig", cfg.Workers.Reconfig)); err != nil {
			return h, err
		}
	}
	if h.main, err = group.Register(spec("main", cfg.Workers.Main)); err != nil {
		return h, err
	}
	if h.secondary, err = group.Register(spec("secondary", cfg.Workers.Secondary)); err != nil {
		return h, err
	}
	return h, nil
}

// buildSupervisor wires the link connector, the transport reconnector and
// the supervisor onto the network worker.
func buildSupervisor(
	cfg *config.Config,
	log *logging.Logger,
	recorder events.Recorder,
	store *credentials.Store,
	radio *link.NMCLI,
	session *mqtt.Session,
	self *worker.Handle,
) (*supervisor.Supervisor, error) {
	connector := link.NewConnector(radio, self)
	connector.SetLogger(log.Component("link"))
	connector.SetRecorder(recorder)

	reconnector, err := transport.NewReconnector(transport.Policy{
		MaxRetries:    cfg.MQTT.Retry.MaxRetries,
		RetryDelay:    cfg.MQTT.Retry.RetryDelay,
		MaxRestCycles: cfg.MQTT.Retry.MaxRestCycles,
		RestDelay:     cfg.MQTT.Retry.RestDelay,
	}, transport.Credentials{
		User:   cfg.MQTT.Auth.Username,
		Secret: cfg.MQTT.Auth.Password,
		Topic:  cfg.MQTT.Topic,
	}, cfg.MQTT.Broker.ClientIDPrefix, self)
	if err != nil {
		return nil, fmt.Errorf("creating reconnector: %w", err)
	}
	reconnector.SetLogger(log.Component("transport"))
	reconnector.SetRecorder(recorder)

	sup, err := supervisor.New(supervisor.Config{
		MaxAttempts:     cfg.Link.MaxAttempts,
		AttemptDelay:    cfg.Link.AttemptDelay,
		MaxLinkFailures: cfg.Supervisor.MaxLinkFailures,
		LinkRest:        cfg.Supervisor.LinkRest,
		PumpInterval:    cfg.Supervisor.PumpInterval,
	}, supervisor.Deps{
		Store:       store,
		Radio:       radio,
		Connector:   connector,
		Reconnector: reconnector,
		Session:     session,
		Sleeper:     self,
	})
	if err != nil {
		return nil, fmt.Errorf("creating supervisor: %w", err)
	}
	sup.SetLogger(log.Component("supervisor"))
	sup.SetRecorder(recorder)
	return sup, nil
}

// getConfigPath returns the configuration file path.
// Checks UPLINK_CONFIG environment variable first, falls back to default.
func getConfigPath() string {
	if path := os.Getenv("UPLINK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies local infrastructure at startup. The credential
// store must be usable; InfluxDB is usually unreachable this early and is
// not checked.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Credential store database
//   - influxClient: InfluxDB client (may be nil if disabled)
//
// Returns:
//   - error: nil if healthy
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if db == nil {
		return fmt.Errorf("credential store not open")
	}
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("credential store health check: %w", err)
	}
	if influxClient != nil && !influxClient.IsOpen() {
		return fmt.Errorf("InfluxDB client closed")
	}
	return nil
}
