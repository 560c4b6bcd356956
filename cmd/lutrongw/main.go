// Lutron MQTT Gateway
//
// This is the main entry point for the gateway. It connects to the MQTT
// broker embedded in a Lutron-style lighting hub, keeps a local registry of
// the hub's devices in sync, and exposes them over a REST and WebSocket API.
//
// Startup order: configuration, logging, SQLite snapshot store, optional
// InfluxDB telemetry, hub endpoint (configured or discovered over mDNS),
// engine, API server. Shutdown runs in reverse.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/nerrad567/lutron-mqtt-gateway/migrations"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/api"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/bridges/lutron"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/discovery"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/config"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/database"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/influxdb"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/logging"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
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

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Lutron gateway",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"path", configPath,
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open the device snapshot store
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database ready", "path", cfg.Database.Path)

	registry := device.NewRegistry()
	snapshot := lutron.NewSnapshotListener(device.NewSQLiteRepository(db.DB), log.Component("snapshot"))
	restored, err := snapshot.Restore(ctx, registry)
	if err != nil {
		return fmt.Errorf("restoring device snapshot: %w", err)
	}
	log.Info("device snapshot restored", "devices", restored)

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	var telemetry *lutron.TelemetryListener
	if cfg.InfluxDB.Enabled {
		var influxErr error
		influxClient, influxErr = influxdb.Connect(ctx, cfg.InfluxDB)
		if influxErr != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", influxErr)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		telemetry = lutron.NewTelemetryListener(influxClient)
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	if healthErr := healthCheck(ctx, db, influxClient); healthErr != nil {
		return fmt.Errorf("health check failed: %w", healthErr)
	}
	checks := map[string]api.HealthChecker{"database": db}
	if influxClient != nil {
		checks["influxdb"] = influxClient
	}

	brokerURL, err := resolveBroker(ctx, cfg, log)
	if err != nil {
		return err
	}

	// The WebSocket hub exists before the engine so it sees the first
	// status report.
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	sinks := lutron.NewMultiStatusSink(hub)
	var remote func(ev lutron.RemoteEvent)
	if telemetry != nil {
		sinks.Add(telemetry)
		remote = telemetry.HandleRemote
	}

	engineLog := log.Component("lutron")
	engine, err := lutron.New(lutron.Options{
		Config:        cfg,
		Dialer:        lutron.NewMQTTDialer(cfg.Hub, engineLog),
		BrokerURL:     brokerURL,
		Registry:      registry,
		StatusSink:    sinks,
		RemoteHandler: remote,
		Logger:        engineLog,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	engine.RegisterListener(snapshot)
	engine.RegisterListener(hub)
	if telemetry != nil {
		engine.RegisterListener(telemetry)
	}

	server, err := api.New(api.Deps{
		Config:  cfg.API,
		WS:      cfg.WebSocket,
		Logger:  log.Component("api"),
		Gateway: engine,
		Hub:     hub,
		Version: version,
		Checks:  checks,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if startErr := engine.Start(ctx); startErr != nil {
		// The API stays up so the configuration error is visible in /status.
		log.Error("hub connection not started", "error", startErr)
	}
	defer engine.Stop()

	log.Info("initialisation complete, waiting for shutdown signal",
		"broker", brokerURL,
		"api", server.Addr(),
	)

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses LUTRONGW_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("LUTRONGW_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies the local infrastructure before the hub is dialled.
// influxClient may be nil when telemetry is disabled. The hub itself is
// reported through the engine's own health once it connects.
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// resolveBroker returns the configured hub URL, or browses mDNS for one
// when none is configured.
func resolveBroker(ctx context.Context, cfg *config.Config, log *logging.Logger) (string, error) {
	if cfg.Hub.URL != "" {
		return cfg.Hub.URL, nil
	}

	browser := discovery.NewBrowser(cfg.Discovery, log.Component("discovery"))
	hub, err := browser.FindHub(ctx)
	if err != nil {
		return "", fmt.Errorf("discovering hub: %w", err)
	}
	url := hub.BrokerURL()
	log.Info("hub discovered", "instance", hub.Instance, "uuid", hub.UUID, "broker", url)
	return url, nil
}
