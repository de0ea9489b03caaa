// Hearth Core - Reactive Home Monitoring Gateway
//
// This is the main entry point for the Hearth Core application. Hearth runs
// user-supplied monitor scripts against a live device inventory:
//   - Devices are bridged over MQTT (state in, commands out)
//   - Each monitor watches device inputs and fires rules on rising edges
//   - Firings are persisted to SQLite and optionally mirrored to InfluxDB
//   - A REST/WebSocket API manages monitors and streams events
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/hearthlabs/hearth-core/internal/api"
	"github.com/hearthlabs/hearth-core/internal/bridges/mqttenv"
	"github.com/hearthlabs/hearth-core/internal/device"
	"github.com/hearthlabs/hearth-core/internal/infrastructure/config"
	"github.com/hearthlabs/hearth-core/internal/infrastructure/database"
	"github.com/hearthlabs/hearth-core/internal/infrastructure/influxdb"
	"github.com/hearthlabs/hearth-core/internal/infrastructure/logging"
	"github.com/hearthlabs/hearth-core/internal/infrastructure/mqtt"
	"github.com/hearthlabs/hearth-core/internal/monitor"
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
	// Create a context that cancels on interrupt signals (Ctrl+C, SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Run the application
	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// Returning an error allows main to handle exit codes consistently.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Hearth Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Firing log repository (owns its own schema)
	firingRepo, err := monitor.NewSQLiteFiringRepository(db.DB)
	if err != nil {
		return fmt.Errorf("initialising firing repository: %w", err)
	}

	// Load device inventory
	registry := device.NewRegistry()
	registry.SetLogger(log.Component("devices"))
	if err := registry.LoadFile(cfg.Devices.Inventory); err != nil {
		return fmt.Errorf("loading device inventory: %w", err)
	}
	log.Info("device inventory loaded",
		"path", cfg.Devices.Inventory,
		"devices", registry.Count(),
	)
	binding := device.NewBinding(registry)

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(ctx, cfg.MQTT, mqtt.WithLogger(log.Component("mqtt")))
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	// Set up MQTT logging callbacks
	mqttClient.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	mqttClient.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(ctx, cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)

		// Set up InfluxDB error callback
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
	} else {
		log.Info("InfluxDB disabled")
	}

	// Device environment: watches and commands travel over the broker
	env := mqttenv.New(mqttClient, binding,
		mqttenv.WithQoS(byte(cfg.MQTT.QoS)),
		mqttenv.WithLogger(log.Component("bridge")),
	)
	defer func() {
		if closeErr := env.Close(); closeErr != nil {
			log.Error("error closing device environment", "error", closeErr)
		}
	}()

	// WebSocket hub, shared between the API server and the manager's
	// event sink so monitor events reach connected clients.
	apiLog := log.Component("api")
	hub := api.NewHub(cfg.WebSocket, apiLog)
	go hub.Run(ctx)

	// Monitor manager
	hooks := monitor.Hooks{
		Logger:  log.Component("monitor"),
		Events:  hub,
		Firings: firingRepo,
	}
	if influxClient != nil {
		hooks.Telemetry = influxClient
	}
	manager := monitor.NewManager(monitor.NewEnvBinder(binding), env, hooks)
	defer func() {
		log.Info("stopping monitors")
		if closeErr := manager.Close(); closeErr != nil {
			log.Error("error stopping monitors", "error", closeErr)
		}
	}()

	// Autoload scripts from the configured directory
	if cfg.Engine.ScriptsDir != "" {
		if err := loadScripts(ctx, cfg.Engine, manager, log); err != nil {
			return fmt.Errorf("loading scripts: %w", err)
		}
	}

	// Start API server
	apiServer, err := api.New(api.Deps{
		Config:      cfg.API,
		WS:          cfg.WebSocket,
		Logger:      apiLog,
		Manager:     manager,
		Firings:     firingRepo,
		ExternalHub: hub,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server started", "host", cfg.API.Host, "port", cfg.API.Port)

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	// Wait for shutdown signal
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls will run in reverse order:
	// 1. API server
	// 2. Monitor manager
	// 3. Device environment
	// 4. InfluxDB (if enabled)
	// 5. MQTT
	// 6. Database

	log.Info("Hearth Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses HEARTH_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("HEARTH_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// loadScripts registers every *.json script document found in the scripts
// directory, named after its file. With auto_start enabled, each registered
// monitor is started immediately; a monitor that fails to compile is logged
// and left idle rather than aborting startup.
func loadScripts(ctx context.Context, cfg config.EngineConfig, manager *monitor.Manager, log *logging.Logger) error {
	entries, err := os.ReadDir(cfg.ScriptsDir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn("scripts directory does not exist, skipping autoload", "path", cfg.ScriptsDir)
			return nil
		}
		return fmt.Errorf("reading scripts directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		path := filepath.Join(cfg.ScriptsDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading script %s: %w", path, err)
		}

		script, err := monitor.ParseScript(data)
		if err != nil {
			return fmt.Errorf("parsing script %s: %w", path, err)
		}

		name := strings.TrimSuffix(entry.Name(), ".json")
		if err := manager.Register(name, script); err != nil {
			return fmt.Errorf("registering monitor %s: %w", name, err)
		}
		loaded++

		if cfg.AutoStart {
			if err := manager.Start(ctx, name); err != nil {
				log.Error("monitor failed to start, leaving idle",
					"monitor", name,
					"error", err,
				)
			}
		}
	}

	log.Info("scripts loaded", "count", loaded, "auto_start", cfg.AutoStart)
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//   - db: Database connection to check
//   - mqttClient: MQTT client to check
//   - influxClient: InfluxDB client to check (may be nil if disabled)
//
// Returns:
//   - error: First health check failure, or nil if all healthy
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	// Check database
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	// Check MQTT
	if err := mqttClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}

	// Check InfluxDB (if enabled)
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
