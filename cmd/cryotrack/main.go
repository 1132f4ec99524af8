// CryoTrack Core - Cryogenic Cylinder Monitoring
//
// This is the main entry point for the CryoTrack Core service. It ingests
// telemetry from ESP sensor modules mounted on cryogenic gas cylinders,
// maintains the cylinder registry with two-point calibration, and serves
// the web API used by the monitoring UI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/cryotrack/cryotrack-core/migrations"

	"github.com/cryotrack/cryotrack-core/internal/api"
	"github.com/cryotrack/cryotrack-core/internal/auth"
	"github.com/cryotrack/cryotrack-core/internal/calibration"
	"github.com/cryotrack/cryotrack-core/internal/cylinder"
	"github.com/cryotrack/cryotrack-core/internal/infrastructure/config"
	"github.com/cryotrack/cryotrack-core/internal/infrastructure/database"
	"github.com/cryotrack/cryotrack-core/internal/infrastructure/influxdb"
	"github.com/cryotrack/cryotrack-core/internal/infrastructure/logging"
	"github.com/cryotrack/cryotrack-core/internal/infrastructure/mqtt"
	"github.com/cryotrack/cryotrack-core/internal/telemetry"
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
	// Cancel on interrupt signals (Ctrl+C, SIGTERM) for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting CryoTrack Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

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

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Cylinder registry: repositories, per-name locks, access-controlled store.
	// The lock set is shared with the telemetry service so device check-ins
	// and web operations on the same cylinder serialize.
	cylinderRepo := cylinder.NewSQLiteRepository(db.DB)
	historyRepo := cylinder.NewSQLiteHistoryRepository(db.DB)
	eventRepo := calibration.NewSQLiteEventRepository(db.DB)
	locks := cylinder.NewKeyedMutex()

	store := cylinder.NewStore(cylinderRepo, historyRepo, eventRepo, locks)
	store.SetLogger(log)

	// Authentication: user accounts, login rate limiting, legacy fallback
	userRepo := auth.NewUserRepository(db.DB)

	var limiter *auth.RateLimiter
	if cfg.Security.RateLimit.Enabled {
		limiter = auth.NewRateLimiter(cfg.Security.RateLimit.MaxFailures, cfg.RateLimitWindow())
	}

	authenticator := auth.NewAuthenticator(userRepo, limiter, cfg.Security.LegacyPasswordFile, log.Logger)

	// First run on an empty database seeds an admin account and logs its
	// generated password once.
	if _, seedErr := auth.SeedAdmin(ctx, userRepo, log.Logger); seedErr != nil {
		return fmt.Errorf("seeding admin account: %w", seedErr)
	}

	// Telemetry ingest for device provisioning and check-ins
	telemetrySvc := telemetry.NewService(cylinderRepo, historyRepo, store, authenticator, locks)
	telemetrySvc.SetLogger(log)

	// Connect to MQTT broker (optional fan-out of stored check-ins)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
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

		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})

		telemetrySvc.AddSink(telemetry.NewMQTTSink(mqttClient, log))
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional time-series mirror of check-ins)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
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

		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})

		telemetrySvc.AddSink(telemetry.NewInfluxSink(influxClient, log))
	} else {
		log.Info("InfluxDB disabled")
	}

	// HTTP server: device module endpoint plus the web API
	server, err := api.New(api.Deps{
		Config:    cfg.API,
		Security:  cfg.Security,
		Logger:    log,
		Store:     store,
		Telemetry: telemetrySvc,
		Auth:      authenticator,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if startErr := server.Start(ctx); startErr != nil {
		return fmt.Errorf("starting API server: %w", startErr)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error stopping API server", "error", closeErr)
		}
	}()

	// Verify all connections are healthy
	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. InfluxDB (if enabled)
	// 3. MQTT (if enabled)
	// 4. Database

	log.Info("CryoTrack Core stopped")
	return nil
}

// getConfigPath returns the configuration file path.
// Uses CRYOTRACK_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("CRYOTRACK_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
