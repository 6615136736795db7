// Parking Lot Core - reservation service for a gated car park.
//
// The service exposes slot registration, check-in and check-out over HTTP,
// drives the gate controller, and fans committed reservation events out to
// MQTT, InfluxDB, WebSocket clients and the audit trail.
//
// Usage:
//
//	parkinglot                          run the service
//	parkinglot token --role admin       print an admin bearer token
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	_ "github.com/nerrad567/parkinglot-core/migrations"

	"github.com/nerrad567/parkinglot-core/internal/api"
	"github.com/nerrad567/parkinglot-core/internal/audit"
	"github.com/nerrad567/parkinglot-core/internal/auth"
	"github.com/nerrad567/parkinglot-core/internal/events"
	"github.com/nerrad567/parkinglot-core/internal/gate"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/config"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/database"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/logging"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/parkinglot-core/internal/parking"
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

// auditQueueSize bounds the audit recorder's backlog.
const auditQueueSize = 256

func main() {
	if len(os.Args) > 1 && os.Args[1] == "token" {
		if err := runToken(os.Args[2:], os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run wires every component and blocks until ctx is cancelled.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting Parking Lot Core",
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

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
		"lot_id", cfg.Lot.ID,
	)

	db, err := database.Open(ctx, database.Config{
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

	controller, err := gate.NewHTTPController(cfg.Gate.BaseURL, cfg.Gate.Timeout)
	if err != nil {
		return fmt.Errorf("creating gate controller: %w", err)
	}
	log.Info("gate controller configured", "base_url", controller.BaseURL(), "timeout", cfg.Gate.Timeout)

	store := parking.NewSQLiteStore(db.DB)
	engine := parking.NewEngine(store, controller)
	engine.SetLogger(log.Component("engine"))
	query := parking.NewQueryService(store)

	created, err := engine.SeedSlots(ctx, cfg.Lot.Slots)
	if err != nil {
		return fmt.Errorf("seeding slots: %w", err)
	}
	log.Info("slots ready", "configured", len(cfg.Lot.Slots), "created", created)

	// Optional outbound connections
	mqttClient, err := connectMQTT(cfg, log)
	if err != nil {
		return err
	}
	if mqttClient != nil {
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
	}

	influxClient, err := connectInfluxDB(cfg, log)
	if err != nil {
		return err
	}
	if influxClient != nil {
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
	}

	// Audit trail
	auditRepo := audit.NewSQLiteRepository(db.DB)
	recorder := audit.NewRecorder(auditRepo, auditQueueSize)
	recorder.SetLogger(log.Component("audit"))
	auditCtx, stopAudit := context.WithCancel(context.Background())
	go recorder.Run(auditCtx)
	defer func() {
		stopAudit()
		<-recorder.Done()
	}()

	// WebSocket hub shared by the API and the event bus
	hub := api.NewHub(cfg.WebSocket, log.Component("websocket"))
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)
	defer stopHub()

	// Event bus
	bus := events.NewBus(cfg.Events, log.Component("events"))
	if err := wireSinks(bus, hub, recorder, query, mqttClient, influxClient); err != nil {
		return err
	}
	if err := bus.Start(ctx); err != nil {
		return fmt.Errorf("starting event bus: %w", err)
	}
	defer func() {
		log.Info("closing event bus")
		if closeErr := bus.Close(); closeErr != nil {
			log.Error("error closing event bus", "error", closeErr)
		}
	}()
	engine.SetPublisher(bus)

	server, err := api.New(api.Deps{
		Config:    cfg.API,
		WS:        cfg.WebSocket,
		Security:  cfg.Security,
		Lot:       cfg.Lot,
		Logger:    log.Component("api"),
		Engine:    engine,
		Query:     query,
		AuditRepo: auditRepo,
		DB:        db,
		MQTT:      mqttClient,
		InfluxDB:  influxClient,
		Hub:       hub,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")
	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order: API server, event bus,
	// WebSocket hub, audit recorder, InfluxDB, MQTT, database.
	return nil
}

// getConfigPath returns the configuration file path.
// Uses PARKINGLOT_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("PARKINGLOT_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// connectMQTT returns nil when MQTT is disabled.
func connectMQTT(cfg *config.Config, log *logging.Logger) (*mqtt.Client, error) {
	if !cfg.MQTT.Enabled {
		log.Info("MQTT disabled")
		return nil, nil
	}

	client, err := mqtt.Connect(cfg.MQTT, cfg.Lot.ID)
	if err != nil {
		return nil, fmt.Errorf("connecting to MQTT: %w", err)
	}
	client.SetOnConnect(func() {
		log.Info("MQTT reconnected")
	})
	client.SetOnDisconnect(func(err error) {
		log.Warn("MQTT disconnected", "error", err)
	})
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)
	return client, nil
}

// connectInfluxDB returns nil when InfluxDB is disabled.
func connectInfluxDB(cfg *config.Config, log *logging.Logger) (*influxdb.Client, error) {
	client, err := influxdb.Connect(cfg.InfluxDB, cfg.Lot.ID)
	if errors.Is(err, influxdb.ErrDisabled) {
		log.Info("InfluxDB disabled")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to InfluxDB: %w", err)
	}
	client.SetOnError(func(err error) {
		log.Error("InfluxDB write error", "error", err)
	})
	log.Info("InfluxDB connected",
		"url", cfg.InfluxDB.URL,
		"org", cfg.InfluxDB.Org,
		"bucket", cfg.InfluxDB.Bucket,
	)
	return client, nil
}

// wireSinks attaches every available consumer to the bus.
func wireSinks(bus *events.Bus, hub *api.Hub, recorder *audit.Recorder, slots events.SlotReader, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	sinks := map[string]events.Sink{
		"websocket": events.NewBroadcastSink(hub),
		"audit":     events.NewAuditSink(recorder),
	}
	if mqttClient != nil {
		sinks["mqtt"] = events.NewMQTTSink(mqttClient, slots)
	}
	if influxClient != nil {
		sinks["influxdb"] = events.NewMetricsSink(influxClient, slots)
	}
	for name, sink := range sinks {
		if err := bus.AddSink(name, sink); err != nil {
			return fmt.Errorf("adding %s sink: %w", name, err)
		}
	}
	return nil
}

// healthCheck verifies all infrastructure connections are healthy.
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

// runToken prints a bearer token signed with the configured secret.
func runToken(args []string, out io.Writer) error {
	flagSet := pflag.NewFlagSet("parkinglot token", pflag.ContinueOnError)
	configPath := flagSet.String("config", getConfigPath(), "path to config file")
	subject := flagSet.String("subject", "admin", "token subject (who the token is for)")
	role := flagSet.String("role", string(auth.RoleAdmin), "role: operator or admin")
	ttl := flagSet.Int("ttl", 0, "lifetime in minutes (default: security.jwt.access_token_ttl)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if *ttl <= 0 {
		*ttl = cfg.Security.JWT.AccessTokenTTL
	}

	token, err := auth.GenerateToken(*subject, auth.Role(*role), cfg.Security.JWT.Secret, *ttl)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, token)
	return nil
}
