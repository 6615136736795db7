package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/parkinglot-core/internal/audit"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/config"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/logging"
	"github.com/nerrad567/parkinglot-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/parkinglot-core/internal/parking"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Database is the slice of *database.DB the server reports on.
type Database interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    config.APIConfig
	WS        config.WebSocketConfig
	Security  config.SecurityConfig
	Lot       config.LotConfig
	Logger    *logging.Logger
	Engine    *parking.Engine
	Query     *parking.QueryService
	AuditRepo audit.Repository // optional: admin audit route returns 500 without it
	DB        Database         // optional: health and metrics report it when set
	MQTT      *mqtt.Client     // optional
	InfluxDB  *influxdb.Client // optional
	Hub       *Hub             // If set, the server uses this hub instead of creating its own
	Version   string
}

// Server is the HTTP API server for the parking lot.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	secCfg    config.SecurityConfig
	lot       config.LotConfig
	logger    *logging.Logger
	engine    *parking.Engine
	query     *parking.QueryService
	auditRepo audit.Repository
	db        Database
	mqtt      *mqtt.Client
	influx    *influxdb.Client
	version   string
	startTime time.Time

	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("reservation engine is required")
	}
	if deps.Query == nil {
		return nil, fmt.Errorf("query service is required")
	}

	s := &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		secCfg:    deps.Security,
		lot:       deps.Lot,
		logger:    deps.Logger,
		engine:    deps.Engine,
		query:     deps.Query,
		auditRepo: deps.AuditRepo,
		db:        deps.DB,
		mqtt:      deps.MQTT,
		influx:    deps.InfluxDB,
		version:   deps.Version,
		startTime: time.Now(),
	}

	// The event bus broadcasts through the same hub, so main creates it first.
	if deps.Hub != nil {
		s.hub = deps.Hub
		s.externalHub = true
	}

	return s, nil
}

// Handler builds the router. Start uses it; tests drive it with httptest.
func (s *Server) Handler() http.Handler {
	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	return s.buildRouter()
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
