package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/parkinglot-core/internal/auth"
)

// healthCheckTimeout bounds each dependency probe in /api/v1/health.
const healthCheckTimeout = 2 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Reservation routes (no auth; plate and code are the capability)
	r.Get("/slots", s.handleListSlots)
	r.Post("/register", s.handleRegister)
	r.Post("/checkin", s.handleCheckIn)
	r.Post("/checkout", s.handleCheckOut)
	r.Get("/logs", s.handleListLogs)
	r.Post("/status", s.handleStatus)

	// Live events (token checked before upgrade)
	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.With(s.authMiddleware).Get(wsPath, s.handleWebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.With(s.requirePermission(auth.PermSlotsManage)).Post("/slots", s.handleCreateSlot)
			r.With(s.requirePermission(auth.PermAuditRead)).Get("/audit", s.handleListAuditLogs)
		})
	})

	return r
}

// handleHealth reports the server and its database. Returns 503 when the
// database probe fails.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]any{
		"status":  "ok",
		"version": s.version,
		"lot":     s.lot.ID,
	}

	if s.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := s.db.HealthCheck(ctx); err != nil {
			s.logger.Warn("database health check failed", "error", err)
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["database"] = "unreachable"
		} else {
			body["database"] = "ok"
		}
	}

	writeJSON(w, status, body)
}
