// Package handler provides HTTP handlers for the sync trigger and the
// read-side endpoints the admin dashboard uses.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/kadromedya/statsync/internal/api/respond"
	"github.com/kadromedya/statsync/internal/cache"
	"github.com/kadromedya/statsync/internal/config"
	"github.com/kadromedya/statsync/internal/store"
	syncpkg "github.com/kadromedya/statsync/internal/sync"
)

// Pinger checks storage connectivity. Satisfied by db.Pool; nil when the
// handlers run over a non-Postgres store in tests.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// Handler holds shared dependencies for all endpoint handlers.
type Handler struct {
	store store.Store
	orch  *syncpkg.Orchestrator
	cache *cache.Cache
	cfg   *config.Config
	db    Pinger
}

// New creates a Handler with shared dependencies.
func New(st store.Store, orch *syncpkg.Orchestrator, c *cache.Cache, cfg *config.Config, db Pinger) *Handler {
	return &Handler{
		store: st,
		orch:  orch,
		cache: c,
		cfg:   cfg,
		db:    db,
	}
}

// Root serves API info at /.
// @Summary API root info
// @Description Returns API name, version, and status.
// @Tags meta
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Statsync API",
		"version": "1.0.0",
		"status":  "running",
		"docs":    "/docs",
	})
}

// HealthCheck returns basic health status.
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health [get]
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HealthCheckDB verifies database connectivity.
// @Summary Database health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} respond.ErrorResponse
// @Router /health/db [get]
func (h *Handler) HealthCheckDB(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		respond.Error(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "database not configured")
		return
	}
	if err := h.db.HealthCheck(r.Context()); err != nil {
		respond.Error(w, http.StatusServiceUnavailable, "DB_UNAVAILABLE", "database unreachable")
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"status": "healthy", "database": "connected"})
}

// HealthCheckCache reports cache statistics.
// @Summary Cache health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /health/cache [get]
func (h *Handler) HealthCheckCache(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, h.cache.Stats())
}
