// Package api wires the chi router: middleware stack, CORS, swagger UI, and
// the sync + read-side routes.
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	corslib "github.com/rs/cors"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/kadromedya/statsync/internal/api/handler"
	"github.com/kadromedya/statsync/internal/cache"
	"github.com/kadromedya/statsync/internal/config"
	"github.com/kadromedya/statsync/internal/store"
	syncpkg "github.com/kadromedya/statsync/internal/sync"
)

// NewRouter creates and configures the chi router with all middleware and
// routes. db may be nil when no Postgres pool backs the store.
func NewRouter(st store.Store, orch *syncpkg.Orchestrator, appCache *cache.Cache, cfg *config.Config, db handler.Pinger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(TimingMiddleware)
	r.Use(middleware.Compress(5)) // gzip

	// CORS: the scheduler POSTs with a secret header, the dashboard with a
	// bearer token; both need the preflight echoed.
	c := corslib.New(corslib.Options{
		AllowedOrigins:   cfg.CORSAllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Accept-Encoding", "Authorization", "Content-Type", "If-None-Match", "x-webhook-secret"},
		ExposedHeaders:   []string{"X-Process-Time", "X-Cache", "ETag"},
		AllowCredentials: false,
	})
	r.Use(c.Handler)

	h := handler.New(st, orch, appCache, cfg, db)

	r.Get("/", h.Root)

	r.Route("/health", func(r chi.Router) {
		r.Get("/", h.HealthCheck)
		r.Get("/db", h.HealthCheckDB)
		r.Get("/cache", h.HealthCheckCache)
	})

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// Read endpoints and sync triggers get separate budgets: a trigger run
	// is far more expensive than a cached read.
	readLimited := func(r chi.Router) chi.Router { return r }
	triggerLimited := readLimited
	if cfg.RateLimitEnabled {
		readLimit := RateLimitMiddleware(cfg.RateLimitRequests, cfg.RateLimitWindow)
		triggerLimit := RateLimitMiddleware(triggerBudget(cfg.RateLimitRequests), cfg.RateLimitWindow)
		readLimited = func(r chi.Router) chi.Router { return r.With(readLimit) }
		triggerLimited = func(r chi.Router) chi.Router { return r.With(triggerLimit) }
	}

	r.Route("/api/v1", func(r chi.Router) {
		triggerLimited(r).Post("/sync/{type}", h.TriggerSync)
		readLimited(r).Get("/sync/status", h.SyncStatus)
		readLimited(r).Get("/sync/logs", h.SyncLogs)
		readLimited(r).Get("/athletes", h.ListAthletes)
	})

	return r
}
