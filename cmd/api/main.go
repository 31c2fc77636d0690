// Command api is the Statsync HTTP service: sync triggers for the scheduler
// and the admin dashboard, plus read-side status endpoints.
//
// Usage:
//
//	statsync-api
//	API_PORT=8080 statsync-api

// @title Statsync API
// @version 1.0.0
// @description Athlete stats ingestion service: scheduled sync triggers, sync status, and the tracked roster.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @license.name MIT
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/kadromedya/statsync/internal/api"
	"github.com/kadromedya/statsync/internal/auth"
	"github.com/kadromedya/statsync/internal/cache"
	"github.com/kadromedya/statsync/internal/config"
	"github.com/kadromedya/statsync/internal/cooldown"
	"github.com/kadromedya/statsync/internal/db"
	"github.com/kadromedya/statsync/internal/store"
	syncpkg "github.com/kadromedya/statsync/internal/sync"

	_ "github.com/kadromedya/statsync/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	logger.Info("Connecting to database...")
	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	logger.Info("Database connected",
		"min_conns", cfg.DBPoolMinConns,
		"max_conns", cfg.DBPoolMaxConns)

	st := store.NewPostgres(pool.Pool)
	appCache := cache.New(cfg.CacheEnabled)

	var verifier auth.TokenVerifier
	if cfg.AuthBaseURL != "" {
		verifier = auth.NewHTTPVerifier(cfg.AuthBaseURL, cfg.AuthServiceKey)
	} else {
		logger.Warn("AUTH_BASE_URL not set, bearer-token triggers disabled")
	}
	gate := auth.NewGate(cfg.WebhookSecret, verifier, st, logger)
	guard := cooldown.NewGuard(st, logger)

	providers := syncpkg.NewProvidersFromConfig(cfg, logger)
	orch := syncpkg.New(st, gate, guard, cfg, providers, logger)

	router := api.NewRouter(st, orch, appCache, cfg, pool)

	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // sync triggers iterate the full roster
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting Statsync API",
			"addr", addr,
			"environment", cfg.Environment,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
