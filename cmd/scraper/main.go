// Command scraper is the standalone market-data scrape service. It runs the
// transfermarkt sync on a cron schedule, keeping the slow, politeness-delayed
// page visits out of the API service's process.
//
// Usage:
//
//	statsync-scraper                      # default schedule, 04:00 daily
//	SCRAPER_SCHEDULE="0 */6 * * *" statsync-scraper
//	statsync-scraper --once               # single run, then exit
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/kadromedya/statsync/internal/auth"
	"github.com/kadromedya/statsync/internal/config"
	"github.com/kadromedya/statsync/internal/cooldown"
	"github.com/kadromedya/statsync/internal/db"
	"github.com/kadromedya/statsync/internal/store"
	syncpkg "github.com/kadromedya/statsync/internal/sync"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	_ = godotenv.Load(".env")

	once := flag.Bool("once", false, "run a single scrape cycle and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.WebhookSecret == "" {
		logger.Error("SYNC_WEBHOOK_SECRET is required")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	pool, err := db.New(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	st := store.NewPostgres(pool.Pool)
	gate := auth.NewGate(cfg.WebhookSecret, nil, st, logger)
	guard := cooldown.NewGuard(st, logger)
	orch := syncpkg.New(st, gate, guard, cfg, syncpkg.NewProvidersFromConfig(cfg, logger), logger)

	runScrape := func() {
		out := orch.Run(ctx, config.SyncTransfermarkt, auth.Credentials{WebhookSecret: cfg.WebhookSecret})
		switch {
		case out.Skipped:
			logger.Info("Scrape skipped", "reason", out.Reason, "wait_seconds", out.WaitSeconds)
		case out.Result != nil:
			logger.Info("Scrape finished",
				"status", out.Result.Status(),
				"processed", out.Result.Processed,
				"succeeded", out.Result.Succeeded,
				"failed", out.Result.Failed())
		default:
			logger.Error("Scrape failed", "reason", out.Reason)
		}
	}

	if *once {
		runScrape()
		return
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.ScraperSchedule, runScrape); err != nil {
		logger.Error("Invalid scraper schedule", "schedule", cfg.ScraperSchedule, "error", err)
		os.Exit(1)
	}

	logger.Info("Scraper scheduled", "schedule", cfg.ScraperSchedule)
	scheduler.Start()

	<-ctx.Done()
	logger.Info("Shutting down...")
	<-scheduler.Stop().Done()
	logger.Info("Scraper stopped")
}
