// Command sync runs sync-types from a shell or cron, bypassing HTTP. The
// run is authorized with the configured webhook secret, so it follows the
// exact same gate and cooldown path as a scheduler trigger.
//
// Usage:
//
//	statsync-sync run football_stats
//	statsync-sync run live_matches --force
//	statsync-sync list
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kadromedya/statsync/internal/auth"
	"github.com/kadromedya/statsync/internal/config"
	"github.com/kadromedya/statsync/internal/cooldown"
	"github.com/kadromedya/statsync/internal/db"
	"github.com/kadromedya/statsync/internal/store"
	syncpkg "github.com/kadromedya/statsync/internal/sync"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "statsync-sync",
		Short: "Statsync ingestion CLI",
	}
	root.AddCommand(runCmd())
	root.AddCommand(listCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "run <sync-type>",
		Short: "Run one sync-type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			syncType := args[0]

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.WebhookSecret == "" {
				return fmt.Errorf("SYNC_WEBHOOK_SECRET is required")
			}
			if force {
				// Zeroing the cooldown lets an operator re-run immediately
				// after a partial failure.
				cfg.Cooldowns[syncType] = 0
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			pool, err := db.New(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect database: %w", err)
			}
			defer pool.Close()

			st := store.NewPostgres(pool.Pool)
			gate := auth.NewGate(cfg.WebhookSecret, nil, st, logger)
			guard := cooldown.NewGuard(st, logger)
			orch := syncpkg.New(st, gate, guard, cfg, syncpkg.NewProvidersFromConfig(cfg, logger), logger)

			out := orch.Run(ctx, syncType, auth.Credentials{WebhookSecret: cfg.WebhookSecret})
			switch {
			case out.Skipped:
				logger.Info("Sync skipped", "sync_type", syncType, "reason", out.Reason, "wait_seconds", out.WaitSeconds)
			case out.Result != nil:
				logger.Info("Sync finished",
					"sync_type", syncType,
					"status", out.Result.Status(),
					"processed", out.Result.Processed,
					"succeeded", out.Result.Succeeded,
					"failed", out.Result.Failed())
				for _, e := range out.Result.LoggedErrors() {
					logger.Error("sync error", "error", e)
				}
			default:
				return fmt.Errorf("sync failed: %s", out.Reason)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Ignore the cooldown for this run")
	return cmd
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List known sync-types and their cooldowns",
		Run: func(cmd *cobra.Command, args []string) {
			for _, syncType := range config.SyncTypes {
				fmt.Printf("%-18s cooldown %s\n", syncType, config.DefaultCooldowns[syncType])
			}
			fmt.Printf("\nrun one with: statsync-sync run <%s>\n", strings.Join(config.SyncTypes[:2], "|"))
		},
	}
}
