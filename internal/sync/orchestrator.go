// Package sync runs the per-type ingestion pipelines: authorize the
// trigger, consult the cooldown, iterate the tracked roster against the
// relevant source adapter, upsert results, and write one audit-log row.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kadromedya/statsync/internal/auth"
	"github.com/kadromedya/statsync/internal/config"
	"github.com/kadromedya/statsync/internal/cooldown"
	"github.com/kadromedya/statsync/internal/external"
	"github.com/kadromedya/statsync/internal/provider/apifootball"
	"github.com/kadromedya/statsync/internal/provider/bdl"
	"github.com/kadromedya/statsync/internal/provider/espn"
	"github.com/kadromedya/statsync/internal/provider/transfermarkt"
	"github.com/kadromedya/statsync/internal/store"
)

// Providers bundles the source adapters. A nil adapter means its API key is
// not configured; the corresponding sync-types fail with a configuration
// error rather than emitting unauthenticated upstream calls.
type Providers struct {
	Football      *apifootball.Handler
	NBA           *bdl.Handler
	Hollinger     *espn.Handler
	Transfermarkt *transfermarkt.Scraper
	News          *external.NewsService
}

// Outcome is the result of one trigger, ready to render as an HTTP response.
type Outcome struct {
	SyncType    string
	HTTPStatus  int
	Success     bool
	Skipped     bool
	Reason      string
	WaitSeconds int
	AuthMethod  string
	Result      *Result
}

// Orchestrator runs sync-types end to end.
type Orchestrator struct {
	store     store.Store
	gate      *auth.Gate
	guard     *cooldown.Guard
	cfg       *config.Config
	providers Providers
	logger    *slog.Logger

	// injectable clock
	now func() time.Time
}

// New creates an orchestrator.
func New(st store.Store, gate *auth.Gate, guard *cooldown.Guard, cfg *config.Config, providers Providers, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:     st,
		gate:      gate,
		guard:     guard,
		cfg:       cfg,
		providers: providers,
		logger:    logger,
		now:       time.Now,
	}
}

// Run executes one sync invocation: authorize, check cooldown, dispatch, and
// write the audit row. Every completed batch writes exactly one SyncLog.
func (o *Orchestrator) Run(ctx context.Context, syncType string, creds auth.Credentials) Outcome {
	decision := o.gate.Check(ctx, creds)
	if !decision.Authorized {
		o.logger.Warn("sync trigger rejected", "sync_type", syncType, "reason", decision.Reason)
		return Outcome{SyncType: syncType, HTTPStatus: http.StatusUnauthorized, Reason: decision.Reason}
	}

	run, ok := o.dispatch(syncType)
	if !ok {
		return Outcome{SyncType: syncType, HTTPStatus: http.StatusNotFound, Reason: "unknown sync type"}
	}

	now := o.now()
	cd := o.guard.Check(ctx, syncType, o.cfg.Cooldown(syncType), now)
	if !cd.CanRun {
		o.logger.Info("sync skipped, cooldown active", "sync_type", syncType, "wait_seconds", cd.WaitSeconds)
		return Outcome{
			SyncType:    syncType,
			HTTPStatus:  http.StatusOK,
			Success:     true,
			Skipped:     true,
			Reason:      "cooldown active",
			WaitSeconds: cd.WaitSeconds,
			AuthMethod:  decision.Method,
		}
	}

	o.logger.Info("sync starting", "sync_type", syncType, "auth_method", decision.Method)
	started := now

	result, skipReason, err := run(ctx)
	duration := o.now().Sub(started)

	if skipReason != "" {
		o.logger.Info("sync skipped", "sync_type", syncType, "reason", skipReason)
		return Outcome{
			SyncType:   syncType,
			HTTPStatus: http.StatusOK,
			Success:    true,
			Skipped:    true,
			Reason:     skipReason,
			AuthMethod: decision.Method,
		}
	}

	if err != nil {
		// Fatal before or outside the athlete loop: missing configuration or
		// unreachable storage. Still attempt to record the failure.
		o.logger.Error("sync failed", "sync_type", syncType, "error", err)
		o.writeLog(ctx, syncType, store.SyncStatusError, decision, &Result{Errors: []string{err.Error()}}, duration)
		return Outcome{
			SyncType:   syncType,
			HTTPStatus: http.StatusInternalServerError,
			Reason:     err.Error(),
			AuthMethod: decision.Method,
		}
	}

	status := result.Status()
	o.writeLog(ctx, syncType, status, decision, result, duration)
	o.logger.Info("sync finished",
		"sync_type", syncType,
		"status", status,
		"processed", result.Processed,
		"succeeded", result.Succeeded,
		"failed", result.Failed(),
		"duration", duration.Round(time.Millisecond),
	)

	return Outcome{
		SyncType:   syncType,
		HTTPStatus: http.StatusOK,
		Success:    status != store.SyncStatusError,
		AuthMethod: decision.Method,
		Result:     result,
	}
}

// runFunc executes one sync-type's batch. A non-empty skip reason means the
// run short-circuited before touching any external API.
type runFunc func(ctx context.Context) (result *Result, skipReason string, err error)

func (o *Orchestrator) dispatch(syncType string) (runFunc, bool) {
	switch syncType {
	case config.SyncFootballStats:
		return o.runFootballStats, true
	case config.SyncNBAStats:
		return o.runNBAStats, true
	case config.SyncHollingerStats:
		return o.runHollingerStats, true
	case config.SyncNews:
		return o.runNews, true
	case config.SyncTransfermarkt:
		return o.runTransfermarkt, true
	case config.SyncLiveMatches:
		return o.runLiveMatches, true
	}
	return nil, false
}

func (o *Orchestrator) writeLog(ctx context.Context, syncType, status string, decision auth.Decision, result *Result, duration time.Duration) {
	details := map[string]interface{}{
		"processed":   result.Processed,
		"succeeded":   result.Succeeded,
		"failed":      result.Failed(),
		"errors":      result.LoggedErrors(),
		"duration_ms": duration.Milliseconds(),
		"auth_method": decision.Method,
	}
	if decision.UserID != "" {
		details["triggered_by"] = decision.UserID
	}

	l := store.SyncLog{
		ID:        uuid.NewString(),
		SyncType:  syncType,
		Status:    status,
		Details:   details,
		CreatedAt: o.now(),
	}
	if err := o.store.InsertSyncLog(ctx, l); err != nil {
		o.logger.Error("sync log write failed", "sync_type", syncType, "error", err)
	}
}

// errConfig builds the fatal error for an unconfigured adapter.
func errConfig(adapter string) error {
	return fmt.Errorf("%s adapter not configured, set its API key", adapter)
}
