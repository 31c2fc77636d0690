// Package cooldown enforces a minimum interval between successful runs of
// the same sync-type, bounding external API usage. The check is advisory —
// read-then-act, no lock — so natural-key upserts remain the safety net
// against an overlapping duplicate run.
package cooldown

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/kadromedya/statsync/internal/store"
)

// Log is the slice of store.Store the guard needs.
type Log interface {
	LatestSuccessfulSync(ctx context.Context, syncType string) (*store.SyncLog, error)
}

// Decision reports whether a sync-type may run now.
type Decision struct {
	CanRun      bool
	LastRun     *time.Time
	WaitSeconds int
}

// Guard consults the persisted sync log per sync-type.
type Guard struct {
	log    Log
	logger *slog.Logger
}

// NewGuard creates a cooldown guard over the sync log.
func NewGuard(log Log, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{log: log, logger: logger}
}

// Check allows the run if no prior success exists or the interval has
// elapsed. A storage error fails open: ingestion is not blocked on an
// observability fault.
func (g *Guard) Check(ctx context.Context, syncType string, minInterval time.Duration, now time.Time) Decision {
	last, err := g.log.LatestSuccessfulSync(ctx, syncType)
	if err != nil {
		g.logger.Warn("cooldown lookup failed, allowing run", "sync_type", syncType, "error", err)
		return Decision{CanRun: true}
	}
	if last == nil {
		return Decision{CanRun: true}
	}

	elapsed := now.Sub(last.CreatedAt)
	if elapsed >= minInterval {
		return Decision{CanRun: true, LastRun: &last.CreatedAt}
	}

	wait := int(math.Ceil((minInterval - elapsed).Seconds()))
	return Decision{LastRun: &last.CreatedAt, WaitSeconds: wait}
}
