package cooldown

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadromedya/statsync/internal/store"
	"github.com/kadromedya/statsync/internal/store/memstore"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestCheckNoPriorRun(t *testing.T) {
	guard := NewGuard(memstore.New(), discard)

	d := guard.Check(context.Background(), "football_stats", time.Hour, time.Now())
	assert.True(t, d.CanRun)
	assert.Nil(t, d.LastRun)
}

func TestCheckWithinCooldown(t *testing.T) {
	ms := memstore.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ms.InsertSyncLog(context.Background(), store.SyncLog{
		ID:        "1",
		SyncType:  "football_stats",
		Status:    store.SyncStatusSuccess,
		CreatedAt: now.Add(-10 * time.Minute),
	}))
	guard := NewGuard(ms, discard)

	d := guard.Check(context.Background(), "football_stats", time.Hour, now)
	assert.False(t, d.CanRun)
	assert.Equal(t, 50*60, d.WaitSeconds)
	require.NotNil(t, d.LastRun)
}

func TestCheckWaitRoundsUp(t *testing.T) {
	ms := memstore.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ms.InsertSyncLog(context.Background(), store.SyncLog{
		ID:        "1",
		SyncType:  "news",
		Status:    store.SyncStatusSuccess,
		CreatedAt: now.Add(-59*time.Minute - 59*time.Second - 500*time.Millisecond),
	}))
	guard := NewGuard(ms, discard)

	d := guard.Check(context.Background(), "news", time.Hour, now)
	assert.False(t, d.CanRun)
	assert.Equal(t, 1, d.WaitSeconds, "remaining 0.5s reports as one whole second")
}

func TestCheckAfterCooldown(t *testing.T) {
	ms := memstore.New()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, ms.InsertSyncLog(context.Background(), store.SyncLog{
		ID:        "1",
		SyncType:  "football_stats",
		Status:    store.SyncStatusSuccess,
		CreatedAt: now.Add(-2 * time.Hour),
	}))
	guard := NewGuard(ms, discard)

	d := guard.Check(context.Background(), "football_stats", time.Hour, now)
	assert.True(t, d.CanRun)
	require.NotNil(t, d.LastRun)
}

func TestCheckIgnoresFailedRuns(t *testing.T) {
	ms := memstore.New()
	now := time.Now()
	require.NoError(t, ms.InsertSyncLog(context.Background(), store.SyncLog{
		ID:        "1",
		SyncType:  "football_stats",
		Status:    store.SyncStatusError,
		CreatedAt: now.Add(-time.Minute),
	}))
	guard := NewGuard(ms, discard)

	d := guard.Check(context.Background(), "football_stats", time.Hour, now)
	assert.True(t, d.CanRun, "failed runs do not start a cooldown")
}

func TestCheckPerSyncType(t *testing.T) {
	ms := memstore.New()
	now := time.Now()
	require.NoError(t, ms.InsertSyncLog(context.Background(), store.SyncLog{
		ID:        "1",
		SyncType:  "football_stats",
		Status:    store.SyncStatusSuccess,
		CreatedAt: now.Add(-time.Minute),
	}))
	guard := NewGuard(ms, discard)

	assert.False(t, guard.Check(context.Background(), "football_stats", time.Hour, now).CanRun)
	assert.True(t, guard.Check(context.Background(), "nba_stats", time.Hour, now).CanRun,
		"cooldowns are independent per sync-type")
}

func TestCheckFailsOpen(t *testing.T) {
	ms := memstore.New()
	ms.FailNext["LatestSuccessfulSync"] = errors.New("storage down")
	guard := NewGuard(ms, discard)

	d := guard.Check(context.Background(), "football_stats", time.Hour, time.Now())
	assert.True(t, d.CanRun, "storage errors must not block ingestion")
}
