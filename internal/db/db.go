// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kadromedya/statsync/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, "health_check").Scan(&n)
}

// registerPreparedStatements registers the statements the sync pipeline hits
// on every invocation. Prepared statements eliminate parse overhead on the
// hot path (cooldown check, roster listing, live-window query).
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		"health_check": "SELECT 1",

		// Cooldown: most recent successful run per sync-type
		"latest_successful_sync": `
			SELECT id, sync_type, status, details, created_at
			FROM sync_logs
			WHERE sync_type = $1 AND status = 'success'
			ORDER BY created_at DESC
			LIMIT 1`,

		// Roster
		"athletes_all":      "SELECT " + athleteColumns + " FROM athletes ORDER BY id",
		"athletes_by_sport": "SELECT " + athleteColumns + " FROM athletes WHERE sport = $1 ORDER BY id",

		// Live-match window filter
		"upcoming_in_window": `
			SELECT athlete_id, opponent, competition, is_home, kickoff_at, team_api_id
			FROM upcoming_matches
			WHERE kickoff_at BETWEEN $1 AND $2
			ORDER BY kickoff_at`,

		// AuthGate admin role lookup
		"profile_is_admin": "SELECT role = 'admin' FROM profiles WHERE user_id = $1",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}

const athleteColumns = `id, name, sport, team, league, position,
	football_api_id, football_team_id, bdl_api_id, transfermarkt_id, aliases`
