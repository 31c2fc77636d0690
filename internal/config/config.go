// Package config provides centralized configuration loaded from environment
// variables. Shared by cmd/api, cmd/sync, and cmd/scraper.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Sync-type registry — single source of truth for cooldown intervals
// --------------------------------------------------------------------------

// Sync-type names used as cooldown and audit-log keys.
const (
	SyncFootballStats  = "football_stats"
	SyncNBAStats       = "nba_stats"
	SyncHollingerStats = "hollinger_stats"
	SyncNews           = "news"
	SyncTransfermarkt  = "transfermarkt"
	SyncLiveMatches    = "live_matches"
)

// SyncTypes lists every known sync-type.
var SyncTypes = []string{
	SyncFootballStats,
	SyncNBAStats,
	SyncHollingerStats,
	SyncNews,
	SyncTransfermarkt,
	SyncLiveMatches,
}

// DefaultCooldowns holds the minimum interval between successful runs of
// each sync-type. Overridable per type via SYNC_COOLDOWN_<TYPE>_SECONDS.
var DefaultCooldowns = map[string]time.Duration{
	SyncFootballStats:  6 * time.Hour,
	SyncNBAStats:       6 * time.Hour,
	SyncHollingerStats: 24 * time.Hour,
	SyncNews:           2 * time.Hour,
	SyncTransfermarkt:  24 * time.Hour,
	SyncLiveMatches:    2 * time.Minute,
}

// --------------------------------------------------------------------------
// Table names — single source of truth, matches migrations/
// --------------------------------------------------------------------------

const (
	AthletesTable           = "athletes"
	DailyUpdatesTable       = "daily_updates"
	SeasonStatsTable        = "season_stats"
	UpcomingMatchesTable    = "upcoming_matches"
	LiveMatchesTable        = "live_matches"
	TransfersTable          = "transfers"
	InjuriesTable           = "injuries"
	MarketValuesTable       = "market_values"
	EfficiencyRankingsTable = "efficiency_rankings"
	NewsItemsTable          = "news_items"
	SyncLogsTable           = "sync_logs"
	ProfilesTable           = "profiles"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// API server
	APIHost     string
	APIPort     int
	Environment string // development, staging, production
	Debug       bool

	// CORS
	CORSAllowOrigins []string

	// Rate limiting
	RateLimitEnabled  bool
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Sync authorization
	WebhookSecret  string
	AuthBaseURL    string // identity provider base URL
	AuthServiceKey string // privileged key for token verification

	// External API keys
	APIFootballKey string
	BDLAPIKey      string
	NewsAPIKey     string

	// Scrape targets
	RenderFetchBaseURL string // markdown-rendering fetch service
	ScraperSchedule    string // cron expression for cmd/scraper

	// Cooldowns per sync-type
	Cooldowns map[string]time.Duration

	// Cache
	CacheEnabled bool
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("STATSYNC_DATABASE_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL or STATSYNC_DATABASE_URL must be set")
	}

	cooldowns := make(map[string]time.Duration, len(DefaultCooldowns))
	for syncType, d := range DefaultCooldowns {
		key := "SYNC_COOLDOWN_" + strings.ToUpper(syncType) + "_SECONDS"
		cooldowns[syncType] = time.Duration(envInt(key, int(d.Seconds()))) * time.Second
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 2),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 10),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		APIHost:     envOr("API_HOST", "0.0.0.0"),
		APIPort:     envInt("API_PORT", envInt("PORT", 8000)),
		Environment: envOr("ENVIRONMENT", "development"),
		Debug:       envBool("DEBUG", false),

		CORSAllowOrigins: envList("CORS_ALLOW_ORIGINS", []string{
			"http://localhost:3000",
			"http://localhost:5173",
		}),

		RateLimitEnabled:  envBool("RATE_LIMIT_ENABLED", true),
		RateLimitRequests: envInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   time.Duration(envInt("RATE_LIMIT_WINDOW", 60)) * time.Second,

		WebhookSecret:  envOr("SYNC_WEBHOOK_SECRET", ""),
		AuthBaseURL:    envOr("AUTH_BASE_URL", ""),
		AuthServiceKey: envOr("AUTH_SERVICE_KEY", ""),

		APIFootballKey: envOr("APIFOOTBALL_API_KEY", ""),
		BDLAPIKey:      envOr("BALLDONTLIE_API_KEY", ""),
		NewsAPIKey:     envOr("NEWS_API_KEY", ""),

		RenderFetchBaseURL: envOr("RENDER_FETCH_BASE_URL", "https://r.jina.ai"),
		ScraperSchedule:    envOr("SCRAPER_SCHEDULE", "0 4 * * *"),

		Cooldowns: cooldowns,

		CacheEnabled: envBool("CACHE_ENABLED", true),
	}, nil
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Cooldown returns the configured cooldown for a sync-type, zero if unknown.
func (c *Config) Cooldown(syncType string) time.Duration {
	return c.Cooldowns[syncType]
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return fallback
}

func envList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}
