// Package store defines the entities the sync pipeline reads and writes,
// and the Store contract its components depend on. The Postgres
// implementation lives in this package; an in-memory implementation for
// tests lives in store/memstore.
package store

import (
	"context"
	"time"
)

// Sport identifies which external stats ecosystem an athlete belongs to.
type Sport string

const (
	SportFootball   Sport = "football"
	SportBasketball Sport = "basketball"
)

// ExternalSource names a provider whose athlete ids we cache.
type ExternalSource string

const (
	SourceAPIFootball   ExternalSource = "football_api_id"
	SourceBDL           ExternalSource = "bdl_api_id"
	SourceTransfermarkt ExternalSource = "transfermarkt_id"
)

// --------------------------------------------------------------------------
// Entities
// --------------------------------------------------------------------------

// Athlete is a tracked person. External ids are populated lazily the first
// time a name-search succeeds, then cached to avoid repeated search calls.
type Athlete struct {
	ID       int64
	Name     string
	Sport    Sport
	Team     string
	League   string
	Position string

	FootballAPIID   *int
	FootballTeamID  *int
	BDLAPIID        *int
	TransfermarktID *string

	Aliases []string
}

// DailyUpdate is one row per (athlete, calendar date). Upsert key:
// (athlete_id, date) — re-running a sync for the same day overwrites.
type DailyUpdate struct {
	AthleteID     int64
	Date          time.Time // calendar date, time part ignored
	Played        bool
	Opponent      string
	Competition   string
	IsHome        bool
	Result        string
	MinutesPlayed int
	Rating        *float64
	Stats         map[string]float64
	InjuryStatus  string
	InjuryDetails string
}

// SeasonStats is one row per (athlete, season label, competition).
type SeasonStats struct {
	AthleteID    int64
	Season       string // e.g. "2024-25"
	Competition  string // e.g. "NBA", "La Liga"
	GamesPlayed  int
	GamesStarted int
	Stats        map[string]float64
}

// UpcomingMatch is one scheduled future fixture for an athlete. The set is
// fully replaced each sync — the schedule is a complete external snapshot.
type UpcomingMatch struct {
	AthleteID   int64
	Opponent    string
	Competition string
	IsHome      bool
	KickoffAt   time.Time
	TeamAPIID   *int // provider team id, used by the live sync
}

// Live match statuses.
const (
	LiveStatusLive     = "live"
	LiveStatusFinished = "finished"
)

// LiveMatch is at most one row per athlete; latest state wins.
type LiveMatch struct {
	AthleteID int64
	Status    string
	HomeTeam  string
	AwayTeam  string
	Score     string
	Minute    int
	Stats     map[string]float64
	LastEvent string
	UpdatedAt time.Time
}

// Transfer is a historical transfer record. Upsert key:
// (athlete_id, transfer_date, from_club, to_club).
type Transfer struct {
	AthleteID    int64
	TransferDate time.Time
	FromClub     string
	ToClub       string
	Fee          *string
	Season       *string
}

// Injury is a historical injury record. Upsert key:
// (athlete_id, injury_type, start_date).
type Injury struct {
	AthleteID   int64
	InjuryType  string
	StartDate   time.Time
	EndDate     *time.Time
	DaysOut     *int
	GamesMissed *int
}

// MarketValue is a scraped market valuation. Upsert key:
// (athlete_id, recorded_date).
type MarketValue struct {
	AthleteID    int64
	RecordedDate time.Time
	Value        string
	Club         *string
}

// EfficiencyRanking is one leaderboard row in a monthly snapshot, keyed on
// (athlete_id, month, player_name). The (athlete, month) scope is fully
// replaced per re-sync.
type EfficiencyRanking struct {
	AthleteID  int64
	Month      string // "2025-01"
	Rank       int
	PlayerName string
	Team       string
	Value      float64
}

// NewsItem is one discovered article, keyed on (athlete_id, url).
type NewsItem struct {
	AthleteID   int64
	Title       string
	URL         string
	Source      string
	PublishedAt string
}

// Sync log statuses.
const (
	SyncStatusSuccess = "success"
	SyncStatusPartial = "partial"
	SyncStatusError   = "error"
)

// SyncLog is an append-only audit record — the sole input to the cooldown
// check.
type SyncLog struct {
	ID        string
	SyncType  string
	Status    string
	Details   map[string]interface{}
	CreatedAt time.Time
}

// --------------------------------------------------------------------------
// Store contract
// --------------------------------------------------------------------------

// Store is the persistence contract the pipeline has with its storage
// collaborator: select by filter, upsert with an explicit conflict key,
// delete-then-insert for snapshot sets.
type Store interface {
	// Roster
	ListAthletes(ctx context.Context, sport Sport) ([]Athlete, error) // sport "" = all
	SetAthleteExternalID(ctx context.Context, athleteID int64, source ExternalSource, id string) error

	// Stats
	UpsertDailyUpdate(ctx context.Context, u DailyUpdate) error
	UpsertSeasonStats(ctx context.Context, s SeasonStats) error

	// Schedule
	ReplaceUpcomingMatches(ctx context.Context, athleteID int64, matches []UpcomingMatch) error
	ListUpcomingMatches(ctx context.Context, from, to time.Time) ([]UpcomingMatch, error)

	// Live
	UpsertLiveMatch(ctx context.Context, m LiveMatch) error
	ListLiveMatches(ctx context.Context, status string) ([]LiveMatch, error)
	FinishLiveMatch(ctx context.Context, athleteID int64) error

	// Market data
	UpsertTransfer(ctx context.Context, t Transfer) error
	UpsertInjury(ctx context.Context, i Injury) error
	LatestOpenInjury(ctx context.Context, athleteID int64) (*Injury, error)
	UpsertMarketValue(ctx context.Context, v MarketValue) error

	// Leaderboards
	ReplaceEfficiencyRankings(ctx context.Context, athleteID int64, month string, rows []EfficiencyRanking) error

	// News
	UpsertNewsItem(ctx context.Context, n NewsItem) error

	// Audit log
	InsertSyncLog(ctx context.Context, l SyncLog) error
	LatestSuccessfulSync(ctx context.Context, syncType string) (*SyncLog, error)
	ListSyncLogs(ctx context.Context, syncType string, limit int) ([]SyncLog, error)

	// AuthGate role lookup
	IsAdmin(ctx context.Context, userID string) (bool, error)
}
