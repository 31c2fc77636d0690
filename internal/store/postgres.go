package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kadromedya/statsync/internal/config"
)

// Postgres implements Store over a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a pool in the Store contract.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// --------------------------------------------------------------------------
// Roster
// --------------------------------------------------------------------------

func (p *Postgres) ListAthletes(ctx context.Context, sport Sport) ([]Athlete, error) {
	var rows pgx.Rows
	var err error
	if sport == "" {
		rows, err = p.pool.Query(ctx, "athletes_all")
	} else {
		rows, err = p.pool.Query(ctx, "athletes_by_sport", string(sport))
	}
	if err != nil {
		return nil, fmt.Errorf("list athletes: %w", err)
	}
	defer rows.Close()

	var athletes []Athlete
	for rows.Next() {
		var a Athlete
		if err := rows.Scan(
			&a.ID, &a.Name, &a.Sport, &a.Team, &a.League, &a.Position,
			&a.FootballAPIID, &a.FootballTeamID, &a.BDLAPIID,
			&a.TransfermarktID, &a.Aliases,
		); err != nil {
			return nil, fmt.Errorf("scan athlete: %w", err)
		}
		athletes = append(athletes, a)
	}
	return athletes, rows.Err()
}

// SetAthleteExternalID caches a resolved provider id on the athlete row.
// The source name doubles as the column name; it is restricted to the
// ExternalSource constants, never caller input.
func (p *Postgres) SetAthleteExternalID(ctx context.Context, athleteID int64, source ExternalSource, id string) error {
	switch source {
	case SourceAPIFootball, SourceBDL, SourceTransfermarkt:
	default:
		return fmt.Errorf("unknown external source %q", source)
	}
	_, err := p.pool.Exec(ctx,
		`UPDATE `+config.AthletesTable+` SET `+string(source)+` = $2, updated_at = NOW() WHERE id = $1`,
		athleteID, id,
	)
	return err
}

// --------------------------------------------------------------------------
// Stats
// --------------------------------------------------------------------------

func (p *Postgres) UpsertDailyUpdate(ctx context.Context, u DailyUpdate) error {
	stats, _ := json.Marshal(nonNilStats(u.Stats))
	_, err := p.pool.Exec(ctx, `
		INSERT INTO `+config.DailyUpdatesTable+` (
			athlete_id, date, played, opponent, competition, is_home,
			result, minutes_played, rating, stats, injury_status, injury_details
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		ON CONFLICT (athlete_id, date) DO UPDATE SET
			played = EXCLUDED.played,
			opponent = EXCLUDED.opponent,
			competition = EXCLUDED.competition,
			is_home = EXCLUDED.is_home,
			result = EXCLUDED.result,
			minutes_played = EXCLUDED.minutes_played,
			rating = EXCLUDED.rating,
			stats = EXCLUDED.stats,
			injury_status = EXCLUDED.injury_status,
			injury_details = EXCLUDED.injury_details,
			updated_at = NOW()`,
		u.AthleteID, u.Date.Format("2006-01-02"), u.Played, nilEmpty(u.Opponent),
		nilEmpty(u.Competition), u.IsHome, nilEmpty(u.Result), u.MinutesPlayed,
		u.Rating, stats, nilEmpty(u.InjuryStatus), nilEmpty(u.InjuryDetails),
	)
	return err
}

func (p *Postgres) UpsertSeasonStats(ctx context.Context, s SeasonStats) error {
	stats, _ := json.Marshal(nonNilStats(s.Stats))
	_, err := p.pool.Exec(ctx, `
		INSERT INTO `+config.SeasonStatsTable+` (
			athlete_id, season, competition, games_played, games_started, stats
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (athlete_id, season, competition) DO UPDATE SET
			games_played = EXCLUDED.games_played,
			games_started = EXCLUDED.games_started,
			stats = EXCLUDED.stats,
			updated_at = NOW()`,
		s.AthleteID, s.Season, s.Competition, s.GamesPlayed, s.GamesStarted, stats,
	)
	return err
}

// --------------------------------------------------------------------------
// Schedule — full snapshot replacement
// --------------------------------------------------------------------------

func (p *Postgres) ReplaceUpcomingMatches(ctx context.Context, athleteID int64, matches []UpcomingMatch) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM `+config.UpcomingMatchesTable+` WHERE athlete_id = $1`, athleteID,
	); err != nil {
		return fmt.Errorf("clear upcoming matches: %w", err)
	}

	for _, m := range matches {
		if _, err := tx.Exec(ctx, `
			INSERT INTO `+config.UpcomingMatchesTable+` (
				athlete_id, opponent, competition, is_home, kickoff_at, team_api_id
			) VALUES ($1,$2,$3,$4,$5,$6)`,
			athleteID, m.Opponent, nilEmpty(m.Competition), m.IsHome, m.KickoffAt, m.TeamAPIID,
		); err != nil {
			return fmt.Errorf("insert upcoming match: %w", err)
		}
	}
	return tx.Commit(ctx)
}

func (p *Postgres) ListUpcomingMatches(ctx context.Context, from, to time.Time) ([]UpcomingMatch, error) {
	rows, err := p.pool.Query(ctx, "upcoming_in_window", from, to)
	if err != nil {
		return nil, fmt.Errorf("list upcoming matches: %w", err)
	}
	defer rows.Close()

	var matches []UpcomingMatch
	for rows.Next() {
		var m UpcomingMatch
		var competition *string
		if err := rows.Scan(&m.AthleteID, &m.Opponent, &competition, &m.IsHome, &m.KickoffAt, &m.TeamAPIID); err != nil {
			return nil, fmt.Errorf("scan upcoming match: %w", err)
		}
		if competition != nil {
			m.Competition = *competition
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// --------------------------------------------------------------------------
// Live
// --------------------------------------------------------------------------

func (p *Postgres) UpsertLiveMatch(ctx context.Context, m LiveMatch) error {
	stats, _ := json.Marshal(nonNilStats(m.Stats))
	_, err := p.pool.Exec(ctx, `
		INSERT INTO `+config.LiveMatchesTable+` (
			athlete_id, status, home_team, away_team, score, minute,
			stats, last_event, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW())
		ON CONFLICT (athlete_id) DO UPDATE SET
			status = EXCLUDED.status,
			home_team = EXCLUDED.home_team,
			away_team = EXCLUDED.away_team,
			score = EXCLUDED.score,
			minute = EXCLUDED.minute,
			stats = EXCLUDED.stats,
			last_event = EXCLUDED.last_event,
			updated_at = NOW()`,
		m.AthleteID, m.Status, m.HomeTeam, m.AwayTeam, m.Score, m.Minute,
		stats, nilEmpty(m.LastEvent),
	)
	return err
}

func (p *Postgres) ListLiveMatches(ctx context.Context, status string) ([]LiveMatch, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT athlete_id, status, home_team, away_team, score, minute, stats, COALESCE(last_event, ''), updated_at
		FROM `+config.LiveMatchesTable+`
		WHERE $1 = '' OR status = $1`, status)
	if err != nil {
		return nil, fmt.Errorf("list live matches: %w", err)
	}
	defer rows.Close()

	var matches []LiveMatch
	for rows.Next() {
		var m LiveMatch
		var stats []byte
		if err := rows.Scan(&m.AthleteID, &m.Status, &m.HomeTeam, &m.AwayTeam,
			&m.Score, &m.Minute, &stats, &m.LastEvent, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan live match: %w", err)
		}
		if len(stats) > 0 {
			_ = json.Unmarshal(stats, &m.Stats)
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

func (p *Postgres) FinishLiveMatch(ctx context.Context, athleteID int64) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE `+config.LiveMatchesTable+`
		SET status = $2, updated_at = NOW()
		WHERE athlete_id = $1`, athleteID, LiveStatusFinished)
	return err
}

// --------------------------------------------------------------------------
// Market data
// --------------------------------------------------------------------------

func (p *Postgres) UpsertTransfer(ctx context.Context, t Transfer) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO `+config.TransfersTable+` (
			athlete_id, transfer_date, from_club, to_club, fee, season
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (athlete_id, transfer_date, from_club, to_club) DO UPDATE SET
			fee = COALESCE(EXCLUDED.fee, `+config.TransfersTable+`.fee),
			season = COALESCE(EXCLUDED.season, `+config.TransfersTable+`.season),
			updated_at = NOW()`,
		t.AthleteID, t.TransferDate.Format("2006-01-02"), t.FromClub, t.ToClub, t.Fee, t.Season,
	)
	return err
}

func (p *Postgres) UpsertInjury(ctx context.Context, i Injury) error {
	var endDate interface{}
	if i.EndDate != nil {
		endDate = i.EndDate.Format("2006-01-02")
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO `+config.InjuriesTable+` (
			athlete_id, injury_type, start_date, end_date, days_out, games_missed
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (athlete_id, injury_type, start_date) DO UPDATE SET
			end_date = COALESCE(EXCLUDED.end_date, `+config.InjuriesTable+`.end_date),
			days_out = COALESCE(EXCLUDED.days_out, `+config.InjuriesTable+`.days_out),
			games_missed = COALESCE(EXCLUDED.games_missed, `+config.InjuriesTable+`.games_missed),
			updated_at = NOW()`,
		i.AthleteID, i.InjuryType, i.StartDate.Format("2006-01-02"), endDate, i.DaysOut, i.GamesMissed,
	)
	return err
}

func (p *Postgres) LatestOpenInjury(ctx context.Context, athleteID int64) (*Injury, error) {
	var i Injury
	err := p.pool.QueryRow(ctx, `
		SELECT athlete_id, injury_type, start_date, end_date, days_out, games_missed
		FROM `+config.InjuriesTable+`
		WHERE athlete_id = $1 AND end_date IS NULL
		ORDER BY start_date DESC
		LIMIT 1`, athleteID,
	).Scan(&i.AthleteID, &i.InjuryType, &i.StartDate, &i.EndDate, &i.DaysOut, &i.GamesMissed)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest open injury: %w", err)
	}
	return &i, nil
}

func (p *Postgres) UpsertMarketValue(ctx context.Context, v MarketValue) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO `+config.MarketValuesTable+` (
			athlete_id, recorded_date, value, club
		) VALUES ($1,$2,$3,$4)
		ON CONFLICT (athlete_id, recorded_date) DO UPDATE SET
			value = EXCLUDED.value,
			club = COALESCE(EXCLUDED.club, `+config.MarketValuesTable+`.club),
			updated_at = NOW()`,
		v.AthleteID, v.RecordedDate.Format("2006-01-02"), v.Value, v.Club,
	)
	return err
}

// --------------------------------------------------------------------------
// Leaderboards — full snapshot replacement per (athlete, month)
// --------------------------------------------------------------------------

func (p *Postgres) ReplaceEfficiencyRankings(ctx context.Context, athleteID int64, month string, rankings []EfficiencyRanking) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`DELETE FROM `+config.EfficiencyRankingsTable+` WHERE athlete_id = $1 AND month = $2`,
		athleteID, month,
	); err != nil {
		return fmt.Errorf("clear efficiency rankings: %w", err)
	}

	for _, r := range rankings {
		if _, err := tx.Exec(ctx, `
			INSERT INTO `+config.EfficiencyRankingsTable+` (
				athlete_id, month, rank, player_name, team, value
			) VALUES ($1,$2,$3,$4,$5,$6)`,
			athleteID, month, r.Rank, r.PlayerName, nilEmpty(r.Team), r.Value,
		); err != nil {
			return fmt.Errorf("insert efficiency ranking: %w", err)
		}
	}
	return tx.Commit(ctx)
}

// --------------------------------------------------------------------------
// News
// --------------------------------------------------------------------------

func (p *Postgres) UpsertNewsItem(ctx context.Context, n NewsItem) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO `+config.NewsItemsTable+` (
			athlete_id, title, url, source, published_at
		) VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (athlete_id, url) DO UPDATE SET
			title = EXCLUDED.title,
			source = EXCLUDED.source,
			published_at = EXCLUDED.published_at,
			updated_at = NOW()`,
		n.AthleteID, n.Title, n.URL, nilEmpty(n.Source), nilEmpty(n.PublishedAt),
	)
	return err
}

// --------------------------------------------------------------------------
// Audit log
// --------------------------------------------------------------------------

func (p *Postgres) InsertSyncLog(ctx context.Context, l SyncLog) error {
	details, _ := json.Marshal(l.Details)
	_, err := p.pool.Exec(ctx, `
		INSERT INTO `+config.SyncLogsTable+` (id, sync_type, status, details, created_at)
		VALUES ($1,$2,$3,$4,$5)`,
		l.ID, l.SyncType, l.Status, details, l.CreatedAt,
	)
	return err
}

func (p *Postgres) LatestSuccessfulSync(ctx context.Context, syncType string) (*SyncLog, error) {
	var l SyncLog
	var details []byte
	err := p.pool.QueryRow(ctx, "latest_successful_sync", syncType).Scan(
		&l.ID, &l.SyncType, &l.Status, &details, &l.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest successful sync: %w", err)
	}
	if len(details) > 0 {
		_ = json.Unmarshal(details, &l.Details)
	}
	return &l, nil
}

func (p *Postgres) ListSyncLogs(ctx context.Context, syncType string, limit int) ([]SyncLog, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := p.pool.Query(ctx, `
		SELECT id, sync_type, status, details, created_at
		FROM `+config.SyncLogsTable+`
		WHERE $1 = '' OR sync_type = $1
		ORDER BY created_at DESC
		LIMIT $2`, syncType, limit)
	if err != nil {
		return nil, fmt.Errorf("list sync logs: %w", err)
	}
	defer rows.Close()

	var logs []SyncLog
	for rows.Next() {
		var l SyncLog
		var details []byte
		if err := rows.Scan(&l.ID, &l.SyncType, &l.Status, &details, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan sync log: %w", err)
		}
		if len(details) > 0 {
			_ = json.Unmarshal(details, &l.Details)
		}
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// --------------------------------------------------------------------------
// AuthGate role lookup
// --------------------------------------------------------------------------

func (p *Postgres) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var isAdmin bool
	err := p.pool.QueryRow(ctx, "profile_is_admin", userID).Scan(&isAdmin)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("role lookup: %w", err)
	}
	return isAdmin, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// nilEmpty returns nil for empty strings (maps to SQL NULL).
func nilEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// nonNilStats ensures a nil map becomes an empty map for JSON marshaling.
func nonNilStats(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
