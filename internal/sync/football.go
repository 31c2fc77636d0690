package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kadromedya/statsync/internal/provider/apifootball"
	"github.com/kadromedya/statsync/internal/store"
)

// How many completed and scheduled fixtures each run considers.
const (
	recentFixtureCount   = 5
	upcomingFixtureCount = 5
)

// footballSeason returns API-Football's season parameter (the start year of
// the European season) for a given date.
func footballSeason(now time.Time) int {
	if now.Month() >= time.August {
		return now.Year()
	}
	return now.Year() - 1
}

// seasonLabel renders a season start year for storage, e.g. 2024 -> "2024-25".
func seasonLabel(season int) string {
	return fmt.Sprintf("%d-%02d", season, (season+1)%100)
}

// runFootballStats syncs recent match stats, upcoming fixtures, and season
// aggregates for every tracked football athlete.
func (o *Orchestrator) runFootballStats(ctx context.Context) (*Result, string, error) {
	if o.providers.Football == nil {
		return nil, "", errConfig("football")
	}

	athletes, err := o.store.ListAthletes(ctx, store.SportFootball)
	if err != nil {
		return nil, "", fmt.Errorf("list athletes: %w", err)
	}

	result := &Result{}
	season := footballSeason(o.now())

	for _, athlete := range athletes {
		result.Processed++
		if err := o.syncFootballAthlete(ctx, athlete, season); err != nil {
			result.AddError("%s: %v", athlete.Name, err)
			continue
		}
		result.Succeeded++
	}
	return result, "", nil
}

func (o *Orchestrator) syncFootballAthlete(ctx context.Context, athlete store.Athlete, season int) error {
	fb := o.providers.Football

	playerID, err := o.resolveFootballID(ctx, athlete)
	if err != nil {
		return err
	}

	if athlete.FootballTeamID == nil {
		return fmt.Errorf("no team id, cannot fetch fixtures")
	}
	teamID := *athlete.FootballTeamID

	// Per-competition season aggregates, which also carry the provider's
	// current injury flag for the daily rows below.
	report, err := fb.SeasonStatistics(ctx, playerID, season)
	if err != nil {
		return err
	}
	injuryStatus, injuryDetails := o.injuryState(ctx, athlete, report.Injured)

	// Recent completed fixtures -> one DailyUpdate per fixture. A fixture
	// with no stat line for the player is an explicit did-not-play row.
	recent, err := fb.RecentFixtures(ctx, teamID, recentFixtureCount)
	if err != nil {
		return err
	}
	for _, fixture := range recent {
		line, played, err := fb.FixturePlayerLine(ctx, fixture.ID, playerID, athlete.Name)
		if err != nil {
			return err
		}

		update := store.DailyUpdate{
			AthleteID:     athlete.ID,
			Date:          fixture.Date,
			Played:        played && line.Minutes > 0,
			Opponent:      opponentOf(fixture, teamID),
			Competition:   fixture.League,
			IsHome:        fixture.HomeTeamID == teamID,
			Result:        fixture.Result(),
			InjuryStatus:  injuryStatus,
			InjuryDetails: injuryDetails,
		}
		if played {
			update.MinutesPlayed = line.Minutes
			update.Rating = line.Rating
			update.Stats = line.Stats.ToMap()
		}
		if err := o.store.UpsertDailyUpdate(ctx, update); err != nil {
			return fmt.Errorf("upsert daily update: %w", err)
		}
	}

	// Scheduled fixtures are a complete snapshot: full replace per athlete.
	upcoming, err := fb.UpcomingFixtures(ctx, teamID, upcomingFixtureCount)
	if err != nil {
		return err
	}
	matches := make([]store.UpcomingMatch, 0, len(upcoming))
	for _, fixture := range upcoming {
		tid := teamID
		matches = append(matches, store.UpcomingMatch{
			AthleteID:   athlete.ID,
			Opponent:    opponentOf(fixture, teamID),
			Competition: fixture.League,
			IsHome:      fixture.HomeTeamID == teamID,
			KickoffAt:   fixture.Date,
			TeamAPIID:   &tid,
		})
	}
	if err := o.store.ReplaceUpcomingMatches(ctx, athlete.ID, matches); err != nil {
		return fmt.Errorf("replace upcoming matches: %w", err)
	}

	for _, line := range report.Lines {
		s := store.SeasonStats{
			AthleteID:    athlete.ID,
			Season:       seasonLabel(season),
			Competition:  line.Competition,
			GamesPlayed:  line.GamesPlayed,
			GamesStarted: line.GamesStarted,
			Stats:        line.Stats.ToMap(),
		}
		if err := o.store.UpsertSeasonStats(ctx, s); err != nil {
			return fmt.Errorf("upsert season stats: %w", err)
		}
	}
	return nil
}

// injuryState merges the provider's injured flag with the most recent open
// injury row the market-data scrape recorded. The scrape supplies the detail
// text; either source alone is enough to mark the athlete injured.
func (o *Orchestrator) injuryState(ctx context.Context, athlete store.Athlete, injured bool) (status, details string) {
	open, err := o.store.LatestOpenInjury(ctx, athlete.ID)
	if err != nil {
		o.logger.Warn("open injury lookup failed", "athlete", athlete.Name, "error", err)
	}
	if injured || open != nil {
		status = "injured"
	}
	if open != nil {
		details = open.InjuryType
	}
	return status, details
}

// resolveFootballID returns the athlete's cached provider id, searching and
// persisting it on first contact.
func (o *Orchestrator) resolveFootballID(ctx context.Context, athlete store.Athlete) (int, error) {
	if athlete.FootballAPIID != nil {
		return *athlete.FootballAPIID, nil
	}

	id, err := o.providers.Football.ResolvePlayerID(ctx, athlete)
	if err != nil {
		return 0, err
	}
	if err := o.store.SetAthleteExternalID(ctx, athlete.ID, store.SourceAPIFootball, strconv.Itoa(id)); err != nil {
		// The id is still usable for this run; only the cache write failed.
		o.logger.Warn("persist football id failed", "athlete", athlete.Name, "error", err)
	}
	return id, nil
}

func opponentOf(f apifootball.Fixture, teamID int) string {
	if f.HomeTeamID == teamID {
		return f.AwayTeam
	}
	return f.HomeTeam
}
