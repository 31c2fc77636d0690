package sync

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kadromedya/statsync/internal/provider/bdl"
	"github.com/kadromedya/statsync/internal/store"
)

// How far back the per-game stats fetch looks.
const recentGamesWindow = 7 * 24 * time.Hour

// nbaSeason returns BDL's season parameter (the start year) for a date: the
// NBA season tips off in October.
func nbaSeason(now time.Time) int {
	if now.Month() >= time.October {
		return now.Year()
	}
	return now.Year() - 1
}

// runNBAStats syncs season averages and recent per-game stats for every
// tracked basketball athlete.
func (o *Orchestrator) runNBAStats(ctx context.Context) (*Result, string, error) {
	if o.providers.NBA == nil {
		return nil, "", errConfig("basketball")
	}

	athletes, err := o.store.ListAthletes(ctx, store.SportBasketball)
	if err != nil {
		return nil, "", fmt.Errorf("list athletes: %w", err)
	}

	result := &Result{}
	now := o.now()
	season := nbaSeason(now)

	for _, athlete := range athletes {
		result.Processed++
		if err := o.syncNBAAthlete(ctx, athlete, season, now); err != nil {
			result.AddError("%s: %v", athlete.Name, err)
			continue
		}
		result.Succeeded++
	}
	return result, "", nil
}

func (o *Orchestrator) syncNBAAthlete(ctx context.Context, athlete store.Athlete, season int, now time.Time) error {
	nba := o.providers.NBA

	playerID, err := o.resolveBDLID(ctx, athlete)
	if err != nil {
		return err
	}

	// Season averages come as one aggregate call and are stored as-is, not
	// derived from the per-game rows.
	averages, err := nba.FetchSeasonAverages(ctx, playerID, season)
	if err != nil {
		return err
	}
	if averages != nil {
		s := store.SeasonStats{
			AthleteID:   athlete.ID,
			Season:      bdl.SeasonLabel(averages.Season),
			Competition: "NBA",
			GamesPlayed: averages.GamesPlayed,
			Stats:       averages.Stats.ToMap(),
		}
		if err := o.store.UpsertSeasonStats(ctx, s); err != nil {
			return fmt.Errorf("upsert season stats: %w", err)
		}
	}

	games, err := nba.FetchRecentGames(ctx, playerID, now.Add(-recentGamesWindow), now)
	if err != nil {
		return err
	}
	for _, game := range games {
		update := store.DailyUpdate{
			AthleteID:     athlete.ID,
			Date:          game.Date,
			Played:        game.Minutes > 0,
			Opponent:      game.Opponent,
			IsHome:        game.IsHome,
			Competition:   "NBA",
			Result:        game.Result,
			MinutesPlayed: game.Minutes,
			Stats:         game.Stats.ToMap(),
		}
		if err := o.store.UpsertDailyUpdate(ctx, update); err != nil {
			return fmt.Errorf("upsert daily update: %w", err)
		}
	}
	return nil
}

// resolveBDLID returns the athlete's cached provider id, searching and
// persisting it on first contact.
func (o *Orchestrator) resolveBDLID(ctx context.Context, athlete store.Athlete) (int, error) {
	if athlete.BDLAPIID != nil {
		return *athlete.BDLAPIID, nil
	}

	id, err := o.providers.NBA.ResolvePlayerID(ctx, athlete)
	if err != nil {
		return 0, err
	}
	if err := o.store.SetAthleteExternalID(ctx, athlete.ID, store.SourceBDL, strconv.Itoa(id)); err != nil {
		o.logger.Warn("persist bdl id failed", "athlete", athlete.Name, "error", err)
	}
	return id, nil
}
