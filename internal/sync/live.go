package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/kadromedya/statsync/internal/provider/apifootball"
	"github.com/kadromedya/statsync/internal/store"
)

// skipReasonNoWindow is the response reason when the schedule filter
// short-circuits a live sync.
const skipReasonNoWindow = "No matches scheduled in current time window"

// Event types worth surfacing as the "last event" line.
var notableEventTypes = map[string]bool{
	"Goal":  true,
	"Card":  true,
	"subst": true,
}

// runLiveMatches polls live fixtures for tracked football athletes. The
// stored schedule is consulted first: with no kickoff inside the window, the
// run skips without a single external call — this is the cost-control gate
// for a sync-type that would otherwise poll around the clock.
func (o *Orchestrator) runLiveMatches(ctx context.Context) (*Result, string, error) {
	if o.providers.Football == nil {
		return nil, "", errConfig("football")
	}

	now := o.now()
	scheduled, err := o.store.ListUpcomingMatches(ctx, now.Add(-liveWindowBefore), now.Add(liveWindowAfter))
	if err != nil {
		return nil, "", fmt.Errorf("list upcoming matches: %w", err)
	}
	if !IsAnyMatchInWindow(now, scheduled, liveWindowBefore, liveWindowAfter) {
		return nil, skipReasonNoWindow, nil
	}

	athletes, err := o.store.ListAthletes(ctx, store.SportFootball)
	if err != nil {
		return nil, "", fmt.Errorf("list athletes: %w", err)
	}
	athleteByID := make(map[int64]store.Athlete, len(athletes))
	for _, a := range athletes {
		athleteByID[a.ID] = a
	}

	// Which athletes are expected on which provider team right now.
	athletesByTeam := make(map[int][]store.Athlete)
	for _, m := range scheduled {
		if m.TeamAPIID == nil {
			continue
		}
		a, ok := athleteByID[m.AthleteID]
		if !ok {
			continue
		}
		athletesByTeam[*m.TeamAPIID] = append(athletesByTeam[*m.TeamAPIID], a)
	}

	fixtures, err := o.providers.Football.LiveFixtures(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("fetch live fixtures: %w", err)
	}

	result := &Result{}
	observed := make(map[int64]bool)

	for _, fixture := range fixtures {
		home := athletesByTeam[fixture.HomeTeamID]
		away := athletesByTeam[fixture.AwayTeamID]
		tracked := make([]store.Athlete, 0, len(home)+len(away))
		tracked = append(tracked, home...)
		tracked = append(tracked, away...)
		for _, athlete := range tracked {
			if observed[athlete.ID] {
				continue
			}
			result.Processed++

			if err := o.syncLiveAthlete(ctx, athlete, fixture, now); err != nil {
				result.AddError("%s: %v", athlete.Name, err)
				continue
			}
			observed[athlete.ID] = true
			result.Succeeded++
		}
	}

	// Age out rows for matches that are no longer live.
	previous, err := o.store.ListLiveMatches(ctx, store.LiveStatusLive)
	if err != nil {
		result.AddError("list live matches: %v", err)
		return result, "", nil
	}
	for _, prev := range previous {
		if observed[prev.AthleteID] {
			continue
		}
		if err := o.store.FinishLiveMatch(ctx, prev.AthleteID); err != nil {
			result.AddError("finish live match athlete %d: %v", prev.AthleteID, err)
		}
	}

	return result, "", nil
}

func (o *Orchestrator) syncLiveAthlete(ctx context.Context, athlete store.Athlete, fixture apifootball.Fixture, now time.Time) error {
	fb := o.providers.Football

	playerID := 0
	if athlete.FootballAPIID != nil {
		playerID = *athlete.FootballAPIID
	}

	live := store.LiveMatch{
		AthleteID: athlete.ID,
		Status:    store.LiveStatusLive,
		HomeTeam:  fixture.HomeTeam,
		AwayTeam:  fixture.AwayTeam,
		Score:     fixture.Result(),
		UpdatedAt: now,
	}
	if fixture.Elapsed != nil {
		live.Minute = *fixture.Elapsed
	}

	line, playing, err := fb.FixturePlayerLine(ctx, fixture.ID, playerID, athlete.Name)
	if err != nil {
		return err
	}
	if playing {
		live.Stats = line.Stats.ToMap()
	}

	events, err := fb.FixtureEvents(ctx, fixture.ID)
	if err != nil {
		return err
	}
	for i := len(events) - 1; i >= 0; i-- {
		if notableEventTypes[events[i].Type] {
			live.LastEvent = apifootball.FormatEvent(events[i])
			break
		}
	}

	if err := o.store.UpsertLiveMatch(ctx, live); err != nil {
		return fmt.Errorf("upsert live match: %w", err)
	}
	return nil
}
