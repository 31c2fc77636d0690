package sync

import (
	"context"
	"fmt"

	"github.com/kadromedya/statsync/internal/namematch"
	"github.com/kadromedya/statsync/internal/store"
)

// runHollingerStats scrapes the efficiency leaderboard once and snapshots
// each tracked basketball athlete's rows for the current month. The page is
// fetched a single time; the per-athlete loop only matches names.
func (o *Orchestrator) runHollingerStats(ctx context.Context) (*Result, string, error) {
	if o.providers.Hollinger == nil {
		return nil, "", errConfig("leaderboard")
	}

	athletes, err := o.store.ListAthletes(ctx, store.SportBasketball)
	if err != nil {
		return nil, "", fmt.Errorf("list athletes: %w", err)
	}

	result := &Result{}

	rows, err := o.providers.Hollinger.FetchRankings(ctx)
	if err != nil {
		// A dead page fails the whole batch, but it is a scrape failure,
		// not a fatal configuration problem.
		result.Processed = len(athletes)
		result.AddError("fetch rankings: %v", err)
		return result, "", nil
	}

	month := o.now().Format("2006-01")

	for _, athlete := range athletes {
		result.Processed++

		var matched []store.EfficiencyRanking
		for _, row := range rows {
			if !namematch.Match(row.PlayerName, athlete.Name) {
				continue
			}
			matched = append(matched, store.EfficiencyRanking{
				AthleteID:  athlete.ID,
				Month:      month,
				Rank:       row.Rank,
				PlayerName: row.PlayerName,
				Team:       row.Team,
				Value:      row.Efficiency,
			})
		}

		// Replacing with an empty set clears a stale snapshot for athletes
		// who dropped off the leaderboard.
		if err := o.store.ReplaceEfficiencyRankings(ctx, athlete.ID, month, matched); err != nil {
			result.AddError("%s: replace rankings: %v", athlete.Name, err)
			continue
		}
		result.Succeeded++
	}
	return result, "", nil
}
