package sync

import (
	"context"
	"fmt"
)

const newsPerAthlete = 10

// runNews discovers and stores recent articles for every tracked athlete,
// any sport. Items are keyed (athlete, url), so rediscovered articles
// overwrite in place.
func (o *Orchestrator) runNews(ctx context.Context) (*Result, string, error) {
	if o.providers.News == nil {
		return nil, "", errConfig("news")
	}

	athletes, err := o.store.ListAthletes(ctx, "")
	if err != nil {
		return nil, "", fmt.Errorf("list athletes: %w", err)
	}

	result := &Result{}

	for _, athlete := range athletes {
		result.Processed++

		items, err := o.providers.News.SearchAthleteNews(ctx, athlete, newsPerAthlete)
		if err != nil {
			result.AddError("%s: %v", athlete.Name, err)
			continue
		}

		failed := false
		for _, item := range items {
			if err := o.store.UpsertNewsItem(ctx, item); err != nil {
				result.AddError("%s: store article: %v", athlete.Name, err)
				failed = true
				break
			}
		}
		if !failed {
			result.Succeeded++
		}
	}
	return result, "", nil
}
