package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kadromedya/statsync/internal/store"
)

// runTransfermarkt scrapes transfer history, injury history, and current
// market value for every football athlete with a known site id. Athletes
// without one are not processed; the id is curated by hand, not searched.
func (o *Orchestrator) runTransfermarkt(ctx context.Context) (*Result, string, error) {
	if o.providers.Transfermarkt == nil {
		return nil, "", errConfig("transfermarkt")
	}

	athletes, err := o.store.ListAthletes(ctx, store.SportFootball)
	if err != nil {
		return nil, "", fmt.Errorf("list athletes: %w", err)
	}

	result := &Result{}
	now := o.now()

	for _, athlete := range athletes {
		if athlete.TransfermarktID == nil {
			o.logger.Debug("skipping athlete without transfermarkt id", "athlete", athlete.Name)
			continue
		}
		result.Processed++

		if errs := o.scrapeAthleteMarketData(ctx, athlete, now); len(errs) > 0 {
			result.AddError("%s: %s", athlete.Name, strings.Join(errs, "; "))
			continue
		}
		result.Succeeded++
	}
	return result, "", nil
}

// scrapeAthleteMarketData visits the athlete's three pages. A failed page
// doesn't stop the others; whatever was recovered is still stored.
func (o *Orchestrator) scrapeAthleteMarketData(ctx context.Context, athlete store.Athlete, now time.Time) []string {
	tm := o.providers.Transfermarkt
	var errs []string

	transfers, err := tm.FetchTransfers(ctx, athlete)
	if err != nil {
		errs = append(errs, fmt.Sprintf("transfers: %v", err))
	}
	for _, t := range transfers {
		if err := o.store.UpsertTransfer(ctx, t); err != nil {
			errs = append(errs, fmt.Sprintf("store transfer: %v", err))
			break
		}
	}

	injuries, err := tm.FetchInjuries(ctx, athlete)
	if err != nil {
		errs = append(errs, fmt.Sprintf("injuries: %v", err))
	}
	for _, injury := range injuries {
		if err := o.store.UpsertInjury(ctx, injury); err != nil {
			errs = append(errs, fmt.Sprintf("store injury: %v", err))
			break
		}
	}

	value, err := tm.FetchMarketValue(ctx, athlete, now)
	if err != nil {
		errs = append(errs, fmt.Sprintf("market value: %v", err))
	} else if err := o.store.UpsertMarketValue(ctx, *value); err != nil {
		errs = append(errs, fmt.Sprintf("store market value: %v", err))
	}

	return errs
}
