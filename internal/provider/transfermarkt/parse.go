package transfermarkt

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/kadromedya/statsync/internal/store"
)

// Date layouts seen across the site's locales.
var dateLayouts = []string{"Jan 2, 2006", "02.01.2006", "2006-01-02"}

func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

var (
	feeRe      = regexp.MustCompile(`(?i)(?:€|£)[\d.,]+\s*(?:m|k|bn)?|free transfer|loan`)
	daysOutRe  = regexp.MustCompile(`(\d+)\s*days?`)
	gamesRe    = regexp.MustCompile(`^\s*(\d+)\s*$`)
	valueRe    = regexp.MustCompile(`(?:€|£)[\d.,]+(?:m|k|bn)?`)
	seasonRe   = regexp.MustCompile(`\d{2}/\d{2}`)
	injuryWord = regexp.MustCompile(`(?i)injur|strain|tear|fracture|surgery|ill|knock|problems?`)
)

// --------------------------------------------------------------------------
// Transfers
// --------------------------------------------------------------------------

// FetchTransfers scrapes a player's transfer history.
func (s *Scraper) FetchTransfers(ctx context.Context, athlete store.Athlete) ([]store.Transfer, error) {
	if athlete.TransfermarktID == nil {
		return nil, fmt.Errorf("athlete %d has no transfermarkt id", athlete.ID)
	}
	doc, err := s.fetchDocument(ctx, playerPath(slugify(athlete.Name), *athlete.TransfermarktID, "transfers"))
	if err != nil {
		return nil, err
	}

	transfers := ParseTransfers(doc, athlete.ID)
	if len(transfers) == 0 {
		return nil, fmt.Errorf("no transfer rows recovered from page")
	}
	return transfers, nil
}

// ParseTransfers extracts transfer rows from a transfer-history page. Rows
// missing the date or either club are skipped; a missing fee or season
// yields a null field, not a skipped row.
func ParseTransfers(doc *goquery.Document, athleteID int64) []store.Transfer {
	var transfers []store.Transfer

	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 3 {
			return
		}

		var date *time.Time
		var clubs []string
		var fee, season *string

		for _, text := range cells {
			if date == nil {
				if d := parseDate(text); d != nil {
					date = d
					continue
				}
			}
			if season == nil && seasonRe.MatchString(text) {
				v := seasonRe.FindString(text)
				season = &v
				continue
			}
			if fee == nil && feeRe.MatchString(strings.ToLower(text)) && !seasonRe.MatchString(text) {
				if v := strings.TrimSpace(text); v != "" && v != "-" {
					fee = &v
				}
				continue
			}
			if text != "" && len(clubs) < 2 {
				clubs = append(clubs, text)
			}
		}

		if date == nil || len(clubs) < 2 {
			return
		}

		transfers = append(transfers, store.Transfer{
			AthleteID:    athleteID,
			TransferDate: *date,
			FromClub:     clubs[0],
			ToClub:       clubs[1],
			Fee:          fee,
			Season:       season,
		})
	})

	return transfers
}

// --------------------------------------------------------------------------
// Injuries
// --------------------------------------------------------------------------

// FetchInjuries scrapes a player's injury history.
func (s *Scraper) FetchInjuries(ctx context.Context, athlete store.Athlete) ([]store.Injury, error) {
	if athlete.TransfermarktID == nil {
		return nil, fmt.Errorf("athlete %d has no transfermarkt id", athlete.ID)
	}
	doc, err := s.fetchDocument(ctx, playerPath(slugify(athlete.Name), *athlete.TransfermarktID, "verletzungen"))
	if err != nil {
		return nil, err
	}

	injuries := ParseInjuries(doc, athlete.ID)
	if len(injuries) == 0 {
		return nil, fmt.Errorf("no injury rows recovered from page")
	}
	return injuries, nil
}

// ParseInjuries extracts injury rows. A row needs an injury description and
// a start date; end date, days out, and games missed degrade to null.
func ParseInjuries(doc *goquery.Document, athleteID int64) []store.Injury {
	var injuries []store.Injury

	doc.Find("table tbody tr").Each(func(_ int, row *goquery.Selection) {
		cells := cellTexts(row)
		if len(cells) < 2 {
			return
		}

		var injuryType string
		var start, end *time.Time
		var daysOut, gamesMissed *int

		for _, text := range cells {
			if d := parseDate(text); d != nil {
				if start == nil {
					start = d
				} else if end == nil {
					end = d
				}
				continue
			}
			if m := daysOutRe.FindStringSubmatch(strings.ToLower(text)); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					daysOut = &n
				}
				continue
			}
			if m := gamesRe.FindStringSubmatch(text); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil {
					gamesMissed = &n
				}
				continue
			}
			if injuryType == "" && injuryWord.MatchString(text) {
				injuryType = text
			}
		}

		if injuryType == "" || start == nil {
			return
		}

		injuries = append(injuries, store.Injury{
			AthleteID:   athleteID,
			InjuryType:  injuryType,
			StartDate:   *start,
			EndDate:     end,
			DaysOut:     daysOut,
			GamesMissed: gamesMissed,
		})
	})

	return injuries
}

// --------------------------------------------------------------------------
// Market value
// --------------------------------------------------------------------------

// FetchMarketValue scrapes a player's current market valuation.
func (s *Scraper) FetchMarketValue(ctx context.Context, athlete store.Athlete, now time.Time) (*store.MarketValue, error) {
	if athlete.TransfermarktID == nil {
		return nil, fmt.Errorf("athlete %d has no transfermarkt id", athlete.ID)
	}
	doc, err := s.fetchDocument(ctx, playerPath(slugify(athlete.Name), *athlete.TransfermarktID, "marktwertverlauf"))
	if err != nil {
		return nil, err
	}

	mv := ParseMarketValue(doc, athlete.ID, now)
	if mv == nil {
		return nil, fmt.Errorf("no market value recovered from page")
	}
	return mv, nil
}

// ParseMarketValue recovers the current market value from the page header,
// falling back to the first currency amount anywhere in the document. The
// current club degrades to null.
func ParseMarketValue(doc *goquery.Document, athleteID int64, now time.Time) *store.MarketValue {
	value := extractCurrentValue(doc)
	if value == nil {
		return nil
	}

	mv := &store.MarketValue{
		AthleteID:    athleteID,
		RecordedDate: now,
		Value:        *value,
	}
	if club := extractCurrentClub(doc); club != nil {
		mv.Club = club
	}
	return mv
}

// extractCurrentValue recovers the headline market value, nil on miss.
func extractCurrentValue(doc *goquery.Document) *string {
	selectors := []string{
		".tm-player-market-value-development__current-value",
		".data-header__market-value-wrapper",
	}
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if v := valueRe.FindString(text); v != "" {
			return &v
		}
	}
	if v := valueRe.FindString(doc.Text()); v != "" {
		return &v
	}
	return nil
}

// extractCurrentClub recovers the player's current club name, nil on miss.
func extractCurrentClub(doc *goquery.Document) *string {
	selectors := []string{
		".data-header__club a",
		".hauptpunkt a",
	}
	for _, sel := range selectors {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return &text
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

// cellTexts returns the trimmed text of each cell in a table row.
func cellTexts(row *goquery.Selection) []string {
	var cells []string
	row.Find("td").Each(func(_ int, cell *goquery.Selection) {
		cells = append(cells, strings.TrimSpace(cell.Text()))
	})
	return cells
}
