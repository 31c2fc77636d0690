// Package espn scrapes ESPN's Hollinger efficiency leaderboard through a
// markdown-rendering fetch service and pattern-extracts the table rows.
//
// Pattern scraping over third-party markup is brittle: each extraction rule
// is isolated in its own function returning nil on a miss, so a site-layout
// change degrades one field, not the whole parse. The scrape as a whole
// fails only when zero rows are recoverable.
package espn

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const hollingerURL = "https://insider.espn.com/nba/hollinger/statistics"

// Row is one recovered leaderboard entry.
type Row struct {
	Rank       int
	PlayerName string
	Team       string
	Efficiency float64
}

// Handler fetches and parses the Hollinger leaderboard.
type Handler struct {
	httpClient *http.Client
	renderBase string // markdown-rendering fetch service
	logger     *slog.Logger
}

// NewHandler creates a handler that fetches pages through the rendering
// service at renderBase (e.g. "https://r.jina.ai").
func NewHandler(renderBase string, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		httpClient: &http.Client{Timeout: 45 * time.Second},
		renderBase: strings.TrimRight(renderBase, "/"),
		logger:     logger,
	}
}

// FetchRankings fetches the current leaderboard page and returns every row
// it can recover. An error is returned only when the fetch fails or no rows
// at all are extractable.
func (h *Handler) FetchRankings(ctx context.Context) ([]Row, error) {
	text, err := h.fetchRendered(ctx, hollingerURL)
	if err != nil {
		return nil, err
	}

	rows := ParseRankings(text)
	if len(rows) == 0 {
		return nil, fmt.Errorf("no leaderboard rows recovered from page")
	}
	return rows, nil
}

func (h *Handler) fetchRendered(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.renderBase+"/"+pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch rendered page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read rendered page: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("render service returned %d", resp.StatusCode)
	}
	return string(body), nil
}

// --------------------------------------------------------------------------
// Pattern extraction — one named rule per field, nil on miss
// --------------------------------------------------------------------------

// A rendered leaderboard row looks like:
//
//	| 7 | Alperen Sengun, HOU | 38.2 | 28.9 |
//
// Older renders drop the pipes:
//
//	7 Alperen Sengun, HOU 38.2 28.9
var (
	rankRe       = regexp.MustCompile(`^\|?\s*(\d{1,3})\s*[|.]`)
	playerTeamRe = regexp.MustCompile(`([\p{L}.'\- ]+),\s*([A-Z]{2,4})\b`)
	numberRe     = regexp.MustCompile(`(\d{1,2}\.\d{1,2})`)
)

// extractRank recovers the leading rank number, nil if the line has none.
func extractRank(line string) *int {
	m := rankRe.FindStringSubmatch(line)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// extractPlayerTeam recovers the "Name, TEAM" pair, nils if absent.
func extractPlayerTeam(line string) (*string, *string) {
	m := playerTeamRe.FindStringSubmatch(line)
	if m == nil {
		return nil, nil
	}
	// The name cell can start with leftover list punctuation ("1. Name").
	name := strings.Trim(m[1], " .")
	team := m[2]
	if name == "" {
		return nil, &team
	}
	return &name, &team
}

// extractEfficiency recovers the first decimal stat column after the player
// cell, nil if the row carries no numeric columns.
func extractEfficiency(line string) *float64 {
	// Skip past the player cell so jersey-style numbers in names don't match.
	rest := line
	if loc := playerTeamRe.FindStringIndex(line); loc != nil {
		rest = line[loc[1]:]
	}
	m := numberRe.FindStringSubmatch(rest)
	if m == nil {
		return nil
	}
	f, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseRankings extracts every recoverable leaderboard row from rendered
// page text. Rows missing the rank or player cell are skipped; a row
// missing only its numeric column is kept with a zero value.
func ParseRankings(text string) []Row {
	var rows []Row
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		rank := extractRank(line)
		name, team := extractPlayerTeam(line)
		if rank == nil || name == nil {
			continue
		}

		row := Row{Rank: *rank, PlayerName: *name}
		if team != nil {
			row.Team = *team
		}
		if eff := extractEfficiency(line); eff != nil {
			row.Efficiency = *eff
		}
		rows = append(rows, row)
	}
	return rows
}
