package bdl

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/kadromedya/statsync/internal/namematch"
	"github.com/kadromedya/statsync/internal/store"
)

// Handler fetches and normalizes NBA data from BallDontLie.
type Handler struct {
	client *Client
	logger *slog.Logger

	// id -> display name, lazily loaded from /teams. Stat rows only carry
	// the opponent's team id. Safe without a lock: the sync pipeline runs
	// one batch at a time.
	teams map[int]string
}

// NewHandler creates an NBA handler with the given API key.
func NewHandler(apiKey string, logger *slog.Logger) *Handler {
	return &Handler{
		client: NewClient("", apiKey, 600, logger),
		logger: logger,
	}
}

// NewHandlerForTest creates a handler pointed at a fake upstream.
func NewHandlerForTest(baseURL string, logger *slog.Logger) *Handler {
	return &Handler{
		client: NewClient(baseURL, "test-key", 6000, logger),
		logger: logger,
	}
}

// SeasonLabel renders BDL's season start year as a display label,
// e.g. 2024 -> "2024-25".
func SeasonLabel(season int) string {
	return fmt.Sprintf("%d-%02d", season, (season+1)%100)
}

// --------------------------------------------------------------------------
// Player search
// --------------------------------------------------------------------------

type bdlPlayerRaw struct {
	ID        int    `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Team      *struct {
		ID       int    `json:"id"`
		FullName string `json:"full_name"`
	} `json:"team"`
}

// ResolvePlayerID searches BDL for a player matching the athlete's name,
// trying query variants loosest-last and verifying each candidate with the
// fuzzy matcher.
func (h *Handler) ResolvePlayerID(ctx context.Context, athlete store.Athlete) (int, error) {
	for _, query := range namematch.QueryVariants(athlete.Name, athlete.Aliases) {
		resp, err := h.client.get(ctx, "/players", url.Values{
			"search":   {query},
			"per_page": {"25"},
		})
		if err != nil {
			return 0, fmt.Errorf("search player %q: %w", query, err)
		}

		var raw []bdlPlayerRaw
		if err := json.Unmarshal(resp.Data, &raw); err != nil {
			return 0, fmt.Errorf("decode player search: %w", err)
		}

		for _, p := range raw {
			full := p.FirstName + " " + p.LastName
			if namematch.Match(full, athlete.Name) {
				return p.ID, nil
			}
		}
	}
	return 0, fmt.Errorf("no player matching %q found", athlete.Name)
}

// --------------------------------------------------------------------------
// Season averages — a single aggregate call, stored as-is
// --------------------------------------------------------------------------

// SeasonAverages is a player's aggregated stat line for one season.
type SeasonAverages struct {
	Season      int
	GamesPlayed int
	Minutes     string
	Stats       store.BasketballStats
}

type seasonAverageRaw struct {
	Season      int     `json:"season"`
	GamesPlayed int     `json:"games_played"`
	Min         string  `json:"min"`
	Pts         float64 `json:"pts"`
	Reb         float64 `json:"reb"`
	Ast         float64 `json:"ast"`
	Stl         float64 `json:"stl"`
	Blk         float64 `json:"blk"`
	Turnover    float64 `json:"turnover"`
	FGPct       float64 `json:"fg_pct"`
	FG3Pct      float64 `json:"fg3_pct"`
	FTPct       float64 `json:"ft_pct"`
}

// FetchSeasonAverages fetches one player's season averages. Returns nil if
// the player has no recorded games for the season.
func (h *Handler) FetchSeasonAverages(ctx context.Context, playerID, season int) (*SeasonAverages, error) {
	resp, err := h.client.get(ctx, "/season_averages", url.Values{
		"season":    {strconv.Itoa(season)},
		"player_id": {strconv.Itoa(playerID)},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch season averages player %d: %w", playerID, err)
	}

	var raw []seasonAverageRaw
	if err := json.Unmarshal(resp.Data, &raw); err != nil {
		return nil, fmt.Errorf("decode season averages: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	r := raw[0]
	return &SeasonAverages{
		Season:      r.Season,
		GamesPlayed: r.GamesPlayed,
		Minutes:     r.Min,
		Stats: store.BasketballStats{
			Points:   r.Pts,
			Rebounds: r.Reb,
			Assists:  r.Ast,
			Steals:   r.Stl,
			Blocks:   r.Blk,
			Turnover: r.Turnover,
			FGPct:    r.FGPct,
			FG3Pct:   r.FG3Pct,
			FTPct:    r.FTPct,
		},
	}, nil
}

// --------------------------------------------------------------------------
// Recent games (cursor-paginated per-game stat rows)
// --------------------------------------------------------------------------

// GameLine is one player-game stat row.
type GameLine struct {
	Date     time.Time
	Opponent string
	IsHome   bool
	Result   string
	Minutes  int
	Stats    store.BasketballStats
}

type gameStatsRaw struct {
	Min  string `json:"min"`
	Game struct {
		Date             string `json:"date"`
		HomeTeamID       int    `json:"home_team_id"`
		VisitorTeamID    int    `json:"visitor_team_id"`
		HomeTeamScore    int    `json:"home_team_score"`
		VisitorTeamScore int    `json:"visitor_team_score"`
	} `json:"game"`
	Team struct {
		ID int `json:"id"`
	} `json:"team"`
	Pts      float64 `json:"pts"`
	Reb      float64 `json:"reb"`
	Ast      float64 `json:"ast"`
	Stl      float64 `json:"stl"`
	Blk      float64 `json:"blk"`
	Turnover float64 `json:"turnover"`
}

// FetchRecentGames fetches a player's per-game stat rows between two dates.
func (h *Handler) FetchRecentGames(ctx context.Context, playerID int, from, to time.Time) ([]GameLine, error) {
	params := url.Values{
		"player_ids[]": {strconv.Itoa(playerID)},
		"start_date":   {from.Format("2006-01-02")},
		"end_date":     {to.Format("2006-01-02")},
		"per_page":     {"100"},
	}

	var lines []GameLine
	for {
		resp, err := h.client.get(ctx, "/stats", params)
		if err != nil {
			return nil, fmt.Errorf("fetch stats player %d: %w", playerID, err)
		}

		var raw []gameStatsRaw
		if err := json.Unmarshal(resp.Data, &raw); err != nil {
			return nil, fmt.Errorf("decode stats: %w", err)
		}

		for _, g := range raw {
			line := normalizeGameLine(g)

			opponentID := g.Game.VisitorTeamID
			if !line.IsHome {
				opponentID = g.Game.HomeTeamID
			}
			name, err := h.teamName(ctx, opponentID)
			if err != nil {
				return nil, err
			}
			line.Opponent = name

			lines = append(lines, line)
		}

		if resp.Meta.NextCursor == nil {
			break
		}
		params.Set("cursor", strconv.Itoa(*resp.Meta.NextCursor))
	}
	return lines, nil
}

type bdlTeamRaw struct {
	ID           int    `json:"id"`
	Abbreviation string `json:"abbreviation"`
	FullName     string `json:"full_name"`
}

// teamName resolves a team id to its display name, loading the league table
// on first use. The table is 30 rows and changes never, so one fetch per
// process is enough.
func (h *Handler) teamName(ctx context.Context, teamID int) (string, error) {
	if h.teams == nil {
		resp, err := h.client.get(ctx, "/teams", url.Values{"per_page": {"100"}})
		if err != nil {
			return "", fmt.Errorf("fetch teams: %w", err)
		}
		var raw []bdlTeamRaw
		if err := json.Unmarshal(resp.Data, &raw); err != nil {
			return "", fmt.Errorf("decode teams: %w", err)
		}
		h.teams = make(map[int]string, len(raw))
		for _, t := range raw {
			name := t.FullName
			if name == "" {
				name = t.Abbreviation
			}
			h.teams[t.ID] = name
		}
	}

	if name, ok := h.teams[teamID]; ok && name != "" {
		return name, nil
	}
	// Expansion team or a gap in the table; keep the row usable.
	return fmt.Sprintf("Team %d", teamID), nil
}

func normalizeGameLine(raw gameStatsRaw) GameLine {
	date, _ := time.Parse("2006-01-02", raw.Game.Date)
	isHome := raw.Team.ID == raw.Game.HomeTeamID

	result := fmt.Sprintf("%d-%d", raw.Game.HomeTeamScore, raw.Game.VisitorTeamScore)
	minutes := 0
	if raw.Min != "" {
		// BDL reports minutes as "34" or "34:12".
		if n, err := strconv.Atoi(raw.Min[:minIndex(raw.Min)]); err == nil {
			minutes = n
		}
	}

	return GameLine{
		Date:    date,
		IsHome:  isHome,
		Result:  result,
		Minutes: minutes,
		Stats: store.BasketballStats{
			Points:   raw.Pts,
			Rebounds: raw.Reb,
			Assists:  raw.Ast,
			Steals:   raw.Stl,
			Blocks:   raw.Blk,
			Turnover: raw.Turnover,
		},
	}
}

func minIndex(s string) int {
	for i, c := range s {
		if c == ':' {
			return i
		}
	}
	return len(s)
}
