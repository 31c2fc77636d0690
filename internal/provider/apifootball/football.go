package apifootball

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

// Finished fixture statuses (full time, after extra time, after penalties).
const finishedStatuses = "FT-AET-PEN"

// Handler fetches and normalizes football data from API-Football.
type Handler struct {
	client *Client
	logger *slog.Logger
}

// NewHandler creates a football handler with the given API key.
func NewHandler(apiKey string, logger *slog.Logger) *Handler {
	return &Handler{
		client: NewClient("", apiKey, 300, logger),
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

// --------------------------------------------------------------------------
// Player search / id resolution
// --------------------------------------------------------------------------

type playerSearchRaw struct {
	Player struct {
		ID        int    `json:"id"`
		Name      string `json:"name"`
		FirstName string `json:"firstname"`
		LastName  string `json:"lastname"`
	} `json:"player"`
	Statistics []struct {
		Team struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"team"`
	} `json:"statistics"`
}

// ResolvePlayerID searches API-Football for a player matching the athlete's
// name. When expectedTeamID is set the search is filtered to that club
// first; a miss retries unfiltered so a mid-season transfer degrades to the
// fuzzy-name path instead of resolving nothing. Query variants are tried
// loosest-last.
func (h *Handler) ResolvePlayerID(ctx context.Context, athlete store.Athlete) (int, error) {
	variants := namematch.QueryVariants(athlete.Name, athlete.Aliases)

	passes := []bool{false}
	if athlete.FootballTeamID != nil {
		passes = []bool{true, false}
	}

	for _, filtered := range passes {
		for _, query := range variants {
			// API-Football requires search terms of 3+ characters.
			if len(query) < 3 {
				continue
			}
			// The /players endpoint only permits a bare search when scoped
			// to a team; the unfiltered retry goes through /players/profiles.
			path := "/players/profiles"
			params := url.Values{"search": {query}}
			if filtered {
				path = "/players"
				params.Set("team", strconv.Itoa(*athlete.FootballTeamID))
			}

			env, err := h.client.get(ctx, path, params)
			if err != nil {
				return 0, fmt.Errorf("search player %q: %w", query, err)
			}

			var results []playerSearchRaw
			if err := json.Unmarshal(env.Response, &results); err != nil {
				return 0, fmt.Errorf("decode player search: %w", err)
			}

			for _, r := range results {
				full := r.Player.Name
				if r.Player.FirstName != "" && r.Player.LastName != "" {
					full = r.Player.FirstName + " " + r.Player.LastName
				}
				if namematch.Match(r.Player.Name, athlete.Name) || namematch.Match(full, athlete.Name) {
					return r.Player.ID, nil
				}
			}
		}
	}

	return 0, fmt.Errorf("no player matching %q found", athlete.Name)
}

// --------------------------------------------------------------------------
// Fixtures
// --------------------------------------------------------------------------

// Fixture is a normalized fixture row.
type Fixture struct {
	ID         int
	Date       time.Time
	Status     string
	Elapsed    *int
	League     string
	HomeTeamID int
	HomeTeam   string
	AwayTeamID int
	AwayTeam   string
	HomeGoals  *int
	AwayGoals  *int
}

// Result formats the final score from the home side's perspective.
func (f Fixture) Result() string {
	if f.HomeGoals == nil || f.AwayGoals == nil {
		return ""
	}
	return fmt.Sprintf("%d-%d", *f.HomeGoals, *f.AwayGoals)
}

type fixtureRaw struct {
	Fixture struct {
		ID     int    `json:"id"`
		Date   string `json:"date"`
		Status struct {
			Short   string `json:"short"`
			Elapsed *int   `json:"elapsed"`
		} `json:"status"`
	} `json:"fixture"`
	League struct {
		Name string `json:"name"`
	} `json:"league"`
	Teams struct {
		Home struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"home"`
		Away struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

func normalizeFixture(raw fixtureRaw) Fixture {
	date, _ := time.Parse(time.RFC3339, raw.Fixture.Date)
	return Fixture{
		ID:         raw.Fixture.ID,
		Date:       date,
		Status:     raw.Fixture.Status.Short,
		Elapsed:    raw.Fixture.Status.Elapsed,
		League:     raw.League.Name,
		HomeTeamID: raw.Teams.Home.ID,
		HomeTeam:   raw.Teams.Home.Name,
		AwayTeamID: raw.Teams.Away.ID,
		AwayTeam:   raw.Teams.Away.Name,
		HomeGoals:  raw.Goals.Home,
		AwayGoals:  raw.Goals.Away,
	}
}

func (h *Handler) fixtures(ctx context.Context, params url.Values) ([]Fixture, error) {
	env, err := h.client.get(ctx, "/fixtures", params)
	if err != nil {
		return nil, err
	}

	var raw []fixtureRaw
	if err := json.Unmarshal(env.Response, &raw); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	fixtures := make([]Fixture, len(raw))
	for i, r := range raw {
		fixtures[i] = normalizeFixture(r)
	}
	return fixtures, nil
}

// RecentFixtures fetches a team's last n completed fixtures.
func (h *Handler) RecentFixtures(ctx context.Context, teamID, n int) ([]Fixture, error) {
	fixtures, err := h.fixtures(ctx, url.Values{
		"team":   {strconv.Itoa(teamID)},
		"last":   {strconv.Itoa(n)},
		"status": {finishedStatuses},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch recent fixtures team %d: %w", teamID, err)
	}
	return fixtures, nil
}

// UpcomingFixtures fetches a team's next n scheduled fixtures.
func (h *Handler) UpcomingFixtures(ctx context.Context, teamID, n int) ([]Fixture, error) {
	fixtures, err := h.fixtures(ctx, url.Values{
		"team": {strconv.Itoa(teamID)},
		"next": {strconv.Itoa(n)},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch upcoming fixtures team %d: %w", teamID, err)
	}
	return fixtures, nil
}

// LiveFixtures fetches every fixture currently in play.
func (h *Handler) LiveFixtures(ctx context.Context) ([]Fixture, error) {
	fixtures, err := h.fixtures(ctx, url.Values{"live": {"all"}})
	if err != nil {
		return nil, fmt.Errorf("fetch live fixtures: %w", err)
	}
	return fixtures, nil
}

// --------------------------------------------------------------------------
// Per-fixture player statistics
// --------------------------------------------------------------------------

// PlayerLine is one player's stat line within a fixture.
type PlayerLine struct {
	PlayerID int
	Name     string
	Minutes  int
	Rating   *float64
	Position string
	Stats    store.FootballStats
}

type fixturePlayersRaw struct {
	Team struct {
		ID int `json:"id"`
	} `json:"team"`
	Players []struct {
		Player struct {
			ID   int    `json:"id"`
			Name string `json:"name"`
		} `json:"player"`
		Statistics []playerStatsRaw `json:"statistics"`
	} `json:"players"`
}

type playerStatsRaw struct {
	Games struct {
		Minutes  *int   `json:"minutes"`
		Rating   string `json:"rating"`
		Position string `json:"position"`
	} `json:"games"`
	Goals struct {
		Total    *int `json:"total"`
		Assists  *int `json:"assists"`
		Saves    *int `json:"saves"`
		Conceded *int `json:"conceded"`
	} `json:"goals"`
	Shots struct {
		Total *int `json:"total"`
		On    *int `json:"on"`
	} `json:"shots"`
	Passes struct {
		Total *int `json:"total"`
		Key   *int `json:"key"`
	} `json:"passes"`
	Tackles struct {
		Total *int `json:"total"`
	} `json:"tackles"`
	Cards struct {
		Yellow *int `json:"yellow"`
		Red    *int `json:"red"`
	} `json:"cards"`
}

// FixturePlayerLine fetches the fixture's full player-statistics payload and
// locates the tracked player's entry by id, falling back to a name match.
// found=false means the player has no entry — an explicit did-not-play
// record, not an error.
func (h *Handler) FixturePlayerLine(ctx context.Context, fixtureID, playerID int, playerName string) (PlayerLine, bool, error) {
	env, err := h.client.get(ctx, "/fixtures/players", url.Values{
		"fixture": {strconv.Itoa(fixtureID)},
	})
	if err != nil {
		return PlayerLine{}, false, fmt.Errorf("fetch fixture %d players: %w", fixtureID, err)
	}

	var teams []fixturePlayersRaw
	if err := json.Unmarshal(env.Response, &teams); err != nil {
		return PlayerLine{}, false, fmt.Errorf("decode fixture players: %w", err)
	}

	for _, team := range teams {
		for _, p := range team.Players {
			if p.Player.ID != playerID && !namematch.Match(p.Player.Name, playerName) {
				continue
			}
			if len(p.Statistics) == 0 {
				return PlayerLine{}, false, nil
			}
			return normalizePlayerLine(p.Player.ID, p.Player.Name, p.Statistics[0]), true, nil
		}
	}
	return PlayerLine{}, false, nil
}

func normalizePlayerLine(id int, name string, raw playerStatsRaw) PlayerLine {
	line := PlayerLine{
		PlayerID: id,
		Name:     name,
		Minutes:  intOr(raw.Games.Minutes, 0),
		Position: raw.Games.Position,
		Stats: store.FootballStats{
			Goals:         intOr(raw.Goals.Total, 0),
			Assists:       intOr(raw.Goals.Assists, 0),
			ShotsTotal:    intOr(raw.Shots.Total, 0),
			ShotsOn:       intOr(raw.Shots.On, 0),
			PassesTotal:   intOr(raw.Passes.Total, 0),
			KeyPasses:     intOr(raw.Passes.Key, 0),
			Tackles:       intOr(raw.Tackles.Total, 0),
			Yellow:        intOr(raw.Cards.Yellow, 0),
			Red:           intOr(raw.Cards.Red, 0),
			Saves:         intOr(raw.Goals.Saves, 0),
			GoalsConceded: intOr(raw.Goals.Conceded, 0),
		},
	}
	if raw.Games.Position == "G" {
		line.Stats.CleanSheet = intOr(raw.Goals.Conceded, 0) == 0 && line.Minutes > 0
	}
	if raw.Games.Rating != "" {
		if r, err := strconv.ParseFloat(raw.Games.Rating, 64); err == nil {
			line.Rating = &r
		}
	}
	return line
}

// --------------------------------------------------------------------------
// Season statistics
// --------------------------------------------------------------------------

// SeasonLine is a player's aggregated season stats in one competition.
type SeasonLine struct {
	Competition  string
	GamesPlayed  int
	GamesStarted int
	Stats        store.FootballStats
}

// SeasonReport bundles the per-competition aggregates with the player-level
// injury flag the same payload carries.
type SeasonReport struct {
	Lines   []SeasonLine
	Injured bool
}

type seasonStatsRaw struct {
	Player struct {
		Injured bool `json:"injured"`
	} `json:"player"`
	Statistics []struct {
		League struct {
			Name string `json:"name"`
		} `json:"league"`
		Games struct {
			Appearances *int `json:"appearences"` // provider's spelling
			Lineups     *int `json:"lineups"`
		} `json:"games"`
		Goals struct {
			Total    *int `json:"total"`
			Assists  *int `json:"assists"`
			Saves    *int `json:"saves"`
			Conceded *int `json:"conceded"`
		} `json:"goals"`
		Shots struct {
			Total *int `json:"total"`
			On    *int `json:"on"`
		} `json:"shots"`
		Passes struct {
			Total *int `json:"total"`
			Key   *int `json:"key"`
		} `json:"passes"`
		Tackles struct {
			Total *int `json:"total"`
		} `json:"tackles"`
		Cards struct {
			Yellow *int `json:"yellow"`
			Red    *int `json:"red"`
		} `json:"cards"`
	} `json:"statistics"`
}

// SeasonStatistics fetches a player's per-competition season aggregates and
// current injury flag.
func (h *Handler) SeasonStatistics(ctx context.Context, playerID, season int) (*SeasonReport, error) {
	env, err := h.client.get(ctx, "/players", url.Values{
		"id":     {strconv.Itoa(playerID)},
		"season": {strconv.Itoa(season)},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch season stats player %d: %w", playerID, err)
	}

	var raw []seasonStatsRaw
	if err := json.Unmarshal(env.Response, &raw); err != nil {
		return nil, fmt.Errorf("decode season stats: %w", err)
	}
	if len(raw) == 0 {
		return &SeasonReport{}, nil
	}

	report := &SeasonReport{Injured: raw[0].Player.Injured}
	for _, s := range raw[0].Statistics {
		report.Lines = append(report.Lines, SeasonLine{
			Competition:  s.League.Name,
			GamesPlayed:  intOr(s.Games.Appearances, 0),
			GamesStarted: intOr(s.Games.Lineups, 0),
			Stats: store.FootballStats{
				Goals:         intOr(s.Goals.Total, 0),
				Assists:       intOr(s.Goals.Assists, 0),
				ShotsTotal:    intOr(s.Shots.Total, 0),
				ShotsOn:       intOr(s.Shots.On, 0),
				PassesTotal:   intOr(s.Passes.Total, 0),
				KeyPasses:     intOr(s.Passes.Key, 0),
				Tackles:       intOr(s.Tackles.Total, 0),
				Yellow:        intOr(s.Cards.Yellow, 0),
				Red:           intOr(s.Cards.Red, 0),
				Saves:         intOr(s.Goals.Saves, 0),
				GoalsConceded: intOr(s.Goals.Conceded, 0),
			},
		})
	}
	return report, nil
}

// --------------------------------------------------------------------------
// Match events
// --------------------------------------------------------------------------

// Event is one in-game event (goal, card, substitution).
type Event struct {
	Minute   int
	Type     string
	Detail   string
	PlayerID int
	Player   string
}

type eventRaw struct {
	Time struct {
		Elapsed int `json:"elapsed"`
	} `json:"time"`
	Type   string `json:"type"`
	Detail string `json:"detail"`
	Player struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	} `json:"player"`
}

// FixtureEvents fetches a fixture's event timeline.
func (h *Handler) FixtureEvents(ctx context.Context, fixtureID int) ([]Event, error) {
	env, err := h.client.get(ctx, "/fixtures/events", url.Values{
		"fixture": {strconv.Itoa(fixtureID)},
	})
	if err != nil {
		return nil, fmt.Errorf("fetch fixture %d events: %w", fixtureID, err)
	}

	var raw []eventRaw
	if err := json.Unmarshal(env.Response, &raw); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	events := make([]Event, len(raw))
	for i, e := range raw {
		events[i] = Event{
			Minute:   e.Time.Elapsed,
			Type:     e.Type,
			Detail:   e.Detail,
			PlayerID: e.Player.ID,
			Player:   e.Player.Name,
		}
	}
	return events, nil
}

// FormatEvent renders an event for display, e.g. "Goal 67' Arda Güler".
func FormatEvent(e Event) string {
	return fmt.Sprintf("%s %d' %s", e.Type, e.Minute, e.Player)
}

func intOr(p *int, fallback int) int {
	if p == nil {
		return fallback
	}
	return *p
}
