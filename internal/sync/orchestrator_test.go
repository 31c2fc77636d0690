package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadromedya/statsync/internal/auth"
	"github.com/kadromedya/statsync/internal/config"
	"github.com/kadromedya/statsync/internal/cooldown"
	"github.com/kadromedya/statsync/internal/provider/apifootball"
	"github.com/kadromedya/statsync/internal/provider/bdl"
	"github.com/kadromedya/statsync/internal/provider/espn"
	"github.com/kadromedya/statsync/internal/store"
	"github.com/kadromedya/statsync/internal/store/memstore"
)

const testSecret = "hook-secret"

var webhookCreds = auth.Credentials{WebhookSecret: testSecret}

type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func newTestOrchestrator(ms *memstore.Store, providers Providers, clock *testClock) *Orchestrator {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{WebhookSecret: testSecret, Cooldowns: config.DefaultCooldowns}
	o := New(ms, auth.NewGate(testSecret, nil, ms, logger), cooldown.NewGuard(ms, logger), cfg, providers, logger)
	o.now = clock.Now
	return o
}

func intPtr(n int) *int { return &n }

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// --------------------------------------------------------------------------
// Fake API-Football upstream
// --------------------------------------------------------------------------

type footballState struct {
	requests      int
	upcomingCount int
	live          bool
	injured       bool
}

func envelope(response interface{}) map[string]interface{} {
	return map[string]interface{}{
		"results":  1,
		"errors":   map[string]string{},
		"response": response,
	}
}

func fixturePayload(id int, date string, status string, elapsed *int, homeID int, home string, awayID int, away string, homeGoals, awayGoals *int) map[string]interface{} {
	return map[string]interface{}{
		"fixture": map[string]interface{}{
			"id":   id,
			"date": date,
			"status": map[string]interface{}{
				"short":   status,
				"elapsed": elapsed,
			},
		},
		"league": map[string]interface{}{"name": "La Liga"},
		"teams": map[string]interface{}{
			"home": map[string]interface{}{"id": homeID, "name": home},
			"away": map[string]interface{}{"id": awayID, "name": away},
		},
		"goals": map[string]interface{}{"home": homeGoals, "away": awayGoals},
	}
}

func newFakeFootballServer(state *footballState) *httptest.Server {
	playerStats := map[string]interface{}{
		"games":   map[string]interface{}{"minutes": 73, "rating": "7.4", "position": "M"},
		"goals":   map[string]interface{}{"total": 1, "assists": 0},
		"shots":   map[string]interface{}{"total": 3, "on": 2},
		"passes":  map[string]interface{}{"total": 40, "key": 2},
		"tackles": map[string]interface{}{"total": 1},
		"cards":   map[string]interface{}{"yellow": 0, "red": 0},
	}

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state.requests++
		q := r.URL.Query()

		switch r.URL.Path {
		case "/players/profiles":
			// Unfiltered search never finds the unresolvable athlete.
			writeJSON(w, envelope([]interface{}{}))

		case "/players":
			if q.Get("id") == "" {
				writeJSON(w, envelope([]interface{}{}))
				return
			}
			writeJSON(w, envelope([]interface{}{map[string]interface{}{
				"player": map[string]interface{}{"id": 1001, "injured": state.injured},
				"statistics": []interface{}{map[string]interface{}{
					"league":  map[string]interface{}{"name": "La Liga"},
					"games":   map[string]interface{}{"appearences": 3, "lineups": 2},
					"goals":   map[string]interface{}{"total": 2, "assists": 1},
					"shots":   map[string]interface{}{"total": 9, "on": 5},
					"passes":  map[string]interface{}{"total": 120, "key": 7},
					"tackles": map[string]interface{}{"total": 4},
					"cards":   map[string]interface{}{"yellow": 1, "red": 0},
				}},
			}}))

		case "/fixtures":
			switch {
			case q.Get("live") == "all":
				var fixtures []interface{}
				if state.live {
					fixtures = append(fixtures, fixturePayload(
						9100, "2026-08-28T11:30:00Z", "2H", intPtr(67),
						541, "Real Madrid", 529, "Barcelona", intPtr(1), intPtr(0)))
				}
				writeJSON(w, envelope(fixtures))
			case q.Get("last") != "":
				writeJSON(w, envelope([]interface{}{fixturePayload(
					9001, "2026-08-25T19:00:00Z", "FT", nil,
					541, "Real Madrid", 529, "Barcelona", intPtr(2), intPtr(1))}))
			default:
				fixtures := make([]interface{}, 0, state.upcomingCount)
				for i := 0; i < state.upcomingCount; i++ {
					date := time.Date(2026, 9, i+1, 19, 0, 0, 0, time.UTC).Format(time.RFC3339)
					fixtures = append(fixtures, fixturePayload(
						9200+i, date, "NS", nil,
						541, "Real Madrid", 600+i, fmt.Sprintf("Opponent %d", i), nil, nil))
				}
				writeJSON(w, envelope(fixtures))
			}

		case "/fixtures/players":
			writeJSON(w, envelope([]interface{}{map[string]interface{}{
				"team": map[string]interface{}{"id": 541},
				"players": []interface{}{map[string]interface{}{
					"player":     map[string]interface{}{"id": 1001, "name": "A. Güler"},
					"statistics": []interface{}{playerStats},
				}},
			}}))

		case "/fixtures/events":
			writeJSON(w, envelope([]interface{}{map[string]interface{}{
				"time":   map[string]interface{}{"elapsed": 67},
				"type":   "Goal",
				"detail": "Normal Goal",
				"player": map[string]interface{}{"id": 1001, "name": "Arda Güler"},
			}}))

		default:
			http.NotFound(w, r)
		}
	}))
}

func footballRoster() []store.Athlete {
	return []store.Athlete{
		{
			ID:             1,
			Name:           "Arda Güler",
			Sport:          store.SportFootball,
			Team:           "Real Madrid",
			FootballAPIID:  intPtr(1001),
			FootballTeamID: intPtr(541),
		},
	}
}

// --------------------------------------------------------------------------
// Orchestrator behavior
// --------------------------------------------------------------------------

func TestRunRejectsMissingAuth(t *testing.T) {
	ms := memstore.New()
	o := newTestOrchestrator(ms, Providers{}, &testClock{now: time.Now()})

	out := o.Run(context.Background(), config.SyncFootballStats, auth.Credentials{})

	assert.Equal(t, http.StatusUnauthorized, out.HTTPStatus)
	assert.False(t, out.Success)
	assert.Empty(t, ms.SyncLogs(), "rejected trigger must not write an audit row")
}

func TestRunUnknownSyncType(t *testing.T) {
	o := newTestOrchestrator(memstore.New(), Providers{}, &testClock{now: time.Now()})
	out := o.Run(context.Background(), "solitaire", webhookCreds)
	assert.Equal(t, http.StatusNotFound, out.HTTPStatus)
}

func TestRunUnconfiguredAdapterIsFatal(t *testing.T) {
	ms := memstore.New()
	o := newTestOrchestrator(ms, Providers{}, &testClock{now: time.Now()})

	out := o.Run(context.Background(), config.SyncFootballStats, webhookCreds)

	assert.Equal(t, http.StatusInternalServerError, out.HTTPStatus)
	logs := ms.SyncLogs()
	require.Len(t, logs, 1, "fatal failure still attempts to log")
	assert.Equal(t, store.SyncStatusError, logs[0].Status)
}

func TestSecondRunWithinCooldownIsSkipped(t *testing.T) {
	state := &footballState{upcomingCount: 2}
	srv := newFakeFootballServer(state)
	defer srv.Close()

	ms := memstore.New()
	ms.Athletes = footballRoster()
	clock := &testClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	o := newTestOrchestrator(ms, Providers{Football: apifootball.NewHandlerForTest(srv.URL, nil)}, clock)

	first := o.Run(context.Background(), config.SyncFootballStats, webhookCreds)
	require.Equal(t, http.StatusOK, first.HTTPStatus)
	require.True(t, first.Success)
	require.False(t, first.Skipped)

	rowsAfterFirst := len(ms.DailyUpdates())
	clock.now = clock.now.Add(10 * time.Minute)

	second := o.Run(context.Background(), config.SyncFootballStats, webhookCreds)
	assert.True(t, second.Success)
	assert.True(t, second.Skipped)
	assert.Positive(t, second.WaitSeconds)
	assert.Len(t, ms.DailyUpdates(), rowsAfterFirst, "skipped run writes nothing")
	assert.Len(t, ms.SyncLogs(), 1, "skipped run adds no audit row")
}

func TestBatchPartialFailure(t *testing.T) {
	state := &footballState{upcomingCount: 2}
	srv := newFakeFootballServer(state)
	defer srv.Close()

	ms := memstore.New()
	ms.Athletes = append(footballRoster(), store.Athlete{
		ID:    2,
		Name:  "John Nobody",
		Sport: store.SportFootball,
	})
	clock := &testClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	o := newTestOrchestrator(ms, Providers{Football: apifootball.NewHandlerForTest(srv.URL, nil)}, clock)

	out := o.Run(context.Background(), config.SyncFootballStats, webhookCreds)

	require.Equal(t, http.StatusOK, out.HTTPStatus)
	require.NotNil(t, out.Result)
	assert.Equal(t, 2, out.Result.Processed)
	assert.Equal(t, 1, out.Result.Succeeded)
	assert.Len(t, out.Result.Errors, 1)

	// The resolvable athlete's data still landed.
	assert.NotEmpty(t, ms.DailyUpdates())
	assert.NotEmpty(t, ms.UpcomingMatches(1))

	logs := ms.SyncLogs()
	require.Len(t, logs, 1)
	assert.Equal(t, store.SyncStatusPartial, logs[0].Status)
}

func TestDailyUpdateRerunOverwritesInPlace(t *testing.T) {
	state := &footballState{upcomingCount: 2}
	srv := newFakeFootballServer(state)
	defer srv.Close()

	ms := memstore.New()
	ms.Athletes = footballRoster()
	clock := &testClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	o := newTestOrchestrator(ms, Providers{Football: apifootball.NewHandlerForTest(srv.URL, nil)}, clock)

	require.True(t, o.Run(context.Background(), config.SyncFootballStats, webhookCreds).Success)
	rows := len(ms.DailyUpdates())

	clock.now = clock.now.Add(7 * time.Hour) // past the cooldown
	require.False(t, o.Run(context.Background(), config.SyncFootballStats, webhookCreds).Skipped)

	assert.Len(t, ms.DailyUpdates(), rows, "same (athlete, date) keys overwrite, not duplicate")
}

func TestFootballSyncRecordsInjuryState(t *testing.T) {
	state := &footballState{upcomingCount: 1}
	srv := newFakeFootballServer(state)
	defer srv.Close()

	ms := memstore.New()
	ms.Athletes = footballRoster()
	clock := &testClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	o := newTestOrchestrator(ms, Providers{Football: apifootball.NewHandlerForTest(srv.URL, nil)}, clock)

	// Healthy athlete: the daily rows carry no injury state.
	require.True(t, o.Run(context.Background(), config.SyncFootballStats, webhookCreds).Success)
	updates := ms.DailyUpdates()
	require.NotEmpty(t, updates)
	assert.Empty(t, updates[0].InjuryStatus)
	assert.Empty(t, updates[0].InjuryDetails)

	// The provider now flags the player injured and the scrape has recorded
	// an open injury with the detail text.
	state.injured = true
	require.NoError(t, ms.UpsertInjury(context.Background(), store.Injury{
		AthleteID:  1,
		InjuryType: "Hamstring strain",
		StartDate:  time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
	}))

	clock.now = clock.now.Add(7 * time.Hour) // past the cooldown
	require.True(t, o.Run(context.Background(), config.SyncFootballStats, webhookCreds).Success)

	updates = ms.DailyUpdates()
	require.NotEmpty(t, updates)
	assert.Equal(t, "injured", updates[0].InjuryStatus)
	assert.Equal(t, "Hamstring strain", updates[0].InjuryDetails)
}

func TestUpcomingScheduleShrinkFullyReplaces(t *testing.T) {
	state := &footballState{upcomingCount: 5}
	srv := newFakeFootballServer(state)
	defer srv.Close()

	ms := memstore.New()
	ms.Athletes = footballRoster()
	clock := &testClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	o := newTestOrchestrator(ms, Providers{Football: apifootball.NewHandlerForTest(srv.URL, nil)}, clock)

	require.True(t, o.Run(context.Background(), config.SyncFootballStats, webhookCreds).Success)
	require.Len(t, ms.UpcomingMatches(1), 5)

	state.upcomingCount = 3
	clock.now = clock.now.Add(7 * time.Hour)
	require.True(t, o.Run(context.Background(), config.SyncFootballStats, webhookCreds).Success)

	assert.Len(t, ms.UpcomingMatches(1), 3, "schedule is a snapshot, not a merge")
}

// --------------------------------------------------------------------------
// Live sync and the schedule filter
// --------------------------------------------------------------------------

func TestLiveSyncSkipsOutsideWindowWithoutAPICall(t *testing.T) {
	state := &footballState{}
	srv := newFakeFootballServer(state)
	defer srv.Close()

	ms := memstore.New()
	ms.Athletes = footballRoster()
	clock := &testClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	o := newTestOrchestrator(ms, Providers{Football: apifootball.NewHandlerForTest(srv.URL, nil)}, clock)

	out := o.Run(context.Background(), config.SyncLiveMatches, webhookCreds)

	assert.True(t, out.Success)
	assert.True(t, out.Skipped)
	assert.Equal(t, "No matches scheduled in current time window", out.Reason)
	assert.Zero(t, state.requests, "schedule filter must gate all external calls")
}

func TestLiveSyncUpsertsAndAgesOut(t *testing.T) {
	state := &footballState{live: true}
	srv := newFakeFootballServer(state)
	defer srv.Close()

	clock := &testClock{now: time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)}
	ms := memstore.New()
	ms.Athletes = append(footballRoster(), store.Athlete{
		ID:             2,
		Name:           "Pedri",
		Sport:          store.SportFootball,
		Team:           "Barcelona",
		FootballAPIID:  intPtr(1002),
		FootballTeamID: intPtr(529),
	})

	// A kickoff 30 minutes ago puts both sides of the fixture in the window:
	// athlete 1 on the home team, athlete 2 on the away team.
	homeID, awayID := 541, 529
	require.NoError(t, ms.ReplaceUpcomingMatches(context.Background(), 1, []store.UpcomingMatch{{
		AthleteID: 1,
		Opponent:  "Barcelona",
		KickoffAt: clock.now.Add(-30 * time.Minute),
		TeamAPIID: &homeID,
	}}))
	require.NoError(t, ms.ReplaceUpcomingMatches(context.Background(), 2, []store.UpcomingMatch{{
		AthleteID: 2,
		Opponent:  "Real Madrid",
		KickoffAt: clock.now.Add(-30 * time.Minute),
		TeamAPIID: &awayID,
	}}))

	// A stale live row from an earlier cycle for an untracked match.
	require.NoError(t, ms.UpsertLiveMatch(context.Background(), store.LiveMatch{
		AthleteID: 3,
		Status:    store.LiveStatusLive,
	}))

	o := newTestOrchestrator(ms, Providers{Football: apifootball.NewHandlerForTest(srv.URL, nil)}, clock)
	out := o.Run(context.Background(), config.SyncLiveMatches, webhookCreds)

	require.True(t, out.Success)
	require.False(t, out.Skipped)

	live, ok := ms.LiveMatch(1)
	require.True(t, ok)
	assert.Equal(t, store.LiveStatusLive, live.Status)
	assert.Equal(t, "1-0", live.Score)
	assert.Equal(t, 67, live.Minute)
	assert.Equal(t, "Goal 67' Arda Güler", live.LastEvent)
	assert.NotEmpty(t, live.Stats)

	// The away side's athlete gets a row too, without a personal stat line.
	awayLive, ok := ms.LiveMatch(2)
	require.True(t, ok)
	assert.Equal(t, store.LiveStatusLive, awayLive.Status)
	assert.Equal(t, "Real Madrid", awayLive.HomeTeam)
	assert.Equal(t, "Barcelona", awayLive.AwayTeam)

	aged, ok := ms.LiveMatch(3)
	require.True(t, ok)
	assert.Equal(t, store.LiveStatusFinished, aged.Status, "rows absent from the live set age to finished")
}

// --------------------------------------------------------------------------
// Basketball end to end
// --------------------------------------------------------------------------

func newFakeBDLServer() *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/players":
			writeJSON(w, map[string]interface{}{
				"data": []interface{}{map[string]interface{}{
					"id":         132,
					"first_name": "Alperen",
					"last_name":  "Sengun",
					"team":       map[string]interface{}{"id": 11, "full_name": "Houston Rockets"},
				}},
				"meta": map[string]interface{}{"next_cursor": nil},
			})
		case "/season_averages":
			writeJSON(w, map[string]interface{}{
				"data": []interface{}{map[string]interface{}{
					"season":       2024,
					"games_played": 40,
					"min":          "32:45",
					"pts":          22.1,
					"reb":          9.8,
					"ast":          4.9,
					"stl":          1.1,
					"blk":          0.9,
					"turnover":     2.4,
					"fg_pct":       0.62,
					"fg3_pct":      0.30,
					"ft_pct":       0.71,
				}},
				"meta": map[string]interface{}{"next_cursor": nil},
			})
		case "/stats":
			writeJSON(w, map[string]interface{}{
				"data": []interface{}{map[string]interface{}{
					"min":      "36:05",
					"pts":      25.0,
					"reb":      11.0,
					"ast":      6.0,
					"stl":      1.0,
					"blk":      1.0,
					"turnover": 3.0,
					"team":     map[string]interface{}{"id": 11},
					"game": map[string]interface{}{
						"date":               "2025-01-12",
						"home_team_id":       11,
						"visitor_team_id":    2,
						"home_team_score":    118,
						"visitor_team_score": 109,
					},
				}},
				"meta": map[string]interface{}{"next_cursor": nil},
			})
		case "/teams":
			writeJSON(w, map[string]interface{}{
				"data": []interface{}{
					map[string]interface{}{"id": 2, "abbreviation": "BOS", "full_name": "Boston Celtics"},
					map[string]interface{}{"id": 11, "abbreviation": "HOU", "full_name": "Houston Rockets"},
				},
				"meta": map[string]interface{}{},
			})
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestNBASyncResolvesIDAndStoresSeasonAverages(t *testing.T) {
	srv := newFakeBDLServer()
	defer srv.Close()

	ms := memstore.New()
	ms.Athletes = []store.Athlete{{
		ID:    1,
		Name:  "Alperen Şengün",
		Sport: store.SportBasketball,
		Team:  "Houston Rockets",
	}}
	clock := &testClock{now: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
	o := newTestOrchestrator(ms, Providers{NBA: bdl.NewHandlerForTest(srv.URL, nil)}, clock)

	out := o.Run(context.Background(), config.SyncNBAStats, webhookCreds)

	require.Equal(t, http.StatusOK, out.HTTPStatus)
	require.True(t, out.Success)
	assert.Equal(t, 1, out.Result.Succeeded)

	// The searched id is persisted so the next run skips the search.
	athletes, err := ms.ListAthletes(context.Background(), store.SportBasketball)
	require.NoError(t, err)
	require.NotNil(t, athletes[0].BDLAPIID)
	assert.Equal(t, 132, *athletes[0].BDLAPIID)

	rows := ms.SeasonStatsRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-25", rows[0].Season)
	assert.Equal(t, "NBA", rows[0].Competition)
	assert.Equal(t, 40, rows[0].GamesPlayed)
	assert.Equal(t, 22.1, rows[0].Stats["pts"])
	assert.Equal(t, 9.8, rows[0].Stats["reb"])
	assert.Equal(t, 4.9, rows[0].Stats["ast"])

	// Per-game rows carry the opponent name resolved from the team table.
	updates := ms.DailyUpdates()
	require.Len(t, updates, 1)
	assert.Equal(t, "Boston Celtics", updates[0].Opponent)
	assert.True(t, updates[0].IsHome)
	assert.Equal(t, "118-109", updates[0].Result)
	assert.Equal(t, 36, updates[0].MinutesPlayed)
}

// --------------------------------------------------------------------------
// Leaderboard snapshot
// --------------------------------------------------------------------------

func TestHollingerSyncSnapshotsMatchedRows(t *testing.T) {
	page := "| RK | PLAYER | GP | PER |\n" +
		"| 1 | Nikola Jokic, DEN | 41 | 32.15 |\n" +
		"| 7 | Alperen Sengun, HOU | 40 | 23.52 |\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	ms := memstore.New()
	ms.Athletes = []store.Athlete{{ID: 1, Name: "Alperen Şengün", Sport: store.SportBasketball}}
	clock := &testClock{now: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
	o := newTestOrchestrator(ms, Providers{Hollinger: espn.NewHandler(srv.URL, nil)}, clock)

	out := o.Run(context.Background(), config.SyncHollingerStats, webhookCreds)
	require.True(t, out.Success)

	rows := ms.EfficiencyRankings(1, "2025-01")
	require.Len(t, rows, 1)
	assert.Equal(t, 7, rows[0].Rank)
	assert.Equal(t, "Alperen Sengun", rows[0].PlayerName)
	assert.Equal(t, "HOU", rows[0].Team)
	assert.Equal(t, 23.52, rows[0].Value)
}
