package bdl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const teamsPage = `{"data":[
	{"id":1,"abbreviation":"ATL","full_name":"Atlanta Hawks"},
	{"id":2,"abbreviation":"BOS","full_name":"Boston Celtics"},
	{"id":11,"abbreviation":"HOU","full_name":"Houston Rockets"}
],"meta":{}}`

func statsRow(date string, teamID, homeID, visitorID int) string {
	return fmt.Sprintf(`{
		"min":"34:12",
		"pts":21,"reb":9,"ast":3,"stl":1,"blk":2,"turnover":2,
		"team":{"id":%d},
		"game":{"date":%q,"home_team_id":%d,"visitor_team_id":%d,
			"home_team_score":112,"visitor_team_score":104}
	}`, teamID, date, homeID, visitorID)
}

func newStatsServer(t *testing.T, teamsCalls *atomic.Int32, rows ...string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/teams":
			if teamsCalls != nil {
				teamsCalls.Add(1)
			}
			fmt.Fprint(w, teamsPage)
		case "/stats":
			fmt.Fprint(w, `{"data":[`)
			for i, row := range rows {
				if i > 0 {
					fmt.Fprint(w, ",")
				}
				fmt.Fprint(w, row)
			}
			fmt.Fprint(w, `],"meta":{}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchRecentGamesNamesOpponent(t *testing.T) {
	srv := newStatsServer(t, nil,
		statsRow("2025-01-10", 11, 11, 2), // Rockets at home vs Celtics
		statsRow("2025-01-12", 11, 1, 11), // Rockets away at Atlanta
	)
	h := NewHandlerForTest(srv.URL, slog.Default())

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	lines, err := h.FetchRecentGames(context.Background(), 99, from, to)
	require.NoError(t, err)
	require.Len(t, lines, 2)

	home := lines[0]
	assert.True(t, home.IsHome)
	assert.Equal(t, "Boston Celtics", home.Opponent)
	assert.Equal(t, "112-104", home.Result)
	assert.Equal(t, 34, home.Minutes)
	assert.Equal(t, 21.0, home.Stats.Points)

	away := lines[1]
	assert.False(t, away.IsHome)
	assert.Equal(t, "Atlanta Hawks", away.Opponent)
}

func TestFetchRecentGamesLoadsTeamTableOnce(t *testing.T) {
	var teamsCalls atomic.Int32
	srv := newStatsServer(t, &teamsCalls,
		statsRow("2025-01-10", 11, 11, 2),
		statsRow("2025-01-12", 11, 2, 11),
	)
	h := NewHandlerForTest(srv.URL, slog.Default())

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	_, err := h.FetchRecentGames(context.Background(), 99, from, to)
	require.NoError(t, err)
	_, err = h.FetchRecentGames(context.Background(), 99, from, to)
	require.NoError(t, err)

	assert.Equal(t, int32(1), teamsCalls.Load())
}

func TestFetchRecentGamesUnknownTeamFallsBack(t *testing.T) {
	srv := newStatsServer(t, nil,
		statsRow("2025-01-10", 11, 11, 42),
	)
	h := NewHandlerForTest(srv.URL, slog.Default())

	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	lines, err := h.FetchRecentGames(context.Background(), 99, from, to)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "Team 42", lines[0].Opponent)
}
