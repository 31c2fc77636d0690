package espn

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renderedPage = `Title: Hollinger NBA Player Statistics

| RK | PLAYER | GP | PER |
| --- | --- | --- | --- |
| 1 | Nikola Jokic, DEN | 41 | 32.15 |
| 2 | Giannis Antetokounmpo, MIL | 38 | 30.84 |
| 7 | Alperen Sengun, HOU | 40 | 23.52 |

Some unrelated footer text.
`

func TestParseRankings(t *testing.T) {
	rows := ParseRankings(renderedPage)
	require.Len(t, rows, 3)

	assert.Equal(t, Row{Rank: 1, PlayerName: "Nikola Jokic", Team: "DEN", Efficiency: 32.15}, rows[0])
	assert.Equal(t, Row{Rank: 7, PlayerName: "Alperen Sengun", Team: "HOU", Efficiency: 23.52}, rows[2])
}

func TestParseRankingsWithoutPipes(t *testing.T) {
	rows := ParseRankings("1. Nikola Jokic, DEN 32.15\n2. Luka Doncic, DAL 28.90\n")
	require.Len(t, rows, 2)
	assert.Equal(t, "Luka Doncic", rows[1].PlayerName)
	assert.Equal(t, 28.90, rows[1].Efficiency)
}

func TestParseRankingsPartialRow(t *testing.T) {
	// Missing numeric column degrades that field, not the row.
	rows := ParseRankings("| 3 | Joel Embiid, PHI | -- | -- |\n")
	require.Len(t, rows, 1)
	assert.Equal(t, "Joel Embiid", rows[0].PlayerName)
	assert.Zero(t, rows[0].Efficiency)
}

func TestParseRankingsNothingRecoverable(t *testing.T) {
	assert.Empty(t, ParseRankings("This page has moved.\nPlease update your bookmarks.\n"))
}

func TestExtractRules(t *testing.T) {
	t.Run("rank", func(t *testing.T) {
		assert.Nil(t, extractRank("no rank here"))
		r := extractRank("| 12 | Someone, BOS | 20.1 |")
		require.NotNil(t, r)
		assert.Equal(t, 12, *r)
	})

	t.Run("player and team", func(t *testing.T) {
		name, team := extractPlayerTeam("| 12 | Jaylen Brown, BOS | 20.1 |")
		require.NotNil(t, name)
		require.NotNil(t, team)
		assert.Equal(t, "Jaylen Brown", *name)
		assert.Equal(t, "BOS", *team)

		name, team = extractPlayerTeam("| 12 | 20.1 |")
		assert.Nil(t, name)
		assert.Nil(t, team)
	})

	t.Run("efficiency", func(t *testing.T) {
		eff := extractEfficiency("| 12 | Jaylen Brown, BOS | 20.1 |")
		require.NotNil(t, eff)
		assert.Equal(t, 20.1, *eff)
		assert.Nil(t, extractEfficiency("| 12 | Jaylen Brown, BOS | -- |"))
	})
}

func TestFetchRankings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(renderedPage))
	}))
	defer srv.Close()

	h := NewHandler(srv.URL, nil)
	rows, err := h.FetchRankings(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestFetchRankingsEmptyPageFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("nothing tabular"))
	}))
	defer srv.Close()

	h := NewHandler(srv.URL, nil)
	_, err := h.FetchRankings(context.Background())
	assert.Error(t, err)
}
