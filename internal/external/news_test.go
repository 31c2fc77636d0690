package external

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadromedya/statsync/internal/store"
)

const rssPage = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <item>
      <title>Arda Guler scores twice in derby win - Marca</title>
      <link>https://example.com/guler-derby</link>
      <pubDate>Thu, 27 Aug 2026 18:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Guler named player of the week - AS</title>
      <link>https://example.com/guler-potw</link>
      <pubDate>Wed, 26 Aug 2026 09:00:00 +0000</pubDate>
    </item>
    <item>
      <title>League announces new broadcast deal - Reuters</title>
      <link>https://example.com/broadcast-deal</link>
      <pubDate>Thu, 27 Aug 2026 12:00:00 +0000</pubDate>
    </item>
  </channel>
</rss>`

func newTestNewsService(t *testing.T, page string) *NewsService {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(page))
	}))
	t.Cleanup(srv.Close)

	orig := rssBaseURL
	rssBaseURL = srv.URL
	t.Cleanup(func() { rssBaseURL = orig })

	return NewNewsService("", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSearchAthleteNewsFiltersAndSplitsSource(t *testing.T) {
	svc := newTestNewsService(t, rssPage)
	athlete := store.Athlete{ID: 1, Name: "Arda Güler", Sport: store.SportFootball}

	items, err := svc.SearchAthleteNews(context.Background(), athlete, 10)
	require.NoError(t, err)

	// The broadcast-deal article never mentions the athlete.
	require.Len(t, items, 2)

	// Newest first.
	assert.Equal(t, "Arda Guler scores twice in derby win", items[0].Title)
	assert.Equal(t, "Marca", items[0].Source)
	assert.Equal(t, "https://example.com/guler-derby", items[0].URL)
	assert.Equal(t, "AS", items[1].Source)
}

func TestSearchAthleteNewsDeduplicatesAcrossWindows(t *testing.T) {
	// Fewer than three matches forces the escalation through every window;
	// the same articles come back each time and must not duplicate.
	svc := newTestNewsService(t, rssPage)
	athlete := store.Athlete{ID: 1, Name: "Arda Güler", Sport: store.SportFootball}

	items, err := svc.SearchAthleteNews(context.Background(), athlete, 10)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, item := range items {
		assert.False(t, seen[item.URL], "duplicate url %s", item.URL)
		seen[item.URL] = true
	}
}

func TestSearchAthleteNewsRespectsLimit(t *testing.T) {
	svc := newTestNewsService(t, rssPage)
	athlete := store.Athlete{ID: 1, Name: "Arda Güler", Sport: store.SportFootball}

	items, err := svc.SearchAthleteNews(context.Background(), athlete, 1)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMentionsAthlete(t *testing.T) {
	athlete := store.Athlete{Name: "Alperen Şengün"}

	tests := []struct {
		name string
		text string
		want bool
	}{
		{"full folded name", "Alperen Sengun posts triple-double", true},
		{"surname only", "Sengun leads Rockets past Lakers", true},
		{"unrelated", "Rockets sign veteran guard", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mentionsAthlete(athlete, tt.text))
		})
	}
}
