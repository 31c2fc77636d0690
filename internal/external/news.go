// Package external provides clients for third-party discovery APIs (news).
package external

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/kadromedya/statsync/internal/namematch"
	"github.com/kadromedya/statsync/internal/store"
)

const (
	newsDefaultLimit = 10
	newsMinArticles  = 3
	newsRSSTimeout   = 15 * time.Second
)

// Time windows for escalation (hours).
var timeWindows = []int{24, 48, 168}

// Sport-specific search term suffixes for RSS queries.
var sportTerms = map[store.Sport]string{
	store.SportFootball:   "football",
	store.SportBasketball: "NBA basketball",
}

// NewsService combines Google News RSS (primary) and NewsAPI (fallback).
type NewsService struct {
	apiKey     string // NewsAPI key (empty = not configured)
	httpClient *http.Client
	logger     *slog.Logger
}

// NewNewsService creates a news service. apiKey may be empty.
func NewNewsService(apiKey string, logger *slog.Logger) *NewsService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NewsService{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: newsRSSTimeout},
		logger:     logger,
	}
}

// HasNewsAPI reports whether a NewsAPI key is configured.
func (s *NewsService) HasNewsAPI() bool { return s.apiKey != "" }

// SearchAthleteNews discovers recent articles mentioning the athlete. RSS is
// queried first over escalating time windows; NewsAPI fills in when RSS
// yields too few hits. Articles that do not mention the athlete's name are
// filtered out with the fuzzy matcher.
func (s *NewsService) SearchAthleteNews(ctx context.Context, athlete store.Athlete, limit int) ([]store.NewsItem, error) {
	if limit < 1 {
		limit = newsDefaultLimit
	}

	query := athlete.Name
	if term, ok := sportTerms[athlete.Sport]; ok {
		query = athlete.Name + " " + term
	}

	var items []store.NewsItem
	var rssErr error

	for _, hours := range timeWindows {
		articles, err := s.fetchRSS(ctx, query, hours)
		if err != nil {
			rssErr = err
			s.logger.Warn("news RSS fetch failed", "athlete", athlete.Name, "window_hours", hours, "error", err)
			continue
		}

		for _, a := range articles {
			if mentionsAthlete(athlete, a.Title) {
				items = append(items, store.NewsItem{
					AthleteID:   athlete.ID,
					Title:       a.Title,
					URL:         a.URL,
					Source:      a.Source,
					PublishedAt: a.PublishedAt,
				})
			}
		}
		items = deduplicateByURL(items)

		if len(items) >= newsMinArticles {
			break
		}
	}

	if len(items) < newsMinArticles && s.HasNewsAPI() {
		apiItems, err := s.fetchFromNewsAPI(ctx, athlete, limit)
		if err != nil {
			s.logger.Warn("NewsAPI fetch failed", "athlete", athlete.Name, "error", err)
		} else {
			items = deduplicateByURL(append(items, apiItems...))
		}
	}

	if len(items) == 0 && rssErr != nil {
		return nil, rssErr
	}

	sortByPublishedAt(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// --------------------------------------------------------------------------
// RSS implementation
// --------------------------------------------------------------------------

type rssResponse struct {
	XMLName xml.Name  `xml:"rss"`
	Items   []rssItem `xml:"channel>item"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

type article struct {
	Title       string
	URL         string
	Source      string
	PublishedAt string
}

// rssBaseURL is a var so tests can point it at a fake server.
var rssBaseURL = "https://news.google.com/rss/search"

func (s *NewsService) fetchRSS(ctx context.Context, query string, hoursBack int) ([]article, error) {
	when := "1d"
	if hoursBack > 24 && hoursBack <= 168 {
		when = "7d"
	} else if hoursBack > 168 {
		when = "30d"
	}

	u := fmt.Sprintf("%s?q=%s+when:%s&hl=en-US&gl=US&ceid=US:en",
		rssBaseURL, url.QueryEscape(query), when)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; StatsyncBot/1.0)")
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("RSS fetch error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("RSS HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("RSS read error: %w", err)
	}

	var rss rssResponse
	if err := xml.Unmarshal(body, &rss); err != nil {
		return nil, fmt.Errorf("RSS parse error: %w", err)
	}

	articles := make([]article, 0, len(rss.Items))
	for _, item := range rss.Items {
		title := item.Title
		source := "Google News"

		// Extract source from "Title - Source" format.
		if idx := strings.LastIndex(title, " - "); idx != -1 {
			source = strings.TrimSpace(title[idx+3:])
			title = strings.TrimSpace(title[:idx])
		}

		articles = append(articles, article{
			Title:       title,
			URL:         item.Link,
			Source:      source,
			PublishedAt: item.PubDate,
		})
	}
	return articles, nil
}

// --------------------------------------------------------------------------
// NewsAPI implementation
// --------------------------------------------------------------------------

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
	Message string `json:"message"` // on error
}

// newsAPIBaseURL is a var so tests can point it at a fake server.
var newsAPIBaseURL = "https://newsapi.org/v2/everything"

func (s *NewsService) fetchFromNewsAPI(ctx context.Context, athlete store.Athlete, limit int) ([]store.NewsItem, error) {
	fromDate := time.Now().UTC().AddDate(0, 0, -7).Format("2006-01-02")

	params := url.Values{}
	params.Set("q", athlete.Name)
	params.Set("from", fromDate)
	params.Set("sortBy", "relevancy")
	params.Set("pageSize", fmt.Sprintf("%d", limit))
	params.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, newsAPIBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("NewsAPI request error: %w", err)
	}
	defer resp.Body.Close()

	var apiResp newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("NewsAPI decode error: %w", err)
	}
	if apiResp.Status != "ok" {
		return nil, fmt.Errorf("NewsAPI error: %s", apiResp.Message)
	}

	items := make([]store.NewsItem, 0, len(apiResp.Articles))
	for _, a := range apiResp.Articles {
		if !mentionsAthlete(athlete, a.Title) {
			continue
		}
		items = append(items, store.NewsItem{
			AthleteID:   athlete.ID,
			Title:       a.Title,
			URL:         a.URL,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
		})
	}
	return items, nil
}

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

var wordRe = regexp.MustCompile(`[\p{L}']+`)

// mentionsAthlete checks whether a headline refers to the athlete: the full
// folded name appears, or a name token longer than 3 runes does.
func mentionsAthlete(athlete store.Athlete, text string) bool {
	if text == "" {
		return false
	}
	folded := namematch.Fold(text)
	if strings.Contains(folded, namematch.Fold(athlete.Name)) {
		return true
	}
	for _, tok := range wordRe.FindAllString(folded, -1) {
		if len(tok) > 3 && namematch.Match(tok, athlete.Name) {
			return true
		}
	}
	return false
}

func deduplicateByURL(items []store.NewsItem) []store.NewsItem {
	seen := make(map[string]bool)
	out := make([]store.NewsItem, 0, len(items))
	for _, item := range items {
		if item.URL != "" && !seen[item.URL] {
			seen[item.URL] = true
			out = append(out, item)
		}
	}
	return out
}

var parseFmts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
}

func sortByPublishedAt(items []store.NewsItem) {
	parseDate := func(s string) time.Time {
		s = strings.TrimSpace(s)
		for _, f := range parseFmts {
			if t, err := time.Parse(f, s); err == nil {
				return t
			}
		}
		return time.Time{}
	}

	sort.Slice(items, func(i, j int) bool {
		return parseDate(items[i].PublishedAt).After(parseDate(items[j].PublishedAt))
	})
}
