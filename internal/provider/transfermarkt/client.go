// Package transfermarkt scrapes transfer, injury, and market-value history
// from the transfer-market site. Pages are fetched directly with a
// browser-like User-Agent and parsed with goquery; pattern extraction is
// null-tolerant so a partial page yields partial records rather than an
// error. A scrape is failed only when zero records are recoverable.
package transfermarkt

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultBaseURL = "https://www.transfermarkt.com"

// The site blocks obvious bots; identify as a desktop browser and keep
// visits spaced out.
const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// Scraper fetches and parses player pages.
type Scraper struct {
	httpClient *http.Client
	baseURL    string
	minDelay   time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

// NewScraper creates a scraper with politeness delays between page visits.
func NewScraper(logger *slog.Logger) *Scraper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scraper{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		minDelay:   800 * time.Millisecond,
		maxDelay:   2500 * time.Millisecond,
		logger:     logger,
	}
}

// NewScraperForTest creates a scraper pointed at a fake site with no delays.
func NewScraperForTest(baseURL string, logger *slog.Logger) *Scraper {
	s := NewScraper(logger)
	s.baseURL = baseURL
	s.minDelay = 0
	s.maxDelay = 0
	return s
}

// politeDelay sleeps a randomized interval between page visits, honoring
// context cancellation.
func (s *Scraper) politeDelay(ctx context.Context) error {
	if s.maxDelay <= 0 {
		return nil
	}
	d := s.minDelay
	if s.maxDelay > s.minDelay {
		d += time.Duration(rand.Int63n(int64(s.maxDelay - s.minDelay)))
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// fetchDocument fetches one page and parses it.
func (s *Scraper) fetchDocument(ctx context.Context, path string) (*goquery.Document, error) {
	if err := s.politeDelay(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", path, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return doc, nil
}

// playerPath builds the site path for one of a player's tabs, e.g.
// "transfers", "verletzungen" (injuries), "marktwertverlauf".
func playerPath(slug, playerID, tab string) string {
	if slug == "" {
		slug = "spieler"
	}
	return fmt.Sprintf("/%s/%s/spieler/%s", slug, tab, playerID)
}

// slugify renders an athlete name as the site's URL slug.
func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.NewReplacer(
		"ğ", "g", "ü", "u", "ş", "s", "ı", "i", "ö", "o", "ç", "c",
		" ", "-",
	).Replace(s)
	return s
}
