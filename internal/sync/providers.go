package sync

import (
	"log/slog"

	"github.com/kadromedya/statsync/internal/config"
	"github.com/kadromedya/statsync/internal/external"
	"github.com/kadromedya/statsync/internal/provider/apifootball"
	"github.com/kadromedya/statsync/internal/provider/bdl"
	"github.com/kadromedya/statsync/internal/provider/espn"
	"github.com/kadromedya/statsync/internal/provider/transfermarkt"
)

// NewProvidersFromConfig constructs every adapter whose configuration is
// present. Keyed APIs stay nil without their key, making their sync-types
// fail fast instead of burning unauthenticated requests.
func NewProvidersFromConfig(cfg *config.Config, logger *slog.Logger) Providers {
	p := Providers{
		Hollinger:     espn.NewHandler(cfg.RenderFetchBaseURL, logger),
		Transfermarkt: transfermarkt.NewScraper(logger),
		News:          external.NewNewsService(cfg.NewsAPIKey, logger),
	}
	if cfg.APIFootballKey != "" {
		p.Football = apifootball.NewHandler(cfg.APIFootballKey, logger)
	}
	if cfg.BDLAPIKey != "" {
		p.NBA = bdl.NewHandler(cfg.BDLAPIKey, logger)
	}
	return p
}
