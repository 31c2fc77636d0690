package handler

import (
	"encoding/json"
	"net/http"

	"github.com/kadromedya/statsync/internal/api/respond"
	"github.com/kadromedya/statsync/internal/cache"
	"github.com/kadromedya/statsync/internal/store"
)

type athleteView struct {
	ID              int64   `json:"id"`
	Name            string  `json:"name"`
	Sport           string  `json:"sport"`
	Team            string  `json:"team,omitempty"`
	League          string  `json:"league,omitempty"`
	Position        string  `json:"position,omitempty"`
	FootballAPIID   *int    `json:"football_api_id,omitempty"`
	BDLAPIID        *int    `json:"bdl_api_id,omitempty"`
	TransfermarktID *string `json:"transfermarkt_id,omitempty"`
}

// ListAthletes returns the tracked roster with external-id fill state, so
// the dashboard can see which athletes still need id resolution.
// @Summary Tracked athletes
// @Tags athletes
// @Produce json
// @Param sport query string false "Filter by sport" Enums(football, basketball)
// @Success 200 {object} map[string]interface{}
// @Router /athletes [get]
func (h *Handler) ListAthletes(w http.ResponseWriter, r *http.Request) {
	sport := store.Sport(r.URL.Query().Get("sport"))
	key := "athletes:" + string(sport)

	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.NotModified(w, etag)
			return
		}
		respond.Cached(w, data, etag, cache.TTLAthletes, true)
		return
	}

	athletes, err := h.store.ListAthletes(r.Context(), sport)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "STORE_ERROR", "failed to list athletes")
		return
	}

	views := make([]athleteView, 0, len(athletes))
	for _, a := range athletes {
		views = append(views, athleteView{
			ID:              a.ID,
			Name:            a.Name,
			Sport:           string(a.Sport),
			Team:            a.Team,
			League:          a.League,
			Position:        a.Position,
			FootballAPIID:   a.FootballAPIID,
			BDLAPIID:        a.BDLAPIID,
			TransfermarktID: a.TransfermarktID,
		})
	}

	data, err := json.Marshal(map[string]interface{}{"athletes": views, "count": len(views)})
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "ENCODE_ERROR", "failed to encode athletes")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLAthletes)
	respond.Cached(w, data, etag, cache.TTLAthletes, false)
}
