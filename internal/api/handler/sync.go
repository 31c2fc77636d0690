package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kadromedya/statsync/internal/api/respond"
	"github.com/kadromedya/statsync/internal/auth"
	"github.com/kadromedya/statsync/internal/cache"
	"github.com/kadromedya/statsync/internal/config"
)

// TriggerSync runs one sync-type. Called by the scheduler (webhook secret)
// or an admin user (bearer token).
// @Summary Trigger a sync
// @Description Runs the named sync-type, honoring its cooldown. Authorize with x-webhook-secret or a Bearer token.
// @Tags sync
// @Produce json
// @Param type path string true "Sync type" Enums(football_stats, nba_stats, hollinger_stats, news, transfermarkt, live_matches)
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /sync/{type} [post]
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	syncType := chi.URLParam(r, "type")
	creds := auth.CredentialsFromRequest(r)

	out := h.orch.Run(r.Context(), syncType, creds)

	body := map[string]interface{}{"success": out.Success}
	switch {
	case out.HTTPStatus != http.StatusOK:
		body["error"] = "sync failed"
		if out.Reason != "" {
			body["reason"] = out.Reason
		}
	case out.Skipped:
		body["skipped"] = true
		body["reason"] = out.Reason
		if out.WaitSeconds > 0 {
			body["waitSeconds"] = out.WaitSeconds
		}
	default:
		body["processed"] = out.Result.Processed
		body["succeeded"] = out.Result.Succeeded
		body["failed"] = out.Result.Failed()
		body["errors"] = out.Result.LoggedErrors()
	}
	respond.JSON(w, out.HTTPStatus, body)
}

// SyncStatus reports the latest run and next-allowed time per sync-type.
// @Summary Sync status overview
// @Tags sync
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /sync/status [get]
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	const key = "sync_status"
	if data, etag, ok := h.cache.Get(key); ok {
		if cache.CheckETagMatch(r.Header.Get("If-None-Match"), etag) {
			respond.NotModified(w, etag)
			return
		}
		respond.Cached(w, data, etag, cache.TTLSyncStatus, true)
		return
	}

	statuses := make(map[string]interface{}, len(config.SyncTypes))
	for _, syncType := range config.SyncTypes {
		entry := map[string]interface{}{}

		logs, err := h.store.ListSyncLogs(r.Context(), syncType, 1)
		if err != nil {
			respond.Error(w, http.StatusInternalServerError, "STORE_ERROR", "failed to read sync logs")
			return
		}
		if len(logs) > 0 {
			entry["last_run_at"] = logs[0].CreatedAt.UTC().Format(time.RFC3339)
			entry["last_status"] = logs[0].Status
			entry["last_details"] = logs[0].Details
		}

		lastOK, err := h.store.LatestSuccessfulSync(r.Context(), syncType)
		if err == nil && lastOK != nil {
			next := lastOK.CreatedAt.Add(h.cfg.Cooldown(syncType))
			entry["next_allowed_at"] = next.UTC().Format(time.RFC3339)
		}
		statuses[syncType] = entry
	}

	data, err := json.Marshal(map[string]interface{}{"sync_types": statuses})
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "ENCODE_ERROR", "failed to encode status")
		return
	}
	etag := h.cache.Set(key, data, cache.TTLSyncStatus)
	respond.Cached(w, data, etag, cache.TTLSyncStatus, false)
}

// SyncLogs returns recent audit rows, newest first.
// @Summary Recent sync logs
// @Tags sync
// @Produce json
// @Param type query string false "Filter to one sync type"
// @Param limit query int false "Max rows (default 20)"
// @Success 200 {object} map[string]interface{}
// @Router /sync/logs [get]
func (h *Handler) SyncLogs(w http.ResponseWriter, r *http.Request) {
	syncType := r.URL.Query().Get("type")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.store.ListSyncLogs(r.Context(), syncType, limit)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "STORE_ERROR", "failed to read sync logs")
		return
	}

	rows := make([]map[string]interface{}, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, map[string]interface{}{
			"id":         l.ID,
			"sync_type":  l.SyncType,
			"status":     l.Status,
			"details":    l.Details,
			"created_at": l.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"logs": rows})
}
