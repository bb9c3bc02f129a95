package settings

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"inboxpilot-backend/internal/auth"
)

// Setting names used by the API surface.
const (
	NotionDatabaseSetting = "notion_database_id"
	TriggerIDsSetting     = "trigger_ids"
)

// ----------------------
//       HANDLERS
// ----------------------

// NotionDatabaseHandler serves GET/PUT/DELETE /api/settings/notion-database:
// the cached id of the database approved tasks are exported to.
func NotionDatabaseHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID, ok := auth.EntityIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			v, err := svc.Get(r.Context(), entityID, NotionDatabaseSetting)
			if errors.Is(err, ErrNotFound) {
				http.Error(w, "not configured", http.StatusNotFound)
				return
			}
			if err != nil {
				log.Printf("[Settings] get failed for %s: %v", entityID, err)
				http.Error(w, "storage error", http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"database_id": v})

		case http.MethodPut:
			var body struct {
				DatabaseID string `json:"database_id"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.DatabaseID == "" {
				http.Error(w, "database_id is required", http.StatusBadRequest)
				return
			}
			if err := svc.Set(r.Context(), entityID, NotionDatabaseSetting, body.DatabaseID); err != nil {
				log.Printf("[Settings] set failed for %s: %v", entityID, err)
				http.Error(w, "storage error", http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"database_id": body.DatabaseID})

		case http.MethodDelete:
			if err := svc.Delete(r.Context(), entityID, NotionDatabaseSetting); err != nil {
				log.Printf("[Settings] delete failed for %s: %v", entityID, err)
				http.Error(w, "storage error", http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true})

		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	}
}
