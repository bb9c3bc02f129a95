package proposals

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"inboxpilot-backend/internal/auth"
)

// ----------------------
//       HANDLERS
// ----------------------

// ListHandler serves GET /api/proposals. With ?countOnly=true it answers
// the badge-polling case without deserializing the list.
func ListHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID, ok := auth.EntityIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")

		if r.URL.Query().Get("countOnly") == "true" {
			count, err := store.Count(r.Context(), entityID)
			if err != nil {
				log.Printf("[Proposals] count failed for %s: %v", entityID, err)
				http.Error(w, "storage error", http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"count": count})
			return
		}

		limit := DefaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}

		list, err := store.List(r.Context(), entityID, limit)
		if err != nil {
			log.Printf("[Proposals] list failed for %s: %v", entityID, err)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}

		_ = json.NewEncoder(w).Encode(map[string]any{
			"proposals": list,
			"count":     len(list),
		})
	}
}

// RemoveHandler serves DELETE /api/proposals/{id}. Approving and rejecting
// both end here: the human decision removes the staged proposal either way.
func RemoveHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID, ok := auth.EntityIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		proposalID := r.PathValue("id")
		if proposalID == "" {
			http.Error(w, "proposal id required", http.StatusBadRequest)
			return
		}

		removed, err := store.Remove(r.Context(), entityID, proposalID)
		if err != nil {
			log.Printf("[Proposals] remove failed for %s/%s: %v", entityID, proposalID, err)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":     removed,
			"proposal_id": proposalID,
		})
	}
}
