package metrics

import (
	"encoding/json"
	"log"
	"net/http"

	"inboxpilot-backend/internal/auth"
)

// StatsHandler serves GET /api/stats: today's pipeline counters for the
// authenticated tenant.
func StatsHandler(rec *Recorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID, ok := auth.EntityIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		counters, err := rec.Today(r.Context(), entityID)
		if err != nil {
			log.Printf("[Metrics] stats failed for %s: %v", entityID, err)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"date":     rec.day(),
			"outcomes": counters,
		})
	}
}
