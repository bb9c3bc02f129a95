package settings

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"slices"

	"inboxpilot-backend/internal/auth"
)

// The trigger registry remembers which integration-platform triggers a
// tenant subscribed to, stored as a JSON string list in one setting. The
// subscriptions themselves live at the platform; this is the local record
// needed to list and unsubscribe them.

// TriggerIDs returns the subscribed trigger ids, empty when none.
func (s *Service) TriggerIDs(ctx context.Context, entityID string) ([]string, error) {
	raw, err := s.Get(ctx, entityID, TriggerIDsSetting)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		log.Printf("[Settings] corrupt trigger registry for %s, resetting: %v", entityID, err)
		return nil, nil
	}
	return ids, nil
}

// AddTriggerID records a subscription. Adding an id twice is a no-op.
func (s *Service) AddTriggerID(ctx context.Context, entityID, triggerID string) error {
	ids, err := s.TriggerIDs(ctx, entityID)
	if err != nil {
		return err
	}
	if slices.Contains(ids, triggerID) {
		return nil
	}
	return s.saveTriggerIDs(ctx, entityID, append(ids, triggerID))
}

// RemoveTriggerID forgets a subscription; returns whether it was present.
func (s *Service) RemoveTriggerID(ctx context.Context, entityID, triggerID string) (bool, error) {
	ids, err := s.TriggerIDs(ctx, entityID)
	if err != nil {
		return false, err
	}
	idx := slices.Index(ids, triggerID)
	if idx < 0 {
		return false, nil
	}
	return true, s.saveTriggerIDs(ctx, entityID, slices.Delete(ids, idx, idx+1))
}

func (s *Service) saveTriggerIDs(ctx context.Context, entityID string, ids []string) error {
	b, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	return s.Set(ctx, entityID, TriggerIDsSetting, string(b))
}

// ----------------------
//       HANDLERS
// ----------------------

// ListTriggersHandler serves GET /api/triggers.
func ListTriggersHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID, ok := auth.EntityIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ids, err := svc.TriggerIDs(r.Context(), entityID)
		if err != nil {
			log.Printf("[Settings] list triggers failed for %s: %v", entityID, err)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}
		if ids == nil {
			ids = []string{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"triggers": ids})
	}
}

// AddTriggerHandler serves POST /api/triggers.
func AddTriggerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID, ok := auth.EntityIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			TriggerID string `json:"trigger_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.TriggerID == "" {
			http.Error(w, "trigger_id is required", http.StatusBadRequest)
			return
		}

		if err := svc.AddTriggerID(r.Context(), entityID, body.TriggerID); err != nil {
			log.Printf("[Settings] add trigger failed for %s: %v", entityID, err)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"trigger_id": body.TriggerID})
	}
}

// RemoveTriggerHandler serves DELETE /api/triggers/{id}.
func RemoveTriggerHandler(svc *Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entityID, ok := auth.EntityIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		triggerID := r.PathValue("id")
		if triggerID == "" {
			http.Error(w, "trigger id required", http.StatusBadRequest)
			return
		}

		removed, err := svc.RemoveTriggerID(r.Context(), entityID, triggerID)
		if err != nil {
			log.Printf("[Settings] remove trigger failed for %s: %v", entityID, err)
			http.Error(w, "storage error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":    removed,
			"trigger_id": triggerID,
		})
	}
}
