// Package webhook is the ingress surface: signature verification, envelope
// decoding and the HTTP mapping of pipeline outcomes.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"inboxpilot-backend/internal/pipeline"
)

// SignatureHeader carries the provider's hex HMAC over the raw body.
const SignatureHeader = "X-Webhook-Signature"

// processTimeout bounds one delivery; the two sequential model calls
// dominate it.
const processTimeout = 30 * time.Second

// Handler serves POST /api/webhooks/composio.
func Handler(verifier Verifier, pipe *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "unreadable body", http.StatusBadRequest)
			return
		}

		if !verifier.Verify(body, r.Header.Get(SignatureHeader)) {
			log.Printf("[WARN] webhook signature verification failed")
			http.Error(w, "invalid signature", http.StatusUnauthorized)
			return
		}

		env, err := ParseEnvelope(body)
		if err != nil {
			http.Error(w, "invalid envelope", http.StatusBadRequest)
			return
		}

		entityID, err := env.EntityID()
		if errors.Is(err, ErrNoEntityID) {
			http.Error(w, "missing entity id", http.StatusBadRequest)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), processTimeout)
		defer cancel()

		res, err := pipe.Process(ctx, env.App(), entityID, env.Data)
		if err != nil {
			log.Printf("[Webhook] pipeline failed for entity %s: %v", entityID, err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		writeResult(w, res)
	}
}

func writeResult(w http.ResponseWriter, res pipeline.Result) {
	w.Header().Set("Content-Type", "application/json")

	if res.RateLimited {
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error":     res.Reason,
			"remaining": res.Remaining,
		})
		return
	}

	if !res.Processed {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"processed": false,
			"reason":    res.Reason,
		})
		return
	}

	if !res.TaskDetected {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"processed":    true,
			"taskDetected": false,
		})
		return
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"processed":  true,
		"proposalId": res.Proposal.ProposalID,
		"title":      res.Proposal.Title,
		"confidence": res.Proposal.Confidence,
	})
}

// HealthHandler serves GET /health.
func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
