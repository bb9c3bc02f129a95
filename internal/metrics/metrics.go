// Package metrics keeps lightweight per-tenant pipeline counters so missed
// tasks and noisy filters show up in numbers, not just log lines.
package metrics

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"inboxpilot-backend/internal/kv"
)

// Pipeline outcomes worth counting. One counter per tenant, day and outcome.
const (
	OutcomeFiltered        = "filtered"
	OutcomeRateLimited     = "rate_limited"
	OutcomeDuplicate       = "duplicate"
	OutcomeNoTask          = "no_task"
	OutcomeProposalCreated = "proposal_created"
)

var allOutcomes = []string{
	OutcomeFiltered,
	OutcomeRateLimited,
	OutcomeDuplicate,
	OutcomeNoTask,
	OutcomeProposalCreated,
}

// counterTTL keeps stats around long enough for a month-over-month look
// without growing the store forever.
const counterTTL = 35 * 24 * time.Hour

type Recorder struct {
	store kv.Store
	now   func() time.Time
}

func NewRecorder(store kv.Store) *Recorder {
	return &Recorder{store: store, now: time.Now}
}

func counterKey(entityID, day, outcome string) string {
	return fmt.Sprintf("metrics:%s:%s:%s", entityID, day, outcome)
}

// Record increments one outcome counter. Best effort: a metrics write must
// never fail the delivery it is counting.
func (r *Recorder) Record(ctx context.Context, entityID, outcome string) {
	key := counterKey(entityID, r.day(), outcome)
	value, err := r.store.Incr(ctx, key)
	if err != nil {
		log.Printf("[Metrics] increment %s failed: %v", key, err)
		return
	}
	if value == 1 {
		if err := r.store.Expire(ctx, key, counterTTL); err != nil {
			log.Printf("[Metrics] expire %s failed: %v", key, err)
		}
	}
}

// Today returns the current day's counters for a tenant, zero-filled for
// outcomes that have not happened yet.
func (r *Recorder) Today(ctx context.Context, entityID string) (map[string]int64, error) {
	day := r.day()
	out := make(map[string]int64, len(allOutcomes))
	for _, outcome := range allOutcomes {
		raw, err := r.store.Get(ctx, counterKey(entityID, day, outcome))
		if err == kv.ErrNotFound {
			out[outcome] = 0
			continue
		}
		if err != nil {
			return nil, err
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			n = 0
		}
		out[outcome] = n
	}
	return out, nil
}

func (r *Recorder) day() string {
	return r.now().UTC().Format("2006-01-02")
}
