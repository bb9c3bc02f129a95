package proposals

import (
	"context"
	"encoding/json"
	"time"

	"inboxpilot-backend/internal/kv"
)

// ProposalTTL is how long an untouched tenant queue survives. Every append
// refreshes it, so only abandoned queues expire.
const ProposalTTL = 7 * 24 * time.Hour

// DefaultListLimit caps how many proposals a single list call returns.
const DefaultListLimit = 50

// Store keeps each tenant's pending proposals as an ordered collection,
// most recent first.
type Store struct {
	KV kv.Store
}

func NewStore(store kv.Store) *Store {
	return &Store{KV: store}
}

func key(entityID string) string {
	return "proposals:" + entityID
}

// Append pushes the proposal onto the tenant's queue and refreshes the
// queue's expiry.
func (s *Store) Append(ctx context.Context, entityID string, p *TaskProposal) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := s.KV.LPush(ctx, key(entityID), string(raw)); err != nil {
		return err
	}
	return s.KV.Expire(ctx, key(entityID), ProposalTTL)
}

// List returns up to limit proposals, newest first. Entries that fail to
// deserialize are skipped rather than failing the whole listing.
func (s *Store) List(ctx context.Context, entityID string, limit int) ([]TaskProposal, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	raw, err := s.KV.LRange(ctx, key(entityID), 0, int64(limit)-1)
	if err != nil {
		return nil, err
	}

	proposals := make([]TaskProposal, 0, len(raw))
	for _, item := range raw {
		var p TaskProposal
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			continue
		}
		proposals = append(proposals, p)
	}
	return proposals, nil
}

// Remove deletes exactly one entry matching the proposal id. Returns false
// when no such proposal exists; removing an already-removed id is not an
// error.
func (s *Store) Remove(ctx context.Context, entityID, proposalID string) (bool, error) {
	raw, err := s.KV.LRange(ctx, key(entityID), 0, -1)
	if err != nil {
		return false, err
	}

	for _, item := range raw {
		var p TaskProposal
		if err := json.Unmarshal([]byte(item), &p); err != nil {
			continue
		}
		if p.ProposalID != proposalID {
			continue
		}
		removed, err := s.KV.LRem(ctx, key(entityID), 1, item)
		if err != nil {
			return false, err
		}
		return removed > 0, nil
	}
	return false, nil
}

// Count is the cheap length query used for badge polling.
func (s *Store) Count(ctx context.Context, entityID string) (int64, error) {
	return s.KV.LLen(ctx, key(entityID))
}
