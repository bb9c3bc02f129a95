// Package dedup recognizes webhook redeliveries of the same message within
// a short window. The hash is FNV-64a over source:sender:content; this is
// not a security boundary, only accidental-collision avoidance.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"inboxpilot-backend/internal/kv"
)

// SeenTTL bounds the dedup window. Redeliveries after it are treated as
// new messages.
const SeenTTL = time.Hour

type Deduplicator struct {
	Store kv.Store
}

func New(store kv.Store) *Deduplicator {
	return &Deduplicator{Store: store}
}

// Hash returns the dedup key material for a message triple.
func Hash(source, sender, content string) string {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%s:%s", source, sender, content)
	return fmt.Sprintf("%016x", h.Sum64())
}

// HasSeen reports whether the hash was marked within the TTL window.
func (d *Deduplicator) HasSeen(ctx context.Context, hash string) (bool, error) {
	_, err := d.Store.Get(ctx, "seen:"+hash)
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// MarkSeen records the hash. The pipeline calls this BEFORE inference so
// two near-simultaneous deliveries cannot both reach the model; a marked
// message whose inference then fails is not retried within the window.
func (d *Deduplicator) MarkSeen(ctx context.Context, hash string) error {
	return d.Store.Set(ctx, "seen:"+hash, "1", SeenTTL)
}
