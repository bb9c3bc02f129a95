package kv

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when a key does not exist or has expired.
var ErrNotFound = errors.New("kv: key not found")

// Store is the small-object storage contract the pipeline runs on.
// All durable state (proposals, dedup markers, settings, rate-limit
// counters) lives behind this interface; everything above it is stateless
// per invocation.
type Store interface {
	// String operations. A zero ttl means no expiry.
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error

	// Incr atomically increments an integer counter and returns the new
	// value. An expired counter behaves as absent: the increment yields 1
	// and the key carries no expiry until Expire is called.
	Incr(ctx context.Context, key string) (int64, error)

	// Expire (re)sets the time-to-live of an existing key. It applies to
	// both string and list keys and is a no-op for missing keys.
	Expire(ctx context.Context, key string, ttl time.Duration) error

	// List operations. Lists are ordered most-recent-first: LPush puts the
	// new element at the head, LRange(0, n-1) returns the n newest.
	LPush(ctx context.Context, key, value string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// LRem removes up to count head-side occurrences of value and returns
	// how many were removed.
	LRem(ctx context.Context, key string, count int64, value string) (int64, error)
	LLen(ctx context.Context, key string) (int64, error)
}
