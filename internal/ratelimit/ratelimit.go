// Package ratelimit implements a fixed-window counter per tenant. Bursts
// straddling a window boundary can admit up to twice the nominal rate;
// that is the accepted tradeoff of the fixed window, not a bug.
package ratelimit

import (
	"context"
	"time"

	"inboxpilot-backend/internal/kv"
)

const (
	DefaultMaxRequests   = 10
	DefaultWindowSeconds = 60
)

// Result reports whether a request is admitted and how much budget is left
// in the current window.
type Result struct {
	Allowed   bool `json:"allowed"`
	Remaining int  `json:"remaining"`
}

type Limiter struct {
	Store       kv.Store
	MaxRequests int64
	Window      time.Duration
}

func New(store kv.Store) *Limiter {
	return &Limiter{
		Store:       store,
		MaxRequests: DefaultMaxRequests,
		Window:      DefaultWindowSeconds * time.Second,
	}
}

// Check increments the tenant's counter and decides on the post-increment
// value. The increment is a single atomic store operation; a value of 1
// opens a fresh window by setting the TTL. Storage errors propagate so the
// caller can abort the delivery instead of silently passing.
func (l *Limiter) Check(ctx context.Context, entityID string) (Result, error) {
	key := "ratelimit:" + entityID

	value, err := l.Store.Incr(ctx, key)
	if err != nil {
		return Result{}, err
	}

	if value == 1 {
		if err := l.Store.Expire(ctx, key, l.Window); err != nil {
			return Result{}, err
		}
	}

	remaining := l.MaxRequests - value
	if remaining < 0 {
		remaining = 0
	}

	return Result{
		Allowed:   value <= l.MaxRequests,
		Remaining: int(remaining),
	}, nil
}
