package kv

import (
	"context"
	"slices"
	"strconv"
	"sync"
	"time"
)

// Memory is an in-process Store used by tests and by storage-free
// development setups. Semantics match the Postgres implementation: lazy
// expiry, lists ordered most-recent-first.
type Memory struct {
	mu      sync.Mutex
	items   map[string]string
	lists   map[string][]string
	expiry  map[string]time.Time
	nowFunc func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		items:   make(map[string]string),
		lists:   make(map[string][]string),
		expiry:  make(map[string]time.Time),
		nowFunc: time.Now,
	}
}

// SetNow overrides the clock, so tests can step through TTL windows.
func (m *Memory) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nowFunc = now
}

// purgeLocked drops the key if its TTL has passed. Callers hold m.mu.
func (m *Memory) purgeLocked(key string) {
	exp, ok := m.expiry[key]
	if !ok || m.nowFunc().Before(exp) {
		return
	}
	delete(m.items, key)
	delete(m.lists, key)
	delete(m.expiry, key)
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked(key)
	v, ok := m.items[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	if ttl > 0 {
		m.expiry[key] = m.nowFunc().Add(ttl)
	} else {
		delete(m.expiry, key)
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	delete(m.expiry, key)
	return nil
}

func (m *Memory) Incr(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked(key)
	n, _ := strconv.ParseInt(m.items[key], 10, 64)
	n++
	m.items[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, isItem := m.items[key]
	_, isList := m.lists[key]
	if isItem || isList {
		m.expiry[key] = m.nowFunc().Add(ttl)
	}
	return nil
}

func (m *Memory) LPush(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked(key)
	m.lists[key] = append([]string{value}, m.lists[key]...)
	return nil
}

func (m *Memory) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked(key)

	list := m.lists[key]
	n := int64(len(list))
	if start >= n {
		return nil, nil
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	return slices.Clone(list[start : stop+1]), nil
}

func (m *Memory) LRem(_ context.Context, key string, count int64, value string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked(key)

	var removed int64
	list := m.lists[key]
	kept := list[:0]
	for _, v := range list {
		if v == value && removed < count {
			removed++
			continue
		}
		kept = append(kept, v)
	}
	m.lists[key] = kept
	return removed, nil
}

func (m *Memory) LLen(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked(key)
	return int64(len(m.lists[key])), nil
}
