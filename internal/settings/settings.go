// Package settings stores small per-tenant configuration values, such as
// the downstream database id proposals are eventually exported to and the
// subscribed trigger ids. Settings do not expire.
package settings

import (
	"context"
	"errors"

	"inboxpilot-backend/internal/kv"
)

// ErrNotFound is returned when a setting was never written or was deleted.
var ErrNotFound = errors.New("settings: not found")

type Service struct {
	store kv.Store
}

func New(store kv.Store) *Service {
	return &Service{store: store}
}

func settingKey(entityID, name string) string {
	return "settings:" + entityID + ":" + name
}

func (s *Service) Get(ctx context.Context, entityID, name string) (string, error) {
	v, err := s.store.Get(ctx, settingKey(entityID, name))
	if errors.Is(err, kv.ErrNotFound) {
		return "", ErrNotFound
	}
	return v, err
}

func (s *Service) Set(ctx context.Context, entityID, name, value string) error {
	return s.store.Set(ctx, settingKey(entityID, name), value, 0)
}

func (s *Service) Delete(ctx context.Context, entityID, name string) error {
	return s.store.Delete(ctx, settingKey(entityID, name))
}
