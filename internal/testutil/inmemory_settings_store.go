package testutil

import (
	"context"
	"time"

	"github.com/netbill/netbill/internal/domain/settings"
	ierr "github.com/netbill/netbill/internal/errors"
	"github.com/netbill/netbill/internal/types"
	"github.com/samber/lo"
)

// InMemorySettingsStore implements settings.Repository keyed by setting key
type InMemorySettingsStore struct {
	*InMemoryStore[*settings.Setting]
	gets int
}

func NewInMemorySettingsStore() *InMemorySettingsStore {
	return &InMemorySettingsStore{
		InMemoryStore: NewInMemoryStore[*settings.Setting](),
	}
}

func (s *InMemorySettingsStore) Get(ctx context.Context, key types.SettingKey) (*settings.Setting, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()

	setting, err := s.InMemoryStore.Get(ctx, string(key))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Setting %s was not found", key).
			Mark(ierr.ErrNotFound)
	}
	cp := *setting
	return &cp, nil
}

func (s *InMemorySettingsStore) List(ctx context.Context) ([]*settings.Setting, error) {
	s.mu.Lock()
	s.gets++
	s.mu.Unlock()

	items, err := s.InMemoryStore.List(ctx, nil, nil, func(a, b *settings.Setting) bool {
		return a.Key < b.Key
	})
	if err != nil {
		return nil, err
	}
	return lo.Map(items, func(st *settings.Setting, _ int) *settings.Setting {
		cp := *st
		return &cp
	}), nil
}

func (s *InMemorySettingsStore) Upsert(ctx context.Context, setting *settings.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *setting
	if existing, ok := s.items[string(setting.Key)]; ok {
		cp.ID = existing.ID
		cp.CreatedAt = existing.CreatedAt
		cp.CreatedBy = existing.CreatedBy
	}
	cp.UpdatedAt = time.Now().UTC()
	s.items[string(setting.Key)] = &cp
	return nil
}

// Reads returns how many times the store was read, used to observe caching
func (s *InMemorySettingsStore) Reads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gets
}

// Seed stores raw values for the given keys
func (s *InMemorySettingsStore) Seed(ctx context.Context, values map[types.SettingKey]string) {
	for k, v := range values {
		_ = s.Upsert(ctx, &settings.Setting{
			ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SETTING),
			Key:       k,
			Value:     v,
			BaseModel: types.GetDefaultBaseModel(ctx),
		})
	}
}
