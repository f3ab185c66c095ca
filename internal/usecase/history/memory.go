package history

import (
	"context"
	"sort"
	"sync"

	hist "bgscan/internal/domain/history"
	"bgscan/internal/errors"
)

// MemoryStore is an in-process HistoryStore and SettingsStore, used when no
// database is configured.
type MemoryStore struct {
	mu       sync.Mutex
	items    map[string]hist.Item
	settings *hist.Settings
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: make(map[string]hist.Item)}
}

func (m *MemoryStore) Upsert(_ context.Context, item hist.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[item.ID()] = item
	return nil
}

func (m *MemoryStore) List(_ context.Context, limit int) ([]hist.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted()
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (hist.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.items[id]
	if !ok {
		return hist.Item{}, errors.ErrHistoryItemNotFound
	}
	return item, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return errors.ErrHistoryItemNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *MemoryStore) DeleteAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]hist.Item)
	return nil
}

func (m *MemoryStore) Trim(_ context.Context, keep int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, item := range m.sorted() {
		if i >= keep {
			delete(m.items, item.ID())
		}
	}
	return nil
}

func (m *MemoryStore) LoadSettings(context.Context) (hist.Settings, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.settings == nil {
		return hist.Settings{}, false, nil
	}
	return *m.settings, true, nil
}

func (m *MemoryStore) SaveSettings(_ context.Context, s hist.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settings = &s
	return nil
}

func (m *MemoryStore) sorted() []hist.Item {
	out := make([]hist.Item, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].ID() < out[j].ID()
		}
		return out[i].SavedAt.After(out[j].SavedAt)
	})
	return out
}
