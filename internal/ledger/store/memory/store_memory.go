package memory

import (
	"context"
	"maps"
	"sync"

	"provena/internal/ledger"
	id "provena/pkg/domain"
	"provena/pkg/platform/sentinel"
)

// InMemoryItemStore keeps fragment records in a map. Records are deep-copied
// on the way in and out, so a caller can stage a mutation on its copy and
// only make it observable through Save - nothing outside the store ever
// aliases stored state.
type InMemoryItemStore struct {
	mu    sync.RWMutex
	items map[id.ItemID]ledger.Item
}

func NewInMemoryItemStore() *InMemoryItemStore {
	return &InMemoryItemStore{items: make(map[id.ItemID]ledger.Item)}
}

func (s *InMemoryItemStore) Get(_ context.Context, itemID id.ItemID) (ledger.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.items[itemID]
	if !ok {
		return ledger.Item{}, sentinel.ErrNotFound
	}
	return copyItem(item), nil
}

// Create stores a new fragment record, failing if one already exists.
func (s *InMemoryItemStore) Create(_ context.Context, item ledger.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; ok {
		return sentinel.ErrConflict
	}
	s.items[item.ID] = copyItem(item)
	return nil
}

// Save overwrites an existing fragment record in one step.
func (s *InMemoryItemStore) Save(_ context.Context, item ledger.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[item.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.items[item.ID] = copyItem(item)
	return nil
}

func copyItem(item ledger.Item) ledger.Item {
	out := item
	out.Balances = maps.Clone(item.Balances)
	return out
}
