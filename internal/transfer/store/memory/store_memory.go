package memory

import (
	"context"
	"sync"

	"provena/internal/transfer"
	id "provena/pkg/domain"
	"provena/pkg/platform/sentinel"
)

// InMemoryTransferStore keeps transfer records in a map and assigns IDs from
// a monotonic counter starting at 1, so two proposals in the same instant can
// never collide.
type InMemoryTransferStore struct {
	mu        sync.RWMutex
	transfers map[id.TransferID]transfer.Transfer
	nextID    id.TransferID
}

func NewInMemoryTransferStore() *InMemoryTransferStore {
	return &InMemoryTransferStore{transfers: make(map[id.TransferID]transfer.Transfer)}
}

func (s *InMemoryTransferStore) Create(_ context.Context, t *transfer.Transfer) (id.TransferID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	s.transfers[t.ID] = *t
	return t.ID, nil
}

func (s *InMemoryTransferStore) Get(_ context.Context, transferID id.TransferID) (*transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.transfers[transferID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

func (s *InMemoryTransferStore) Update(_ context.Context, t *transfer.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.transfers[t.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.transfers[t.ID] = *t
	return nil
}

// ListByItem returns the item's transfers in ascending ID order.
func (s *InMemoryTransferStore) ListByItem(_ context.Context, itemID id.ItemID) ([]transfer.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []transfer.Transfer
	for tid := id.TransferID(1); tid <= s.nextID; tid++ {
		if t, ok := s.transfers[tid]; ok && t.ItemID == itemID {
			out = append(out, t)
		}
	}
	return out, nil
}
