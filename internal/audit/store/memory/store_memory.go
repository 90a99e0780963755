package memory

import (
	"context"
	"sync"

	"provena/internal/audit"
	id "provena/pkg/domain"
	"provena/pkg/platform/sentinel"
)

// InMemoryStore keeps the entry sequence as a single ordered slice. The slice
// index is the source of truth for IDs: entry i holds ID i+1, so the dense,
// gap-free sequence is structural rather than re-derived.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) (id.AuditEntryID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = id.AuditEntryID(len(s.entries) + 1)
	s.entries = append(s.entries, clonePayload(entry))
	return entry.ID, nil
}

// clonePayload detaches the entry's payload from the caller's backing array.
// Entries are immutable once appended; sharing bytes either way would let a
// caller rewrite history.
func clonePayload(e audit.Entry) audit.Entry {
	if e.Payload != nil {
		e.Payload = append([]byte(nil), e.Payload...)
	}
	return e
}

func (s *InMemoryStore) Get(_ context.Context, entryID id.AuditEntryID) (audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if entryID < 1 || uint64(entryID) > uint64(len(s.entries)) {
		return audit.Entry{}, sentinel.ErrNotFound
	}
	return clonePayload(s.entries[entryID-1]), nil
}

// Range returns entries with IDs in [startID, endID], inclusive, in ascending
// ID order. Bounds are validated by the service before reaching the store.
func (s *InMemoryStore) Range(_ context.Context, startID, endID id.AuditEntryID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if startID < 1 || uint64(endID) > uint64(len(s.entries)) || endID < startID {
		return nil, sentinel.ErrNotFound
	}
	out := make([]audit.Entry, 0, endID-startID+1)
	for _, e := range s.entries[startID-1 : endID] {
		out = append(out, clonePayload(e))
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.entries)), nil
}

// ListByActor scans the ordered sequence rather than maintaining a separate
// mutable index, so the view can never diverge from the log.
func (s *InMemoryStore) ListByActor(_ context.Context, actor id.PrincipalID) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Entry
	for _, e := range s.entries {
		if e.Actor == actor {
			out = append(out, clonePayload(e))
		}
	}
	return out, nil
}
