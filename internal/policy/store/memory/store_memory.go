package memory

import (
	"context"
	"maps"
	"sync"

	"provena/internal/policy"
	id "provena/pkg/domain"
	"provena/pkg/platform/sentinel"
)

// InMemoryProfileStore keeps compliance profiles in a map. Profiles are
// copied on the way in and out so callers never share the stored maps.
type InMemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[id.PrincipalID]policy.ComplianceProfile
}

func NewInMemoryProfileStore() *InMemoryProfileStore {
	return &InMemoryProfileStore{profiles: make(map[id.PrincipalID]policy.ComplianceProfile)}
}

func (s *InMemoryProfileStore) Get(_ context.Context, principal id.PrincipalID) (policy.ComplianceProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[principal]
	if !ok {
		return policy.ComplianceProfile{}, sentinel.ErrNotFound
	}
	return copyProfile(profile), nil
}

func (s *InMemoryProfileStore) Save(_ context.Context, profile policy.ComplianceProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[profile.Principal] = copyProfile(profile)
	return nil
}

func copyProfile(p policy.ComplianceProfile) policy.ComplianceProfile {
	out := p
	out.JurisdictionApprovals = maps.Clone(p.JurisdictionApprovals)
	return out
}
