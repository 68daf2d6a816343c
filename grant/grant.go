// Package grant provides an in-memory access-grant store. The production
// grant store lives outside this module; this implementation backs the CLI
// and tests with the same contract: grants are upserts keyed by
// (project, peer), re-allowing a revoked peer restores access, and unknown
// peers are denied by default.
package grant

import (
	"sync"

	"holi.app/vault/storage"
)

// Store is an in-memory access-grant table. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	projects map[string]map[string]storage.Role
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{projects: make(map[string]map[string]storage.Role)}
}

// Allow grants did access to projectID at role, replacing any previous
// grant for the pair.
func (s *Store) Allow(projectID, did string, role storage.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	peers, ok := s.projects[projectID]
	if !ok {
		peers = make(map[string]storage.Role)
		s.projects[projectID] = peers
	}
	peers[did] = role
	return nil
}

// Revoke removes did's grant for projectID. Revoking an absent grant is a
// no-op.
func (s *Store) Revoke(projectID, did string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if peers, ok := s.projects[projectID]; ok {
		delete(peers, did)
		if len(peers) == 0 {
			delete(s.projects, projectID)
		}
	}
	return nil
}

// RemoveAll drops every grant of projectID.
func (s *Store) RemoveAll(projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.projects, projectID)
	return nil
}

// Peers returns the granted peers of projectID with their roles.
func (s *Store) Peers(projectID string) (map[string]storage.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	peers := s.projects[projectID]
	out := make(map[string]storage.Role, len(peers))
	for did, role := range peers {
		out[did] = role
	}
	return out, nil
}

// Allowed reports whether did holds a grant for projectID, and at what
// role.
func (s *Store) Allowed(projectID, did string) (storage.Role, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.projects[projectID][did]
	return role, ok
}
