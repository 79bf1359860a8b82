// Package identity remembers which display name this device chose in each
// session, so a returning participant is recognized without a prompt.
package identity

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Store maps a session id to a remembered display name. Implementations are not
// transactional; an absent entry is reported as an empty name.
type Store interface {
	Get(ctx context.Context, sessionID uuid.UUID) (string, error)
	Set(ctx context.Context, sessionID uuid.UUID, name string) error
	Remove(ctx context.Context, sessionID uuid.UUID) error
}

// MemoryStore keeps names for the lifetime of the process.
type MemoryStore struct {
	mu    sync.RWMutex
	names map[uuid.UUID]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{names: make(map[uuid.UUID]string)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID uuid.UUID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.names[sessionID], nil
}

func (s *MemoryStore) Set(_ context.Context, sessionID uuid.UUID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[sessionID] = name
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.names, sessionID)
	return nil
}
