// Package store provides ProgressStore implementations: in-memory for tests,
// file-backed for the default single-machine install, and Redis/PostgreSQL
// for deployments that share onboarding state across devices.
package store

import (
	"context"
	"sync"

	"gemnet/internal/registration/models"
)

// MemoryStore keeps the session record in process memory.
// Intended for tests and throwaway runs; nothing survives a restart.
type MemoryStore struct {
	mu      sync.RWMutex
	session models.Session
	exists  bool
}

// NewMemory constructs an empty in-memory progress store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.exists {
		return models.EmptySession(), nil
	}
	return s.session, nil
}

func (s *MemoryStore) Save(_ context.Context, session models.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = session
	s.exists = true
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session = models.Session{}
	s.exists = false
	return nil
}
