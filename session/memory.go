package session

import (
	"context"
	"sync"
)

// Memory is the default in-process Store. Baselines die with the service.
type Memory struct {
	mu sync.RWMutex
	m  map[string]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string]string)}
}

// Get returns the session's baseline, ok=false when none exists yet.
func (s *Memory) Get(_ context.Context, sessionID string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.m[sessionID]
	return snap, ok, nil
}

// Set overwrites the session's baseline.
func (s *Memory) Set(_ context.Context, sessionID, snapshot string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sessionID] = snapshot
	return nil
}

// Remove drops the session's baseline.
func (s *Memory) Remove(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, sessionID)
	return nil
}

// Len reports the number of active baselines.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// Count implements Counter.
func (s *Memory) Count(_ context.Context) (int, error) {
	return s.Len(), nil
}
