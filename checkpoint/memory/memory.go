// Package memory provides an in-memory checkpoint.Store for development,
// tests, and single-process deployments where durability across restarts
// does not matter.
package memory

import (
	"context"
	"sync"

	"github.com/aws-idp/agentcore/checkpoint"
)

// Store is an in-memory checkpoint.Store. The zero value is ready to use.
type Store struct {
	mu    sync.RWMutex
	state map[string]checkpoint.State
}

// New constructs an empty Store.
func New() *Store {
	return &Store{state: make(map[string]checkpoint.State)}
}

var _ checkpoint.Store = (*Store)(nil)

// GetState implements checkpoint.Store.
func (s *Store) GetState(_ context.Context, threadID string) (checkpoint.State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.state[threadID]
	if !ok {
		return checkpoint.State{}, checkpoint.ErrNotFound
	}
	return st, nil
}

// UpdateState implements checkpoint.Store.
func (s *Store) UpdateState(_ context.Context, state checkpoint.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		s.state = make(map[string]checkpoint.State)
	}
	s.state[state.ThreadID] = state
	return nil
}

// Delete implements checkpoint.Store.
func (s *Store) Delete(_ context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, threadID)
	return nil
}
