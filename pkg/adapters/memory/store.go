package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/ports"
)

// Store implements ports.CheckpointStore in process memory.
// Safe for concurrent use: the mutex is the single-writer discipline that
// keeps sequential ID assignment collision-free across sessions.
type Store struct {
	mu    sync.RWMutex
	data  map[string][]byte
	order []string
}

// NewStore creates a new in-memory checkpoint store.
func NewStore() *Store {
	return &Store{
		data: make(map[string][]byte),
	}
}

// Save serializes the state and stores it under the next sequential ID.
func (s *Store) Save(ctx context.Context, state *domain.State) (string, error) {
	snapshot, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("serializing checkpoint: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := ports.CheckpointID(int64(len(s.order)))
	s.data[id] = snapshot
	s.order = append(s.order, id)
	return id, nil
}

// Load deserializes the snapshot stored under the given ID.
func (s *Store) Load(ctx context.Context, id string) (*domain.State, error) {
	s.mu.RLock()
	snapshot, ok := s.data[id]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, id)
	}

	var state domain.State
	if err := json.Unmarshal(snapshot, &state); err != nil {
		return nil, fmt.Errorf("deserializing checkpoint %s: %w", id, err)
	}
	return &state, nil
}

// List returns all checkpoint IDs in insertion order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids, nil
}

// Len returns the number of stored checkpoints.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}
