package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/ports"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "rewind:ckpt:"

// Store implements ports.CheckpointStore on Redis.
//
// Sequential IDs come from an INCR counter, which gives the single-writer
// discipline required when multiple sessions share the store. Snapshots live
// under "<prefix><id>" and an RPUSH index preserves insertion order for List.
type Store struct {
	client *backend.Client
	prefix string
}

// Option configures the Store.
type Option func(*Store)

// WithPrefix overrides the default key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// NewFromClient creates a store backed by an existing Redis client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	s := &Store{
		client: client,
		prefix: defaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) seqKey() string   { return s.prefix + "seq" }
func (s *Store) indexKey() string { return s.prefix + "index" }

// Save serializes the state and stores it under the next sequential ID.
func (s *Store) Save(ctx context.Context, state *domain.State) (string, error) {
	snapshot, err := json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("serializing checkpoint: %w", err)
	}

	// INCR is atomic, so concurrent sessions never collide on an ID.
	seq, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return "", fmt.Errorf("redis error assigning checkpoint id: %w", err)
	}
	id := ports.CheckpointID(seq - 1)

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.prefix+id, snapshot, 0)
	pipe.RPush(ctx, s.indexKey(), id)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("redis error saving checkpoint %s: %w", id, err)
	}
	return id, nil
}

// Load deserializes the snapshot stored under the given ID.
func (s *Store) Load(ctx context.Context, id string) (*domain.State, error) {
	snapshot, err := s.client.Get(ctx, s.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrCheckpointNotFound, id)
		}
		return nil, fmt.Errorf("redis error loading checkpoint %s: %w", id, err)
	}

	var state domain.State
	if err := json.Unmarshal(snapshot, &state); err != nil {
		return nil, fmt.Errorf("deserializing checkpoint %s: %w", id, err)
	}
	return &state, nil
}

// List returns all checkpoint IDs in insertion order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.LRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error listing checkpoints: %w", err)
	}
	return ids, nil
}
