package ports

import (
	"context"
	"strconv"

	"github.com/aretw0/rewind/pkg/domain"
)

// CheckpointStore persists state snapshots for time travel.
//
// IDs have the form "ckpt_<n>" where <n> is the store's insertion count at
// save time, so ordering encodes causal step order. The store is append-only:
// Save never overwrites or evicts.
//
// Sequential ID assignment must come from a single-writer discipline (a
// mutex-guarded counter, a Redis INCR, ...) if the store is shared across
// concurrent sessions.
type CheckpointStore interface {
	// Save serializes the state, assigns the next sequential ID, and returns it.
	Save(ctx context.Context, state *domain.State) (string, error)

	// Load returns a copy of the snapshot stored under the given ID.
	// Returns domain.ErrCheckpointNotFound if the ID is absent.
	Load(ctx context.Context, id string) (*domain.State, error)

	// List returns all stored IDs in insertion order.
	List(ctx context.Context) ([]string, error)
}

// CheckpointID formats the sequential identifier for insertion count n.
func CheckpointID(n int64) string {
	return "ckpt_" + strconv.FormatInt(n, 10)
}
