package ports

import (
	"context"
	"testing"

	"github.com/aretw0/rewind/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunCheckpointStoreContract runs a suite of tests to verify that a
// CheckpointStore implementation adheres to the defined interface contract.
// The store must be empty when the suite starts.
func RunCheckpointStoreContract(t *testing.T, store CheckpointStore) {
	ctx := context.Background()

	t.Run("Sequential IDs", func(t *testing.T) {
		id0, err := store.Save(ctx, domain.NewState(domain.NewUserMessage("hello")))
		require.NoError(t, err, "Save should not return error")
		assert.Equal(t, "ckpt_0", id0)

		id1, err := store.Save(ctx, domain.NewState(domain.NewUserMessage("again")))
		require.NoError(t, err)
		assert.Equal(t, "ckpt_1", id1)
	})

	t.Run("Round Trip", func(t *testing.T) {
		state := domain.NewState(
			domain.NewUserMessage("what is the weather"),
			domain.NewAssistantMessage("checking", domain.ToolCall{
				ID:   "call-1",
				Name: "search",
				Args: map[string]any{"query": "weather"},
			}),
		)
		state.IsLastStep = true
		state.Extra["session"] = "round-trip"

		id, err := store.Save(ctx, state)
		require.NoError(t, err)

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.Messages, loaded.Messages)
		assert.Equal(t, state.IsLastStep, loaded.IsLastStep)
		// String-valued extras, so the whole map must come back identical.
		// (Numeric extras may change Go type under JSON persistence.)
		assert.Equal(t, state.Extra, loaded.Extra)
	})

	t.Run("Save Copies", func(t *testing.T) {
		state := domain.NewState(domain.NewUserMessage("original"))
		id, err := store.Save(ctx, state)
		require.NoError(t, err)

		// Mutating the live state must not leak into the stored snapshot.
		state.Append(domain.NewAssistantMessage("mutated after save"))
		state.IsLastStep = true

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Len(t, loaded.Messages, 1)
		assert.False(t, loaded.IsLastStep)
		assert.NotNil(t, loaded.Extra, "an empty extra map must survive the round trip")
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "ckpt_9999")
		assert.ErrorIs(t, err, domain.ErrCheckpointNotFound)
	})

	t.Run("List Insertion Order", func(t *testing.T) {
		ids, err := store.List(ctx)
		require.NoError(t, err)

		// Four saves performed so far by this suite.
		require.Len(t, ids, 4)
		assert.Equal(t, []string{"ckpt_0", "ckpt_1", "ckpt_2", "ckpt_3"}, ids)
	})
}
