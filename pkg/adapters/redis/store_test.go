package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/rewind/pkg/adapters/redis"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) *backend.Client {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err, "failed to start miniredis")
	t.Cleanup(mr.Close)

	return backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
}

func TestRedisStore_Contract(t *testing.T) {
	client := newTestClient(t)
	store := redis.NewFromClient(client)
	ports.RunCheckpointStoreContract(t, store)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	id, err := store.Save(ctx, domain.NewState(domain.NewUserMessage("hi")))
	require.NoError(t, err)
	assert.Equal(t, "ckpt_0", id)

	// Snapshot and index keys carry the custom prefix.
	assert.True(t, mr.Exists("custom:app:ckpt_0"), "expected snapshot key with custom prefix")
	assert.True(t, mr.Exists("custom:app:index"), "expected index key with custom prefix")

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ckpt_0"}, ids)
}

func TestRedisStore_SharedCounterSurvivesReconnect(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	ctx := context.Background()

	first := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	id, err := first.Save(ctx, domain.NewState(domain.NewUserMessage("one")))
	require.NoError(t, err)
	assert.Equal(t, "ckpt_0", id)

	// A second client over the same backend continues the sequence instead of
	// reusing IDs.
	second := redis.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))
	id, err = second.Save(ctx, domain.NewState(domain.NewUserMessage("two")))
	require.NoError(t, err)
	assert.Equal(t, "ckpt_1", id)

	ids, err := second.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"ckpt_0", "ckpt_1"}, ids)
}
