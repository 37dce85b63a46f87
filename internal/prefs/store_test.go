package prefs

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	client := redis.NewClient(&redis.Options{Addr: server.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), server
}

func exerciseStore(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "user-1", "units")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set(ctx, "user-1", "units", "km"))
	v, err := s.Get(ctx, "user-1", "units")
	require.NoError(t, err)
	assert.Equal(t, "km", v)

	seen, err := OnboardingSeen(ctx, s, "user-1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, MarkOnboardingSeen(ctx, s, "user-1"))
	seen, err = OnboardingSeen(ctx, s, "user-1")
	require.NoError(t, err)
	assert.True(t, seen)

	all, err := s.All(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"units": "km", KeyOnboardingSeen: "true"}, all)

	other, err := s.All(ctx, "user-2")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.Delete(ctx, "user-1", "units"))
	_, err = s.Get(ctx, "user-1", "units")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestRedisStore(t *testing.T) {
	store, server := newRedisStore(t)
	exerciseStore(t, store)

	assert.Equal(t, "true", server.HGet("prefs:user-1", KeyOnboardingSeen))
}

func TestRedisStoreUnavailable(t *testing.T) {
	store, server := newRedisStore(t)
	server.Close()

	_, err := OnboardingSeen(context.Background(), store, "user-1")
	assert.Error(t, err)
}

func TestNewStore(t *testing.T) {
	_, isMemory := NewStore(nil).(*MemoryStore)
	assert.True(t, isMemory)

	_, isRedis := NewStore(redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})).(*RedisStore)
	assert.True(t, isRedis)
}
