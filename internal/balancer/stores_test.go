package balancer

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestRedisCursorStoreIncrements(t *testing.T) {
	client := newTestRedis(t)
	store := NewRedisCursorStore(client, "routex-test")

	require.Equal(t, uint64(0), store.Next("rr"))
	require.Equal(t, uint64(1), store.Next("rr"))
	require.Equal(t, uint64(2), store.Next("rr"))
}

func TestRedisAffinityStoreRoundTrip(t *testing.T) {
	client := newTestRedis(t)
	store := NewRedisAffinityStore(client, "routex-test", time.Hour)

	_, ok := store.Get("sess-1")
	require.False(t, ok)

	store.Set("sess-1", 42)
	id, ok := store.Get("sess-1")
	require.True(t, ok)
	require.Equal(t, int64(42), id)
}
