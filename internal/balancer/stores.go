package balancer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// MemoryCursorStore is the default process-local round-robin cursor.
type MemoryCursorStore struct {
	mu      sync.Mutex
	cursors map[string]*uint64
}

// NewMemoryCursorStore returns an empty in-process cursor store.
func NewMemoryCursorStore() *MemoryCursorStore {
	return &MemoryCursorStore{cursors: make(map[string]*uint64)}
}

func (s *MemoryCursorStore) Next(key string) uint64 {
	s.mu.Lock()
	ptr, ok := s.cursors[key]
	if !ok {
		var z uint64
		ptr = &z
		s.cursors[key] = ptr
	}
	s.mu.Unlock()
	return atomic.AddUint64(ptr, 1) - 1
}

// RedisCursorStore backs the round-robin cursor with Redis INCR, for
// deployments that run multiple Routex processes sharing one cursor.
// INCR gives an atomic counter but not a linearizable hand-off with the
// balancer's in-process state, so treat cross-process round-robin as
// best-effort distribution, not a strict ordering guarantee.
type RedisCursorStore struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

// NewRedisCursorStore builds a cursor store backed by the given client.
func NewRedisCursorStore(client *redis.Client, prefix string) *RedisCursorStore {
	return &RedisCursorStore{client: client, prefix: prefix, ctx: context.Background()}
}

func (s *RedisCursorStore) Next(key string) uint64 {
	n, err := s.client.Incr(s.ctx, s.prefix+":cursor:"+key).Result()
	if err != nil {
		// Best-effort: fall back to a fixed position rather than failing
		// selection outright when Redis is briefly unavailable.
		return 0
	}
	return uint64(n) - 1
}

// AffinityStore persists the sessionId->channelId sticky mapping. The in-process default is internal/lru-backed;
// RedisAffinityStore lets multiple processes share sessions.
type AffinityStore interface {
	Get(sessionID string) (channelID int64, ok bool)
	Set(sessionID string, channelID int64)
}

// RedisAffinityStore backs session affinity with Redis SET/GET + TTL.
type RedisAffinityStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	ctx    context.Context
}

// NewRedisAffinityStore builds an affinity store with the given TTL.
func NewRedisAffinityStore(client *redis.Client, prefix string, ttl time.Duration) *RedisAffinityStore {
	return &RedisAffinityStore{client: client, prefix: prefix, ttl: ttl, ctx: context.Background()}
}

func (s *RedisAffinityStore) Get(sessionID string) (int64, bool) {
	v, err := s.client.Get(s.ctx, s.prefix+":affinity:"+sessionID).Int64()
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s *RedisAffinityStore) Set(sessionID string, channelID int64) {
	s.client.Set(s.ctx, s.prefix+":affinity:"+sessionID, channelID, s.ttl)
}
