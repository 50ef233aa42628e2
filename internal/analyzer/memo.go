package analyzer

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/routex/routex/internal/chatmsg"
)

// Memo memoizes Analyze results per request id. Concurrent calls for the
// same id collapse onto one computation via singleflight; patrickmn/go-cache
// backs the actual storage with a TTL so stale entries self-expire without
// an explicit eviction goroutine.
type Memo struct {
	cache *gocache.Cache
	group singleflight.Group
}

// NewMemo builds a Memo with the given TTL; expired entries are cleaned up
// every 2*ttl.
func NewMemo(ttl time.Duration) *Memo {
	return &Memo{cache: gocache.New(ttl, ttl*2)}
}

// Analyze returns the memoized Analysis for requestID, computing it at most
// once concurrently. An empty requestID bypasses the memo.
func (m *Memo) Analyze(requestID string, messages []chatmsg.Message, tools []chatmsg.Tool) Analysis {
	if requestID == "" {
		return Analyze(messages, tools)
	}
	if v, ok := m.cache.Get(requestID); ok {
		return v.(Analysis)
	}
	v, _, _ := m.group.Do(requestID, func() (any, error) {
		a := Analyze(messages, tools)
		m.cache.SetDefault(requestID, a)
		return a, nil
	})
	return v.(Analysis)
}
