package balancer

import (
	"math/rand"
	"time"

	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/lru"
)

// BalanceContext is the per-request view the load balancer needs.
type BalanceContext struct {
	Model     string
	SessionID string
	// StrategyOverride lets per-request metadata override the process-wide
	// default strategy.
	StrategyOverride Strategy
}

// memoryAffinityStore adapts internal/lru to the AffinityStore interface,
// the in-process default.
type memoryAffinityStore struct {
	cache *lru.Cache[string, int64]
}

func (m *memoryAffinityStore) Get(sessionID string) (int64, bool) { return m.cache.Get(sessionID) }
func (m *memoryAffinityStore) Set(sessionID string, channelID int64) {
	m.cache.Set(sessionID, channelID)
}

// LoadBalancer picks one eligible channel per request.
type LoadBalancer struct {
	DefaultStrategy Strategy
	Cursors         CursorStore
	Affinity        AffinityStore
	Rand            func() float64
	Now             func() time.Time
}

// New builds a LoadBalancer with in-process cursor/affinity stores.
func New(defaultStrategy Strategy, affinityCapacity int, affinityTTL time.Duration) *LoadBalancer {
	return &LoadBalancer{
		DefaultStrategy: defaultStrategy,
		Cursors:         NewMemoryCursorStore(),
		Affinity:        &memoryAffinityStore{cache: lru.New[string, int64](affinityCapacity, affinityTTL)},
		Rand:            rand.Float64,
		Now:             time.Now,
	}
}

// Pick selects a channel from the registry's full channel set, applying
// eligibility filtering, session affinity, and the configured strategy. It
// returns nil if no channel is eligible.
func (lb *LoadBalancer) Pick(ctx BalanceContext, channels *channelset.Registry) *channelset.Channel {
	now := lb.Now()
	eligible := Eligible(now, ctx.Model, channels.All())
	if len(eligible) == 0 {
		return nil
	}

	if ctx.SessionID != "" {
		if channelID, ok := lb.Affinity.Get(ctx.SessionID); ok {
			for _, c := range eligible {
				if c.ID == channelID {
					return c // live affinity entry, still eligible
				}
			}
			// Affinity target no longer eligible: fall through to a fresh
			// pick and record the new mapping.
		}
	}

	strategy := lb.DefaultStrategy
	if ctx.StrategyOverride != "" {
		strategy = ctx.StrategyOverride
	}

	chosen := pick(strategy, string(strategy), eligible, lb.Cursors, lb.Rand)
	if chosen == nil {
		return nil
	}

	if ctx.SessionID != "" {
		lb.Affinity.Set(ctx.SessionID, chosen.ID)
	}
	return chosen
}

// Dispatch records the pre-call counter bump.
func (lb *LoadBalancer) Dispatch(c *channelset.Channel) {
	c.RecordDispatch(lb.Now())
}

// Complete records the post-call outcome, including circuit-breaker
// evaluation on failure.
func (lb *LoadBalancer) Complete(c *channelset.Channel, success bool, breaker channelset.BreakerConfig) {
	if success {
		c.RecordSuccess()
		return
	}
	c.RecordFailure(lb.Now(), breaker)
}
