// Package balancer implements LoadBalancer: four selection
// strategies plus session affinity over the eligible-channel subset.
package balancer

import (
	"time"

	"github.com/routex/routex/internal/channelset"
)

// Strategy is the name of a load-balancing algorithm.
type Strategy string

const (
	StrategyPriority    Strategy = "priority"
	StrategyRoundRobin  Strategy = "round_robin"
	StrategyWeighted    Strategy = "weighted"
	StrategyLeastUsed   Strategy = "least_used"
)

// CursorStore tracks the round-robin cursor for a strategy, process-local by
// default or Redis-backed for multi-process deployments.
type CursorStore interface {
	// Next returns the next cursor value for key (monotonic, wraps via caller
	// modulo) and advances it atomically.
	Next(key string) uint64
}

// pick selects one channel from eligible using the named strategy. eligible
// must be non-empty.
func pick(strategy Strategy, key string, eligible []*channelset.Channel, cursors CursorStore, rng func() float64) *channelset.Channel {
	switch strategy {
	case StrategyRoundRobin:
		return pickRoundRobin(key, eligible, cursors)
	case StrategyWeighted:
		return pickWeighted(key, eligible, cursors, rng)
	case StrategyLeastUsed:
		return pickLeastUsed(eligible)
	case StrategyPriority:
		fallthrough
	default:
		return pickPriority(eligible)
	}
}

func pickPriority(eligible []*channelset.Channel) *channelset.Channel {
	best := eligible[0]
	bestSnap := best.Snapshot()
	for _, c := range eligible[1:] {
		snap := c.Snapshot()
		if less := lessPriority(snap, bestSnap); less {
			best, bestSnap = c, snap
		}
	}
	return best
}

func lessPriority(a, b channelset.Snapshot) bool {
	if a.Priority != b.Priority {
		return a.Priority < b.Priority
	}
	if a.Counters.RequestCount != b.Counters.RequestCount {
		return a.Counters.RequestCount < b.Counters.RequestCount
	}
	return a.ID < b.ID
}

func pickLeastUsed(eligible []*channelset.Channel) *channelset.Channel {
	best := eligible[0]
	bestSnap := best.Snapshot()
	for _, c := range eligible[1:] {
		snap := c.Snapshot()
		if snap.Counters.RequestCount < bestSnap.Counters.RequestCount {
			best, bestSnap = c, snap
			continue
		}
		if snap.Counters.RequestCount == bestSnap.Counters.RequestCount &&
			snap.Timestamps.LastUsedAt.Before(bestSnap.Timestamps.LastUsedAt) {
			best, bestSnap = c, snap
		}
	}
	return best
}

func pickRoundRobin(key string, eligible []*channelset.Channel, cursors CursorStore) *channelset.Channel {
	n := cursors.Next(key)
	idx := int(n % uint64(len(eligible)))
	return eligible[idx]
}

func pickWeighted(key string, eligible []*channelset.Channel, cursors CursorStore, rng func() float64) *channelset.Channel {
	total := 0.0
	for _, c := range eligible {
		total += c.Snapshot().Weight
	}
	if total <= 0 {
		return pickRoundRobin(key, eligible, cursors)
	}
	r := rng() * total
	acc := 0.0
	for _, c := range eligible {
		acc += c.Snapshot().Weight
		if r < acc {
			return c
		}
	}
	return eligible[len(eligible)-1]
}

// Eligible filters channels to the selectable subset.
func Eligible(now time.Time, model string, channels []*channelset.Channel) []*channelset.Channel {
	out := make([]*channelset.Channel, 0, len(channels))
	for _, c := range channels {
		if c.Snapshot().Eligible(now, model) {
			out = append(out, c)
		}
	}
	return out
}
