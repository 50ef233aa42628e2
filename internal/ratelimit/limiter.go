// Package ratelimit throttles outbound upstream calls per channel, ahead
// of whatever the upstream itself rejects with a 429. It is deliberately
// separate from channelset.Channel.RateLimit: that method records a
// reactive cooldown an upstream told us to observe, while this package
// enforces a proactive local cap so one hot channel can't starve its own
// token bucket before the upstream ever gets a chance to say no.
package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Registry hands out one token-bucket limiter per channel name, created
// lazily on first use with the configured default rate/burst.
type Registry struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	rps      float64
	burst    int
}

// NewRegistry builds a Registry whose limiters allow rps requests per
// second with the given burst, per channel.
func NewRegistry(rps float64, burst int) *Registry {
	return &Registry{
		limiters: make(map[string]*rate.Limiter),
		rps:      rps,
		burst:    burst,
	}
}

func (r *Registry) limiterFor(channel string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[channel]
	if !ok {
		l = rate.NewLimiter(rate.Limit(r.rps), r.burst)
		r.limiters[channel] = l
	}
	return l
}

// Wait blocks until channel's bucket has a token to spend, or ctx is
// cancelled first. A non-positive configured rps disables throttling
// entirely (Wait returns immediately).
func (r *Registry) Wait(ctx context.Context, channel string) error {
	if r.rps <= 0 {
		return nil
	}
	return r.limiterFor(channel).Wait(ctx)
}

// Allow reports whether channel currently has a token available, without
// blocking or consuming one unless true.
func (r *Registry) Allow(channel string) bool {
	if r.rps <= 0 {
		return true
	}
	return r.limiterFor(channel).Allow()
}
