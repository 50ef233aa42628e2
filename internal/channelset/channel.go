// Package channelset implements the Channel data model, its circuit-breaker
// and rate-limit gating, and the copy-on-write snapshot
// registry the router and load balancer read from.
package channelset

import (
	"sync"
	"time"
)

// ProviderKind enumerates supported upstream account kinds.
type ProviderKind string

const (
	ProviderAnthropic ProviderKind = "anthropic"
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAzure     ProviderKind = "azure"
	ProviderGoogle    ProviderKind = "google"
	ProviderZhipu     ProviderKind = "zhipu"
	ProviderCustom    ProviderKind = "custom"
)

// Status is the operator/system-controlled channel lifecycle state.
type Status string

const (
	StatusEnabled       Status = "enabled"
	StatusDisabled      Status = "disabled"
	StatusRateLimited   Status = "rate_limited"
	StatusCircuitBroken Status = "circuit_broken"
)

// Counters tracks request/outcome counts. Reads (via Snapshot) and writes
// both go through Channel's mutex.
type Counters struct {
	RequestCount        int64
	SuccessCount        int64
	FailureCount        int64
	ConsecutiveFailures int64
}

// Timestamps tracks the deadline/occurrence fields driving eligibility.
type Timestamps struct {
	LastFailureAt       time.Time
	CircuitBreakerUntil time.Time
	RateLimitedUntil    time.Time
	LastUsedAt          time.Time
}

// TransformerConfig is a per-channel override of the pipeline spec, applied
// on top of the process-wide default (nil means "use the default").
type TransformerConfig struct {
	Specs []string // transformer preset/spec names; resolved by internal/transform
}

// Channel is an upstream-account descriptor.
type Channel struct {
	mu sync.Mutex

	ID             int64
	Name           string
	Provider       ProviderKind
	BaseURL        string
	Credential     string
	SupportedModels []string // empty means "any"
	Priority       int
	Weight         float64
	Status         Status
	Counters       Counters
	Timestamps     Timestamps
	Transformers   *TransformerConfig

	breakerBackoff time.Duration // current backoff duration, grows on repeated opens
}

// Snapshot is an immutable point-in-time copy of a Channel's fields, safe to
// read without locking and to capture for the lifetime of one request.
type Snapshot struct {
	ID              int64
	Name            string
	Provider        ProviderKind
	BaseURL         string
	Credential      string
	SupportedModels []string
	Priority        int
	Weight          float64
	Status          Status
	Counters        Counters
	Timestamps      Timestamps
	Transformers    *TransformerConfig
}

// Snapshot copies the channel's current fields under lock.
func (c *Channel) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	models := make([]string, len(c.SupportedModels))
	copy(models, c.SupportedModels)
	return Snapshot{
		ID: c.ID, Name: c.Name, Provider: c.Provider, BaseURL: c.BaseURL,
		Credential: c.Credential, SupportedModels: models, Priority: c.Priority,
		Weight: c.Weight, Status: c.Status, Counters: c.Counters,
		Timestamps: c.Timestamps, Transformers: c.Transformers,
	}
}

// SupportsModel reports whether the snapshot serves the given model name. An
// empty SupportedModels list means "any model".
func (s Snapshot) SupportsModel(model string) bool {
	if model == "" || len(s.SupportedModels) == 0 {
		return true
	}
	for _, m := range s.SupportedModels {
		if m == model {
			return true
		}
	}
	return false
}

// Eligible reports whether the snapshot is selectable right now: enabled,
// breaker/rate-limit deadlines passed, and model supported.
func (s Snapshot) Eligible(now time.Time, model string) bool {
	if s.Status == StatusDisabled {
		return false
	}
	if now.Before(s.Timestamps.CircuitBreakerUntil) {
		return false
	}
	if now.Before(s.Timestamps.RateLimitedUntil) {
		return false
	}
	return s.SupportsModel(model)
}

// New constructs a Channel with sane zero-value defaults.
func New(id int64, name string, provider ProviderKind) *Channel {
	return &Channel{
		ID:       id,
		Name:     name,
		Provider: provider,
		Status:   StatusEnabled,
		Priority: 100,
		Weight:   1,
	}
}

// RecordDispatch atomically bumps RequestCount/LastUsedAt on channel pick.
func (c *Channel) RecordDispatch(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Counters.RequestCount++
	c.Timestamps.LastUsedAt = now
}

// RecordSuccess clears consecutive failures and the breaker.
func (c *Channel) RecordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Counters.SuccessCount++
	c.Counters.ConsecutiveFailures = 0
	c.Timestamps.CircuitBreakerUntil = time.Time{}
	c.breakerBackoff = 0
	if c.Status == StatusCircuitBroken {
		c.Status = StatusEnabled
	}
}

// RecordFailure bumps failure counters and, per the breaker config, opens
// the circuit once ConsecutiveFailures crosses the threshold within window.
// A failure while half-open (breaker deadline passed, status still
// circuit_broken) reopens the circuit at once with a doubled backoff.
func (c *Channel) RecordFailure(now time.Time, cfg BreakerConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	halfOpen := c.Status == StatusCircuitBroken && !c.Timestamps.CircuitBreakerUntil.IsZero() &&
		!now.Before(c.Timestamps.CircuitBreakerUntil)
	if !c.Timestamps.LastFailureAt.IsZero() && now.Sub(c.Timestamps.LastFailureAt) > cfg.Window {
		// Outside the failure window: restart the consecutive-failure count.
		c.Counters.ConsecutiveFailures = 0
	}
	c.Counters.FailureCount++
	c.Counters.ConsecutiveFailures++
	c.Timestamps.LastFailureAt = now

	if halfOpen || c.Counters.ConsecutiveFailures >= int64(cfg.FailureThreshold) {
		c.openBreaker(now, cfg)
	}
}

// BreakerConfig parameterizes the per-channel circuit breaker.
type BreakerConfig struct {
	FailureThreshold int
	Window           time.Duration
	InitialBackoff   time.Duration
	MaxBackoff       time.Duration
}

func (c *Channel) openBreaker(now time.Time, cfg BreakerConfig) {
	if c.breakerBackoff == 0 {
		c.breakerBackoff = cfg.InitialBackoff
	} else {
		c.breakerBackoff *= 2
		if c.breakerBackoff > cfg.MaxBackoff {
			c.breakerBackoff = cfg.MaxBackoff
		}
	}
	c.Timestamps.CircuitBreakerUntil = now.Add(c.breakerBackoff)
	c.Status = StatusCircuitBroken
}

// RateLimit sets RateLimitedUntil from an upstream 429/503 Retry-After hint.
func (c *Channel) RateLimit(now time.Time, retryAfter time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Timestamps.RateLimitedUntil = now.Add(retryAfter)
	if c.Status == StatusEnabled {
		c.Status = StatusRateLimited
	}
}

// SetStatus is the operator-driven status mutation.
func (c *Channel) SetStatus(s Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Status = s
}
