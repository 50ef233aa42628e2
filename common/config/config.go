// Package config holds process-wide configuration resolved once from the
// environment. Each variable documents its env var and default; package-level
// vars are used in preference to a config struct threaded through a context.
package config

import (
	"time"

	"github.com/routex/routex/common/env"
)

var (
	// LogLevel is the default zap level name (debug, info, warn, error).
	LogLevel = env.String("LOG_LEVEL", "info")
	// LogFormat selects the zap encoder: "pretty" (console) or "json".
	LogFormat = env.String("LOG_FORMAT", "pretty")
	// Environment mirrors NODE_ENV-style deploy staging; "production" disables
	// pretty-printing fallbacks regardless of LogFormat.
	Environment = env.String("ROUTEX_ENV", "development")

	// ListenAddr is the HTTP bind address shared by the proxy and admin routes.
	ListenAddr = env.String("LISTEN_ADDR", ":3000")

	// UpstreamTimeout bounds a single upstream provider HTTP call.
	UpstreamTimeout = time.Duration(env.Int("UPSTREAM_TIMEOUT_SECONDS", 60)) * time.Second

	// MaxUpstreamRetries is read from MAX_UPSTREAM_RETRIES. The gateway makes
	// one upstream attempt per request and does not retry on another channel,
	// so nothing consumes this value.
	MaxUpstreamRetries = env.Int("MAX_UPSTREAM_RETRIES", 2)

	// BreakerFailureThreshold is the consecutive-failure count T that opens a
	// channel's circuit breaker.
	BreakerFailureThreshold = env.Int("BREAKER_FAILURE_THRESHOLD", 5)
	// BreakerWindow is the window W consecutive failures must fall within.
	BreakerWindow = time.Duration(env.Int("BREAKER_WINDOW_SECONDS", 60)) * time.Second
	// BreakerInitialBackoff is the first circuit-open duration B.
	BreakerInitialBackoff = time.Duration(env.Int("BREAKER_INITIAL_BACKOFF_SECONDS", 30)) * time.Second
	// BreakerMaxBackoff ceilings the exponential backoff growth.
	BreakerMaxBackoff = time.Duration(env.Int("BREAKER_MAX_BACKOFF_SECONDS", 480)) * time.Second

	// SessionAffinityTTL is the default sticky-session lifetime, configurable
	// with a 5h default.
	SessionAffinityTTL = time.Duration(env.Int("SESSION_AFFINITY_TTL_SECONDS", 5*3600)) * time.Second
	// SessionAffinityCacheSize bounds the session->channel LRU.
	SessionAffinityCacheSize = env.Int("SESSION_AFFINITY_CACHE_SIZE", 10000)

	// AnalysisMemoCacheSize is read from ANALYSIS_MEMO_CACHE_SIZE. The
	// analysis memo is bounded by AnalysisMemoTTL only; this size is not
	// applied to it.
	AnalysisMemoCacheSize = env.Int("ANALYSIS_MEMO_CACHE_SIZE", 5000)
	// AnalysisMemoTTL bounds how long a memoized analysis is reused.
	AnalysisMemoTTL = time.Duration(env.Int("ANALYSIS_MEMO_TTL_SECONDS", 300)) * time.Second

	// LoadBalancerStrategy selects the default strategy: priority,
	// round_robin, weighted, least_used.
	LoadBalancerStrategy = env.String("LOAD_BALANCER_STRATEGY", "priority")

	// TeeFlushInterval is the background flusher tick.
	TeeFlushInterval = time.Duration(env.Int("TEE_FLUSH_INTERVAL_MS", 1000)) * time.Millisecond
	// TeeBatchSize bounds items drained per flush tick.
	TeeBatchSize = env.Int("TEE_BATCH_SIZE", 10)
	// TeeMaxRetries bounds per-payload dispatch attempts.
	TeeMaxRetries = env.Int("TEE_MAX_RETRIES", 3)
	// TeeDispatchTimeout bounds a single sink dispatch.
	TeeDispatchTimeout = time.Duration(env.Int("TEE_DISPATCH_TIMEOUT_SECONDS", 10)) * time.Second
	// TeeQueueWarnSize is read from TEE_QUEUE_WARN_SIZE. The tee stream does
	// not consult it and logs no backpressure warning; queue size is visible
	// only through the stream's Stats.
	TeeQueueWarnSize = env.Int("TEE_QUEUE_WARN_SIZE", 5000)

	// RedisAddr, when set, backs the distributed round-robin cursor / session
	// affinity store instead of the in-process default.
	RedisAddr = env.String("REDIS_ADDR", "")

	// ChannelRateLimitRPS caps outbound requests per channel per second,
	// ahead of whatever the upstream itself would reject with a 429. Zero
	// disables local throttling entirely.
	ChannelRateLimitRPS = env.Float("CHANNEL_RATE_LIMIT_RPS", 0)
	// ChannelRateLimitBurst bounds the token bucket's burst size.
	ChannelRateLimitBurst = env.Int("CHANNEL_RATE_LIMIT_BURST", 5)

	// DebugEnabled toggles verbose structured logging regardless of LogLevel.
	DebugEnabled = env.Bool("DEBUG", false)
)
