// Command routex runs the reverse-proxy gateway: it loads the bootstrap
// topology, wires the request-handling engine, and serves the proxy and
// admin HTTP surfaces on one gin engine.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/routex/routex/common/config"
	"github.com/routex/routex/common/logger"
	"github.com/routex/routex/internal/analyzer"
	"github.com/routex/routex/internal/balancer"
	"github.com/routex/routex/internal/bootstrap"
	"github.com/routex/routex/internal/channelset"
	"github.com/routex/routex/internal/gateway"
	"github.com/routex/routex/internal/metrics"
	"github.com/routex/routex/internal/ratelimit"
	"github.com/routex/routex/internal/rules"
	"github.com/routex/routex/internal/tee"
)

func main() {
	log := logger.L()
	defer log.Sync()

	log.Info("routex starting", zap.String("listen_addr", config.ListenAddr))

	if os.Getenv("GIN_MODE") != gin.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	channels := channelset.NewRegistry()
	customRouters := rules.NewCustomRouterRegistry()
	e := gateway.New(channels, customRouters)
	e.Limiters = ratelimit.NewRegistry(config.ChannelRateLimitRPS, config.ChannelRateLimitBurst)
	e.Balancer = balancer.New(balancer.Strategy(config.LoadBalancerStrategy), config.SessionAffinityCacheSize, config.SessionAffinityTTL)
	e.Memo = analyzer.NewMemo(config.AnalysisMemoTTL)
	e.Client.Timeout = config.UpstreamTimeout
	e.Breaker = channelset.BreakerConfig{
		FailureThreshold: config.BreakerFailureThreshold,
		Window:           config.BreakerWindow,
		InitialBackoff:   config.BreakerInitialBackoff,
		MaxBackoff:       config.BreakerMaxBackoff,
	}

	if config.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: config.RedisAddr})
		e.Balancer.Cursors = balancer.NewRedisCursorStore(rdb, "routex")
		e.Balancer.Affinity = balancer.NewRedisAffinityStore(rdb, "routex", config.SessionAffinityTTL)
		log.Info("using Redis-backed round-robin cursor and session affinity stores", zap.String("addr", config.RedisAddr))
	}

	if path := os.Getenv("ROUTEX_CONFIG"); path != "" {
		if err := loadBootstrapConfig(e, path, log); err != nil {
			log.Fatal("failed to load bootstrap config", zap.Error(err))
		}
	}

	e.Tee = buildTeeStream(log)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(metrics.NewPrometheusCollector(e.Metrics))

	server := gateway.NewHTTPServer(e, promReg)

	srv := &http.Server{
		Addr:    config.ListenAddr,
		Handler: server,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()
	log.Info("routex listening", zap.String("addr", config.ListenAddr))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info("routex shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	if e.Tee != nil {
		e.Tee.Shutdown()
	}
}

func loadBootstrapConfig(e *gateway.Engine, path string, log *zap.Logger) error {
	f, err := bootstrap.Load(path)
	if err != nil {
		return err
	}
	e.Channels.Install(f.LiveChannels())
	rs, err := f.BuildRules()
	if err != nil {
		return err
	}
	e.SetRules(rs)
	e.Specs = f.TransformSpecs()
	log.Info("loaded bootstrap config",
		zap.String("path", path),
		zap.Int("channels", len(f.Channels)),
		zap.Int("rules", len(f.Rules)))
	return nil
}

// buildTeeStream wires the observability-replication destinations named by
// env vars. Every destination is optional; a process with none configured
// runs with Tee nil-safe no-ops throughout the engine.
func buildTeeStream(log *zap.Logger) *tee.Stream {
	var destinations []tee.Destination

	if url := os.Getenv("TEE_HTTP_URL"); url != "" {
		destinations = append(destinations, tee.Destination{
			Name:    "http",
			Sink:    tee.NewHTTPSink(url),
			Retries: config.TeeMaxRetries,
		})
	}
	if path := os.Getenv("TEE_FILE_PATH"); path != "" {
		destinations = append(destinations, tee.Destination{
			Name:    "file",
			Sink:    tee.NewFileSink(path),
			Retries: config.TeeMaxRetries,
		})
	}

	if len(destinations) == 0 {
		log.Info("tee streaming disabled: no destinations configured")
		return nil
	}

	return tee.New(tee.Config{
		FlushInterval: config.TeeFlushInterval,
		BatchSize:     config.TeeBatchSize,
		MaxRetries:    config.TeeMaxRetries,
		DispatchWait:  config.TeeDispatchTimeout,
	}, destinations...)
}
