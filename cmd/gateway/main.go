// Command gateway starts the Gateway: the single public HTTP entry point
// that fans findAddress queries out to every Data Node shard, aggregates
// and ranks their results, and serves the response.
//
// Usage:
//
//	go run ./cmd/gateway [-config configs/gateway.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/delacruz-dev/geoshard/internal/gateway/aggregator"
	"github.com/delacruz-dev/geoshard/internal/gateway/analytics"
	"github.com/delacruz-dev/geoshard/internal/gateway/cache"
	"github.com/delacruz-dev/geoshard/internal/gateway/fanout"
	"github.com/delacruz-dev/geoshard/internal/gateway/httpapi"
	"github.com/delacruz-dev/geoshard/pkg/config"
	"github.com/delacruz-dev/geoshard/pkg/health"
	"github.com/delacruz-dev/geoshard/pkg/kafka"
	"github.com/delacruz-dev/geoshard/pkg/lifecycle"
	"github.com/delacruz-dev/geoshard/pkg/logger"
	"github.com/delacruz-dev/geoshard/pkg/metrics"
	"github.com/delacruz-dev/geoshard/pkg/middleware"
	pkgredis "github.com/delacruz-dev/geoshard/pkg/redis"
	"github.com/delacruz-dev/geoshard/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.LoadGatewayConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting gateway",
		"http_port", cfg.HTTPPort,
		"data_nodes", len(cfg.DataNodes),
		"grpc_timeout_ms", cfg.GRPCTimeoutMS,
	)

	if len(cfg.DataNodes) == 0 {
		slog.Error("no data nodes configured (set DATA_NODE_0, DATA_NODE_1, ...)")
		os.Exit(1)
	}

	checker := health.NewChecker()

	shards := make([]*fanout.Shard, 0, len(cfg.DataNodes))
	for _, node := range cfg.DataNodes {
		shard, err := dialShardWithRetry(node)
		if err != nil {
			slog.Error("failed to dial data node", "shard_id", node.ShardID, "address", node.Address, "error", err)
			os.Exit(1)
		}
		shards = append(shards, shard)
		slog.Info("connected to data node", "shard_id", node.ShardID, "address", node.Address)
		checker.Register(fmt.Sprintf("data-node-%d", node.ShardID), shardHealthCheck(shard))
	}

	var m *metrics.Metrics
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	fanoutClient := fanout.New(shards, cfg.GRPCTimeout(), m)

	var responseCache *cache.ResponseCache
	redisClient, err := pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, findAddress responses will not be cached", "error", err)
	} else {
		responseCache = cache.New(redisClient, cfg.Redis)
		checker.Register("cache", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topic)
	collector := analytics.NewCollector(producer)
	defer collector.Close()

	handler := httpapi.New(httpapi.Config{
		Fanout:     fanoutClient,
		Cache:      responseCache,
		Collector:  collector,
		Metrics:    m,
		ShardCount: len(shards),
		MaxResults: firstNonZero(cfg.MaxResults, aggregator.DefaultMaxResults),
	})

	mux := http.NewServeMux()
	handler.Routes(mux)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.Timeout(cfg.GRPCTimeout() + 5*time.Second)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      chain,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.GRPCTimeout() + 10*time.Second,
	}

	go func() {
		slog.Info("gateway listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	lifecycle.Run(10*time.Second, server)

	for _, shard := range shards {
		if closer, ok := shard.Client.(interface{ Close() error }); ok {
			_ = closer.Close()
		}
	}
	if metricsShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsShutdown(shutdownCtx)
	}
	slog.Info("gateway stopped")
}

// dialShardWithRetry dials a Data Node, retrying with backoff since the
// Gateway commonly starts before its shards finish loading their CSV files.
func dialShardWithRetry(node config.DataNodeAddr) (*fanout.Shard, error) {
	var shard *fanout.Shard
	err := resilience.Retry(context.Background(), fmt.Sprintf("dial-shard-%d", node.ShardID), resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     5 * time.Second,
	}, func() error {
		s, dialErr := fanout.DialShard(node.ShardID, node.Address)
		if dialErr != nil {
			return dialErr
		}
		shard = s
		return nil
	})
	return shard, err
}

func shardHealthCheck(shard *fanout.Shard) health.Check {
	return func(ctx context.Context) health.ComponentHealth {
		var resp struct {
			Status string `json:"status"`
		}
		if err := shard.Client.CallContext(ctx, "DataNodeService.HealthCheck", struct{}{}, &resp); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		if resp.Status != "SERVING" {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: resp.Status}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	}
}

func firstNonZero(a, b int) int {
	if a != 0 {
		return a
	}
	return b
}
