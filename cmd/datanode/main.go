// Command datanode starts a single Data Node: it loads one shard's CSV
// address file into memory, builds its radix trie and forward store, and
// serves DataNodeService.Search/GetStatistics over the platform's RPC
// protocol.
//
// Usage:
//
//	go run ./cmd/datanode [-config configs/datanode.yaml]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/delacruz-dev/geoshard/internal/datanode"
	"github.com/delacruz-dev/geoshard/internal/rpcpb"
	"github.com/delacruz-dev/geoshard/pkg/config"
	"github.com/delacruz-dev/geoshard/pkg/lifecycle"
	"github.com/delacruz-dev/geoshard/pkg/logger"
	"github.com/delacruz-dev/geoshard/pkg/metrics"
	"github.com/delacruz-dev/geoshard/pkg/rpc"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.LoadDataNodeConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting data node",
		"shard_id", cfg.ShardID,
		"data_file", cfg.DataFilePath,
		"grpc_port", cfg.GRPCPort,
	)

	node := datanode.New(cfg.ShardID, cfg.DataFilePath)
	if err := node.Initialize(); err != nil {
		slog.Error("failed to initialize data node", "error", err)
		os.Exit(1)
	}

	var m *metrics.Metrics
	var metricsShutdown func(context.Context) error
	if cfg.Metrics.Enabled {
		m = metrics.New()
		stats := node.GetStatistics()
		shardLabel := strconv.Itoa(cfg.ShardID)
		m.RadixTreeMemoryBytes.WithLabelValues(shardLabel).Set(float64(stats.RadixTreeMemory))
		m.ForwardIndexSizeBytes.WithLabelValues(shardLabel).Set(float64(stats.ForwardIndexSize))
		m.ShardRecordCount.WithLabelValues(shardLabel).Set(float64(stats.TotalRecords))
		metricsShutdown = metrics.StartServer(cfg.Metrics.Port)
	}

	server := rpc.NewServer()
	server.Register("DataNodeService.Search", func(ctx context.Context, req json.RawMessage) (any, error) {
		var searchReq rpcpb.SearchRequest
		if err := json.Unmarshal(req, &searchReq); err != nil {
			return nil, fmt.Errorf("decoding search request: %w", err)
		}
		records, err := node.Search(searchReq.Terms)
		if err != nil {
			return nil, err
		}
		resp := rpcpb.SearchResponse{ShardID: cfg.ShardID, Results: make([]rpcpb.AddressRecord, 0, len(records))}
		for _, r := range records {
			resp.Results = append(resp.Results, rpcpb.AddressRecord{
				Hash:      rpcpb.Hash(r.ID),
				Longitude: r.Longitude,
				Latitude:  r.Latitude,
				Number:    r.Number,
				Street:    r.Street,
				Unit:      r.Unit,
				City:      r.City,
				Postcode:  r.Postcode,
			})
		}
		return resp, nil
	})
	server.Register("DataNodeService.GetStatistics", func(ctx context.Context, req json.RawMessage) (any, error) {
		stats := node.GetStatistics()
		return rpcpb.StatisticsResponse{
			ShardID:          cfg.ShardID,
			TotalRecords:     stats.TotalRecords,
			RadixTreeMemory:  stats.RadixTreeMemory,
			ForwardIndexSize: stats.ForwardIndexSize,
			LoadTimeMs:       stats.LoadTime.Milliseconds(),
		}, nil
	})
	server.Register("DataNodeService.HealthCheck", func(ctx context.Context, req json.RawMessage) (any, error) {
		status := "SERVING"
		if node.State() != datanode.StateReady {
			status = "NOT_SERVING"
		}
		return rpcpb.HealthCheckResponse{Status: status}, nil
	})

	addr := fmt.Sprintf(":%d", cfg.GRPCPort)
	go func() {
		if err := server.Serve(addr); err != nil {
			slog.Error("rpc server error", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("data node ready", "addr", addr)

	lifecycle.WaitForSignal()
	slog.Info("shutdown signal received")

	server.Stop()
	node.Terminate()
	if metricsShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsShutdown(shutdownCtx)
	}
	slog.Info("data node stopped")
}
