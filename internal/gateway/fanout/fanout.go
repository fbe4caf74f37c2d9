// Package fanout dispatches a query to every Data Node shard in parallel
// and collects per-shard results, the way
// original_source/src/gateway/gateway_server.cpp's queryAllDataNodes and
// queryDataNode do with std::async futures, adapted to goroutines and
// circuit breakers per internal/searcher/executor's fan-out pattern.
package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/delacruz-dev/geoshard/internal/address"
	"github.com/delacruz-dev/geoshard/internal/rpcpb"
	"github.com/delacruz-dev/geoshard/pkg/metrics"
	"github.com/delacruz-dev/geoshard/pkg/resilience"
	"github.com/delacruz-dev/geoshard/pkg/rpc"
)

// Caller is the subset of *rpc.Client a Fanout needs; satisfied by
// *rpc.Client and fakeable in tests.
type Caller interface {
	CallContext(ctx context.Context, method string, params any, result any) error
}

// Shard is one Data Node's RPC endpoint and its circuit breaker.
type Shard struct {
	ID     int
	Client Caller
	cb     *resilience.CircuitBreaker
}

// NewShard wraps client with a circuit breaker keyed by shard ID.
func NewShard(id int, client Caller) *Shard {
	return &Shard{
		ID:     id,
		Client: client,
		cb:     resilience.NewCircuitBreaker(fmt.Sprintf("shard-%d", id), resilience.CircuitBreakerConfig{}),
	}
}

// Result is the outcome of querying a single shard.
type Result struct {
	ShardID  int
	Records  []address.Record
	Success  bool
	TimedOut bool
	Err      error
}

// Fanout queries every registered shard in parallel.
type Fanout struct {
	shards  []*Shard
	timeout time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// New creates a Fanout over shards, applying timeout as the per-shard RPC
// deadline. m may be nil to disable metrics collection.
func New(shards []*Shard, timeout time.Duration, m *metrics.Metrics) *Fanout {
	return &Fanout{
		shards:  shards,
		timeout: timeout,
		metrics: m,
		logger:  slog.Default().With("component", "fanout"),
	}
}

// QueryAll dispatches terms to every shard concurrently and waits for all
// to finish or time out. It never returns early: a failing or slow shard
// does not block or cancel the others.
func (f *Fanout) QueryAll(ctx context.Context, terms []string) []Result {
	f.logger.Info("querying shards in parallel", "shard_count", len(f.shards), "terms", terms)

	results := make([]Result, len(f.shards))
	var wg sync.WaitGroup
	for i, shard := range f.shards {
		wg.Add(1)
		go func(idx int, s *Shard) {
			defer wg.Done()
			results[idx] = f.queryShard(ctx, s, terms)
		}(i, shard)
	}
	wg.Wait()

	var successful, failed, timedOut int
	for _, r := range results {
		if r.Success {
			successful++
		} else {
			failed++
			if r.TimedOut {
				timedOut++
			}
		}
	}
	f.logger.Info("parallel query completed", "successful", successful, "failed", failed, "timed_out", timedOut)
	if failed > 0 && successful > 0 {
		f.logger.Warn("partial shard failure", "successful", successful, "failed", failed)
	} else if failed > 0 {
		f.logger.Error("all shards failed", "failed", failed)
	}

	return results
}

func (f *Fanout) queryShard(ctx context.Context, s *Shard, terms []string) Result {
	result := Result{ShardID: s.ID}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	start := time.Now()
	err := s.cb.Execute(func() error {
		req := rpcpb.SearchRequest{Terms: terms}
		var resp rpcpb.SearchResponse
		if err := s.Client.CallContext(callCtx, "DataNodeService.Search", req, &resp); err != nil {
			return err
		}
		result.Records = make([]address.Record, 0, len(resp.Results))
		for _, wire := range resp.Results {
			result.Records = append(result.Records, address.Record{
				ID:             uint64(wire.Hash),
				Longitude:      wire.Longitude,
				Latitude:       wire.Latitude,
				Number:         wire.Number,
				Street:         wire.Street,
				Unit:           wire.Unit,
				City:           wire.City,
				Postcode:       wire.Postcode,
				OriginalStreet: wire.Street,
				OriginalUnit:   wire.Unit,
				OriginalCity:   wire.City,
			})
		}
		return nil
	})
	elapsed := time.Since(start)
	shardLabel := strconv.Itoa(s.ID)

	if f.metrics != nil {
		f.metrics.FanoutLatency.WithLabelValues(shardLabel).Observe(elapsed.Seconds())
		f.metrics.CircuitBreakerState.WithLabelValues(shardLabel).Set(float64(s.cb.GetState()))
	}

	if err != nil {
		result.Success = false
		result.Err = err
		result.TimedOut = callCtx.Err() == context.DeadlineExceeded
		f.logger.Error("shard query failed", "shard_id", s.ID, "elapsed_ms", elapsed.Milliseconds(), "error", err)
		if f.metrics != nil {
			f.metrics.ShardFailuresTotal.WithLabelValues(shardLabel).Inc()
			if result.TimedOut {
				f.metrics.ShardTimeoutsTotal.WithLabelValues(shardLabel).Inc()
			}
		}
		return result
	}

	result.Success = true
	f.logger.Info("shard query succeeded", "shard_id", s.ID, "elapsed_ms", elapsed.Milliseconds(), "results", len(result.Records))
	return result
}

// DialShard opens an RPC connection to addr and wraps it as a Shard.
func DialShard(id int, addr string) (*Shard, error) {
	client, err := rpc.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("dialing shard %d at %s: %w", id, addr, err)
	}
	return NewShard(id, client), nil
}
