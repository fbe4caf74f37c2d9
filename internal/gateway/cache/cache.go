// Package cache caches findAddress responses in Redis, keyed by normalized
// query terms, coalescing concurrent identical queries with singleflight so
// a cache stampede never fans out to every Data Node more than once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/delacruz-dev/geoshard/internal/gateway/aggregator"
	"github.com/delacruz-dev/geoshard/pkg/config"
	pkgredis "github.com/delacruz-dev/geoshard/pkg/redis"
	"github.com/delacruz-dev/geoshard/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "findaddress:"

// ResponseCache caches the aggregated, ranked results of a findAddress
// query.
type ResponseCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps a Redis client as a ResponseCache.
func New(client *pkgredis.Client, cfg config.RedisConfig) *ResponseCache {
	return &ResponseCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "response-cache"),
	}
}

// Get returns the cached result set for queryTerms/maxResults, if present.
func (c *ResponseCache) Get(ctx context.Context, queryTerms []string, maxResults int) ([]aggregator.ScoredRecord, bool) {
	key := c.buildKey(queryTerms, maxResults)
	var data string
	err := resilience.WithTimeout(ctx, c.cfg.Timeout, "redis-get", func(ctx context.Context) error {
		var err error
		data, err = c.client.Get(ctx, key)
		return err
	})
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var results []aggregator.ScoredRecord
	if err := json.Unmarshal([]byte(data), &results); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	c.logger.Debug("cache hit", "key", key)
	return results, true
}

// Set stores the result set under the query key with the configured TTL.
func (c *ResponseCache) Set(ctx context.Context, queryTerms []string, maxResults int, results []aggregator.ScoredRecord) {
	key := c.buildKey(queryTerms, maxResults)
	data, err := json.Marshal(results)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = resilience.WithTimeout(ctx, c.cfg.Timeout, "redis-set", func(ctx context.Context) error {
		return c.client.Set(ctx, key, data, c.cfg.CacheTTL)
	})
	if err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for queryTerms/maxResults, or
// invokes computeFn on a cache miss. Concurrent identical queries are
// coalesced into a single computeFn call via singleflight.
func (c *ResponseCache) GetOrCompute(
	ctx context.Context,
	queryTerms []string,
	maxResults int,
	computeFn func() ([]aggregator.ScoredRecord, error),
) ([]aggregator.ScoredRecord, bool, error) {
	if results, ok := c.Get(ctx, queryTerms, maxResults); ok {
		return results, true, nil
	}
	key := c.buildKey(queryTerms, maxResults)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if results, ok := c.Get(ctx, queryTerms, maxResults); ok {
			return results, nil
		}
		results, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, queryTerms, maxResults, results)
		return results, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]aggregator.ScoredRecord), false, nil
}

// Invalidate deletes every cached findAddress response.
func (c *ResponseCache) Invalidate(ctx context.Context) error {
	pattern := keyPrefix + "*"
	deleted, err := c.client.FlushByPattern(ctx, pattern)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

// Stats returns cumulative hit/miss counts.
func (c *ResponseCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResponseCache) buildKey(queryTerms []string, maxResults int) string {
	normalized := make([]string, len(queryTerms))
	for i, t := range queryTerms {
		normalized[i] = strings.ToLower(strings.TrimSpace(t))
	}
	sort.Strings(normalized)
	raw := fmt.Sprintf("%s:max=%d", strings.Join(normalized, ","), maxResults)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
