package server

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/qquiche/ir/internal/corpus"
	"github.com/qquiche/ir/pkg/config"
	"github.com/qquiche/ir/pkg/metrics"
	pkgredis "github.com/qquiche/ir/pkg/redis"
)

const cacheKeyPrefix = "retrieval:"

// ResultCache stores serialized search results in Redis, keyed by the
// normalized query and result limit, and collapses concurrent misses for the
// same key into one computation.
type ResultCache struct {
	client  *pkgredis.Client
	cfg     config.RedisConfig
	tokCfg  corpus.Config
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func NewResultCache(client *pkgredis.Client, cfg config.RedisConfig, tokCfg corpus.Config, m *metrics.Metrics) *ResultCache {
	return &ResultCache{
		client:  client,
		cfg:     cfg,
		tokCfg:  tokCfg,
		metrics: m,
		logger:  slog.Default().With("component", "result-cache"),
	}
}

// Get returns the cached result for the query, if present. Any Redis or
// decoding failure counts as a miss; the cache never fails a search.
func (c *ResultCache) Get(ctx context.Context, query string, limit int) (*SearchResult, bool) {
	key := c.buildKey(query, limit)
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	var result SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hits.Add(1)
	c.metrics.CacheHitsTotal.Inc()
	return &result, true
}

// Set stores a result under the query's key with the configured TTL.
func (c *ResultCache) Set(ctx context.Context, query string, limit int, result *SearchResult) {
	key := c.buildKey(query, limit)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result or runs computeFn exactly once per
// key across concurrent callers, caching its result.
func (c *ResultCache) GetOrCompute(
	ctx context.Context,
	query string,
	limit int,
	computeFn func() (*SearchResult, error),
) (*SearchResult, bool, error) {
	if result, ok := c.Get(ctx, query, limit); ok {
		return result, true, nil
	}
	key := c.buildKey(query, limit)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.Get(ctx, query, limit); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, query, limit, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*SearchResult), false, nil
}

// Invalidate drops every cached retrieval.
func (c *ResultCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, cacheKeyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating result cache: %w", err)
	}
	c.logger.Info("result cache invalidated", "keys_deleted", deleted)
	return nil
}

func (c *ResultCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *ResultCache) miss() {
	c.misses.Add(1)
	c.metrics.CacheMissesTotal.Inc()
}

// buildKey hashes the normalized query plus the limit. Normalization reuses
// the index's own tokenizer, so queries that stem and stop to the same term
// sequence share one entry regardless of surface form. Term order is part of
// the key because proximity scoring is order-sensitive.
func (c *ResultCache) buildKey(query string, limit int) string {
	terms := corpus.Terms(query, c.tokCfg)
	raw := fmt.Sprintf("%s:limit=%d", strings.Join(terms, ","), limit)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", cacheKeyPrefix, hash[:16])
}
