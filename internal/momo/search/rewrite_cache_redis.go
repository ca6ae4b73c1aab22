package search

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"momo/internal/momo/providers"
)

// RedisRewriteCache is a QueryRewriteCache backed by Redis, for deployments
// running more than one momo-server instance that want rewrite cache hits
// shared across processes instead of per-instance, unlike the in-process
// RewriteCache's LRU. Grounded on SPEC_FULL.md §3's "Cache (query-rewrite
// backing store option)" domain-stack slot.
type RedisRewriteCache struct {
	client *redis.Client
	config RewriteCacheConfig
	ttl    time.Duration
}

// NewRedisRewriteCache constructs a cache against an already-configured
// redis client. ttl bounds how long a rewritten query is cached; pass 0 for
// no expiry (entries are evicted by Redis's own memory policy instead).
func NewRedisRewriteCache(client *redis.Client, cfg RewriteCacheConfig, ttl time.Duration) *RedisRewriteCache {
	return &RedisRewriteCache{client: client, config: cfg.withDefaults(), ttl: ttl}
}

var _ QueryRewriteCache = (*RedisRewriteCache)(nil)

func (c *RedisRewriteCache) Rewrite(ctx context.Context, llm providers.LLMProvider, query string, requestWantsRewrite bool) (string, bool) {
	if !c.config.Enabled || !requestWantsRewrite {
		return query, false
	}
	if l := len(query); l < 3 || l > 500 {
		return query, false
	}
	if llm == nil || !llm.IsAvailable() {
		return query, false
	}

	key := "momo:rewrite:" + hashKey(query)
	if cached, err := c.client.Get(ctx, key).Result(); err == nil && cached != "" {
		return cached, cached != query
	} else if err != nil && err != redis.Nil {
		log.Warn().Err(err).Msg("redis rewrite cache read failed, falling through to llm")
	}

	rewriteCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	result, err := llm.Complete(rewriteCtx, buildRewritePrompt(query), "")
	if err != nil {
		log.Warn().Err(err).Msg("query rewrite failed, using original query")
		return query, false
	}
	result = strings.TrimSpace(result)
	if result == "" {
		return query, false
	}

	if err := c.client.Set(ctx, key, result, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Msg("redis rewrite cache write failed")
	}
	return result, result != query
}
