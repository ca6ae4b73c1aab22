// Package search implements Momo's Query Rewrite Cache and hybrid
// document/memory Search Service, grounded on spec.md §4.9-§4.10. The LRU
// is hand-rolled over container/list + a map since no LRU library appears
// anywhere in the example pack; this is the one ambient data-structure
// concern left on the standard library, noted in DESIGN.md.
package search

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"momo/internal/momo/providers"
)

// QueryRewriteCache is the interface search.Service depends on, letting the
// in-process RewriteCache and the Redis-backed RedisRewriteCache (see
// rewrite_cache_redis.go) stand in for each other.
type QueryRewriteCache interface {
	Rewrite(ctx context.Context, llm providers.LLMProvider, query string, requestWantsRewrite bool) (rewritten string, changed bool)
}

// RewriteCacheConfig holds the tunables spec.md §4.9 names.
type RewriteCacheConfig struct {
	Capacity int
	Timeout  time.Duration
	Enabled  bool
}

func (c RewriteCacheConfig) withDefaults() RewriteCacheConfig {
	if c.Capacity <= 0 {
		c.Capacity = 256
	}
	if c.Timeout <= 0 {
		c.Timeout = 3 * time.Second
	}
	return c
}

type rewriteEntry struct {
	key      string
	rewritten string
}

// RewriteCache is a bounded, concurrency-safe LRU keyed by a stable hash of
// the original query.
type RewriteCache struct {
	mu       sync.Mutex
	config   RewriteCacheConfig
	ll       *list.List
	index    map[string]*list.Element
}

// NewRewriteCache constructs a cache with the given config.
func NewRewriteCache(cfg RewriteCacheConfig) *RewriteCache {
	cfg = cfg.withDefaults()
	return &RewriteCache{
		config: cfg,
		ll:     list.New(),
		index:  make(map[string]*list.Element),
	}
}

var _ QueryRewriteCache = (*RewriteCache)(nil)

func hashKey(query string) string {
	sum := sha256.Sum256([]byte(query))
	return hex.EncodeToString(sum[:])
}

func (c *RewriteCache) get(query string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := hashKey(query)
	el, ok := c.index[key]
	if !ok {
		return "", false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*rewriteEntry).rewritten, true
}

func (c *RewriteCache) put(query, rewritten string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := hashKey(query)
	if el, ok := c.index[key]; ok {
		el.Value.(*rewriteEntry).rewritten = rewritten
		c.ll.MoveToFront(el)
		return
	}
	el := c.ll.PushFront(&rewriteEntry{key: key, rewritten: rewritten})
	c.index[key] = el
	if c.ll.Len() > c.config.Capacity {
		oldest := c.ll.Back()
		if oldest != nil {
			c.ll.Remove(oldest)
			delete(c.index, oldest.Value.(*rewriteEntry).key)
		}
	}
}

// Rewrite returns the rewritten query, and whether it differs from the
// input. Rewriting is gated by requestWantsRewrite, query length in
// [3, 500], LLM availability, and the cache's Enabled flag. Timeout or
// error returns the original query unchanged.
func (c *RewriteCache) Rewrite(ctx context.Context, llm providers.LLMProvider, query string, requestWantsRewrite bool) (rewritten string, changed bool) {
	cfg := c.config
	if !cfg.Enabled || !requestWantsRewrite {
		return query, false
	}
	if l := len(query); l < 3 || l > 500 {
		return query, false
	}
	if llm == nil || !llm.IsAvailable() {
		return query, false
	}

	if cached, ok := c.get(query); ok {
		return cached, cached != query
	}

	rewriteCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
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

	c.put(query, result)
	return result, result != query
}

func buildRewritePrompt(query string) string {
	return "Rewrite this search query to be more specific and effective for semantic search, preserving intent. Respond with only the rewritten query, no commentary.\n\nQuery: " + query
}
