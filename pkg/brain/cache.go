package brain

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheKey hashes the content-addressable fields spec.md §4.4 names:
// "(route, model, messages, temperature, top_p, repeat_penalty, max_tokens,
// json_schema, tools)". route is always LOCAL in scope but is included so the
// key shape matches the spec text verbatim.
func cacheKey(model string, req *Request) string {
	type keyed struct {
		Route         string
		Model         string
		Messages      []Message
		Temperature   float64
		TopP          float64
		RepeatPenalty float64
		MaxTokens     int
		JSONSchema    string
		Tools         []string
	}
	b, _ := json.Marshal(keyed{
		Route:         "LOCAL",
		Model:         model,
		Messages:      req.Messages,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		RepeatPenalty: req.RepeatPenalty,
		MaxTokens:     req.MaxTokens,
		JSONSchema:    req.JSONSchema,
		Tools:         req.Tools,
	})
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// responseCache is a per-run content-addressed cache of prior dispatch
// results. The in-process implementation is always available; an optional
// Redis-backed implementation is used when config.BrainConfig.CacheRedisAddr
// is set, so a fleet of kernel processes (or a restarted one) can still hit
// cache entries another process populated.
type responseCache interface {
	get(ctx context.Context, runID, key string) (*Response, bool)
	put(ctx context.Context, runID, key string, resp *Response)
}

// memoryCache is a process-local cache, keyed by run_id then content hash, so
// entries never leak across runs and never need an explicit eviction policy
// beyond the run's own lifetime (callers may optionally call dropRun).
type memoryCache struct {
	mu    sync.RWMutex
	byRun map[string]map[string]*Response
}

func newMemoryCache() *memoryCache {
	return &memoryCache{byRun: make(map[string]map[string]*Response)}
}

func (c *memoryCache) get(_ context.Context, runID, key string) (*Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	run, ok := c.byRun[runID]
	if !ok {
		return nil, false
	}
	resp, ok := run[key]
	return resp, ok
}

func (c *memoryCache) put(_ context.Context, runID, key string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	run, ok := c.byRun[runID]
	if !ok {
		run = make(map[string]*Response)
		c.byRun[runID] = run
	}
	run[key] = resp
}

func (c *memoryCache) dropRun(runID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byRun, runID)
}

// redisCache mirrors memoryCache's semantics over a shared Redis instance.
// Entries expire on their own after redisCacheTTL rather than requiring an
// explicit per-run cleanup hook, since multiple kernel processes may share
// one Redis and none of them individually owns a run's lifecycle end.
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
}

const redisCacheTTL = 2 * time.Hour

func newRedisCache(addr string) *redisCache {
	return &redisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		ttl:    redisCacheTTL,
	}
}

func (c *redisCache) redisKey(runID, key string) string {
	return fmt.Sprintf("astra:brain:cache:%s:%s", runID, key)
}

func (c *redisCache) get(ctx context.Context, runID, key string) (*Response, bool) {
	raw, err := c.client.Get(ctx, c.redisKey(runID, key)).Bytes()
	if err != nil {
		return nil, false
	}
	var resp Response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

func (c *redisCache) put(ctx context.Context, runID, key string, resp *Response) {
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, c.redisKey(runID, key), raw, c.ttl).Err()
}
