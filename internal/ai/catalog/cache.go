package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lk2023060901/llm-gateway-client/internal/pkg/redis"
)

// ListingCache 远端模型列表的单槽缓存
//
// 命中条件：数据非空且 now-写入时间 < 写入时的 TTL。
type ListingCache interface {
	Get(ctx context.Context, now time.Time) (Catalog, bool, error)
	Set(ctx context.Context, cat Catalog, at time.Time, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

// cacheEntry 缓存内容及其写入时间
type cacheEntry struct {
	At   time.Time     `json:"at"`
	TTL  time.Duration `json:"ttl"`
	Data Catalog       `json:"data"`
}

func (e *cacheEntry) fresh(now time.Time) bool {
	return e != nil && len(e.Data) > 0 && now.Sub(e.At) < e.TTL
}

// MemoryCache 进程内缓存
type MemoryCache struct {
	mu    sync.RWMutex
	entry *cacheEntry
}

// NewMemoryCache 创建进程内缓存
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{}
}

func (c *MemoryCache) Get(_ context.Context, now time.Time) (Catalog, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.entry.fresh(now) {
		return nil, false, nil
	}
	return c.entry.Data.Clone(), true, nil
}

func (c *MemoryCache) Set(_ context.Context, cat Catalog, at time.Time, ttl time.Duration) error {
	c.mu.Lock()
	c.entry = &cacheEntry{At: at, TTL: ttl, Data: cat.Clone()}
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
	return nil
}

// KV RedisCache 依赖的最小键值接口（pkg/redis.Client 实现该接口）
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
}

// DefaultCacheKey Redis 中的缓存键
const DefaultCacheKey = "llm-gateway:catalog:listing"

// RedisCache 多进程共享的缓存，键的过期时间与 TTL 一致
type RedisCache struct {
	kv  KV
	key string
}

// NewRedisCache 创建 Redis 缓存，key 为空时使用 DefaultCacheKey
func NewRedisCache(kv KV, key string) *RedisCache {
	if key == "" {
		key = DefaultCacheKey
	}
	return &RedisCache{kv: kv, key: key}
}

func (c *RedisCache) Get(ctx context.Context, now time.Time) (Catalog, bool, error) {
	raw, err := c.kv.Get(ctx, c.key)
	if redis.IsNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("catalog cache get: %w", err)
	}

	var entry cacheEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		// 损坏的缓存按未命中处理，下次 Set 覆盖
		return nil, false, nil
	}
	if !entry.fresh(now) || Validate(entry.Data) != nil {
		return nil, false, nil
	}
	return entry.Data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, cat Catalog, at time.Time, ttl time.Duration) error {
	data, err := json.Marshal(cacheEntry{At: at, TTL: ttl, Data: cat})
	if err != nil {
		return fmt.Errorf("catalog cache encode: %w", err)
	}
	if err := c.kv.Set(ctx, c.key, data, ttl); err != nil {
		return fmt.Errorf("catalog cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context) error {
	if _, err := c.kv.Del(ctx, c.key); err != nil {
		return fmt.Errorf("catalog cache invalidate: %w", err)
	}
	return nil
}
