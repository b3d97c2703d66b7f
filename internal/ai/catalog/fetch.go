package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

// DefaultListingTTL 远端列表默认缓存时间
const DefaultListingTTL = time.Hour

// listingPricingSource 由远端列表生成的模型的价格来源标记
const listingPricingSource = "openrouter-list"

// ModelLister 远端模型列表（openrouter.Client 实现该接口）
type ModelLister interface {
	ListModels(ctx context.Context) ([]types.Model, error)
}

// Fetcher 拉取远端模型列表并缓存
//
// 同一个 Fetcher 上并发的未命中只会触发一次远端调用。
type Fetcher struct {
	lister ModelLister
	cache  ListingCache
	log    *logger.Logger
	now    func() time.Time
	mu     sync.Mutex
}

// NewFetcher 创建 Fetcher，cache 为 nil 时使用进程内缓存
func NewFetcher(lister ModelLister, cache ListingCache, log *logger.Logger) *Fetcher {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Fetcher{
		lister: lister,
		cache:  cache,
		log:    logger.OrGlobal(log).Named("catalog"),
		now:    time.Now,
	}
}

// Fetch 返回远端目录，缓存未过期时不发起请求；ttl<=0 时使用 DefaultListingTTL
//
// 远端只提供 ID、名称与上下文长度，其余能力字段取默认值（不含视觉）。
func (f *Fetcher) Fetch(ctx context.Context, ttl time.Duration) (Catalog, error) {
	if ttl <= 0 {
		ttl = DefaultListingTTL
	}
	if cat, ok := f.cached(ctx); ok {
		return cat, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if cat, ok := f.cached(ctx); ok {
		return cat, nil
	}

	models, err := f.lister.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}

	cat := make(Catalog, 0, len(models))
	for i, m := range models {
		spec, err := NewSpec(m.ID, m.Name, false, false)
		if err != nil {
			if ve, ok := err.(*ValidationError); ok {
				ve.Index = i
			}
			return nil, err
		}
		if m.ContextLength > 0 {
			spec.ContextWindow = m.ContextLength
		}
		spec.Pricing.PricingSource = listingPricingSource
		cat = append(cat, spec)
	}
	if err := Validate(cat); err != nil {
		return nil, err
	}

	now := f.now()
	if err := f.cache.Set(ctx, cat, now, ttl); err != nil {
		f.log.Warn("catalog cache set failed", zap.Error(err))
	}
	f.log.Info("fetched model listing", zap.Int("models", len(cat)), zap.Duration("ttl", ttl))
	return cat, nil
}

// Invalidate 清空缓存，下次 Fetch 重新拉取
func (f *Fetcher) Invalidate(ctx context.Context) error {
	return f.cache.Invalidate(ctx)
}

func (f *Fetcher) cached(ctx context.Context) (Catalog, bool) {
	cat, ok, err := f.cache.Get(ctx, f.now())
	if err != nil {
		f.log.Warn("catalog cache get failed", zap.Error(err))
		return nil, false
	}
	return cat, ok
}
