package data

import (
	"context"

	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

// CatalogRepo 服务端使用的模型目录：数据库中的目录（为空时用内置默认目录）叠加覆盖文件
type CatalogRepo struct {
	store     *catalog.Store
	overrides catalog.Catalog
	conflict  catalog.Conflict
	log       *logger.Logger
}

// NewCatalogRepo store 可以为 nil
func NewCatalogRepo(store *catalog.Store, overrides catalog.Catalog, conflict catalog.Conflict, log *logger.Logger) *CatalogRepo {
	return &CatalogRepo{
		store:     store,
		overrides: overrides,
		conflict:  conflict,
		log:       logger.OrGlobal(log).Named("catalog"),
	}
}

// Load 返回合并后的目录
func (r *CatalogRepo) Load(ctx context.Context) (catalog.Catalog, error) {
	var base catalog.Catalog
	if r.store != nil {
		cat, err := r.store.List(ctx)
		if err != nil {
			return nil, err
		}
		base = cat
	}
	if len(base) == 0 {
		base = catalog.Default()
	}
	merged, err := catalog.Merge(base, r.overrides, r.conflict)
	if err != nil {
		return nil, err
	}
	r.log.Debug("catalog loaded", zap.Int("models", len(merged)), zap.Bool("from_store", r.store != nil))
	return merged, nil
}
