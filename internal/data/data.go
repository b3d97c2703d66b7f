package data

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/conf"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/database"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/minio"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/redis"
)

// Data 外部存储连接，未启用的组件为 nil
type Data struct {
	DB     *database.DB
	Redis  *redis.Client
	MinIO  *minio.Client
	Logger *logger.Logger

	config *conf.Config
}

// NewData 按配置连接数据库、Redis 与 MinIO，返回清理函数
func NewData(ctx context.Context, config *conf.Config, log *logger.Logger) (*Data, func(), error) {
	log = logger.OrGlobal(log)
	d := &Data{Logger: log, config: config}

	cleanup := func() {
		log.Info("cleaning up data resources")
		if d.DB != nil {
			_ = d.DB.Close()
		}
		if d.Redis != nil {
			_ = d.Redis.Close()
		}
		if d.MinIO != nil {
			_ = d.MinIO.Close()
		}
	}

	if config.Database.Enabled {
		db, err := database.New(ctx, &config.Database.Config, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to init database: %w", err)
		}
		d.DB = db
	}

	if config.Redis.Enabled {
		rc, err := redis.New(&config.Redis.Config, log)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		d.Redis = rc
	}

	if config.MinIO.Enabled {
		mc, err := minio.NewClient(&config.MinIO.Config, log.Logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to init minio: %w", err)
		}
		if err := mc.Ping(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("failed to init minio: %w", err)
		}
		d.MinIO = mc
	}

	log.Info("data layer initialized",
		zap.Bool("database", d.DB != nil),
		zap.Bool("redis", d.Redis != nil),
		zap.Bool("minio", d.MinIO != nil))
	return d, cleanup, nil
}

// ListingCache 远端模型列表缓存：启用 Redis 时多进程共享，否则进程内
func (d *Data) ListingCache() catalog.ListingCache {
	if d.Redis != nil {
		return catalog.NewRedisCache(d.Redis, "")
	}
	return catalog.NewMemoryCache()
}

// Resolver 附件解析：启用 MinIO 时从桶中读取，否则从本地目录读取
func (d *Data) Resolver() content.Resolver {
	if d.MinIO != nil {
		return content.ObjectResolver{Store: d.MinIO, Bucket: d.config.MinIO.Bucket, Prefix: d.config.MinIO.Prefix}
	}
	return content.DirResolver{Root: d.config.Attachments.Root}
}

// Store 模型目录表，未启用数据库时返回 nil
func (d *Data) Store() (*catalog.Store, error) {
	if d.DB == nil {
		return nil, nil
	}
	return catalog.NewStore(d.DB.Gorm(), d.config.Catalog.Table, d.Logger)
}

// LoadOverrides 读取目录覆盖文件，未配置时返回 nil
func LoadOverrides(path string) (catalog.Catalog, error) {
	if path == "" {
		return nil, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read overrides %s: %w", path, err)
	}
	return catalog.ImportYAML(raw)
}
