package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/catalog"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/factory"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/ai/transcribe"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/database"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/minio"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/redis"
)

// EnvPrefix 通用环境变量前缀，例如 LLM_GATEWAY_SERVER_PORT
const EnvPrefix = "LLM_GATEWAY"

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Transcribe  TranscribeConfig  `mapstructure:"transcribe"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Attachments AttachmentsConfig `mapstructure:"attachments"`
	Log         logger.Config     `mapstructure:"log"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	MinIO       MinIOConfig       `mapstructure:"minio"`

	v *viper.Viper
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Heartbeat       time.Duration `mapstructure:"heartbeat"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr 监听地址
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type GatewayConfig struct {
	BaseURL        string            `mapstructure:"base_url"`
	Model          string            `mapstructure:"model"`
	AppTitle       string            `mapstructure:"app_title"`
	Referer        string            `mapstructure:"referer"`
	MaxRetries     int               `mapstructure:"max_retries"`
	Timeout        time.Duration     `mapstructure:"timeout"`
	ConnectTimeout time.Duration     `mapstructure:"connect_timeout"`
	MaxIdleConns   int               `mapstructure:"max_idle_conns"`
	MaxConns       int               `mapstructure:"max_conns"`
	Headers        map[string]string `mapstructure:"headers"`

	// KeyFunc 每次调用时通过 viper 读取 OPENROUTER_API_KEY，由 Load 设置
	KeyFunc func() string `mapstructure:"-"`
}

type TranscribeConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`

	KeyFunc func() string `mapstructure:"-"`
}

type CatalogConfig struct {
	Table         string        `mapstructure:"table"`
	ListingTTL    time.Duration `mapstructure:"listing_ttl"`
	OverridesFile string        `mapstructure:"overrides_file"`
	Conflict      string        `mapstructure:"conflict"`
	Budget        string        `mapstructure:"budget"`
	AllowedModels string        `mapstructure:"allowed_models"` // 逗号分隔
	Prefer        []string      `mapstructure:"prefer"`
}

type AttachmentsConfig struct {
	Root           string `mapstructure:"root"`
	MaxInlineBytes int64  `mapstructure:"max_inline_bytes"`
	Workers        int    `mapstructure:"workers"` // 并发解析附件的 worker 数，<=1 时顺序解析
}

type DatabaseConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	database.Config `mapstructure:",squash"`
}

type RedisConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	redis.Config `mapstructure:",squash"`
}

type MinIOConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	minio.Config `mapstructure:",squash"`
}

// Load 读取配置文件（path 为空时只使用默认值与环境变量）
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.v = v
	cfg.Gateway.KeyFunc = func() string { return v.GetString("gateway.api_key") }
	cfg.Transcribe.KeyFunc = func() string { return v.GetString("transcribe.api_key") }

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.heartbeat", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("gateway.base_url", types.DefaultBaseURL)
	v.SetDefault("gateway.app_title", types.DefaultAppTitle)
	v.SetDefault("gateway.max_retries", types.DefaultMaxRetries)
	v.SetDefault("gateway.timeout", types.DefaultTimeout)
	v.SetDefault("gateway.connect_timeout", types.DefaultConnectTimeout)
	v.SetDefault("gateway.max_idle_conns", types.DefaultMaxIdleConns)
	v.SetDefault("gateway.max_conns", types.DefaultMaxConns)

	v.SetDefault("transcribe.base_url", transcribe.DefaultBaseURL)
	v.SetDefault("transcribe.model", "whisper-1")
	v.SetDefault("transcribe.timeout", transcribe.DefaultTimeout)

	v.SetDefault("catalog.table", catalog.DefaultTable)
	v.SetDefault("catalog.listing_ttl", catalog.DefaultListingTTL)
	v.SetDefault("catalog.conflict", string(catalog.PreferOverrides))
	v.SetDefault("catalog.budget", string(catalog.QualityMid))

	v.SetDefault("attachments.root", "attachments")
	v.SetDefault("attachments.max_inline_bytes", content.DefaultMaxInlineBytes)
	v.SetDefault("attachments.workers", 4)

	lc := logger.DefaultConfig()
	v.SetDefault("log.level", lc.Level)
	v.SetDefault("log.format", lc.Format)
	v.SetDefault("log.output", lc.Output)
	v.SetDefault("log.enablecaller", lc.EnableCaller)
	v.SetDefault("log.file.filename", lc.File.Filename)
	v.SetDefault("log.file.maxsize", lc.File.MaxSize)
	v.SetDefault("log.file.maxage", lc.File.MaxAge)
	v.SetDefault("log.file.maxbackups", lc.File.MaxBackups)
	v.SetDefault("log.file.compress", lc.File.Compress)

	dc := database.DefaultConfig()
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", dc.Host)
	v.SetDefault("database.port", dc.Port)
	v.SetDefault("database.user", dc.User)
	v.SetDefault("database.dbname", dc.DBName)
	v.SetDefault("database.sslmode", dc.SSLMode)
	v.SetDefault("database.timezone", dc.Timezone)
	v.SetDefault("database.maxidleconns", dc.MaxIdleConns)
	v.SetDefault("database.maxopenconns", dc.MaxOpenConns)
	v.SetDefault("database.connmaxlifetime", dc.ConnMaxLifetime)
	v.SetDefault("database.loglevel", dc.LogLevel)
	v.SetDefault("database.slowthreshold", dc.SlowThreshold)

	rc := redis.DefaultConfig()
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.mode", string(rc.Mode))
	v.SetDefault("redis.addrs", rc.Addrs)
	v.SetDefault("redis.pool_size", rc.PoolSize)
	v.SetDefault("redis.min_idle_conns", rc.MinIdleConns)
	v.SetDefault("redis.dial_timeout", rc.DialTimeout)
	v.SetDefault("redis.read_timeout", rc.ReadTimeout)
	v.SetDefault("redis.write_timeout", rc.WriteTimeout)
	v.SetDefault("redis.max_retries", rc.MaxRetries)

	v.SetDefault("minio.enabled", false)
	v.SetDefault("minio.bucket_lookup", string(minio.BucketLookupAuto))
	v.SetDefault("minio.bucket", "attachments")
}

// bindEnv 绑定 OpenRouter / OpenAI 的约定环境变量
func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("gateway.api_key", "OPENROUTER_API_KEY", EnvPrefix+"_GATEWAY_API_KEY")
	_ = v.BindEnv("gateway.app_title", "OPENROUTER_APP_TITLE", EnvPrefix+"_GATEWAY_APP_TITLE")
	_ = v.BindEnv("gateway.referer", "OPENROUTER_REFERER", EnvPrefix+"_GATEWAY_REFERER")
	_ = v.BindEnv("gateway.max_retries", "OPENROUTER_MAX_RETRIES", EnvPrefix+"_GATEWAY_MAX_RETRIES")
	_ = v.BindEnv("gateway.base_url", "OPENROUTER_BASE_URL", EnvPrefix+"_GATEWAY_BASE_URL")
	_ = v.BindEnv("catalog.allowed_models", "OPENROUTER_ALLOWED_MODELS", EnvPrefix+"_CATALOG_ALLOWED_MODELS")
	_ = v.BindEnv("transcribe.api_key", "OPENAI_API_KEY", EnvPrefix+"_TRANSCRIBE_API_KEY")
}

// Validate 校验各子配置
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if c.Gateway.MaxRetries < 0 {
		return fmt.Errorf("gateway: max_retries must be >= 0")
	}
	if _, err := catalog.ParseConflict(c.Catalog.Conflict); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if !catalog.Quality(c.Catalog.Budget).Valid() {
		return fmt.Errorf("catalog: budget must be one of low, mid, high")
	}
	if c.Database.Enabled {
		if err := c.Database.Config.Validate(); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if c.Redis.Enabled {
		if err := c.Redis.Config.Validate(); err != nil {
			return err
		}
	}
	if c.MinIO.Enabled {
		if err := c.MinIO.Config.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ClientConfig 网关客户端配置，API Key 在每次请求时读取
func (c *Config) ClientConfig() *types.Config {
	return factory.OpenRouterLate(c.Gateway.KeyFunc,
		factory.WithBaseURL(c.Gateway.BaseURL),
		factory.WithModel(c.Gateway.Model),
		factory.WithAppInfo(c.Gateway.AppTitle, c.Gateway.Referer),
		factory.WithMaxRetries(c.Gateway.MaxRetries),
		factory.WithTimeout(c.Gateway.Timeout),
		factory.WithConnectTimeout(c.Gateway.ConnectTimeout),
		factory.WithPool(c.Gateway.MaxIdleConns, c.Gateway.MaxConns),
		factory.WithHeaders(c.Gateway.Headers),
	)
}

// TranscribeClientConfig 转写客户端配置
func (c *Config) TranscribeClientConfig() transcribe.Config {
	return transcribe.Config{
		APIKeyFunc: c.Transcribe.KeyFunc,
		BaseURL:    c.Transcribe.BaseURL,
		Model:      c.Transcribe.Model,
		Timeout:    c.Transcribe.Timeout,
	}
}

// SelectOptions 由配置得到的模型选择参数
func (c *Config) SelectOptions() catalog.SelectOptions {
	return catalog.SelectOptions{
		Prefer:  c.Catalog.Prefer,
		Allowed: catalog.ParseAllowList(c.AllowedModels()),
	}
}

// AllowedModels 当前的允许列表原文（调用时读取环境变量）
func (c *Config) AllowedModels() string {
	if c.v != nil {
		return c.v.GetString("catalog.allowed_models")
	}
	return c.Catalog.AllowedModels
}

// Budget 默认质量档位
func (c *Config) Budget() catalog.Quality {
	return catalog.Quality(c.Catalog.Budget)
}
