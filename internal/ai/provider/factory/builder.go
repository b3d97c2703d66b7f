package factory

import (
	"time"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
)

// ConfigBuilder 配置构建器（Builder 模式）
type ConfigBuilder struct {
	config *types.Config
}

// NewConfig 创建配置构建器，预置网关默认值
func NewConfig() *ConfigBuilder {
	return &ConfigBuilder{
		config: &types.Config{
			BaseURL:    types.DefaultBaseURL,
			AppTitle:   types.DefaultAppTitle,
			MaxRetries: types.DefaultMaxRetries,
			Timeout:    types.DefaultTimeout,
			Headers:    make(map[string]string),
		},
	}
}

// WithAPIKey 设置 API Key
func (b *ConfigBuilder) WithAPIKey(apiKey string) *ConfigBuilder {
	b.config.APIKey = apiKey
	return b
}

// WithAPIKeyFunc 设置调用时读取 API Key 的函数
func (b *ConfigBuilder) WithAPIKeyFunc(fn func() string) *ConfigBuilder {
	b.config.APIKeyFunc = fn
	return b
}

// WithBaseURL 设置 Base URL
func (b *ConfigBuilder) WithBaseURL(baseURL string) *ConfigBuilder {
	b.config.BaseURL = baseURL
	return b
}

// WithModel 设置默认模型
func (b *ConfigBuilder) WithModel(model string) *ConfigBuilder {
	b.config.Model = model
	return b
}

// WithAppTitle 设置 X-Title
func (b *ConfigBuilder) WithAppTitle(title string) *ConfigBuilder {
	b.config.AppTitle = title
	return b
}

// WithReferer 设置 HTTP-Referer
func (b *ConfigBuilder) WithReferer(referer string) *ConfigBuilder {
	b.config.Referer = referer
	return b
}

// WithMaxRetries 设置最大重试次数
func (b *ConfigBuilder) WithMaxRetries(n int) *ConfigBuilder {
	b.config.MaxRetries = n
	return b
}

// WithTimeout 设置非流式请求超时时间
func (b *ConfigBuilder) WithTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.Timeout = timeout
	return b
}

// WithConnectTimeout 设置建连与 TLS 握手超时
func (b *ConfigBuilder) WithConnectTimeout(timeout time.Duration) *ConfigBuilder {
	b.config.ConnectTimeout = timeout
	return b
}

// WithPool 设置每个 host 的空闲连接数与最大连接数
func (b *ConfigBuilder) WithPool(maxIdle, maxConns int) *ConfigBuilder {
	b.config.MaxIdleConns = maxIdle
	b.config.MaxConns = maxConns
	return b
}

// WithHeader 添加单个 Header
func (b *ConfigBuilder) WithHeader(key, value string) *ConfigBuilder {
	if b.config.Headers == nil {
		b.config.Headers = make(map[string]string)
	}
	b.config.Headers[key] = value
	return b
}

// Build 构建最终配置
func (b *ConfigBuilder) Build() *types.Config {
	return b.config
}
