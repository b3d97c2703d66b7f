package factory

import (
	"time"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
)

// Option 配置选项函数
type Option func(*ConfigBuilder)

// WithBaseURL 返回设置 Base URL 的 Option，空值保留默认
func WithBaseURL(baseURL string) Option {
	return func(b *ConfigBuilder) {
		if baseURL != "" {
			b.WithBaseURL(baseURL)
		}
	}
}

// WithModel 返回设置模型的 Option
func WithModel(model string) Option {
	return func(b *ConfigBuilder) {
		b.WithModel(model)
	}
}

// WithTimeout 返回设置超时的 Option
func WithTimeout(timeout time.Duration) Option {
	return func(b *ConfigBuilder) {
		b.WithTimeout(timeout)
	}
}

// WithConnectTimeout 返回设置建连超时的 Option
func WithConnectTimeout(timeout time.Duration) Option {
	return func(b *ConfigBuilder) {
		b.WithConnectTimeout(timeout)
	}
}

// WithMaxRetries 返回设置最大重试次数的 Option
func WithMaxRetries(n int) Option {
	return func(b *ConfigBuilder) {
		b.WithMaxRetries(n)
	}
}

// WithPool 返回设置连接池大小的 Option
func WithPool(maxIdle, maxConns int) Option {
	return func(b *ConfigBuilder) {
		b.WithPool(maxIdle, maxConns)
	}
}

// WithAppInfo 返回设置 X-Title 与 HTTP-Referer 的 Option
func WithAppInfo(title, referer string) Option {
	return func(b *ConfigBuilder) {
		if title != "" {
			b.WithAppTitle(title)
		}
		b.WithReferer(referer)
	}
}

// WithHeaders 返回添加自定义 Header 的 Option
func WithHeaders(headers map[string]string) Option {
	return func(b *ConfigBuilder) {
		for k, v := range headers {
			b.WithHeader(k, v)
		}
	}
}

// OpenRouterLate 创建在每次调用时读取 API Key 的配置
func OpenRouterLate(keyFunc func() string, opts ...Option) *types.Config {
	b := NewConfig().WithAPIKeyFunc(keyFunc)
	for _, opt := range opts {
		opt(b)
	}
	return b.Build()
}
