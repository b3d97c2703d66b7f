package types

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

var (
	ErrMissingAPIKey  = errors.New("API key is required")
	ErrMissingBaseURL = errors.New("base URL is required")
	ErrInvalidBaseURL = errors.New("base URL must be an absolute http(s) URL")
)

const (
	DefaultBaseURL        = "https://openrouter.ai/api/v1"
	DefaultAppTitle       = "Arcadia AI Chat"
	DefaultMaxRetries     = 2
	DefaultTimeout        = 60 * time.Second
	DefaultConnectTimeout = 10 * time.Second
	DefaultMaxIdleConns   = 5
	DefaultMaxConns       = 10
)

// Config 网关客户端配置
//
// APIKey 为空时每次请求都会调用 APIKeyFunc 取值，用于支持启动后才注入的密钥。
// 两者都取不到时，第一次需要鉴权的调用返回 ErrMissingAPIKey。
type Config struct {
	APIKey     string        // API Key
	APIKeyFunc func() string // 延迟读取 API Key（可选）
	BaseURL    string        // API 基础 URL
	Model      string        // 默认模型
	AppTitle   string        // X-Title
	Referer    string        // HTTP-Referer（可选）
	MaxRetries int           // 单次调用 / 建立流时的最大重试次数

	Timeout        time.Duration // 非流式请求的整体超时
	ConnectTimeout time.Duration // 建连 + TLS 握手超时
	MaxIdleConns   int           // 每个 host 的空闲连接数
	MaxConns       int           // 每个 host 的最大连接数

	Headers map[string]string // 自定义 HTTP Headers
}

// Validate 验证配置并补全默认值（不校验 API Key）
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return ErrMissingBaseURL
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.AppTitle == "" {
		c.AppTitle = DefaultAppTitle
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = DefaultMaxIdleConns
	}
	if c.MaxConns <= 0 {
		c.MaxConns = DefaultMaxConns
	}
	return nil
}

// ResolveAPIKey 返回当前生效的 API Key
func (c *Config) ResolveAPIKey() (string, error) {
	key := c.APIKey
	if key == "" && c.APIKeyFunc != nil {
		key = c.APIKeyFunc()
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", ErrMissingAPIKey
	}
	return key, nil
}

// Clone 浅拷贝配置，Headers 单独复制
func (c *Config) Clone() *Config {
	out := *c
	if c.Headers != nil {
		out.Headers = make(map[string]string, len(c.Headers))
		for k, v := range c.Headers {
			out.Headers[k] = v
		}
	}
	return &out
}
