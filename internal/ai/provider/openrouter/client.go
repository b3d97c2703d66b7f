// Package openrouter 实现 OpenRouter 兼容网关的客户端：
// 带退避重试的单次补全、可中途停止的流式补全与模型列表。
package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

const (
	providerName = "openrouter"

	// DefaultCompleteMaxTokens 单次补全默认的 max_tokens
	DefaultCompleteMaxTokens = 4096
	// DefaultStreamMaxTokens 流式补全默认的 max_tokens
	DefaultStreamMaxTokens = 32768
	// DefaultContextLength 模型列表未给出上下文长度时的默认值
	DefaultContextLength = 128000
)

// ErrMissingModel 请求与配置均未指定模型
var ErrMissingModel = errors.New("model is required")

// Client 网关客户端
//
// 同一个 Client（以及由 WithAPIKey 派生的 Client）共享连接池，
// 应在进程内创建一次并复用。
type Client struct {
	cfg     *types.Config
	pool    *pool
	backoff *Backoff
	sleep   sleepFunc
	log     *logger.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithBackoff 替换退避策略
func WithBackoff(b *Backoff) Option {
	return func(c *Client) {
		c.backoff = b
	}
}

// New 创建客户端，cfg 会被复制并补全默认值
func New(cfg *types.Config, log *logger.Logger, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, types.ErrMissingBaseURL
	}
	cfg = cfg.Clone()
	if cfg.BaseURL == "" {
		cfg.BaseURL = types.DefaultBaseURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:   cfg,
		pool:  newPool(cfg),
		sleep: sleepContext,
		log:   logger.OrGlobal(log).Named(providerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.backoff == nil {
		c.backoff = NewBackoff(nil)
	}
	return c, nil
}

// Name 返回 Provider 名称
func (c *Client) Name() string {
	return providerName
}

// WithAPIKey 返回使用指定 API Key 的派生客户端，连接池与原客户端共享
func (c *Client) WithAPIKey(key string) *Client {
	cfg := c.cfg.Clone()
	cfg.APIKey = key
	cfg.APIKeyFunc = nil
	derived := *c
	derived.cfg = cfg
	return &derived
}

// Close 关闭空闲连接
func (c *Client) Close() {
	c.pool.close()
}

// Complete 单次补全
func (c *Client) Complete(ctx context.Context, req types.ChatCompletionRequest) (*types.ChatCompletionResponse, error) {
	req.Stream = false
	if err := c.prepare(&req, DefaultCompleteMaxTokens); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, types.NewProviderError(providerName, "marshal request failed", err)
	}

	resp, err := c.send(ctx, c.pool.plain, http.MethodPost, "/chat/completions", body, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out types.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &types.ProviderError{
			Type:       types.ErrorTypeDecode,
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Message:    "decode response failed",
			Err:        err,
		}
	}
	return &out, nil
}

// Stream 建立流式补全
//
// 建立连接（拿到响应头）之前按退避策略重试；返回后的读取错误不会重试。
// 未设置 IncludeReasoning 时显式发送 false。
func (c *Client) Stream(ctx context.Context, req types.ChatCompletionRequest) (*Stream, error) {
	req.Stream = true
	if req.IncludeReasoning == nil {
		req.IncludeReasoning = types.Bool(false)
	}
	if err := c.prepare(&req, DefaultStreamMaxTokens); err != nil {
		return nil, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, types.NewProviderError(providerName, "marshal request failed", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	resp, err := c.send(sctx, c.pool.stream, http.MethodPost, "/chat/completions", body, true)
	if err != nil {
		cancel()
		return nil, err
	}

	s := newStream(cancel, resp.Body, c.log)
	s.log.Debug("stream opened", zap.String("model", req.Model))
	return s, nil
}

func (c *Client) prepare(req *types.ChatCompletionRequest, maxTokens int) error {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}
	if req.Model == "" {
		return ErrMissingModel
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = maxTokens
	}
	return nil
}

// ListModels 获取远端模型列表
//
// 只信任 id、name 与上下文长度，其余字段由调用方补默认值。
func (c *Client) ListModels(ctx context.Context) ([]types.Model, error) {
	resp, err := c.send(ctx, c.pool.plain, http.MethodGet, "/models", nil, false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewTransportError(providerName, "read models failed", err)
	}
	return parseModels(data)
}

// parseModels 兼容 {"data":[...]} 与顶层数组两种格式
func parseModels(data []byte) ([]types.Model, error) {
	if !gjson.ValidBytes(data) {
		return nil, decodeError("malformed models listing")
	}
	root := gjson.ParseBytes(data)
	list := root
	if root.IsObject() {
		list = root.Get("data")
	}
	if !list.IsArray() {
		return nil, nil
	}

	var models []types.Model
	list.ForEach(func(_, m gjson.Result) bool {
		id := m.Get("id").String()
		if id == "" {
			return true
		}
		name := m.Get("name").String()
		if name == "" {
			name = id
		}
		ctxLen := int(m.Get("context_length").Int())
		if ctxLen <= 0 {
			ctxLen = int(m.Get("context_length_tokens").Int())
		}
		if ctxLen <= 0 {
			ctxLen = DefaultContextLength
		}
		models = append(models, types.Model{ID: id, Name: name, ContextLength: ctxLen})
		return true
	})
	return models, nil
}
