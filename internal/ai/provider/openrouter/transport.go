package openrouter

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
)

// maxErrorBody 错误响应体最多读取的字节数
const maxErrorBody = 4 << 10

// pool 进程级复用的 HTTP 客户端
//
// plain 用于非流式调用（整体超时），stream 用于流式调用（仅限制建连与握手）。
type pool struct {
	transport *http.Transport
	plain     *http.Client
	stream    *http.Client
}

func newPool(cfg *types.Config) *pool {
	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout,
		KeepAlive: 30 * time.Second,
	}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConns,
		MaxConnsPerHost:       cfg.MaxConns,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ExpectContinueTimeout: time.Second,
	}
	return &pool{
		transport: tr,
		plain:     &http.Client{Transport: tr, Timeout: cfg.Timeout},
		stream:    &http.Client{Transport: tr},
	}
}

func (p *pool) close() {
	p.transport.CloseIdleConnections()
}

// sleepFunc 可被测试替换的等待函数
type sleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// send 发送请求，对可重试的失败按退避策略重试
//
// 成功时返回状态码 < 400 的响应，调用方负责关闭 Body。
// 流式请求的重试只覆盖拿到响应头之前的阶段；非流式请求的响应体在返回前读完，
// 读取失败同样按传输错误重试。
func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, body []byte, stream bool) (*http.Response, error) {
	key, err := c.cfg.ResolveAPIKey()
	if err != nil {
		return nil, err
	}

	var lastErr *types.ProviderError
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		req, err := c.newRequest(ctx, method, path, body, key, stream)
		if err != nil {
			return nil, types.NewProviderError(providerName, "create request failed", err)
		}

		resp, err := hc.Do(req)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = types.NewTransportError(providerName, "request failed", err)
		case resp.StatusCode >= http.StatusBadRequest:
			lastErr = statusError(resp)
			if !lastErr.IsRetryable() {
				return nil, lastErr
			}
		case stream:
			return resp, nil
		default:
			// 非流式请求在重试范围内读完响应体
			data, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if rerr == nil {
				resp.Body = io.NopCloser(bytes.NewReader(data))
				return resp, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = types.NewTransportError(providerName, "read response failed", rerr)
			lastErr.StatusCode = resp.StatusCode
		}

		if attempt == c.cfg.MaxRetries {
			break
		}
		delay := c.backoff.Delay(attempt, lastErr.RetryAfter)
		c.log.Warn("retrying request",
			zap.String("path", path),
			zap.Int("attempt", attempt+1),
			zap.Int("status", lastErr.StatusCode),
			zap.Duration("delay", delay),
			zap.Error(lastErr),
		)
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, key string, stream bool) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req, key, body != nil, stream)
	return req, nil
}

// setHeaders 设置鉴权、应用标识与自定义 headers
func (c *Client) setHeaders(req *http.Request, key string, hasBody, stream bool) {
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+key)
	if c.cfg.AppTitle != "" {
		req.Header.Set("X-Title", c.cfg.AppTitle)
	}
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if stream {
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Cache-Control", "no-cache")
	}
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
}

// statusError 读取错误响应并关闭 Body
func statusError(resp *http.Response) *types.ProviderError {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return types.NewStatusError(providerName, resp.StatusCode, string(data), resp.Header.Get("Retry-After"))
}
