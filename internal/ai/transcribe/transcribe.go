// Package transcribe 调用 Whisper 兼容接口把音频转成文本
package transcribe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/content"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

const (
	// DefaultBaseURL OpenAI 官方接口地址
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout 单次转写超时
	DefaultTimeout = 60 * time.Second
	// defaultFileName 字节输入时上传使用的文件名
	defaultFileName = "audio.mp3"
)

// ErrMissingAPIKey 调用时仍未配置 API Key
var ErrMissingAPIKey = errors.New("transcribe: api key not set")

// Config 转写客户端配置
type Config struct {
	APIKey     string
	APIKeyFunc func() string // 每次调用时读取，优先于 APIKey
	BaseURL    string
	Model      string
	Timeout    time.Duration
}

// Client Whisper 转写客户端
type Client struct {
	cfg  Config
	http *http.Client
	log  *logger.Logger
}

// New 创建转写客户端，API Key 可以稍后再配置
func New(cfg Config, log *logger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger.OrGlobal(log).Named("transcribe"),
	}
}

func (c *Client) apiKey() string {
	if c.cfg.APIKeyFunc != nil {
		if key := c.cfg.APIKeyFunc(); key != "" {
			return key
		}
	}
	return c.cfg.APIKey
}

// Transcribe 转写音频并返回去除首尾空白的文本
//
// PathSource 读取本地文件并以其文件名上传；其余来源使用 "audio.mp3"（ReaderSource 有 Name 时用 Name）。
func (c *Client) Transcribe(ctx context.Context, src content.Source) (string, error) {
	key := c.apiKey()
	if key == "" {
		return "", ErrMissingAPIKey
	}

	name, r, err := open(src)
	if err != nil {
		return "", err
	}
	if closer, ok := r.(io.Closer); ok {
		defer closer.Close()
	}

	oc := openai.DefaultConfig(key)
	oc.BaseURL = c.cfg.BaseURL
	oc.HTTPClient = c.http
	client := openai.NewClientWithConfig(oc)

	start := time.Now()
	resp, err := client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    c.cfg.Model,
		FilePath: name,
		Reader:   r,
	})
	if err != nil {
		c.log.Error("transcription failed", zap.String("file", name), zap.Error(err))
		return "", fmt.Errorf("transcribe %s: %w", name, err)
	}

	text := strings.TrimSpace(resp.Text)
	c.log.Debug("transcription done",
		zap.String("file", name),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return text, nil
}

func open(src content.Source) (string, io.Reader, error) {
	switch s := src.(type) {
	case content.PathSource:
		f, err := os.Open(string(s))
		if err != nil {
			return "", nil, fmt.Errorf("open audio: %w", err)
		}
		return filepath.Base(string(s)), f, nil
	case content.ByteSource:
		return defaultFileName, bytes.NewReader(s), nil
	case content.ReaderSource:
		if s.Reader == nil {
			return "", nil, content.ErrNilSource
		}
		name := defaultFileName
		if s.Name != "" {
			name = filepath.Base(s.Name)
		}
		return name, s.Reader, nil
	default:
		return "", nil, content.ErrNilSource
	}
}
