// Package sse 把网关的流式输出转发为 HTTP SSE 响应
package sse

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

// ChunkSource 可逐块读取并可中途停止的输出流（openrouter.Stream 实现该接口）
type ChunkSource interface {
	Recv() (types.Chunk, error)
	Stop()
}

// Relay 单次转发
//
// 每个内容块输出 {"delta":text}，用量输出 {"usage":map}，出错输出 {"error":msg}，
// 最后总是输出 {"end":true}。客户端断开时停止上游流。
type Relay struct {
	ctx       *gin.Context
	src       ChunkSource
	id        string
	hub       *Hub
	heartbeat time.Duration
	reasoning bool
	log       *logger.Logger

	mu sync.Mutex // 保护 ctx.Writer
}

// NewRelay 创建转发器
func NewRelay(c *gin.Context, src ChunkSource) *Relay {
	return &Relay{ctx: c, src: src, log: logger.L()}
}

// WithID 设置流 ID，写入 X-Stream-ID 响应头
func (r *Relay) WithID(id string) *Relay {
	r.id = id
	return r
}

// WithHub 转发期间把流注册到 hub，可通过 ID 停止
func (r *Relay) WithHub(h *Hub) *Relay {
	r.hub = h
	return r
}

// WithHeartbeat 设置心跳间隔（0 表示禁用）
func (r *Relay) WithHeartbeat(d time.Duration) *Relay {
	r.heartbeat = d
	return r
}

// WithReasoning 同时转发推理文本 {"reasoning":text}
func (r *Relay) WithReasoning(on bool) *Relay {
	r.reasoning = on
	return r
}

// WithLogger 设置日志
func (r *Relay) WithLogger(log *logger.Logger) *Relay {
	r.log = logger.OrGlobal(log)
	return r
}

// Run 阻塞直到流结束、出错或客户端断开，返回上游错误（正常结束为 nil）
func (r *Relay) Run() error {
	c := r.ctx
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	if r.id != "" {
		c.Header("X-Stream-ID", r.id)
	}
	c.Status(200)

	if r.hub != nil && r.id != "" {
		if r.hub.Register(r.id, r.src) {
			defer r.hub.Unregister(r.id)
		}
	}

	release := context.AfterFunc(c.Request.Context(), r.src.Stop)
	defer release()

	if r.heartbeat > 0 {
		done := make(chan struct{})
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.keepAlive(done)
		}()
		defer func() {
			close(done)
			wg.Wait()
		}()
	}

	log := r.log.With(zap.String("stream_id", r.id))
	var streamErr error
	for {
		chunk, err := r.src.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			streamErr = err
			log.Warn("relay upstream error", zap.Error(err))
			_ = r.send(gin.H{"error": err.Error()})
			break
		}
		if err := r.forward(chunk); err != nil {
			log.Debug("relay client write failed", zap.Error(err))
			r.src.Stop()
			return streamErr
		}
	}

	if err := r.send(gin.H{"end": true}); err != nil {
		log.Debug("relay end write failed", zap.Error(err))
	}
	return streamErr
}

func (r *Relay) forward(chunk types.Chunk) error {
	switch ch := chunk.(type) {
	case types.ContentChunk:
		if ch.Text != "" {
			return r.send(gin.H{"delta": ch.Text})
		}
	case types.UsageChunk:
		return r.send(gin.H{"usage": ch.Usage})
	case types.ReasoningChunk:
		if r.reasoning && ch.Text != "" {
			return r.send(gin.H{"reasoning": ch.Text})
		}
	}
	return nil
}

func (r *Relay) send(data any) error {
	msg, err := Event{Data: data}.Format()
	if err != nil {
		return err
	}
	return r.write(msg)
}

func (r *Relay) write(msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := fmt.Fprint(r.ctx.Writer, msg); err != nil {
		return err
	}
	r.ctx.Writer.Flush()
	return nil
}

func (r *Relay) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(r.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if err := r.write(": heartbeat\n\n"); err != nil {
				return
			}
		}
	}
}
