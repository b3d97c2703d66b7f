package openrouter

import (
	"context"
	"errors"
	"io"
	"iter"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lk2023060901/llm-gateway-client/internal/ai/provider/types"
	"github.com/lk2023060901/llm-gateway-client/internal/pkg/logger"
)

// Stream 可中途停止的流式响应
//
// Recv 只能在单个 goroutine 中调用；Stop 可以在任意 goroutine 中调用。
// Stop 之后 Recv 不再返回任何块（包括已解析但尚未交付的块），直接返回 io.EOF。
type Stream struct {
	id      string
	cancel  context.CancelFunc
	body    io.ReadCloser
	dec     *Decoder
	log     *logger.Logger
	pending []types.Chunk
	err     error

	stopped   atomic.Bool
	closeOnce sync.Once
}

func newStream(cancel context.CancelFunc, body io.ReadCloser, log *logger.Logger) *Stream {
	id := uuid.NewString()
	return &Stream{
		id:     id,
		cancel: cancel,
		body:   body,
		dec:    NewDecoder(body),
		log:    logger.OrGlobal(log).With(zap.String("stream_id", id)),
	}
}

// ID 返回流标识
func (s *Stream) ID() string {
	return s.id
}

// Recv 返回下一个输出块
//
// 正常结束（[DONE]、响应体结束或已 Stop）返回 io.EOF；
// 流开始后的读取或解析失败直接返回错误，不再重试。
func (s *Stream) Recv() (types.Chunk, error) {
	for {
		if s.stopped.Load() {
			s.Close()
			return nil, io.EOF
		}
		if s.err != nil {
			return nil, s.err
		}
		if len(s.pending) > 0 {
			chunk := s.pending[0]
			s.pending = s.pending[1:]
			return chunk, nil
		}

		chunks, err := s.dec.Next()
		if err != nil {
			s.finish(err)
			continue
		}
		s.pending = append(s.pending, chunks...)
	}
}

// finish 记录终止原因并释放连接
func (s *Stream) finish(err error) {
	switch {
	case s.stopped.Load():
		return
	case errors.Is(err, io.EOF):
		s.err = io.EOF
		s.log.Debug("stream finished")
	default:
		s.err = err
		s.log.Warn("stream failed", zap.Error(err))
	}
	s.Close()
}

// Stop 停止流，中断阻塞中的网络读取
func (s *Stream) Stop() {
	if s.stopped.CompareAndSwap(false, true) {
		s.cancel()
		s.log.Debug("stream stopped")
	}
}

// Stopped 是否已调用 Stop
func (s *Stream) Stopped() bool {
	return s.stopped.Load()
}

// Close 释放底层连接，可重复调用
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.cancel()
		err = s.body.Close()
	})
	return err
}

// All 以迭代器形式消费流，迭代结束时自动关闭
func (s *Stream) All() iter.Seq2[types.Chunk, error] {
	return func(yield func(types.Chunk, error) bool) {
		defer s.Close()
		for {
			chunk, err := s.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// DrainStream 消费并丢弃剩余的输出块
func DrainStream(s *Stream) error {
	for _, err := range s.All() {
		if err != nil {
			return err
		}
	}
	return nil
}
