// Package workerpool 基于 ants 的有界并发执行器
package workerpool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

var (
	ErrPoolClosed = errors.New("worker pool is closed")
)

// Config Worker Pool 配置
type Config struct {
	Workers int           `mapstructure:"workers"` // 最大并发数
	Expiry  time.Duration `mapstructure:"expiry"`  // 空闲 worker 回收间隔
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Workers: 8,
		Expiry:  time.Minute,
	}
}

// Statistics 统计信息
type Statistics struct {
	Submitted int64 // 已提交
	Completed int64 // 已完成
	Failed    int64 // 失败
}

// Pool 有界 worker 池
type Pool struct {
	pool *ants.Pool

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64

	logger *zap.Logger
}

// New 创建 Worker Pool
func New(config *Config, logger *zap.Logger) (*Pool, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := config.Workers
	if workers <= 0 {
		workers = DefaultConfig().Workers
	}
	expiry := config.Expiry
	if expiry <= 0 {
		expiry = DefaultConfig().Expiry
	}

	antsPool, err := ants.NewPool(workers,
		ants.WithExpiryDuration(expiry),
		ants.WithPanicHandler(func(err interface{}) {
			logger.Error("worker panic", zap.Any("error", err))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ants pool: %w", err)
	}
	return &Pool{pool: antsPool, logger: logger}, nil
}

// Submit 提交任务，池满时阻塞等待空闲 worker
func (p *Pool) Submit(task func()) error {
	err := p.pool.Submit(task)
	if errors.Is(err, ants.ErrPoolClosed) {
		return ErrPoolClosed
	}
	if err != nil {
		return err
	}
	p.submitted.Add(1)
	return nil
}

// Run 并发执行 tasks 并等待全部结束，返回与 tasks 顺序一致的错误
//
// ctx 取消后尚未开始的任务不再执行，对应位置为 ctx.Err()。
// 任务 panic 时对应位置为非 nil 错误。
func (p *Pool) Run(ctx context.Context, tasks []func(ctx context.Context) error) []error {
	errs := make([]error, len(tasks))
	var wg sync.WaitGroup
	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		wg.Add(1)
		err := p.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("task panic: %v", r)
					p.failed.Add(1)
					p.logger.Error("worker task panic", zap.Int("task", i), zap.Any("error", r))
				}
			}()
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			errs[i] = task(ctx)
			if errs[i] != nil {
				p.failed.Add(1)
			} else {
				p.completed.Add(1)
			}
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()
	return errs
}

// Running 正在运行的 worker 数
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Free 空闲容量
func (p *Pool) Free() int {
	return p.pool.Free()
}

// Stats 统计快照
func (p *Pool) Stats() Statistics {
	return Statistics{
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
	}
}

// Shutdown 关闭，已提交的任务继续执行
func (p *Pool) Shutdown() {
	p.pool.Release()
}
