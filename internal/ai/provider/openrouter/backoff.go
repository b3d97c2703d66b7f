package openrouter

import (
	"math/rand/v2"
	"sync"
	"time"
)

// maxBackoffExponent 指数上限，避免 2^attempt 溢出
const maxBackoffExponent = 30

// maxBaseSeconds 基础等待上限，保证 1.5*base 换算为 time.Duration 不溢出
const maxBaseSeconds = float64(1 << 32)

// Backoff 重试等待时间策略
//
// 基础等待为服务端 Retry-After（纯数字秒数）或 2^attempt 秒，
// 再叠加 [0, 0.5*base] 的均匀抖动。随机源可注入，便于测试。
type Backoff struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewBackoff 创建退避策略，src 为 nil 时使用随机种子
func NewBackoff(src rand.Source) *Backoff {
	if src == nil {
		src = rand.NewPCG(rand.Uint64(), rand.Uint64())
	}
	return &Backoff{rnd: rand.New(src)}
}

// Delay 计算第 attempt 次（从 0 开始）失败后的等待时间
func (b *Backoff) Delay(attempt int, retryAfter string) time.Duration {
	base, ok := parseRetryAfter(retryAfter)
	if !ok {
		if attempt < 0 {
			attempt = 0
		}
		if attempt > maxBackoffExponent {
			attempt = maxBackoffExponent
		}
		base = float64(uint64(1) << attempt)
	}
	if base > maxBaseSeconds {
		base = maxBaseSeconds
	}

	b.mu.Lock()
	jitter := b.rnd.Float64() * base * 0.5
	b.mu.Unlock()

	return time.Duration((base + jitter) * float64(time.Second))
}

// parseRetryAfter 仅接受纯数字形式的 Retry-After（HTTP 日期形式忽略）
func parseRetryAfter(v string) (float64, bool) {
	if v == "" {
		return 0, false
	}
	var n float64
	for _, r := range v {
		if r < '0' || r > '9' {
			return 0, false
		}
		n = n*10 + float64(r-'0')
	}
	return n, true
}
