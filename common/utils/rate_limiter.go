package utils

import (
	"sync"
	"time"
)

// RateLimiter 令牌桶限流
type RateLimiter struct {
	rate       float64
	capacity   float64
	tokens     float64
	lastRefill time.Time
	now        func() time.Time
	mu         sync.Mutex
}

// NewRateLimiter 创建限流器
// rate: 每秒补充的令牌数
// burst: 桶的容量，也就是允许的突发次数
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &RateLimiter{
		rate:     rate,
		capacity: float64(burst),
		tokens:   float64(burst),
		now:      time.Now,
	}
	rl.lastRefill = rl.now()
	return rl
}

// Allow 取一个令牌，取不到返回 false
func (rl *RateLimiter) Allow() bool {
	if rl == nil {
		return true
	}
	rl.mu.Lock()
	defer rl.mu.Unlock()

	rl.refill()
	if rl.tokens >= 1.0 {
		rl.tokens -= 1.0
		return true
	}
	return false
}

// Tokens 当前可用的令牌数
func (rl *RateLimiter) Tokens() float64 {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	rl.refill()
	return rl.tokens
}

func (rl *RateLimiter) refill() {
	now := rl.now()
	elapsed := now.Sub(rl.lastRefill).Seconds()
	rl.lastRefill = now
	if elapsed <= 0 {
		return
	}
	rl.tokens = min(rl.capacity, rl.tokens+elapsed*rl.rate)
}
