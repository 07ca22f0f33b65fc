// Package ratelimit 提供出站请求的速率限制
// Deriv API 按调用类别限流，超限会返回 RateLimit 错误，
// 客户端在发送前主动等待配额，避免触发服务器端限制
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// 调用类别
const (
	CategoryGeneral   = "general"   // 一般调用（查询、授权、ping）
	CategoryTrade     = "trade"     // 交易调用（proposal、buy、sell）
	CategorySubscribe = "subscribe" // 订阅调用（ticks、balance 等）
)

// Limiter 速率限制器接口
type Limiter interface {
	Wait(ctx context.Context) error
	Allow() bool
	Remaining() int
}

// TokenBucket 令牌桶速率限制器
type TokenBucket struct {
	capacity   int // 桶容量
	tokens     int // 当前令牌数
	refillRate int // 每秒补充的令牌数
	lastRefill time.Time
	mu         sync.Mutex
}

// NewTokenBucket 创建新的令牌桶
func NewTokenBucket(capacity, refillRate int) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	tokensToAdd := int(elapsed.Seconds()) * tb.refillRate
	if tokensToAdd > 0 {
		tb.tokens = min(tb.capacity, tb.tokens+tokensToAdd)
		tb.lastRefill = now
	}
}

// Allow 检查是否允许请求（允许时消耗一个令牌）
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

// Wait 等待直到允许请求
func (tb *TokenBucket) Wait(ctx context.Context) error {
	for {
		if tb.Allow() {
			return nil
		}

		waitTime := time.Second
		if tb.refillRate > 0 {
			waitTime = time.Second / time.Duration(tb.refillRate)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// Remaining 获取剩余令牌数
func (tb *TokenBucket) Remaining() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.refill()
	return tb.tokens
}

// SlidingWindow 滑动窗口速率限制器
type SlidingWindow struct {
	limit      int           // 窗口内允许的请求数
	windowSize time.Duration // 窗口大小
	requests   []time.Time
	mu         sync.Mutex
}

// NewSlidingWindow 创建新的滑动窗口速率限制器
func NewSlidingWindow(limit int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		limit:      limit,
		windowSize: windowSize,
	}
}

// Allow 检查是否允许请求（允许时记录本次请求）
func (sw *SlidingWindow) Allow() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := time.Now()
	sw.prune(now)

	if len(sw.requests) >= sw.limit {
		return false
	}

	sw.requests = append(sw.requests, now)
	return true
}

// prune 移除窗口外的请求记录（调用方持锁）
func (sw *SlidingWindow) prune(now time.Time) {
	cutoff := now.Add(-sw.windowSize)
	kept := sw.requests[:0]
	for _, req := range sw.requests {
		if req.After(cutoff) {
			kept = append(kept, req)
		}
	}
	sw.requests = kept
}

// Wait 等待直到允许请求
func (sw *SlidingWindow) Wait(ctx context.Context) error {
	for {
		if sw.Allow() {
			return nil
		}

		sw.mu.Lock()
		waitTime := 100 * time.Millisecond
		if len(sw.requests) > 0 {
			if d := sw.windowSize - time.Since(sw.requests[0]); d > waitTime {
				waitTime = d
			}
		}
		sw.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitTime):
		}
	}
}

// Remaining 获取窗口内的剩余请求数
func (sw *SlidingWindow) Remaining() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	sw.prune(time.Now())
	return max(0, sw.limit-len(sw.requests))
}

// Manager 按调用类别管理速率限制器
type Manager struct {
	limiters map[string]Limiter
	mu       sync.RWMutex
}

// NewManager 创建速率限制管理器（预置各类别的限制）
func NewManager() *Manager {
	return &Manager{
		limiters: map[string]Limiter{
			// 一般调用 120/分钟
			CategoryGeneral: NewSlidingWindow(120, time.Minute),
			// 交易调用突发受令牌桶约束（容量 10，每秒补 5）
			CategoryTrade: NewTokenBucket(10, 5),
			// 订阅调用 60/分钟
			CategorySubscribe: NewSlidingWindow(60, time.Minute),
		},
	}
}

// SetLimiter 替换指定类别的限制器
func (m *Manager) SetLimiter(category string, limiter Limiter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limiters[category] = limiter
}

// limiter 获取指定类别的限制器（未知类别回落到 general）
func (m *Manager) limiter(category string) Limiter {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if l, ok := m.limiters[category]; ok {
		return l
	}
	return m.limiters[CategoryGeneral]
}

// Wait 等待指定类别的配额
func (m *Manager) Wait(ctx context.Context, category string) error {
	return m.limiter(category).Wait(ctx)
}

// Allow 检查指定类别是否允许请求
func (m *Manager) Allow(category string) bool {
	return m.limiter(category).Allow()
}

// Remaining 获取指定类别的剩余配额
func (m *Manager) Remaining(category string) int {
	return m.limiter(category).Remaining()
}
