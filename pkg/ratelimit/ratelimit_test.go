package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucket_Allow(t *testing.T) {
	tb := NewTokenBucket(3, 1)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("第 %d 次请求应该被允许", i+1)
		}
	}
	if tb.Allow() {
		t.Error("令牌耗尽后请求应该被拒绝")
	}
	if tb.Remaining() != 0 {
		t.Errorf("剩余令牌应该为 0，得到 %d", tb.Remaining())
	}
}

func TestTokenBucket_WaitRespectsContext(t *testing.T) {
	tb := NewTokenBucket(1, 1)
	if !tb.Allow() {
		t.Fatal("第一次请求应该被允许")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := tb.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("上下文超时后 Wait 应该返回 DeadlineExceeded，得到 %v", err)
	}
}

func TestSlidingWindow_Allow(t *testing.T) {
	sw := NewSlidingWindow(2, 100*time.Millisecond)

	if !sw.Allow() || !sw.Allow() {
		t.Fatal("窗口内的前两次请求应该被允许")
	}
	if sw.Allow() {
		t.Error("超过窗口限制的请求应该被拒绝")
	}

	// 窗口滑过后恢复配额
	time.Sleep(120 * time.Millisecond)
	if !sw.Allow() {
		t.Error("窗口滑过后请求应该被允许")
	}
}

func TestSlidingWindow_Remaining(t *testing.T) {
	sw := NewSlidingWindow(5, time.Second)
	sw.Allow()
	sw.Allow()

	if got := sw.Remaining(); got != 3 {
		t.Errorf("剩余配额应该为 3，得到 %d", got)
	}
}

func TestManager_UnknownCategoryFallsBack(t *testing.T) {
	m := NewManager()

	// 未知类别回落到 general，不应该 panic
	if !m.Allow("没见过的类别") {
		t.Error("未知类别的首次请求应该被允许")
	}

	if err := m.Wait(context.Background(), CategoryGeneral); err != nil {
		t.Errorf("有配额时 Wait 不应该失败: %v", err)
	}
}

func TestManager_SetLimiter(t *testing.T) {
	m := NewManager()
	m.SetLimiter(CategoryTrade, NewTokenBucket(1, 0))

	if !m.Allow(CategoryTrade) {
		t.Fatal("替换后的限制器首次请求应该被允许")
	}
	if m.Allow(CategoryTrade) {
		t.Error("容量 1 的令牌桶第二次请求应该被拒绝")
	}
}
