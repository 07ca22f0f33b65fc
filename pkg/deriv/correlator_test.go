package deriv

import (
	"sync"
	"testing"
	"time"
)

// TestCorrelator_NextID 测试请求 ID 严格递增且并发安全
func TestCorrelator_NextID(t *testing.T) {
	c := newCorrelator()

	if id := c.nextID(); id != 1 {
		t.Fatalf("第一个请求 ID 应该是 1，得到 %d", id)
	}

	const n = 100
	ids := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- c.nextID()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		if seen[id] {
			t.Fatalf("请求 ID %d 被重复分配", id)
		}
		seen[id] = true
	}
	if len(seen) != n {
		t.Errorf("期望 %d 个不同的 ID，得到 %d", n, len(seen))
	}
}

// TestCorrelator_ResolveMatchesWaiter 测试并发请求各自收到自己的响应
func TestCorrelator_ResolveMatchesWaiter(t *testing.T) {
	c := newCorrelator()

	const n = 20
	type outcome struct {
		id  int64
		msg *Message
	}
	results := make(chan outcome, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := c.nextID()
			ch := c.register(id)
			res := <-ch
			results <- outcome{id: id, msg: res.msg}
		}()
	}

	// 等待所有等待方注册完成后乱序解析
	for {
		if c.pendingCount() == n {
			break
		}
		time.Sleep(time.Millisecond)
	}
	for id := int64(n); id >= 1; id-- {
		reqID := id
		c.resolve(id, &Message{ReqID: &reqID})
	}
	wg.Wait()
	close(results)

	for out := range results {
		if out.msg == nil || out.msg.ReqID == nil {
			t.Fatal("等待方应该收到带 req_id 的响应")
		}
		if *out.msg.ReqID != out.id {
			t.Errorf("等待方 %d 收到了 %d 的响应", out.id, *out.msg.ReqID)
		}
	}
}

// TestCorrelator_DuplicateResolve 测试重复解析是无操作且不影响其他挂起请求
func TestCorrelator_DuplicateResolve(t *testing.T) {
	c := newCorrelator()

	id1 := c.nextID()
	id2 := c.nextID()
	ch1 := c.register(id1)
	ch2 := c.register(id2)

	c.resolve(id1, &Message{MsgType: "first"})
	c.resolve(id1, &Message{MsgType: "duplicate"}) // 重复解析，应该被忽略

	res := <-ch1
	if res.msg.MsgType != "first" {
		t.Errorf("应该收到第一次解析的响应，得到 %s", res.msg.MsgType)
	}

	// 另一个挂起请求不受影响
	if c.pendingCount() != 1 {
		t.Errorf("期望 1 个挂起请求，得到 %d", c.pendingCount())
	}
	c.resolve(id2, &Message{MsgType: "second"})
	res2 := <-ch2
	if res2.msg.MsgType != "second" {
		t.Errorf("应该收到 second 响应，得到 %s", res2.msg.MsgType)
	}
}

// TestCorrelator_UnknownID 测试解析未知 ID 是无操作
func TestCorrelator_UnknownID(t *testing.T) {
	c := newCorrelator()

	// 不应该 panic
	c.resolve(999, &Message{})
	c.fail(999, ErrConnectionClosed)

	if c.pendingCount() != 0 {
		t.Errorf("挂起请求数量应该为 0，得到 %d", c.pendingCount())
	}
}

// TestCorrelator_FailAll 测试断开连接时所有挂起请求以错误完成
func TestCorrelator_FailAll(t *testing.T) {
	c := newCorrelator()

	const n = 5
	chans := make([]chan result, n)
	for i := 0; i < n; i++ {
		chans[i] = c.register(c.nextID())
	}

	c.failAll(ErrConnectionClosed)

	for i, ch := range chans {
		select {
		case res := <-ch:
			if res.err != ErrConnectionClosed {
				t.Errorf("等待方 %d 应该收到连接关闭错误，得到 %v", i, res.err)
			}
		case <-time.After(time.Second):
			t.Fatalf("等待方 %d 没有在限定时间内收到错误", i)
		}
	}

	if c.pendingCount() != 0 {
		t.Errorf("failAll 后挂起请求数量应该为 0，得到 %d", c.pendingCount())
	}
}

// TestCorrelator_Remove 测试移除后的迟到解析是无操作
func TestCorrelator_Remove(t *testing.T) {
	c := newCorrelator()

	id := c.nextID()
	ch := c.register(id)
	c.remove(id)

	if c.pendingCount() != 0 {
		t.Errorf("移除后挂起请求数量应该为 0，得到 %d", c.pendingCount())
	}

	// 迟到的响应不应该送达
	c.resolve(id, &Message{})
	select {
	case <-ch:
		t.Error("移除后的等待方不应该再收到响应")
	case <-time.After(50 * time.Millisecond):
	}
}
