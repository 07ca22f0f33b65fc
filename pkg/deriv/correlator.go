package deriv

import "sync"

// result 单个挂起请求的结果槽（负载或错误，二选一）
type result struct {
	msg *Message
	err error
}

// correlator 管理请求 ID 分配和挂起请求的匹配
// 所有变更都在同一把锁下进行：nextID、注册、解析之间不会竞态
type correlator struct {
	mu      sync.Mutex
	lastID  int64
	pending map[int64]chan result
}

func newCorrelator() *correlator {
	return &correlator{
		pending: make(map[int64]chan result),
	}
}

// nextID 返回严格递增的请求 ID（从 1 开始）
func (c *correlator) nextID() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastID++
	return c.lastID
}

// register 为请求 ID 注册结果通道
// 通道带 1 个缓冲：解析方发送时不会阻塞，即使等待方已放弃
func (c *correlator) register(id int64) chan result {
	ch := make(chan result, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	return ch
}

// resolve 匹配挂起请求并完成它，恰好一次
// 重复解析或未知 ID 是无操作：迟到/重复的服务器响应无害
func (c *correlator) resolve(id int64, msg *Message) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if ok {
		ch <- result{msg: msg}
	}
}

// fail 以错误完成单个挂起请求
func (c *correlator) fail(id int64, err error) {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if ok {
		ch <- result{err: err}
	}
}

// remove 移除挂起请求但不完成它（超时或调用方取消后防止泄漏）
func (c *correlator) remove(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// failAll 断开连接时以给定错误完成所有挂起请求并清空映射
// 保证没有调用方跨重连永久等待
func (c *correlator) failAll(err error) {
	c.mu.Lock()
	chans := make([]chan result, 0, len(c.pending))
	for id, ch := range c.pending {
		chans = append(chans, ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()

	for _, ch := range chans {
		ch <- result{err: err}
	}
}

// pendingCount 返回当前挂起请求数量
func (c *correlator) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
