// Package syncgroup 封装 sync.WaitGroup，简化 goroutine 生命周期管理
// 自动配对 Add/Done，避免遗漏 Done 导致的泄漏
package syncgroup

import "sync"

// SyncGroup 管理一组 goroutine：Add 登记函数，Run 启动，WaitAndClear 等待并复位
// 复位后可以再次 Add/Run（用于连接替换等场景）
type SyncGroup struct {
	wg sync.WaitGroup

	mu      sync.Mutex
	fns     []func()
	running int
}

// New 创建新的 SyncGroup
func New() *SyncGroup {
	return &SyncGroup{}
}

// Add 登记一个 goroutine 函数，在下次 Run 时启动
// 上一批 goroutine 还在运行时丢弃本次登记（必须先 WaitAndClear）
func (g *SyncGroup) Add(fn func()) {
	if fn == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running > 0 {
		return
	}
	g.fns = append(g.fns, fn)
}

// Run 启动所有已登记的 goroutine 并清空登记列表
func (g *SyncGroup) Run() {
	g.mu.Lock()
	if g.running > 0 {
		g.mu.Unlock()
		return
	}
	fns := g.fns
	g.fns = nil
	g.running = len(fns)
	g.mu.Unlock()

	for _, fn := range fns {
		g.wg.Add(1)
		go func(do func()) {
			defer func() {
				g.wg.Done()
				g.mu.Lock()
				g.running--
				g.mu.Unlock()
			}()
			do()
		}(fn)
	}
}

// Wait 等待当前批次的所有 goroutine 完成
func (g *SyncGroup) Wait() {
	g.wg.Wait()
}

// WaitAndClear 等待所有 goroutine 完成并复位，之后可以再次 Add/Run
func (g *SyncGroup) WaitAndClear() {
	g.wg.Wait()

	g.mu.Lock()
	g.fns = nil
	g.running = 0
	g.mu.Unlock()
}
