package deriv

import (
	"sync"

	"github.com/sirupsen/logrus"
)

var handlerLog = logrus.WithField("component", "deriv_handlers")

// StateHandler 连接状态变化回调
type StateHandler func(state ConnectionState)

// TickHandler 报价更新回调
type TickHandler func(tick *Tick)

// CandleHandler K 线更新回调
type CandleHandler func(candle *Candle)

// BalanceHandler 余额更新回调
type BalanceHandler func(balance *Balance)

// PortfolioHandler 持仓更新回调
type PortfolioHandler func(portfolio *Portfolio)

// ContractHandler 合约状态更新回调
type ContractHandler func(contract *OpenContract)

// handlerList 广播回调列表：多个消费者互不影响地观察同一事件流
// 串行触发（确定性优先），单个 handler panic 不影响其他 handler
type handlerList[T any] struct {
	mu       sync.RWMutex
	handlers []func(T)
}

func newHandlerList[T any]() *handlerList[T] {
	return &handlerList[T]{}
}

func (h *handlerList[T]) add(fn func(T)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.handlers = append(h.handlers, fn)
	h.mu.Unlock()
}

// snapshot 返回回调快照，遍历时不持锁
func (h *handlerList[T]) snapshot() []func(T) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]func(T), len(h.handlers))
	copy(out, h.handlers)
	return out
}

func (h *handlerList[T]) emit(event T) {
	for i, fn := range h.snapshot() {
		func(idx int, fn func(T)) {
			defer func() {
				if r := recover(); r != nil {
					handlerLog.Errorf("事件处理器 %d panic: %v", idx, r)
				}
			}()
			fn(event)
		}(i, fn)
	}
}

func (h *handlerList[T]) count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.handlers)
}

func (h *handlerList[T]) clear() {
	h.mu.Lock()
	h.handlers = nil
	h.mu.Unlock()
}
