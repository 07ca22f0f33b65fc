package deriv

import (
	"fmt"
	"sort"
	"sync"
)

// SubscriptionKind 订阅类型
type SubscriptionKind string

const (
	KindTick         SubscriptionKind = "tick"
	KindCandle       SubscriptionKind = "candle"
	KindPortfolio    SubscriptionKind = "portfolio"
	KindBalance      SubscriptionKind = "balance"
	KindOpenContract SubscriptionKind = "open_contract"
)

// accountStream 该订阅类型是否需要账户上下文（授权后才能订阅）
func (k SubscriptionKind) accountStream() bool {
	switch k {
	case KindPortfolio, KindBalance, KindOpenContract:
		return true
	}
	return false
}

// Subscription 单个活跃订阅
// ServerID 在服务器确认前为空；重连后作废并在重新订阅时更新
type Subscription struct {
	Key         string
	Kind        SubscriptionKind
	Symbol      string
	Granularity int
	ServerID    string
}

// 逻辑订阅键
func tickKey(symbol string) string   { return fmt.Sprintf("tick:%s", symbol) }
func candleKey(symbol string) string { return fmt.Sprintf("candle:%s", symbol) }

const (
	portfolioKey    = "portfolio"
	balanceKey      = "balance"
	openContractKey = "open_contracts"
)

// registry 跟踪活跃订阅并为重连后的订阅恢复提供快照
type registry struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

func newRegistry() *registry {
	return &registry{
		subs: make(map[string]*Subscription),
	}
}

// add 记录订阅；键已存在时返回 false（重复订阅是无操作）
func (r *registry) add(sub *Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.subs[sub.Key]; exists {
		return false
	}
	r.subs[sub.Key] = sub
	return true
}

// bind 把服务器分配的订阅 ID 绑定到逻辑订阅上（用于之后的取消订阅）
func (r *registry) bind(key, serverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sub, ok := r.subs[key]; ok {
		sub.ServerID = serverID
	}
}

// remove 移除并返回订阅；不存在时返回 nil
// 本地状态总是被清除，不依赖服务器确认
func (r *registry) remove(key string) *Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	sub, ok := r.subs[key]
	if !ok {
		return nil
	}
	delete(r.subs, key)
	return sub
}

func (r *registry) has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.subs[key]
	return ok
}

func (r *registry) count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

func (r *registry) clear() {
	r.mu.Lock()
	r.subs = make(map[string]*Subscription)
	r.mu.Unlock()
}

// snapshot 返回按恢复顺序排列的订阅快照：
// 先账户流（portfolio、balance、open_contracts），再行情流（ticks、candles），
// 同类内按品种名排序保证确定性
func (r *registry) snapshot() []Subscription {
	r.mu.RLock()
	all := make([]Subscription, 0, len(r.subs))
	for _, sub := range r.subs {
		all = append(all, *sub)
	}
	r.mu.RUnlock()

	rank := map[SubscriptionKind]int{
		KindPortfolio:    0,
		KindBalance:      1,
		KindOpenContract: 2,
		KindTick:         3,
		KindCandle:       4,
	}
	sort.Slice(all, func(i, j int) bool {
		if rank[all[i].Kind] != rank[all[j].Kind] {
			return rank[all[i].Kind] < rank[all[j].Kind]
		}
		return all[i].Symbol < all[j].Symbol
	})
	return all
}
