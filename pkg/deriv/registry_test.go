package deriv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddDuplicate(t *testing.T) {
	r := newRegistry()

	ok := r.add(&Subscription{Key: tickKey("EURUSD"), Kind: KindTick, Symbol: "EURUSD"})
	require.True(t, ok, "首次添加应该成功")

	ok = r.add(&Subscription{Key: tickKey("EURUSD"), Kind: KindTick, Symbol: "EURUSD"})
	assert.False(t, ok, "重复添加应该返回 false")
	assert.Equal(t, 1, r.count())
}

func TestRegistry_BindServerID(t *testing.T) {
	r := newRegistry()
	r.add(&Subscription{Key: tickKey("EURUSD"), Kind: KindTick, Symbol: "EURUSD"})

	r.bind(tickKey("EURUSD"), "srv-abc-123")

	sub := r.remove(tickKey("EURUSD"))
	require.NotNil(t, sub)
	assert.Equal(t, "srv-abc-123", sub.ServerID)

	// 绑定不存在的键是无操作
	r.bind("tick:UNKNOWN", "srv-x")
	assert.Equal(t, 0, r.count())
}

func TestRegistry_RemoveAlwaysClears(t *testing.T) {
	r := newRegistry()
	r.add(&Subscription{Key: balanceKey, Kind: KindBalance})

	sub := r.remove(balanceKey)
	require.NotNil(t, sub)
	assert.Equal(t, KindBalance, sub.Kind)
	assert.False(t, r.has(balanceKey))

	assert.Nil(t, r.remove(balanceKey), "移除不存在的键应该返回 nil")
}

func TestRegistry_SnapshotOrder(t *testing.T) {
	r := newRegistry()

	// 乱序添加，快照应该按恢复顺序返回
	r.add(&Subscription{Key: candleKey("R_100"), Kind: KindCandle, Symbol: "R_100", Granularity: 60})
	r.add(&Subscription{Key: tickKey("GBPUSD"), Kind: KindTick, Symbol: "GBPUSD"})
	r.add(&Subscription{Key: balanceKey, Kind: KindBalance})
	r.add(&Subscription{Key: tickKey("EURUSD"), Kind: KindTick, Symbol: "EURUSD"})
	r.add(&Subscription{Key: openContractKey, Kind: KindOpenContract})
	r.add(&Subscription{Key: portfolioKey, Kind: KindPortfolio})

	snap := r.snapshot()
	require.Len(t, snap, 6)

	keys := make([]string, 0, len(snap))
	for _, s := range snap {
		keys = append(keys, s.Key)
	}
	assert.Equal(t, []string{
		portfolioKey,
		balanceKey,
		openContractKey,
		tickKey("EURUSD"),
		tickKey("GBPUSD"),
		candleKey("R_100"),
	}, keys, "快照顺序应该是账户流在前、行情流在后，品种按名称排序")
}

func TestRegistry_Clear(t *testing.T) {
	r := newRegistry()
	r.add(&Subscription{Key: tickKey("EURUSD"), Kind: KindTick, Symbol: "EURUSD"})
	r.add(&Subscription{Key: portfolioKey, Kind: KindPortfolio})

	r.clear()
	assert.Equal(t, 0, r.count())
	assert.Empty(t, r.snapshot())
}
