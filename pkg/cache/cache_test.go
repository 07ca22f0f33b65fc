package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New[string, int](time.Minute)
	defer c.Close()

	c.Set("a", 1)
	v, ok := c.Get("a")
	if !ok || v != 1 {
		t.Errorf("应该取到值 1，得到 %d (ok=%v)", v, ok)
	}

	if _, ok := c.Get("不存在"); ok {
		t.Error("不存在的键不应该命中")
	}
}

func TestCache_Expiry(t *testing.T) {
	c := New[string, string](time.Minute)
	defer c.Close()

	c.SetTTL("k", "v", 30*time.Millisecond)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("过期前应该命中")
	}

	time.Sleep(50 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("过期后不应该命中")
	}
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[int, string](time.Minute)
	defer c.Close()

	c.Set(1, "a")
	c.Set(2, "b")
	c.Delete(1)
	if _, ok := c.Get(1); ok {
		t.Error("删除后不应该命中")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("清空后数量应该为 0，得到 %d", c.Len())
	}
}

func TestCache_RemoveExpired(t *testing.T) {
	c := New[string, int](time.Minute)
	defer c.Close()

	c.SetTTL("短", 1, 10*time.Millisecond)
	c.Set("长", 2)
	time.Sleep(20 * time.Millisecond)

	c.removeExpired()
	if c.Len() != 1 {
		t.Errorf("清理后应该只剩 1 项，得到 %d", c.Len())
	}
}
