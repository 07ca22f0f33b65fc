package syncgroup

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSyncGroup_RunAndWait(t *testing.T) {
	g := New()

	var counter int32
	g.Add(func() { atomic.AddInt32(&counter, 1) })
	g.Add(func() { atomic.AddInt32(&counter, 1) })
	g.Run()
	g.Wait()

	if got := atomic.LoadInt32(&counter); got != 2 {
		t.Errorf("两个 goroutine 都应该执行完成，计数为 %d", got)
	}
}

func TestSyncGroup_ReuseAfterClear(t *testing.T) {
	g := New()

	var counter int32
	g.Add(func() { atomic.AddInt32(&counter, 1) })
	g.Run()
	g.WaitAndClear()

	// 复位后可以再次使用
	g.Add(func() { atomic.AddInt32(&counter, 1) })
	g.Run()
	g.WaitAndClear()

	if got := atomic.LoadInt32(&counter); got != 2 {
		t.Errorf("复位后的第二批也应该执行，计数为 %d", got)
	}
}

func TestSyncGroup_AddWhileRunningDropped(t *testing.T) {
	g := New()

	blockC := make(chan struct{})
	g.Add(func() { <-blockC })
	g.Run()

	var executed int32
	g.Add(func() { atomic.AddInt32(&executed, 1) })
	g.Run()

	close(blockC)
	g.WaitAndClear()

	g.Run()
	g.Wait()
	time.Sleep(20 * time.Millisecond)
	if atomic.LoadInt32(&executed) != 0 {
		t.Error("上一批还在运行时登记的函数应该被丢弃")
	}
}

func TestSyncGroup_NilFunc(t *testing.T) {
	g := New()
	g.Add(nil)
	g.Run()
	g.Wait()
}
