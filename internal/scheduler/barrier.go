package scheduler

import (
	"sync"
	"sync/atomic"
)

// barrier counts in-flight tasks and lets callers wait for the count to reach zero.
// The decrement that reaches zero broadcasts under mu, the same lock the
// waiter holds while checking the count, so a wake-up can never be missed.
type barrier struct {
	count atomic.Int64
	mu    sync.Mutex
	cond  *sync.Cond
}

func newBarrier() *barrier {
	b := &barrier{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *barrier) add() {
	b.count.Add(1)
}

func (b *barrier) done() {
	if b.count.Add(-1) == 0 {
		b.mu.Lock()
		b.cond.Broadcast()
		b.mu.Unlock()
	}
}

func (b *barrier) load() int64 {
	return b.count.Load()
}

func (b *barrier) wait() {
	b.mu.Lock()
	for b.count.Load() != 0 {
		b.cond.Wait()
	}
	b.mu.Unlock()
}
