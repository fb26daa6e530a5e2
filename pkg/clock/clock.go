package clock

import (
	"sync"
	"time"
)

// Clock 时间来源，生产注入 Real()，测试注入 Fake
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// Real 返回系统时钟（UTC）
func Real() Clock { return realClock{} }

// Fake 手动推进的时钟，并发安全
type Fake struct {
	mu  sync.Mutex
	now time.Time
}

func NewFake(initial time.Time) *Fake { return &Fake{now: initial.UTC()} }

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Set 把时钟拨到 t
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t.UTC()
}

// Advance 向前推进 d
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}
