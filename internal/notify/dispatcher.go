package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/metrics"
)

const deliverTimeout = 5 * time.Second

// Dispatcher 本地异步投递器：有界队列 + 固定 worker；队列满时丢弃并告警
// 投递失败只记日志，不影响已提交的关注关系
type Dispatcher struct {
	sink Sink
	ch   chan FollowEvent
}

func NewDispatcher(sink Sink, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = 10000
	}
	return &Dispatcher{sink: sink, ch: make(chan FollowEvent, queueSize)}
}

// Start 启动 workers 个投递协程；返回的停止函数会排空队列后返回，或在 ctx 结束时放弃
func (d *Dispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 4
	}
	stopCh := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case ev := <-d.ch:
					d.deliver(ev)
				case <-stopCh:
					for {
						select {
						case ev := <-d.ch:
							d.deliver(ev)
						default:
							return
						}
					}
				}
			}
		}()
	}

	var once sync.Once
	return func(ctx context.Context) error {
		once.Do(func() { close(stopCh) })
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (d *Dispatcher) deliver(ev FollowEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := d.sink.Notify(ctx, ev); err != nil {
		logger.Warn("follow notification failed",
			zap.String("follower_id", ev.FollowerID),
			zap.String("followee_id", ev.FolloweeID),
			zap.Error(err))
	}
}

// Enqueue 非阻塞入队
func (d *Dispatcher) Enqueue(ev FollowEvent) {
	select {
	case d.ch <- ev:
	default:
		metrics.NotifyDropped.Inc()
		logger.Warn("notify queue full, drop follow event",
			zap.String("follower_id", ev.FollowerID),
			zap.String("followee_id", ev.FolloweeID))
	}
}

// QueueLen 当前队列长度（采样值）
func (d *Dispatcher) QueueLen() int { return len(d.ch) }
