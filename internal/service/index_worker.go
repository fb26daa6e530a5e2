package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/search"
	"github.com/d60-Lab/microblog/pkg/clock"
	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/metrics"
)

// IndexWorker 从 outbox 认领索引事件并写入搜索后端
type IndexWorker struct {
	outbox       repository.OutboxRepository
	posts        repository.PostRepository
	backend      search.Backend
	clock        clock.Clock
	workers      int
	claimLimit   int
	pollInterval time.Duration
	claimLease   time.Duration
}

func NewIndexWorker(outbox repository.OutboxRepository, posts repository.PostRepository, backend search.Backend, clk clock.Clock, workers, claimLimit int, pollInterval, claimLease time.Duration) *IndexWorker {
	if workers <= 0 {
		workers = 2
	}
	if claimLimit <= 0 {
		claimLimit = 64
	}
	if pollInterval <= 0 {
		pollInterval = 200 * time.Millisecond
	}
	if claimLease <= 0 {
		claimLease = time.Minute
	}
	return &IndexWorker{
		outbox:       outbox,
		posts:        posts,
		backend:      backend,
		clock:        clk,
		workers:      workers,
		claimLimit:   claimLimit,
		pollInterval: pollInterval,
		claimLease:   claimLease,
	}
}

// Start 启动若干 worker 轮询 outbox；返回停止函数，等待进行中的批次结束
func (w *IndexWorker) Start() func(context.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.loop(ctx)
		}()
	}
	return func(stopCtx context.Context) error {
		cancel()
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-stopCtx.Done():
			return stopCtx.Err()
		}
	}
}

func (w *IndexWorker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.ProcessOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("index worker batch failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce 认领并处理一批事件，返回成功处理的条数
func (w *IndexWorker) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := w.outbox.Claim(ctx, w.claimLimit, w.clock.Now(), w.claimLease)
	if err != nil {
		return 0, err
	}
	done := 0
	for i, ev := range batch {
		applyErr := w.apply(ctx, ev)
		metrics.IndexEvents.WithLabelValues(ev.Op, metrics.Result(applyErr)).Inc()
		if applyErr != nil {
			logger.Warn("apply index event failed",
				zap.String("outbox_id", ev.ID),
				zap.String("post_id", ev.PostID),
				zap.String("op", ev.Op),
				zap.Error(applyErr))
			if err := w.outbox.Release(context.WithoutCancel(ctx), ev.ID); err != nil {
				logger.Error("release outbox event failed", zap.String("outbox_id", ev.ID), zap.Error(err))
			}
			continue
		}
		now := w.clock.Now()
		if err := w.outbox.MarkDone(context.WithoutCancel(ctx), ev.ID, now); err != nil {
			// 本条与剩余事件退回 pending，重放索引是幂等的
			w.releaseAll(ctx, batch[i:])
			return done, err
		}
		if !ev.CreatedAt.IsZero() {
			metrics.IndexLag.Observe(now.Sub(ev.CreatedAt).Seconds())
		}
		done++
	}
	return done, nil
}

func (w *IndexWorker) releaseAll(ctx context.Context, events []*model.Outbox) {
	for _, ev := range events {
		if err := w.outbox.Release(context.WithoutCancel(ctx), ev.ID); err != nil {
			// 租约过期后仍会被重新认领
			logger.Error("release outbox event failed", zap.String("outbox_id", ev.ID), zap.Error(err))
		}
	}
}

func (w *IndexWorker) apply(ctx context.Context, ev *model.Outbox) error {
	switch ev.Op {
	case model.OutboxOpIndex:
		p, err := w.posts.GetByID(ctx, ev.PostID)
		if errors.Is(err, repository.ErrNotFound) {
			// 帖子已被删除，索引以帖子表为准
			return w.backend.Remove(ctx, ev.PostID)
		}
		if err != nil {
			return err
		}
		return w.backend.Index(ctx, p.ID, p.Body, p.CreatedAt)
	case model.OutboxOpRemove:
		return w.backend.Remove(ctx, ev.PostID)
	default:
		logger.Warn("unknown outbox op, skipping", zap.String("op", ev.Op), zap.String("outbox_id", ev.ID))
		return nil
	}
}
