// Package notify 在关注边创建后异步通知被关注者
package notify

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/pkg/logger"
)

// FollowEvent 新关注边事件
type FollowEvent struct {
	FollowID   string    `json:"follow_id"`
	FollowerID string    `json:"follower_id"`
	FolloweeID string    `json:"followee_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sink 通知落地端
type Sink interface {
	Notify(ctx context.Context, ev FollowEvent) error
}

// LogSink 只写日志
type LogSink struct{}

func (LogSink) Notify(_ context.Context, ev FollowEvent) error {
	logger.Info("new follower",
		zap.String("follower_id", ev.FollowerID),
		zap.String("followee_id", ev.FolloweeID),
		zap.Time("created_at", ev.CreatedAt))
	return nil
}

// MultiSink 依次投递到所有 sink，汇总错误
type MultiSink []Sink

func (m MultiSink) Notify(ctx context.Context, ev FollowEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
