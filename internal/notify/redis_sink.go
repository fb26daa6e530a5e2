package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSink 把事件压入被关注者的通知列表 notify:<followee_id>
type RedisSink struct {
	rdb *redis.Client
	ttl time.Duration
	max int64
}

func NewRedisSink(rdb *redis.Client, ttl time.Duration) *RedisSink {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &RedisSink{rdb: rdb, ttl: ttl, max: 200}
}

func notifyKey(userID string) string { return fmt.Sprintf("notify:%s", userID) }

func (s *RedisSink) Notify(ctx context.Context, ev FollowEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	key := notifyKey(ev.FolloweeID)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, b)
	pipe.LTrim(ctx, key, 0, s.max-1)
	pipe.Expire(ctx, key, s.ttl)
	_, err = pipe.Exec(ctx)
	return err
}

// List 读取最近的通知，新的在前
func (s *RedisSink) List(ctx context.Context, userID string, limit int64) ([]FollowEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	vals, err := s.rdb.LRange(ctx, notifyKey(userID), 0, limit-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]FollowEvent, 0, len(vals))
	for _, v := range vals {
		var ev FollowEvent
		if json.Unmarshal([]byte(v), &ev) == nil {
			out = append(out, ev)
		}
	}
	return out, nil
}
