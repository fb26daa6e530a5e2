package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrMiss cache miss.
	ErrMiss = errors.New("cache miss")
	// ErrStale the entry was invalidated after the caller read its version.
	ErrStale = errors.New("cache version changed")
)

// emptyMarker stands in for an empty list, which Redis cannot store.
const emptyMarker = "-"

// FollowingCache stores each user's sorted followee id list as a Redis list.
// Entries are invalidated after every follow/unfollow commit and repopulated on the next read.
type FollowingCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewFollowingCache returns nil when client is nil; all methods are nil-safe.
func NewFollowingCache(client *redis.Client, ttl time.Duration) *FollowingCache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FollowingCache{client: client, ttl: ttl}
}

func followingKey(userID string) string { return fmt.Sprintf("following:index:%s", userID) }

func versionKey(userID string) string { return fmt.Sprintf("following:ver:%s", userID) }

// Version returns the invalidation generation for userID; 0 if never invalidated.
// Read it before loading from the database and pass it to SetIfVersion.
func (c *FollowingCache) Version(ctx context.Context, userID string) (int64, error) {
	if c == nil {
		return 0, nil
	}
	return readVersion(ctx, c.client, userID)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readVersion(ctx context.Context, cmd getter, userID string) (int64, error) {
	ver, err := cmd.Get(ctx, versionKey(userID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

// Get returns the cached ids or ErrMiss.
func (c *FollowingCache) Get(ctx context.Context, userID string) ([]string, error) {
	if c == nil {
		return nil, ErrMiss
	}
	ids, err := c.client.LRange(ctx, followingKey(userID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, ErrMiss
	}
	if len(ids) == 1 && ids[0] == emptyMarker {
		return []string{}, nil
	}
	return ids, nil
}

// Set replaces the list in one pipeline.
func (c *FollowingCache) Set(ctx context.Context, userID string, ids []string) error {
	if c == nil {
		return nil
	}
	pipe := c.client.TxPipeline()
	c.queueSet(ctx, pipe, userID, ids)
	_, err := pipe.Exec(ctx)
	return err
}

// SetIfVersion writes the list only if no Invalidate happened since ver was read.
// Returns ErrStale otherwise, leaving the newer state untouched.
func (c *FollowingCache) SetIfVersion(ctx context.Context, userID string, ids []string, ver int64) error {
	if c == nil {
		return nil
	}
	err := c.client.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := readVersion(ctx, tx, userID)
		if err != nil {
			return err
		}
		if cur != ver {
			return ErrStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			c.queueSet(ctx, pipe, userID, ids)
			return nil
		})
		return err
	}, versionKey(userID))
	if errors.Is(err, redis.TxFailedErr) {
		return ErrStale
	}
	return err
}

func (c *FollowingCache) queueSet(ctx context.Context, pipe redis.Pipeliner, userID string, ids []string) {
	key := followingKey(userID)
	values := interfaceSlice(ids)
	if len(values) == 0 {
		values = []interface{}{emptyMarker}
	}
	pipe.Del(ctx, key)
	pipe.RPush(ctx, key, values...)
	pipe.Expire(ctx, key, c.ttl)
}

// Invalidate drops the entry for userID and bumps its version so that
// in-flight SetIfVersion calls holding the old version are rejected.
func (c *FollowingCache) Invalidate(ctx context.Context, userID string) error {
	if c == nil {
		return nil
	}
	pipe := c.client.TxPipeline()
	pipe.Incr(ctx, versionKey(userID))
	// an expired version reads as 0, which never matches a bumped one
	pipe.Expire(ctx, versionKey(userID), c.ttl)
	pipe.Del(ctx, followingKey(userID))
	_, err := pipe.Exec(ctx)
	return err
}

func interfaceSlice(strs []string) []interface{} {
	result := make([]interface{}, len(strs))
	for i, s := range strs {
		result[i] = s
	}
	return result
}
