package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T) (*FollowingCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFollowingCache(client, time.Minute), mr
}

func TestFollowingCache_SetGet(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	_, err := c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "u1", []string{"a", "b", "u1"}))
	ids, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "u1"}, ids)
	assert.Equal(t, time.Minute, mr.TTL("following:index:u1"))

	require.NoError(t, c.Set(ctx, "u1", []string{"u1"}))
	ids, err = c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u1"}, ids)
}

func TestFollowingCache_EmptyList(t *testing.T) {
	c, _ := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ghost", nil))
	ids, err := c.Get(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFollowingCache_InvalidateAndExpire(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "u1", []string{"u1"}))
	require.NoError(t, c.Invalidate(ctx, "u1"))
	_, err := c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "u1", []string{"u1"}))
	mr.FastForward(2 * time.Minute)
	_, err = c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestFollowingCache_NilIsNoop(t *testing.T) {
	var c *FollowingCache
	ctx := context.Background()
	assert.Nil(t, NewFollowingCache(nil, time.Minute))
	_, err := c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrMiss)
	assert.NoError(t, c.Set(ctx, "u1", []string{"a"}))
	assert.NoError(t, c.Invalidate(ctx, "u1"))
	ver, err := c.Version(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, ver)
	assert.NoError(t, c.SetIfVersion(ctx, "u1", nil, ver))
}

func TestFollowingCache_SetIfVersionRejectsStaleFill(t *testing.T) {
	c, mr := newCache(t)
	ctx := context.Background()

	ver, err := c.Version(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, ver)

	// invalidated while the caller was loading from the database
	require.NoError(t, c.Invalidate(ctx, "u1"))
	assert.ErrorIs(t, c.SetIfVersion(ctx, "u1", []string{"u1"}, ver), ErrStale)
	_, err = c.Get(ctx, "u1")
	assert.ErrorIs(t, err, ErrMiss)

	ver, err = c.Version(ctx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 1, ver)
	require.NoError(t, c.SetIfVersion(ctx, "u1", []string{"a", "u1"}, ver))
	ids, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "u1"}, ids)
	assert.Equal(t, time.Minute, mr.TTL("following:ver:u1"))

	// an expired version key reads as 0 and still rejects the old version
	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.SetIfVersion(ctx, "u1", []string{"u1"}, ver), ErrStale)
}
