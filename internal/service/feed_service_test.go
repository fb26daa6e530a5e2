package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeed_AliceScenario(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a := e.register(t, "a@example.com", "alice")
	b := e.register(t, "b@example.com", "alice")
	require.Equal(t, "alice2", b.Nickname)

	_, err := e.rel.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)

	e.clock.Advance(time.Second)
	p1 := e.post(t, a, "P1")
	e.clock.Advance(time.Second)
	p2 := e.post(t, a, "P2")
	e.clock.Advance(time.Second)
	p3 := e.post(t, b, "P3")

	page, err := e.feed.Feed(ctx, a.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID, p2.ID, p1.ID}, postIDs(page.Items))
	assert.False(t, page.HasMore)

	require.NoError(t, e.rel.Unfollow(ctx, a.ID, b.ID))
	page, err = e.feed.Feed(ctx, a.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{p2.ID, p1.ID}, postIDs(page.Items))

	// b 的 feed 只有自己的帖子
	page, err = e.feed.Feed(ctx, b.ID, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID}, postIDs(page.Items))
}

func TestFeed_DeterministicWithTimestampTies(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "a@example.com", "a")

	// 时钟不前进，所有帖子时间戳相同，按 id 倒序
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, e.post(t, a, "same time").ID)
	}

	first, err := e.feed.Feed(ctx, a.ID, 1, 5)
	require.NoError(t, err)
	second, err := e.feed.Feed(ctx, a.ID, 1, 5)
	require.NoError(t, err)
	assert.Equal(t, postIDs(first.Items), postIDs(second.Items))

	want := []string{ids[4], ids[3], ids[2], ids[1], ids[0]}
	assert.Equal(t, want, postIDs(first.Items))
}

func TestFeed_Pagination(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "a@example.com", "a")
	for i := 0; i < 5; i++ {
		e.clock.Advance(time.Second)
		e.post(t, a, "p")
	}

	page, err := e.feed.Feed(ctx, a.ID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 2)
	assert.True(t, page.HasMore)

	page, err = e.feed.Feed(ctx, a.ID, 3, 2)
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.False(t, page.HasMore)

	page, err = e.feed.Feed(ctx, a.ID, 4, 2)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)

	page, err = e.feed.Feed(ctx, a.ID, 1, 5)
	require.NoError(t, err)
	assert.Len(t, page.Items, 5)
	assert.False(t, page.HasMore)
}

func TestFeed_InvalidArgumentsAndUnknownUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.feed.Feed(ctx, "x", 0, 10)
	assert.ErrorIs(t, err, ErrInvalidPage)
	_, err = e.feed.Feed(ctx, "x", 1, 0)
	assert.ErrorIs(t, err, ErrInvalidPage)

	page, err := e.feed.Feed(ctx, "ghost", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.False(t, page.HasMore)
}

func TestFeedDefault_UsesConfiguredPageSize(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.register(t, "a@example.com", "a")
	for i := 0; i < 12; i++ {
		e.clock.Advance(time.Second)
		e.post(t, a, "p")
	}

	page, err := e.feed.FeedDefault(ctx, a.ID, 1)
	require.NoError(t, err)
	assert.Len(t, page.Items, 10)
	assert.Equal(t, 10, page.Size)
	assert.True(t, page.HasMore)
}
