package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	events []FollowEvent
	err    error
}

func (s *recordingSink) Notify(_ context.Context, ev FollowEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

type blockingSink struct{ release chan struct{} }

func (s *blockingSink) Notify(ctx context.Context, _ FollowEvent) error {
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return nil
}

func TestDispatcher_DeliversEachEventOnce(t *testing.T) {
	sink := &recordingSink{}
	d := NewDispatcher(sink, 100)
	stop := d.Start(3)

	for i := 0; i < 50; i++ {
		d.Enqueue(FollowEvent{FollowerID: "a", FolloweeID: "b"})
	}
	require.NoError(t, stop(context.Background()))
	assert.Equal(t, 50, sink.count())
}

func TestDispatcher_SinkFailureIsSwallowed(t *testing.T) {
	sink := &recordingSink{err: errors.New("down")}
	d := NewDispatcher(sink, 10)
	stop := d.Start(1)

	d.Enqueue(FollowEvent{FollowerID: "a", FolloweeID: "b"})
	require.NoError(t, stop(context.Background()))
	assert.Equal(t, 1, sink.count())
}

func TestDispatcher_DropsWhenFull(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	d := NewDispatcher(sink, 1)

	d.Enqueue(FollowEvent{FolloweeID: "1"})
	d.Enqueue(FollowEvent{FolloweeID: "2"})
	assert.Equal(t, 1, d.QueueLen())

	stop := d.Start(1)
	close(sink.release)
	require.NoError(t, stop(context.Background()))
	assert.Equal(t, 0, d.QueueLen())
}

func TestDispatcher_StopHonoursContext(t *testing.T) {
	sink := &blockingSink{release: make(chan struct{})}
	defer close(sink.release)
	d := NewDispatcher(sink, 10)
	stop := d.Start(1)
	d.Enqueue(FollowEvent{FolloweeID: "1"})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, stop(ctx), context.DeadlineExceeded)
}

func TestMultiSink(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{err: errors.New("b failed")}
	err := MultiSink{a, b, LogSink{}}.Notify(context.Background(), FollowEvent{FolloweeID: "x"})
	assert.ErrorContains(t, err, "b failed")
	assert.Equal(t, 1, a.count())
	assert.Equal(t, 1, b.count())
}

func TestRedisSink(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	sink := NewRedisSink(rdb, time.Hour)
	ctx := context.Background()

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, sink.Notify(ctx, FollowEvent{FollowerID: "a", FolloweeID: "b", CreatedAt: at}))
	require.NoError(t, sink.Notify(ctx, FollowEvent{FollowerID: "c", FolloweeID: "b", CreatedAt: at}))

	list, err := sink.List(ctx, "b", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c", list[0].FollowerID)
	assert.Equal(t, "a", list[1].FollowerID)
	assert.Equal(t, time.Hour, mr.TTL("notify:b"))
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { w.closed = true; return nil }

func TestKafkaSink(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{writer: w}

	require.NoError(t, sink.Notify(context.Background(), FollowEvent{FollowID: "f1", FollowerID: "a", FolloweeID: "b"}))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "b", string(w.msgs[0].Key))

	var ev FollowEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, "f1", ev.FollowID)

	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}
