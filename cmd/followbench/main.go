// followbench 测量关注写入延迟、通知投递积压和关注/粉丝列表查询延迟
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/notify"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/clock"
	"github.com/d60-Lab/microblog/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// countingSink 记录通知从入队到落地的延迟
type countingSink struct {
	delivered atomic.Int64
	mu        sync.Mutex
	landing   []time.Duration
}

func (s *countingSink) Notify(_ context.Context, ev notify.FollowEvent) error {
	s.delivered.Add(1)
	s.mu.Lock()
	s.landing = append(s.landing, time.Since(ev.CreatedAt))
	s.mu.Unlock()
	return nil
}

// seedUsers 批量写入用户及其自关注边
func seedUsers(ctx context.Context, follows repository.FollowRepository, users repository.UserRepository, n int) []string {
	ids := make([]string, n)
	now := time.Now().UTC()
	for i := 0; i < n; i++ {
		id := uuid.New().String()
		u := &model.User{ID: id, Nickname: "u" + id[:12], Email: id[:12] + "@example.com", LastSeen: now, CreatedAt: now}
		if err := users.Create(ctx, u); err != nil {
			panic(err)
		}
		must(follows.Create(ctx, id, id, now))
		ids[i] = id
	}
	return ids
}

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	N := envInt("N", 10000)
	CONC := envInt("CONC", 1)
	PAGE := envInt("PAGE", 50)

	ctx := context.Background()
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)

	sink := &countingSink{}
	dispatcher := notify.NewDispatcher(sink, N)
	stop := dispatcher.Start(cfg.Notify.Workers)
	relSvc := service.NewRelationshipService(db, users, follows, nil, dispatcher, clock.Real())

	// u0 为大 V，其余用户都关注它
	celeb := seedUsers(ctx, follows, users, 1)[0]
	fans := seedUsers(ctx, follows, users, N)

	maxQ := 0
	quitSample := make(chan struct{})
	go func() {
		ticker := time.NewTicker(50 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if q := dispatcher.QueueLen(); q > maxQ {
					maxQ = q
				}
			case <-quitSample:
				return
			}
		}
	}()

	workers := CONC
	if workers > N {
		workers = N
	}
	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)

	lat := make(chan time.Duration, N)
	var failed atomic.Int64
	var wg sync.WaitGroup
	t0 := time.Now()
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				if _, err := relSvc.Follow(ctx, fans[i], celeb); err != nil {
					failed.Add(1)
				}
				lat <- time.Since(st)
			}
		}()
	}
	wg.Wait()
	close(lat)
	followDur := time.Since(t0)
	close(quitSample)
	recs := make([]time.Duration, 0, N)
	for d := range lat {
		recs = append(recs, d)
	}

	drainStart := time.Now()
	_ = stop(context.Background())
	drainDur := time.Since(drainStart)

	q0 := time.Now()
	_, _ = relSvc.ListFollowers(ctx, celeb, 1, PAGE)
	followersDur := time.Since(q0)

	q1 := time.Now()
	_, _ = relSvc.ListFollowing(ctx, fans[0], 1, PAGE)
	followingDur := time.Since(q1)

	q2 := time.Now()
	counts, _ := relSvc.Counts(ctx, celeb)
	countDur := time.Since(q2)

	fmt.Printf("N=%d, CONC=%d, PAGE=%d, driver=%s\n", N, CONC, PAGE, cfg.Database.Driver)
	fmt.Printf("Follow latency total: %v, per op: %v, p50: %v, p95: %v, p99: %v, failed: %d\n",
		followDur, followDur/time.Duration(N), pct(recs, 0.50), pct(recs, 0.95), pct(recs, 0.99), failed.Load())
	fmt.Printf("Query followers(%d) latency: %v\n", PAGE, followersDur)
	fmt.Printf("Query following(%d) latency: %v\n", PAGE, followingDur)
	if counts != nil {
		fmt.Printf("Counts latency: %v (followers=%d)\n", countDur, counts.Followers)
	}
	sink.mu.Lock()
	landing := append([]time.Duration(nil), sink.landing...)
	sink.mu.Unlock()
	fmt.Printf("Notify landing: delivered=%d, p50=%v, p95=%v, p99=%v, maxQueue=%d, drain=%v\n",
		sink.delivered.Load(), pct(landing, 0.50), pct(landing, 0.95), pct(landing, 0.99), maxQ, drainDur)
}
