// feedbench 测量发帖事务延迟、索引落地延迟以及时间线与搜索读取延迟
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/search"
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

func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		panic(err)
	}

	AUTHORS := envInt("AUTHORS", 200) // 读者关注的作者数
	POSTS := envInt("POSTS", 20)      // 每个作者的帖子数
	WORKERS := envInt("WORKERS", cfg.Search.IndexWorkers)
	CLAIM := envInt("CLAIM", cfg.Search.ClaimLimit)
	PAGE := envInt("PAGE", cfg.Feed.PostsPerPage)

	ctx := context.Background()
	clk := clock.Real()
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)
	outbox := repository.NewOutboxRepository(db)
	backend := must(search.Open(ctx, cfg, db))

	identity := service.NewIdentityService(db, users, follows, clk)
	relSvc := service.NewRelationshipService(db, users, follows, nil, nil, clk)
	postSvc := service.NewPostService(db, users, posts, outbox, clk, cfg.Post.MaxLength)
	feedSvc := service.NewFeedService(posts, cfg.Feed.PostsPerPage)
	searchSvc := service.NewSearchService(backend, users, posts, cfg.Search.MaxResults)

	tag := uuid.New().String()[:8]
	reader, _, err := identity.RegisterOrGetUser(ctx, "reader-"+tag+"@example.com", "reader"+tag)
	if err != nil {
		panic(err)
	}
	authors := make([]*model.User, AUTHORS)
	for i := range authors {
		u, _, err := identity.RegisterOrGetUser(ctx, fmt.Sprintf("author%d-%s@example.com", i, tag), fmt.Sprintf("author%d%s", i, tag))
		if err != nil {
			panic(err)
		}
		authors[i] = u
		must(relSvc.Follow(ctx, reader.ID, u.ID))
	}

	worker := service.NewIndexWorker(outbox, posts, backend, clk, WORKERS, CLAIM, 20*time.Millisecond, cfg.Search.ClaimLease)
	stop := worker.Start()

	pubDurations := make([]time.Duration, 0, AUTHORS*POSTS)
	for p := 0; p < POSTS; p++ {
		for _, a := range authors {
			st := time.Now()
			must(postSvc.CreatePost(ctx, a.ID, fmt.Sprintf("bench %s post %d by %s", tag, p, a.Nickname)))
			pubDurations = append(pubDurations, time.Since(st))
		}
	}

	// 等待 outbox 清空
	drainStart := time.Now()
	deadline := time.After(2 * time.Minute)
WAIT:
	for {
		select {
		case <-deadline:
			fmt.Println("timeout while waiting for index worker")
			break WAIT
		case <-time.After(50 * time.Millisecond):
			if n, err := outbox.CountPending(ctx); err == nil && n == 0 {
				break WAIT
			}
		}
	}
	drainDur := time.Since(drainStart)
	_ = stop(context.Background())

	var pubSum time.Duration
	for _, d := range pubDurations {
		pubSum += d
	}
	fmt.Printf("AUTHORS=%d POSTS=%d WORKERS=%d CLAIM=%d PAGE=%d backend=%s\n", AUTHORS, POSTS, WORKERS, CLAIM, PAGE, cfg.Search.Backend)
	fmt.Printf("Publish tx latency: avg=%v p95=%v p99=%v\n",
		pubSum/time.Duration(len(pubDurations)), pct(pubDurations, 0.95), pct(pubDurations, 0.99))
	fmt.Printf("Index drain after last publish: %v\n", drainDur)

	feedLat := make([]time.Duration, 0, 5)
	for page := 1; page <= 5; page++ {
		st := time.Now()
		res, err := feedSvc.Feed(ctx, reader.ID, page, PAGE)
		if err != nil {
			panic(err)
		}
		feedLat = append(feedLat, time.Since(st))
		if page == 1 {
			fmt.Printf("Feed page 1: items=%d has_more=%v\n", len(res.Items), res.HasMore)
		}
	}
	fmt.Printf("Feed read (limit=%d, pages 1-5): p50=%v max=%v\n", PAGE, pct(feedLat, 0.50), pct(feedLat, 1))

	st := time.Now()
	hits, err := searchSvc.Search(ctx, "bench "+tag, cfg.Search.MaxResults)
	if err != nil {
		panic(err)
	}
	fmt.Printf("Search read: %v, hits=%d\n", time.Since(st), len(hits))
}
