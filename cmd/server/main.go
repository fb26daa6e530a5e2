package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/api"
	"github.com/d60-Lab/microblog/internal/api/handler"
	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/notify"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/search"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/clock"
	"github.com/d60-Lab/microblog/pkg/database"
	"github.com/d60-Lab/microblog/pkg/jwt"
	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/tracing"
)

const shutdownTimeout = 10 * time.Second

// @title Microblog API
// @version 1.0
// @description 关注关系、时间线与全文检索
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.Sentry.DSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.Sentry.DSN, Environment: cfg.Sentry.Environment}); err != nil {
			logger.Warn("sentry init failed", zap.Error(err))
		}
		defer sentry.Flush(2 * time.Second)
	}

	ctx := context.Background()
	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing)
	if err != nil {
		logger.Fatal("init tracing", zap.Error(err))
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("connect redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer rdb.Close()
	}

	backend, err := search.Open(ctx, cfg, db)
	if err != nil {
		logger.Fatal("open search backend", zap.Error(err))
	}

	sink, reader, closeSink, err := buildSink(cfg, rdb)
	if err != nil {
		logger.Fatal("build notify sink", zap.Error(err))
	}
	defer closeSink()
	dispatcher := notify.NewDispatcher(sink, cfg.Notify.QueueSize)
	stopDispatcher := dispatcher.Start(cfg.Notify.Workers)

	clk := clock.Real()
	users := repository.NewUserRepository(db)
	follows := repository.NewFollowRepository(db)
	posts := repository.NewPostRepository(db)
	outbox := repository.NewOutboxRepository(db)

	var followingCache *cache.FollowingCache
	if rdb != nil {
		followingCache = cache.NewFollowingCache(rdb, cfg.Redis.TTL)
	}

	identity := service.NewIdentityService(db, users, follows, clk)
	worker := service.NewIndexWorker(outbox, posts, backend, clk, cfg.Search.IndexWorkers, cfg.Search.ClaimLimit, cfg.Search.PollInterval, cfg.Search.ClaimLease)
	stopWorker := worker.Start()

	tokens := jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, "microblog")
	h := handler.New(handler.Deps{
		Identity:       identity,
		Relations:      service.NewRelationshipService(db, users, follows, followingCache, dispatcher, clk),
		Posts:          service.NewPostService(db, users, posts, outbox, clk, cfg.Post.MaxLength),
		Feed:           service.NewFeedService(posts, cfg.Feed.PostsPerPage),
		Search:         service.NewSearchService(backend, users, posts, cfg.Search.MaxResults),
		Blogs:          service.NewBlogService(users, repository.NewBlogRepository(db), clk, cfg.Feed.PostsPerPage),
		Tokens:         tokens,
		Notifications:  reader,
		ProviderSecret: cfg.Auth.ProviderSecret,
	})
	router := api.NewRouter(h, api.Options{
		Mode:           cfg.Server.Mode,
		ServiceName:    cfg.Tracing.ServiceName,
		Tokens:         tokens,
		Users:          identity,
		PostsPerSecond: cfg.RateLimit.PostsPerSecond,
		PostBurst:      cfg.RateLimit.Burst,
	})

	srv := &http.Server{Addr: cfg.Server.Addr(), Handler: router}
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("search_backend", cfg.Search.Backend), zap.String("notify_sink", cfg.Notify.Sink))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	if err := stopWorker(sctx); err != nil {
		logger.Warn("index worker did not stop in time", zap.Error(err))
	}
	if err := stopDispatcher(sctx); err != nil {
		logger.Warn("notify dispatcher did not drain in time", zap.Int("pending", dispatcher.QueueLen()), zap.Error(err))
	}
	if err := shutdownTracing(sctx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}

// buildSink 按 notify.sink 组装落地端；日志始终保留
func buildSink(cfg *config.Config, rdb *redis.Client) (notify.Sink, handler.NotificationReader, func(), error) {
	noop := func() {}
	switch cfg.Notify.Sink {
	case "redis":
		if rdb == nil {
			return nil, nil, noop, errors.New("notify.sink=redis requires redis.addr")
		}
		rs := notify.NewRedisSink(rdb, 0)
		return notify.MultiSink{notify.LogSink{}, rs}, rs, noop, nil
	case "kafka":
		if len(cfg.Notify.KafkaBrokers) == 0 {
			return nil, nil, noop, errors.New("notify.sink=kafka requires notify.kafka_brokers")
		}
		ks := notify.NewKafkaSink(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic)
		closeFn := func() {
			if err := ks.Close(); err != nil {
				logger.Warn("close kafka writer", zap.Error(err))
			}
		}
		return notify.MultiSink{notify.LogSink{}, ks}, nil, closeFn, nil
	default:
		return notify.LogSink{}, nil, noop, nil
	}
}
