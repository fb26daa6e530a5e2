// reindex 清空搜索索引并从帖子表重建
package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/search"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/database"
	"github.com/d60-Lab/microblog/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("init database", zap.Error(err))
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		logger.Fatal("migrate database", zap.Error(err))
	}

	ctx := context.Background()
	backend, err := search.Open(ctx, cfg, db)
	if err != nil {
		logger.Fatal("open search backend", zap.Error(err))
	}

	svc := service.NewSearchService(backend, repository.NewUserRepository(db), repository.NewPostRepository(db), cfg.Search.MaxResults)
	start := time.Now()
	n, err := svc.Rebuild(ctx)
	if err != nil {
		logger.Fatal("rebuild search index", zap.Int64("indexed", n), zap.Error(err))
	}
	logger.Info("reindex finished", zap.String("backend", cfg.Search.Backend), zap.Int64("posts", n), zap.Duration("took", time.Since(start)))
}
