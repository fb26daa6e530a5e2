package service

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/search"
	"github.com/d60-Lab/microblog/pkg/logger"
)

const (
	rebuildConcurrency    = 4
	searchOverfetchRounds = 3
)

// SearchService 全文检索；索引异步维护，刚发布的帖子可能短暂搜不到
type SearchService interface {
	// Search 空查询返回空结果；结果按时间倒序，最多 maxResults 条
	Search(ctx context.Context, query string, maxResults int) ([]*model.Post, error)
	// Rebuild 清空索引并按作者重放全部帖子，返回写入条数
	Rebuild(ctx context.Context) (int64, error)
}

type searchService struct {
	backend    search.Backend
	users      repository.UserRepository
	posts      repository.PostRepository
	maxResults int
}

func NewSearchService(backend search.Backend, users repository.UserRepository, posts repository.PostRepository, maxResults int) SearchService {
	if maxResults <= 0 {
		maxResults = 50
	}
	return &searchService{backend: backend, users: users, posts: posts, maxResults: maxResults}
}

func (s *searchService) Search(ctx context.Context, query string, maxResults int) ([]*model.Post, error) {
	if len(search.Tokenize(query)) == 0 {
		return []*model.Post{}, nil
	}
	if maxResults <= 0 || maxResults > s.maxResults {
		maxResults = s.maxResults
	}
	// 索引里残留但帖子已删除的条目不计入 maxResults，结果不足时加大取数重查
	fetch := maxResults
	for round := 0; ; round++ {
		ids, err := s.backend.Search(ctx, query, fetch)
		if err != nil {
			return nil, err
		}
		found, err := s.posts.GetByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
		out := make([]*model.Post, 0, min(len(ids), maxResults))
		for _, id := range ids {
			if p, ok := found[id]; ok {
				out = append(out, p)
				if len(out) == maxResults {
					break
				}
			}
		}
		if len(out) == maxResults || len(ids) < fetch || round == searchOverfetchRounds {
			return out, nil
		}
		fetch *= 2
	}
}

func (s *searchService) Rebuild(ctx context.Context) (int64, error) {
	if err := s.backend.Reset(ctx); err != nil {
		return 0, err
	}
	authors, err := s.users.ListIDs(ctx)
	if err != nil {
		return 0, err
	}

	var indexed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(rebuildConcurrency)
	for _, authorID := range authors {
		authorID := authorID
		g.Go(func() error {
			posts, err := s.posts.ListByAuthor(gctx, authorID, 0, 0)
			if err != nil {
				return err
			}
			for _, p := range posts {
				if err := s.backend.Index(gctx, p.ID, p.Body, p.CreatedAt); err != nil {
					return err
				}
				indexed.Add(1)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return indexed.Load(), err
	}
	logger.Info("search index rebuilt", zap.Int("authors", len(authors)), zap.Int64("posts", indexed.Load()))
	return indexed.Load(), nil
}
