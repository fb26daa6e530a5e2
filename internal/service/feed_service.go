package service

import (
	"context"

	"github.com/d60-Lab/microblog/internal/repository"
)

// FeedService 聚合关注对象（含自己）的帖子，读路径直接查帖子表，没有索引延迟
type FeedService interface {
	// Feed 超出范围的页返回空页，未知用户同样返回空页
	Feed(ctx context.Context, userID string, page, pageSize int) (*PostPage, error)
	FeedDefault(ctx context.Context, userID string, page int) (*PostPage, error)
}

type feedService struct {
	posts        repository.PostRepository
	postsPerPage int
}

func NewFeedService(posts repository.PostRepository, postsPerPage int) FeedService {
	if postsPerPage <= 0 {
		postsPerPage = 10
	}
	return &feedService{posts: posts, postsPerPage: postsPerPage}
}

func (s *feedService) Feed(ctx context.Context, userID string, page, pageSize int) (*PostPage, error) {
	if page < 1 || pageSize < 1 {
		return nil, ErrInvalidPage
	}
	offset, limit, ok := pageWindow(page, pageSize)
	if !ok {
		return newPostPage(nil, page, pageSize), nil
	}
	// 关注集合与帖子在同一条语句里 join，结果对应同一快照
	rows, err := s.posts.Feed(ctx, userID, offset, limit)
	if err != nil {
		return nil, err
	}
	return newPostPage(rows, page, pageSize), nil
}

func (s *feedService) FeedDefault(ctx context.Context, userID string, page int) (*PostPage, error) {
	return s.Feed(ctx, userID, page, s.postsPerPage)
}
