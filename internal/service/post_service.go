package service

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/clock"
	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/metrics"
)

// PostPage 分页结果
type PostPage struct {
	Items   []*model.Post `json:"items"`
	Page    int           `json:"page"`
	Size    int           `json:"size"`
	HasMore bool          `json:"has_more"`
}

// PostService 帖子存储；写帖子与写搜索索引事件在同一事务内
type PostService interface {
	CreatePost(ctx context.Context, authorID, body string) (*model.Post, error)
	DeletePost(ctx context.Context, postID, requesterID string) error
	GetPost(ctx context.Context, postID string) (*model.Post, error)
	// PostsByAuthor 新的在前（created_at desc, id desc）
	PostsByAuthor(ctx context.Context, authorID string) ([]*model.Post, error)
	PostsByAuthorPage(ctx context.Context, authorID string, page, size int) (*PostPage, error)
}

type postService struct {
	db        *gorm.DB
	users     repository.UserRepository
	posts     repository.PostRepository
	outbox    repository.OutboxRepository
	clock     clock.Clock
	maxLength int
}

func NewPostService(db *gorm.DB, users repository.UserRepository, posts repository.PostRepository, outbox repository.OutboxRepository, clk clock.Clock, maxLength int) PostService {
	if maxLength <= 0 {
		maxLength = 140
	}
	return &postService{db: db, users: users, posts: posts, outbox: outbox, clock: clk, maxLength: maxLength}
}

func (s *postService) CreatePost(ctx context.Context, authorID, body string) (*model.Post, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}
	if utf8.RuneCountInString(body) > s.maxLength {
		return nil, ErrBodyTooLong
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	// postgres 只保留到微秒
	now := s.clock.Now().Truncate(time.Microsecond)
	post := &model.Post{ID: id.String(), AuthorID: authorID, Body: body, CreatedAt: now}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.users.WithTx(tx).Exists(ctx, authorID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUserNotFound
		}
		if err := s.posts.WithTx(tx).Create(ctx, post); err != nil {
			return err
		}
		_, err = s.outbox.WithTx(tx).Enqueue(ctx, post.ID, authorID, model.OutboxOpIndex, now)
		return err
	})
	metrics.PostOps.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}
	logger.Debug("post created", zap.String("post_id", post.ID), zap.String("author_id", authorID))
	return post, nil
}

func (s *postService) DeletePost(ctx context.Context, postID, requesterID string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		posts := s.posts.WithTx(tx)
		p, err := posts.GetByID(ctx, postID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		if p.AuthorID != requesterID {
			return ErrForbidden
		}
		if err := posts.Delete(ctx, postID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPostNotFound
			}
			return err
		}
		_, err = s.outbox.WithTx(tx).Enqueue(ctx, postID, p.AuthorID, model.OutboxOpRemove, s.clock.Now())
		return err
	})
	metrics.PostOps.WithLabelValues("delete", metrics.Result(err)).Inc()
	return err
}

func (s *postService) GetPost(ctx context.Context, postID string) (*model.Post, error) {
	p, err := s.posts.GetByID(ctx, postID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPostNotFound
	}
	return p, err
}

func (s *postService) PostsByAuthor(ctx context.Context, authorID string) ([]*model.Post, error) {
	return s.posts.ListByAuthor(ctx, authorID, 0, 0)
}

func (s *postService) PostsByAuthorPage(ctx context.Context, authorID string, page, size int) (*PostPage, error) {
	if page < 1 || size < 1 {
		return nil, ErrInvalidPage
	}
	offset, limit, ok := pageWindow(page, size)
	if !ok {
		return newPostPage(nil, page, size), nil
	}
	rows, err := s.posts.ListByAuthor(ctx, authorID, offset, limit)
	if err != nil {
		return nil, err
	}
	return newPostPage(rows, page, size), nil
}

// newPostPage rows 多取一条用于判断 HasMore
func newPostPage(rows []*model.Post, page, size int) *PostPage {
	hasMore := len(rows) > size
	if hasMore {
		rows = rows[:size]
	}
	if rows == nil {
		rows = []*model.Post{}
	}
	return &PostPage{Items: rows, Page: page, Size: size, HasMore: hasMore}
}
