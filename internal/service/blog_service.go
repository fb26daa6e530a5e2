package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/clock"
)

// BlogPage 分页结果
type BlogPage struct {
	Items   []*model.Blog `json:"items"`
	Page    int           `json:"page"`
	Size    int           `json:"size"`
	HasMore bool          `json:"has_more"`
}

type BlogService interface {
	CreateBlog(ctx context.Context, authorID, title, content string) (*model.Blog, error)
	// ListBlogs 新的在前，超出范围返回空页
	ListBlogs(ctx context.Context, authorID string, page int) (*BlogPage, error)
}

type blogService struct {
	users    repository.UserRepository
	blogs    repository.BlogRepository
	clock    clock.Clock
	pageSize int
}

func NewBlogService(users repository.UserRepository, blogs repository.BlogRepository, clk clock.Clock, pageSize int) BlogService {
	if pageSize <= 0 {
		pageSize = 10
	}
	return &blogService{users: users, blogs: blogs, clock: clk, pageSize: pageSize}
}

func (s *blogService) CreateBlog(ctx context.Context, authorID, title, content string) (*model.Blog, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(content) == "" || len([]rune(title)) > 200 {
		return nil, ErrInvalidBlog
	}
	if _, err := s.users.GetByID(ctx, authorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	b := &model.Blog{
		ID:        uuid.New().String(),
		AuthorID:  authorID,
		Title:     title,
		Content:   content,
		CreatedAt: s.clock.Now(),
	}
	if err := s.blogs.Create(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *blogService) ListBlogs(ctx context.Context, authorID string, page int) (*BlogPage, error) {
	if page < 1 {
		return nil, ErrInvalidPage
	}
	offset, limit, ok := pageWindow(page, s.pageSize)
	if !ok {
		return &BlogPage{Items: []*model.Blog{}, Page: page, Size: s.pageSize}, nil
	}
	rows, err := s.blogs.ListByAuthor(ctx, authorID, offset, limit)
	if err != nil {
		return nil, err
	}
	hasMore := len(rows) > s.pageSize
	if hasMore {
		rows = rows[:s.pageSize]
	}
	if rows == nil {
		rows = []*model.Blog{}
	}
	return &BlogPage{Items: rows, Page: page, Size: s.pageSize, HasMore: hasMore}, nil
}
