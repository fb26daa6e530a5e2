package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
)

type BlogRepository interface {
	Create(ctx context.Context, b *model.Blog) error
	ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Blog, error)
}

type blogRepository struct{ db *gorm.DB }

func NewBlogRepository(db *gorm.DB) BlogRepository { return &blogRepository{db: db} }

func (r *blogRepository) Create(ctx context.Context, b *model.Blog) error {
	return translate(r.db.WithContext(ctx).Create(b).Error)
}

func (r *blogRepository) ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Blog, error) {
	res := []*model.Blog{}
	err := r.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}
