package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
)

// 帖子统一排序：新的在前，同一时间戳按 id 倒序
const postOrder = "created_at DESC, id DESC"

type PostRepository interface {
	WithTx(tx *gorm.DB) PostRepository
	Create(ctx context.Context, p *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	// GetByIDs 批量读取，缺失的 id 直接忽略
	GetByIDs(ctx context.Context, ids []string) (map[string]*model.Post, error)
	Delete(ctx context.Context, id string) error
	// ListByAuthor limit <= 0 表示不分页
	ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Post, error)
	// Feed 一条语句关联 follows 与 posts，取 userID 关注的所有作者（含自己）的帖子
	Feed(ctx context.Context, userID string, offset, limit int) ([]*model.Post, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) WithTx(tx *gorm.DB) PostRepository { return &postRepository{db: tx} }

func (r *postRepository) Create(ctx context.Context, p *model.Post) error {
	return translate(r.db.WithContext(ctx).Create(p).Error)
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*model.Post, error) {
	var p model.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *postRepository) GetByIDs(ctx context.Context, ids []string) (map[string]*model.Post, error) {
	out := make(map[string]*model.Post, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []*model.Post
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = p
	}
	return out, nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Post{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]*model.Post, error) {
	q := r.db.WithContext(ctx).Where("author_id = ?", authorID).Order(postOrder)
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	res := []*model.Post{}
	err := q.Find(&res).Error
	return res, err
}

func (r *postRepository) Feed(ctx context.Context, userID string, offset, limit int) ([]*model.Post, error) {
	res := []*model.Post{}
	err := r.db.WithContext(ctx).
		Select("posts.*").
		Joins("JOIN follows ON follows.followee_id = posts.author_id").
		Where("follows.follower_id = ?", userID).
		Order("posts.created_at DESC, posts.id DESC").
		Offset(offset).Limit(limit).
		Find(&res).Error
	return res, err
}
