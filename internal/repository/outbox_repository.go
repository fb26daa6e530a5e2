package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
)

type OutboxRepository interface {
	WithTx(tx *gorm.DB) OutboxRepository
	// Enqueue 写入一条 pending 事件，ID 为 UUIDv7，按 id 排序即写入顺序
	Enqueue(ctx context.Context, postID, authorID, op string, at time.Time) (*model.Outbox, error)
	// Claim 把最多 limit 条 pending 事件（以及认领已超过 lease 的 processing 事件）标为 processing 并返回（按写入顺序）
	Claim(ctx context.Context, limit int, at time.Time, lease time.Duration) ([]*model.Outbox, error)
	MarkDone(ctx context.Context, id string, at time.Time) error
	// Release 处理失败，退回 pending 等待下次认领
	Release(ctx context.Context, id string) error
	CountPending(ctx context.Context) (int64, error)
}

type outboxRepository struct{ db *gorm.DB }

func NewOutboxRepository(db *gorm.DB) OutboxRepository { return &outboxRepository{db: db} }

func (r *outboxRepository) WithTx(tx *gorm.DB) OutboxRepository { return &outboxRepository{db: tx} }

func (r *outboxRepository) Enqueue(ctx context.Context, postID, authorID, op string, at time.Time) (*model.Outbox, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	ev := &model.Outbox{
		ID:        id.String(),
		PostID:    postID,
		AuthorID:  authorID,
		Op:        op,
		Status:    model.OutboxPending,
		CreatedAt: at,
	}
	if err := r.db.WithContext(ctx).Create(ev).Error; err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *outboxRepository) Claim(ctx context.Context, limit int, at time.Time, lease time.Duration) ([]*model.Outbox, error) {
	token := uuid.New().String()
	expired := at.Add(-lease)
	// 条件更新 + 认领令牌，postgres 与 sqlite 通用；并发认领时外层条件保证一条事件只归一个 worker
	// worker 崩溃或中途失败留下的 processing 事件在租约过期后重新可认领
	res := r.db.WithContext(ctx).Exec(`
		UPDATE outbox SET status = ?, claim_token = ?, claimed_at = ?
		WHERE (status = ? OR (status = ? AND claimed_at < ?)) AND id IN (
			SELECT id FROM outbox
			WHERE status = ? OR (status = ? AND claimed_at < ?)
			ORDER BY id LIMIT ?
		)`,
		model.OutboxProcessing, token, at,
		model.OutboxPending, model.OutboxProcessing, expired,
		model.OutboxPending, model.OutboxProcessing, expired, limit)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}

	var batch []*model.Outbox
	if err := r.db.WithContext(ctx).
		Where("claim_token = ? AND status = ?", token, model.OutboxProcessing).
		Order("id ASC").
		Find(&batch).Error; err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *outboxRepository) MarkDone(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": model.OutboxDone, "processed_at": at}).Error
}

func (r *outboxRepository) Release(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      model.OutboxPending,
			"claim_token": "",
			"claimed_at":  nil,
			"attempts":    gorm.Expr("attempts + 1"),
		}).Error
}

func (r *outboxRepository) CountPending(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Outbox{}).Where("status = ?", model.OutboxPending).Count(&cnt).Error
	return cnt, err
}
