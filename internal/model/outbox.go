package model

import "time"

// 索引事件类型
const (
	OutboxOpIndex  = "index"
	OutboxOpRemove = "remove"
)

// 事件状态
const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
)

// Outbox 搜索索引事件外发盒，与帖子写入同一事务落库
// 事件只携带 post_id，索引时以帖子表为准
type Outbox struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)"`
	PostID      string     `gorm:"type:varchar(36);not null;index:idx_outbox_post"`
	AuthorID    string     `gorm:"type:varchar(36);not null"`
	Op          string     `gorm:"type:varchar(16);not null"`
	Status      string     `gorm:"type:varchar(16);not null;index:idx_outbox_status_created,priority:1"` // pending, processing, done
	ClaimToken  string     `gorm:"type:varchar(36);index"`
	// ClaimedAt 认领时间，超过租约仍未完成的 processing 事件会被重新认领
	ClaimedAt   *time.Time
	Attempts    int        `gorm:"not null;default:0"`
	CreatedAt   time.Time  `gorm:"not null;index:idx_outbox_status_created,priority:2"`
	ProcessedAt *time.Time
}

func (Outbox) TableName() string { return "outbox" }
