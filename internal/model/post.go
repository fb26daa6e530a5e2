package model

import "time"

// Post 短消息，创建后不可修改，仅作者可删除
// ID 使用 UUIDv7，天然按时间有序
type Post struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID  string    `json:"author_id" gorm:"type:varchar(36);not null;index:idx_post_author_created,priority:1"`
	Body      string    `json:"body" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_post_author_created,priority:2;index:idx_post_created"`
}

func (Post) TableName() string { return "posts" }
