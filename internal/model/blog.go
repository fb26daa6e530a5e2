package model

import "time"

// Blog 长文
type Blog struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	AuthorID  string    `json:"author_id" gorm:"type:varchar(36);not null;index:idx_blog_author_created,priority:1"`
	Title     string    `json:"title" gorm:"type:varchar(200);not null"`
	Content   string    `json:"content" gorm:"type:text;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;index:idx_blog_author_created,priority:2"`
}

func (Blog) TableName() string { return "blogs" }
