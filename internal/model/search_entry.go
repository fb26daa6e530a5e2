package model

import "time"

// SearchEntry SQL 搜索后端的投影表，可随时由帖子表重建
type SearchEntry struct {
	PostID    string    `gorm:"primaryKey;type:varchar(36)"`
	Body      string    `gorm:"type:text;not null"` // 小写化后的正文
	CreatedAt time.Time `gorm:"not null;index"`
}

func (SearchEntry) TableName() string { return "search_entries" }
