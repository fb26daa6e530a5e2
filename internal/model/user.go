package model

import "time"

// User 用户，通过外部身份提供方注册，从不物理删除
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Nickname  string    `json:"nickname" gorm:"type:varchar(64);not null;uniqueIndex:ux_user_nickname"`
	Email     string    `json:"email" gorm:"type:varchar(120);not null;uniqueIndex:ux_user_email"`
	AboutMe   string    `json:"about_me" gorm:"type:varchar(140)"`
	LastSeen  time.Time `json:"last_seen"`
	CreatedAt time.Time `json:"created_at"`
}

func (User) TableName() string { return "users" }
