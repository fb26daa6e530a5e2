package model

import "time"

// Follow 关注边（Follower 关注 Followee）
// idx_follow_pair = (follower_id, followee_id) 复合唯一键，重复关注由约束拦截
// 每个用户注册时都会写入一条自关注边，且永不删除
type Follow struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	FollowerID string    `json:"follower_id" gorm:"type:varchar(36);not null;index:idx_follow_pair,unique"`
	FolloweeID string    `json:"followee_id" gorm:"type:varchar(36);not null;index:idx_follow_pair,unique;index:idx_follow_followee"`
	CreatedAt  time.Time `json:"created_at"`
}

func (Follow) TableName() string { return "follows" }

// IsSelf 自关注边
func (f *Follow) IsSelf() bool { return f.FollowerID == f.FolloweeID }
