// Package search 维护帖子正文的可重建搜索投影
package search

import (
	"context"
	"strings"
	"time"
)

// Backend 搜索后端；Index/Remove 幂等，Search 按时间倒序返回帖子 id
type Backend interface {
	Index(ctx context.Context, postID, body string, createdAt time.Time) error
	Remove(ctx context.Context, postID string) error
	Search(ctx context.Context, query string, limit int) ([]string, error)
	// Reset 清空索引，用于重建
	Reset(ctx context.Context) error
}

// Tokenize 按空白切分并小写化；空查询返回 nil
func Tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	if len(fields) == 0 {
		return nil
	}
	return fields
}
