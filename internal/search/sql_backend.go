package search

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/microblog/internal/model"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SQLBackend 基于 search_entries 表的后端，每个词做一次 LIKE 子串匹配
type SQLBackend struct {
	db *gorm.DB
}

func NewSQLBackend(db *gorm.DB) *SQLBackend { return &SQLBackend{db: db} }

func (b *SQLBackend) Index(ctx context.Context, postID, body string, createdAt time.Time) error {
	entry := &model.SearchEntry{PostID: postID, Body: strings.ToLower(body), CreatedAt: createdAt}
	return b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"body", "created_at"}),
	}).Create(entry).Error
}

func (b *SQLBackend) Remove(ctx context.Context, postID string) error {
	return b.db.WithContext(ctx).Where("post_id = ?", postID).Delete(&model.SearchEntry{}).Error
}

func (b *SQLBackend) Search(ctx context.Context, query string, limit int) ([]string, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 || limit <= 0 {
		return []string{}, nil
	}
	q := b.db.WithContext(ctx).Model(&model.SearchEntry{})
	for _, tok := range tokens {
		q = q.Where(`body LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(tok)+"%")
	}
	ids := []string{}
	err := q.Order("created_at DESC, post_id DESC").Limit(limit).Pluck("post_id", &ids).Error
	return ids, err
}

func (b *SQLBackend) Reset(ctx context.Context) error {
	return b.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&model.SearchEntry{}).Error
}
