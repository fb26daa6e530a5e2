package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
)

// Migrate 自动迁移全部模型
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
