// Package dbtest 为测试提供已迁移的临时 sqlite 数据库
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/pkg/database"
)

// New 在 t.TempDir() 下创建数据库文件；单连接，测试结束自动关闭
func New(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", filepath.Join(t.TempDir(), "test.db"), time.Second)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}
