// Package dbtest 为各模块的测试提供独立的内存SQLite数据库
package dbtest

import (
	"fmt"
	"testing"

	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open 打开一个只属于当前测试的内存数据库，并迁移给定的模型。
// 连接数限制为1，与生产环境的SQLite配置一致。
func Open(t testing.TB, models ...any) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), database.NewGormConfig())
	if err != nil {
		t.Fatalf("无法打开测试数据库: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("无法获取底层连接: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if len(models) > 0 {
		if err := db.AutoMigrate(models...); err != nil {
			t.Fatalf("测试数据库迁移失败: %v", err)
		}
	}
	return db
}
