package summary

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 负责初始化summary模块的数据库部分
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&DailySummary{}); err != nil {
		return fmt.Errorf("无法迁移daily_summaries表: %w", err)
	}
	return nil
}
