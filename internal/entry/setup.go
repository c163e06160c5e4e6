package entry

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 负责初始化entry模块的数据库部分
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&LogEntry{}); err != nil {
		return fmt.Errorf("无法迁移log_entries表: %w", err)
	}
	return nil
}
