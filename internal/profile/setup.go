package profile

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 负责初始化profile模块的数据库部分
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Profile{}); err != nil {
		return fmt.Errorf("无法迁移profiles表: %w", err)
	}
	return nil
}
