package streak

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 负责初始化streak模块的数据库部分
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&StreakRecord{}, &DailyPointsRecord{}, &RepairMark{}); err != nil {
		return fmt.Errorf("无法迁移streak相关表: %w", err)
	}
	return nil
}
