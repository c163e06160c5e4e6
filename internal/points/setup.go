package points

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate 负责初始化points模块的数据库部分
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&PointsLedger{}); err != nil {
		return fmt.Errorf("无法迁移points_ledgers表: %w", err)
	}
	return nil
}
