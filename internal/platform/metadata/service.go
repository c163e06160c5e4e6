package metadata

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Migrate 负责初始化metadata模块的数据库部分
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Metadata{}); err != nil {
		return fmt.Errorf("无法迁移metadata表: %w", err)
	}
	return nil
}

// --- 通用访问 ---

// GetValue 读取一个键的值。键不存在时返回空字符串。
func GetValue(db *gorm.DB, key string) (string, error) {
	var meta Metadata
	err := db.Where("key = ?", key).First(&meta).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return meta.Value, nil
}

// SetValue 创建或更新一个键的值
func SetValue(db *gorm.DB, key, value string) error {
	meta := Metadata{
		Key:   key,
		Value: value,
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&meta).Error
}

// --- 类型转换辅助 ---

// GetLastStreakRepairAt 读取最近一次修复任务的完成时间，从未运行过时返回零值
func GetLastStreakRepairAt(db *gorm.DB) (time.Time, error) {
	valueStr, err := GetValue(db, LastStreakRepairAtKey)
	if err != nil {
		return time.Time{}, err
	}
	if valueStr == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, valueStr)
	if err != nil {
		return time.Time{}, fmt.Errorf("无法解析元数据 '%s' 的值: %w", LastStreakRepairAtKey, err)
	}
	return t, nil
}

// SetLastStreakRepair 记录一次修复任务的完成时间和处理的用户数
func SetLastStreakRepair(db *gorm.DB, at time.Time, repaired int) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := SetValue(tx, LastStreakRepairAtKey, at.UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}
		return SetValue(tx, LastStreakRepairCountKey, strconv.Itoa(repaired))
	})
}
