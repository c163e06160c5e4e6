package summary

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/nutrition"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"gorm.io/gorm"
)

// Find 读取某天的汇总行，不存在时返回 nil, nil
func Find(tx *gorm.DB, userID, date string) (*DailySummary, error) {
	var s DailySummary
	err := tx.Where("user_id = ? AND date = ?", userID, date).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// ApplyDelta 是汇总行唯一的增量写入路径，必须在事务中调用。
// existing 是同一事务中 Find 的结果：为 nil 时以 delta 作为初值创建行，
// 并发创建同一行时唯一索引冲突会让整个事务重试；
// 否则按版本号更新，行在读取后被修改则返回 database.ErrConflict。
func ApplyDelta(tx *gorm.DB, existing *DailySummary, userID, date string, delta nutrition.Totals, now time.Time) (*DailySummary, error) {
	if existing == nil {
		row := &DailySummary{
			UserID:    userID,
			Date:      date,
			Totals:    delta,
			UpdatedAt: now,
		}
		if err := tx.Create(row).Error; err != nil {
			return nil, fmt.Errorf("创建每日汇总失败: %w", err)
		}
		return row, nil
	}

	next := *existing
	next.Totals = existing.Totals.Add(delta)
	next.UpdatedAt = now
	cols := next.Totals.Columns("")
	cols["updated_at"] = now
	if err := database.UpdateVersioned(tx, &DailySummary{}, existing.Version, cols, "id = ?", existing.ID); err != nil {
		return nil, fmt.Errorf("更新每日汇总失败: %w", err)
	}
	next.Version++
	return &next, nil
}

// ReplaceAll 删除用户的所有汇总行，并按 days 重新写入。用于从事件日志全量重建。
func ReplaceAll(tx *gorm.DB, userID string, days map[string]nutrition.Totals, now time.Time) error {
	if err := tx.Where("user_id = ?", userID).Delete(&DailySummary{}).Error; err != nil {
		return fmt.Errorf("清空每日汇总失败: %w", err)
	}
	if len(days) == 0 {
		return nil
	}
	rows := make([]DailySummary, 0, len(days))
	for date, totals := range days {
		rows = append(rows, DailySummary{UserID: userID, Date: date, Totals: totals, UpdatedAt: now})
	}
	if err := tx.CreateInBatches(rows, 100).Error; err != nil {
		return fmt.Errorf("写入重建的每日汇总失败: %w", err)
	}
	return nil
}
