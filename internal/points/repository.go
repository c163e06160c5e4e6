package points

import (
	"errors"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"gorm.io/gorm"
)

func findLedger(tx *gorm.DB, userID string) (*PointsLedger, error) {
	var l PointsLedger
	err := tx.Where("user_id = ?", userID).First(&l).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &l, nil
}

// saveLedger 写入新账本。existing 为 nil 时创建，否则按版本号更新。
// 返回写入后的账本。
func saveLedger(tx *gorm.DB, existing *PointsLedger, next PointsLedger, now time.Time) (*PointsLedger, error) {
	next.UpdatedAt = now
	if existing == nil {
		next.Version = 0
		if err := tx.Create(&next).Error; err != nil {
			return nil, err
		}
		return &next, nil
	}
	err := database.UpdateVersioned(tx, &PointsLedger{}, existing.Version, map[string]any{
		"today_points":      next.TodayPoints,
		"total_points":      next.TotalPoints,
		"last_updated_date": next.LastUpdatedDate,
		"updated_at":        now,
	}, "user_id = ?", existing.UserID)
	if err != nil {
		return nil, err
	}
	next.Version = existing.Version + 1
	return &next, nil
}
