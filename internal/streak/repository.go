package streak

import (
	"errors"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func findRecord(tx *gorm.DB, userID string) (*StreakRecord, error) {
	var r StreakRecord
	err := tx.Where("user_id = ?", userID).First(&r).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

// saveRecord 写入新状态。existing 为 nil 时创建，否则按版本号更新。
func saveRecord(tx *gorm.DB, existing *StreakRecord, next StreakRecord, now time.Time) error {
	if existing == nil {
		next.Version = 0
		next.UpdatedAt = now
		return tx.Create(&next).Error
	}
	return database.UpdateVersioned(tx, &StreakRecord{}, existing.Version, map[string]any{
		"current_streak":    next.CurrentStreak,
		"longest_streak":    next.LongestStreak,
		"last_updated_date": next.LastUpdatedDate,
		"updated_at":        now,
	}, "user_id = ?", existing.UserID)
}

func loadHistory(tx *gorm.DB, userID string) ([]DailyPointsRecord, error) {
	var history []DailyPointsRecord
	err := tx.Where("user_id = ?", userID).Order("date ASC").Find(&history).Error
	return history, err
}

func upsertHistory(tx *gorm.DB, rec *DailyPointsRecord) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"points", "day_of_week", "updated_at"}),
	}).Create(rec).Error
}

func markRepair(tx *gorm.DB, userID string, now time.Time) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"generation": gorm.Expr("streak_repair_marks.generation + 1"),
			"marked_at":  now,
		}),
	}).Create(&RepairMark{UserID: userID, Generation: 1, MarkedAt: now}).Error
}

func findMark(tx *gorm.DB, userID string) (*RepairMark, error) {
	var m RepairMark
	err := tx.Where("user_id = ?", userID).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// clearMark 只在标记没有被再次更新时删除它
func clearMark(tx *gorm.DB, m *RepairMark) error {
	return tx.Where("user_id = ? AND generation = ?", m.UserID, m.Generation).Delete(&RepairMark{}).Error
}

func listMarks(tx *gorm.DB, limit int) ([]RepairMark, error) {
	var marks []RepairMark
	err := tx.Order("marked_at ASC").Limit(limit).Find(&marks).Error
	return marks, err
}
