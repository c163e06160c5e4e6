package entry

import (
	"errors"

	"gorm.io/gorm"
)

func findEntry(tx *gorm.DB, id string) (*LogEntry, error) {
	var e LogEntry
	err := tx.Where("id = ?", id).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func findUserEntry(tx *gorm.DB, userID string, kind Kind, id string) (*LogEntry, error) {
	var e LogEntry
	err := tx.Where("id = ? AND user_id = ? AND kind = ?", id, userID, kind).First(&e).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &e, nil
}

func listEntries(tx *gorm.DB, userID string, kind Kind, date string) ([]LogEntry, error) {
	var entries []LogEntry
	err := tx.Where("user_id = ? AND kind = ? AND event_date = ?", userID, kind, date).
		Order("event_time ASC, id ASC").
		Find(&entries).Error
	return entries, err
}

// allEntries 按批读取用户的全部条目，用于全量重建
func allEntries(tx *gorm.DB, userID string, fn func(batch []LogEntry)) error {
	var batch []LogEntry
	return tx.Where("user_id = ?", userID).FindInBatches(&batch, 500, func(_ *gorm.DB, _ int) error {
		fn(batch)
		return nil
	}).Error
}
