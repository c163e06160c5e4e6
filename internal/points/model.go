package points

import "time"

// PointsLedger 是用户的积分账本。TotalPoints 只增不减，
// TodayPoints 属于 LastUpdatedDate 那一天，跨天时并入总分。
type PointsLedger struct {
	UserID          string    `gorm:"primaryKey;type:varchar(64)" json:"userId"`
	TodayPoints     int64     `gorm:"not null;default:0" json:"todayPoints"`
	TotalPoints     int64     `gorm:"not null;default:0" json:"totalPoints"`
	LastUpdatedDate string    `gorm:"type:varchar(10)" json:"lastUpdatedDate"`
	Version         int64     `gorm:"not null;default:0" json:"-"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// LedgerUpdate 是客户端提议的账本值
type LedgerUpdate struct {
	TodayPoints int64 `json:"todayPoints" validate:"gte=0"`
	TotalPoints int64 `json:"totalPoints" validate:"gte=0"`
}

// RolloverIfNewDay 在日期变化时把当天积分并入总分并清零。
// 同一天内重复调用结果不变。
func RolloverIfNewDay(l PointsLedger, today string) PointsLedger {
	if l.LastUpdatedDate >= today {
		return l
	}
	l.TotalPoints += l.TodayPoints
	l.TodayPoints = 0
	l.LastUpdatedDate = today
	return l
}
