package streak

import "time"

// StreakRecord 是用户的连续打卡状态。
// LastUpdatedDate 是最近一次处理过的达标日期，CurrentStreak 是以它结尾的连续达标天数。
type StreakRecord struct {
	UserID          string `gorm:"primaryKey;type:varchar(64)"`
	CurrentStreak   int64  `gorm:"not null;default:0"`
	LongestStreak   int64  `gorm:"not null;default:0"`
	LastUpdatedDate string `gorm:"type:varchar(10)"`
	Version         int64  `gorm:"not null;default:0"`
	UpdatedAt       time.Time
}

// DailyPointsRecord 是某天的积分历史，是重算连续打卡和徽章的唯一依据
type DailyPointsRecord struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	UserID    string    `gorm:"type:varchar(64);not null;uniqueIndex:idx_points_user_date,priority:1" json:"-"`
	Date      string    `gorm:"type:varchar(10);not null;uniqueIndex:idx_points_user_date,priority:2" json:"date"`
	Points    int64     `gorm:"not null" json:"points"`
	DayOfWeek string    `gorm:"type:varchar(10)" json:"dayOfWeek"`
	UpdatedAt time.Time `json:"-"`
}

// RepairMark 标记历史被回填过、需要由修复任务重算连续打卡的用户。
// Generation 每次重新标记时加一，修复完成后只删除未被再次标记的行。
type RepairMark struct {
	UserID     string `gorm:"primaryKey;type:varchar(64)"`
	Generation int64  `gorm:"not null;default:1"`
	MarkedAt   time.Time
}

func (RepairMark) TableName() string {
	return "streak_repair_marks"
}

// View 是返回给调用方的连续打卡状态，Badges 由历史推导，不持久化
type View struct {
	UserID          string `json:"userId"`
	CurrentStreak   int64  `json:"currentStreak"`
	LongestStreak   int64  `json:"longestStreak"`
	LastUpdatedDate string `json:"lastUpdatedDate,omitempty"`
	Badges          int    `json:"badges"`
	Threshold       int64  `json:"threshold"`
}
