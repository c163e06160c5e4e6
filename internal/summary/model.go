package summary

import (
	"time"

	"github.com/Sound58he4/studio-sub000/internal/nutrition"
)

// DailySummary 是某用户某一天所有未删除条目的聚合。
// 只通过 ApplyDelta（增量）或 ReplaceAll（全量重建）写入。
type DailySummary struct {
	ID     uint   `gorm:"primaryKey" json:"-"`
	UserID string `gorm:"type:varchar(64);not null;uniqueIndex:idx_summary_user_date,priority:1" json:"userId"`
	Date   string `gorm:"type:varchar(10);not null;uniqueIndex:idx_summary_user_date,priority:2" json:"date"`

	nutrition.Totals `gorm:"embedded"`

	Version   int64     `gorm:"not null;default:0" json:"-"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DayView 是周视图中的一天，没有条目的日子 Totals 为零
type DayView struct {
	Date    string           `json:"date"`
	Weekday string           `json:"weekday"`
	Totals  nutrition.Totals `json:"totals"`
}

// WeekView 是从周一到周日的七天汇总
type WeekView struct {
	UserID string           `json:"userId"`
	Start  string           `json:"start"`
	End    string           `json:"end"`
	Days   []DayView        `json:"days"`
	Totals nutrition.Totals `json:"totals"`
}
