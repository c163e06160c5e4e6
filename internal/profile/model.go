package profile

import (
	"time"

	"github.com/Sound58he4/studio-sub000/internal/nutrition"
)

// Profile 是用户资料行。这里只维护引擎需要的部分：
// 行本身的存在性，以及嵌入其中的今日快照。
type Profile struct {
	UserID      string `gorm:"primaryKey;type:varchar(64)"`
	DisplayName string `gorm:"type:varchar(100)"`

	// --- 今日快照 ---
	// 只在条目的日期等于写入时的“今天”时维护。
	// TodayDate 落后于今天时快照已过期，下一次写入会从当天的每日汇总重新对齐。
	Today          nutrition.Totals `gorm:"embedded;embeddedPrefix:today_"`
	TodayDate      string           `gorm:"type:varchar(10)"`
	TodayUpdatedAt *time.Time

	Version   int64 `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TodaySnapshot 是今日快照的只读视图
type TodaySnapshot struct {
	UserID    string           `json:"userId"`
	Date      string           `json:"date"`
	Totals    nutrition.Totals `json:"totals"`
	UpdatedAt *time.Time       `json:"updatedAt,omitempty"`
	// Stale 表示快照属于更早的日期，Totals 来自每日汇总
	Stale bool `json:"stale"`
}

// Snapshot 返回资料行上的快照，today 用于判断是否过期
func (p *Profile) Snapshot(today string) TodaySnapshot {
	return TodaySnapshot{
		UserID:    p.UserID,
		Date:      p.TodayDate,
		Totals:    p.Today,
		UpdatedAt: p.TodayUpdatedAt,
		Stale:     p.TodayDate != today,
	}
}
