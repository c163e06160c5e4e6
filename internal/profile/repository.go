package profile

import (
	"errors"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/nutrition"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"gorm.io/gorm"
)

const snapshotPrefix = "today_"

// Find 读取资料行，不存在时返回 nil, nil
func Find(tx *gorm.DB, userID string) (*Profile, error) {
	var p Profile
	err := tx.Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// ApplyTodayDelta 把一次条目变更应用到今日快照上。
// 快照日期就是 today 时直接累加 delta；否则快照已过期，
// 用已经包含本次变更的 dayTotals（当天的每日汇总）整体覆盖。
// 必须在事务中调用，p 是同一事务中读到的行。
func ApplyTodayDelta(tx *gorm.DB, p *Profile, today string, delta, dayTotals nutrition.Totals, now time.Time) error {
	next := dayTotals
	if p.TodayDate == today {
		next = p.Today.Add(delta)
	}
	return SetToday(tx, p, today, next, now)
}

// SetToday 用版本号校验覆盖今日快照，并同步更新内存中的 p
func SetToday(tx *gorm.DB, p *Profile, today string, totals nutrition.Totals, now time.Time) error {
	cols := totals.Columns(snapshotPrefix)
	cols["today_date"] = today
	cols["today_updated_at"] = now
	if err := database.UpdateVersioned(tx, &Profile{}, p.Version, cols, "user_id = ?", p.UserID); err != nil {
		return err
	}
	p.Today = totals
	p.TodayDate = today
	p.TodayUpdatedAt = &now
	p.Version++
	return nil
}
