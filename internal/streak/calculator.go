package streak

import (
	"sort"

	"github.com/Sound58he4/studio-sub000/pkg/clock"
)

// Advance 把某天的积分应用到连续打卡状态上，返回新状态。
//
// 达标（points >= threshold）时：紧接上次达标日加一，同一天不变，
// 中间有空档或是第一次达标则从1开始。
// 未达标时当天不做判断（之后可能还会加分），但如果与上次达标日之间
// 已经隔了至少一整天，说明中间有未达标的日子，当前连续清零。
// 早于上次达标日的数据被忽略。
func Advance(r StreakRecord, date string, points, threshold int64) StreakRecord {
	qualifies := points >= threshold

	if r.LastUpdatedDate == "" {
		if qualifies {
			r.CurrentStreak = 1
			r.LastUpdatedDate = date
			r.LongestStreak = max(r.LongestStreak, r.CurrentStreak)
		}
		return r
	}

	gap, err := clock.DaysBetween(r.LastUpdatedDate, date)
	if err != nil || gap < 0 {
		return r
	}

	if !qualifies {
		if gap >= 2 {
			r.CurrentStreak = 0
		}
		return r
	}

	switch gap {
	case 0:
		return r
	case 1:
		r.CurrentStreak++
	default:
		r.CurrentStreak = 1
	}
	r.LastUpdatedDate = date
	r.LongestStreak = max(r.LongestStreak, r.CurrentStreak)
	return r
}

// ExpireIfStale 在读取时做惰性清零：today 与上次达标日相差超过一天时当前连续归零。
// 第二个返回值表示状态是否改变。
func ExpireIfStale(r StreakRecord, today string) (StreakRecord, bool) {
	if r.CurrentStreak == 0 || r.LastUpdatedDate == "" {
		return r, false
	}
	gap, err := clock.DaysBetween(r.LastUpdatedDate, today)
	if err != nil || gap <= 1 {
		return r, false
	}
	r.CurrentStreak = 0
	return r, true
}

// sortedByDate 返回按日期升序排列的历史副本
func sortedByDate(history []DailyPointsRecord) []DailyPointsRecord {
	out := make([]DailyPointsRecord, len(history))
	copy(out, history)
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// Replay 从最早的历史开始依次 Advance，得到完整重算后的状态
func Replay(userID string, history []DailyPointsRecord, threshold int64) StreakRecord {
	r := StreakRecord{UserID: userID}
	for _, h := range sortedByDate(history) {
		r = Advance(r, h.Date, h.Points, threshold)
	}
	return r
}

// Badges 计算徽章数：每一段连续达标的日子，每满 every 天得一枚
func Badges(history []DailyPointsRecord, threshold int64, every int) int {
	if every < 1 {
		return 0
	}
	badges, run := 0, 0
	prev := ""
	for _, h := range sortedByDate(history) {
		if h.Points < threshold {
			badges += run / every
			run, prev = 0, ""
			continue
		}
		if prev != "" {
			if gap, err := clock.DaysBetween(prev, h.Date); err != nil || gap != 1 {
				badges += run / every
				run = 0
			}
		}
		run++
		prev = h.Date
	}
	return badges + run/every
}
