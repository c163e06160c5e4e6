package clock

import (
	"fmt"
	"sync"
	"time"
)

// DateLayout 是系统中所有日期键的格式，按字符串排序即按日期排序
const DateLayout = "2006-01-02"

// Clock 为引擎提供“当前时间”和用于划分日历日的时区。
// 所有“今天”的判断都必须通过它完成，测试中用 Fixed 替换。
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type systemClock struct {
	loc *time.Location
}

// New 返回一个基于系统时间、在指定时区划分日期的时钟
func New(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time           { return time.Now().In(c.loc) }
func (c systemClock) Location() *time.Location { return c.loc }

// Fixed 是一个可手动推进的时钟，只用于测试和离线工具。
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed 创建一个停在 t 的时钟
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *Fixed) Location() *time.Location {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now.Location()
}

// Set 将时钟拨到 t
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// AddDays 将时钟向前推进 n 个日历日
func (f *Fixed) AddDays(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.AddDate(0, 0, n)
}

// --- 日期键工具 ---

// DateKey 返回 t 在时钟时区下的日期键
func DateKey(c Clock, t time.Time) string {
	return t.In(c.Location()).Format(DateLayout)
}

// Today 返回时钟当前所在的日期键
func Today(c Clock) string {
	return DateKey(c, c.Now())
}

// ParseDate 解析日期键。返回的时间位于UTC零点，仅用于日期运算。
func ParseDate(date string) (time.Time, error) {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("无效的日期 '%s': %w", date, err)
	}
	return t, nil
}

// DaysBetween 返回 to - from 相差的日历天数
func DaysBetween(from, to string) (int, error) {
	a, err := ParseDate(from)
	if err != nil {
		return 0, err
	}
	b, err := ParseDate(to)
	if err != nil {
		return 0, err
	}
	// 两端都是UTC零点，没有夏令时误差
	return int(b.Sub(a).Hours() / 24), nil
}

// AddDays 返回 date 之后第 n 天的日期键，n 可以为负
func AddDays(date string, n int) (string, error) {
	t, err := ParseDate(date)
	if err != nil {
		return "", err
	}
	return t.AddDate(0, 0, n).Format(DateLayout), nil
}

// Weekday 返回日期键对应的星期
func Weekday(date string) (time.Weekday, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return t.Weekday(), nil
}
