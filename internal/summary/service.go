package summary

import (
	"context"
	"strings"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/nutrition"
	"github.com/Sound58he4/studio-sub000/internal/profile"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// maxRangeDays 限制一次范围查询最多覆盖的天数
const maxRangeDays = 366

// Service 提供每日汇总和今日快照的只读访问，从不回放事件日志
type Service struct {
	db     *gorm.DB
	clock  clock.Clock
	cache  SnapshotCache
	logger *zap.Logger
}

func NewService(db *gorm.DB, clk clock.Clock, cache SnapshotCache, logger *zap.Logger) *Service {
	if cache == nil {
		cache = NoopCache{}
	}
	return &Service{db: db, clock: clk, cache: cache, logger: logger}
}

func validateUserDate(op, userID, date string) error {
	if strings.TrimSpace(userID) == "" {
		return apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}
	if _, err := clock.ParseDate(date); err != nil {
		return apperror.New(apperror.InvalidArgument, op, "%v", err).WithUser(userID)
	}
	return nil
}

// GetSummary 返回某天的汇总，没有条目的日子返回 nil
func (s *Service) GetSummary(ctx context.Context, userID, date string) (*DailySummary, error) {
	const op = "summary.GetSummary"
	if err := validateUserDate(op, userID, date); err != nil {
		return nil, err
	}
	row, err := Find(s.db.WithContext(ctx), userID, date)
	if err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID).WithDate(date)
	}
	return row, nil
}

// GetSummaryRange 返回 [start, end] 内存在的汇总，按日期升序
func (s *Service) GetSummaryRange(ctx context.Context, userID, start, end string) ([]DailySummary, error) {
	const op = "summary.GetSummaryRange"
	if err := validateUserDate(op, userID, start); err != nil {
		return nil, err
	}
	if err := validateUserDate(op, userID, end); err != nil {
		return nil, err
	}
	days, _ := clock.DaysBetween(start, end)
	if days < 0 {
		return nil, apperror.New(apperror.InvalidArgument, op, "开始日期 %s 晚于结束日期 %s", start, end).WithUser(userID)
	}
	if days >= maxRangeDays {
		return nil, apperror.New(apperror.InvalidArgument, op, "查询范围不能超过 %d 天", maxRangeDays).WithUser(userID)
	}

	var rows []DailySummary
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, start, end).
		Order("date ASC").
		Find(&rows).Error
	if err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID)
	}
	return rows, nil
}

// GetWeek 返回 date 所在周（周一到周日）的逐日汇总，七天并行读取
func (s *Service) GetWeek(ctx context.Context, userID, date string) (*WeekView, error) {
	const op = "summary.GetWeek"
	if err := validateUserDate(op, userID, date); err != nil {
		return nil, err
	}
	wd, _ := clock.Weekday(date)
	monday, _ := clock.AddDays(date, -((int(wd) + 6) % 7))

	view := &WeekView{UserID: userID, Start: monday, Days: make([]DayView, 7)}
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 7; i++ {
		day, _ := clock.AddDays(monday, i)
		weekday, _ := clock.Weekday(day)
		view.Days[i] = DayView{Date: day, Weekday: weekday.String()}
		g.Go(func() error {
			row, err := Find(s.db.WithContext(gctx), userID, day)
			if err != nil {
				return err
			}
			if row != nil {
				view.Days[i].Totals = row.Totals
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID).WithDate(date)
	}

	view.End = view.Days[6].Date
	for _, d := range view.Days {
		view.Totals = view.Totals.Add(d.Totals)
	}
	return view, nil
}

// GetTodaySnapshot 返回用户今天的快照。
// 快照属于更早的日期时不做写入，直接用今天的每日汇总作答。
func (s *Service) GetTodaySnapshot(ctx context.Context, userID string) (*profile.TodaySnapshot, error) {
	const op = "summary.GetTodaySnapshot"
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}
	today := clock.Today(s.clock)

	cached, token, ok := s.cache.Get(ctx, userID)
	if ok && cached.Date == today {
		return cached, nil
	}

	db := s.db.WithContext(ctx)
	p, err := profile.Find(db, userID)
	if err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID)
	}
	if p == nil {
		return nil, apperror.New(apperror.NotFound, op, "用户资料不存在").WithUser(userID)
	}

	snap := p.Snapshot(today)
	if snap.Stale {
		row, err := Find(db, userID, today)
		if err != nil {
			return nil, apperror.Wrap(err, op).WithUser(userID).WithDate(today)
		}
		snap.Date = today
		snap.Totals = nutrition.Totals{}
		if row != nil {
			snap.Totals = row.Totals
		}
	}

	s.cache.Set(ctx, &snap, token)
	return &snap, nil
}
