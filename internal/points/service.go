package points

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/metrics"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StreakUpdater 是积分写入时需要的连续打卡操作，全部在调用方的事务中执行
type StreakUpdater interface {
	RecordHistory(tx *gorm.DB, userID, date string, points int64, now time.Time) error
	ApplyUpdate(tx *gorm.DB, userID, date string, points int64, now time.Time) error
	MarkForRepair(tx *gorm.DB, userID string, now time.Time) error
}

type Service struct {
	tx       database.Transactor
	clock    clock.Clock
	streak   StreakUpdater
	validate *validator.Validate
	logger   *zap.Logger
}

func NewService(tx database.Transactor, clk clock.Clock, streak StreakUpdater, logger *zap.Logger) *Service {
	return &Service{
		tx:       tx,
		clock:    clk,
		streak:   streak,
		validate: validator.New(),
		logger:   logger,
	}
}

// GetLedger 返回用户的账本，跨天时先完成滚动并写回。账本不存在时返回 nil。
func (s *Service) GetLedger(ctx context.Context, userID string) (*PointsLedger, error) {
	const op = "points.GetLedger"
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}

	var out *PointsLedger
	err := s.tx.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		out = nil
		existing, err := findLedger(tx, userID)
		if err != nil || existing == nil {
			return err
		}
		rolled := RolloverIfNewDay(*existing, clock.Today(s.clock))
		if rolled == *existing {
			out = existing
			return nil
		}
		out, err = saveLedger(tx, existing, rolled, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID)
	}
	return out, nil
}

// SetLedger 写入客户端提议的账本。先做跨天滚动，再把总分截断为
// max(已有总分, 提议总分)，两步在同一事务中完成。日期总是记为今天。
func (s *Service) SetLedger(ctx context.Context, userID string, proposed LedgerUpdate) (*PointsLedger, error) {
	const op = "points.SetLedger"
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}
	if err := s.validate.Struct(proposed); err != nil {
		return nil, apperror.FromValidation(err, op).WithUser(userID)
	}

	var (
		out     *PointsLedger
		clamped bool
		kept    int64
	)
	err := s.tx.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		clamped = false
		existing, err := findLedger(tx, userID)
		if err != nil {
			return err
		}
		today := clock.Today(s.clock)
		next := PointsLedger{UserID: userID}
		if existing != nil {
			next = *existing
		}
		next = RolloverIfNewDay(next, today)

		next.TodayPoints = proposed.TodayPoints
		if proposed.TotalPoints < next.TotalPoints {
			clamped, kept = true, next.TotalPoints
		} else {
			next.TotalPoints = proposed.TotalPoints
		}
		next.LastUpdatedDate = today

		out, err = saveLedger(tx, existing, next, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID)
	}

	if clamped {
		metrics.LedgerClamps.Inc()
		s.logger.Info("提议的总积分低于已有总积分，已保留原值",
			zap.String("user_id", userID),
			zap.Int64("proposed", proposed.TotalPoints),
			zap.Int64("kept", kept))
	}
	return out, nil
}

// UpdateDailyPoints 记录某天的积分。
// 日期为今天时滚动账本、写入今日积分并增量更新连续打卡；
// 更早的日期只写历史，并标记该用户由修复任务重算连续打卡。
func (s *Service) UpdateDailyPoints(ctx context.Context, userID, date string, points int64) error {
	const op = "points.UpdateDailyPoints"
	if strings.TrimSpace(userID) == "" {
		return apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}
	if _, err := clock.ParseDate(date); err != nil {
		return apperror.New(apperror.InvalidArgument, op, "%v", err).WithUser(userID)
	}
	if points < 0 {
		return apperror.New(apperror.InvalidArgument, op, "积分不能为负数: %d", points).WithUser(userID).WithDate(date)
	}

	var backfill bool
	err := s.tx.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		today := clock.Today(s.clock)
		now := s.clock.Now()
		if date > today {
			return apperror.New(apperror.InvalidArgument, op, "不能记录未来日期的积分").WithUser(userID).WithDate(date)
		}
		backfill = date != today

		if !backfill {
			existing, err := findLedger(tx, userID)
			if err != nil {
				return err
			}
			next := PointsLedger{UserID: userID}
			if existing != nil {
				next = *existing
			}
			next = RolloverIfNewDay(next, today)
			next.TodayPoints = points
			next.LastUpdatedDate = today
			if _, err := saveLedger(tx, existing, next, now); err != nil {
				return fmt.Errorf("更新积分账本失败: %w", err)
			}
		}

		if err := s.streak.RecordHistory(tx, userID, date, points, now); err != nil {
			return err
		}
		if backfill {
			return s.streak.MarkForRepair(tx, userID, now)
		}
		return s.streak.ApplyUpdate(tx, userID, date, points, now)
	})
	if err != nil {
		return apperror.Wrap(err, op).WithUser(userID).WithDate(date)
	}

	if backfill {
		s.logger.Debug("回填历史积分，已标记连续打卡修复", zap.String("user_id", userID), zap.String("date", date))
	}
	return nil
}
