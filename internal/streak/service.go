package streak

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/platform/config"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/metrics"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 重算连续打卡的来源，用于指标标签
const (
	SourceAPI       = "api"
	SourceScheduler = "scheduler"
	SourceCLI       = "cli"
)

type Service struct {
	db         *gorm.DB
	tx         database.Transactor
	clock      clock.Clock
	threshold  int64
	badgeEvery int
	logger     *zap.Logger
}

func NewService(db *gorm.DB, tx database.Transactor, clk clock.Clock, cfg config.StreakConfig, logger *zap.Logger) *Service {
	return &Service{
		db:         db,
		tx:         tx,
		clock:      clk,
		threshold:  cfg.Threshold,
		badgeEvery: cfg.BadgeEvery,
		logger:     logger,
	}
}

func (s *Service) view(r StreakRecord, history []DailyPointsRecord) *View {
	return &View{
		UserID:          r.UserID,
		CurrentStreak:   r.CurrentStreak,
		LongestStreak:   r.LongestStreak,
		LastUpdatedDate: r.LastUpdatedDate,
		Badges:          Badges(history, s.threshold, s.badgeEvery),
		Threshold:       s.threshold,
	}
}

// GetStreak 返回用户的连续打卡状态。距上次达标超过一天时当前连续清零并写回。
// 从未有过记录的用户返回全零状态。
func (s *Service) GetStreak(ctx context.Context, userID string) (*View, error) {
	const op = "streak.GetStreak"
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}

	var v *View
	err := s.tx.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := findRecord(tx, userID)
		if err != nil {
			return err
		}
		history, err := loadHistory(tx, userID)
		if err != nil {
			return err
		}
		if existing == nil {
			v = s.view(StreakRecord{UserID: userID}, history)
			return nil
		}

		next, changed := ExpireIfStale(*existing, clock.Today(s.clock))
		if changed {
			if err := saveRecord(tx, existing, next, s.clock.Now()); err != nil {
				return err
			}
		}
		v = s.view(next, history)
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID)
	}
	return v, nil
}

// RecomputeFromHistory 用完整的积分历史重算并覆盖连续打卡状态
func (s *Service) RecomputeFromHistory(ctx context.Context, userID string) (*View, error) {
	return s.Recompute(ctx, userID, SourceAPI)
}

// Recompute 与 RecomputeFromHistory 相同，source 只用于指标和日志。
// 写入的是按历史顺序依次 Advance 的结果，与按顺序增量更新得到的记录相同；
// 返回值与 GetStreak 一致，已过期的连续天数显示为0，清零留给下一次 GetStreak 写回。
// 重算同时清除用户的修复标记，除非标记在重算期间被再次更新。
func (s *Service) Recompute(ctx context.Context, userID, source string) (*View, error) {
	const op = "streak.RecomputeFromHistory"
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}

	var v *View
	err := s.tx.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		existing, err := findRecord(tx, userID)
		if err != nil {
			return err
		}
		mark, err := findMark(tx, userID)
		if err != nil {
			return err
		}
		history, err := loadHistory(tx, userID)
		if err != nil {
			return err
		}

		next := Replay(userID, history, s.threshold)
		if err := saveRecord(tx, existing, next, s.clock.Now()); err != nil {
			return err
		}
		if mark != nil {
			if err := clearMark(tx, mark); err != nil {
				return err
			}
		}
		shown, _ := ExpireIfStale(next, clock.Today(s.clock))
		v = s.view(shown, history)
		return nil
	})
	if err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID)
	}

	metrics.StreakRepairs.WithLabelValues(source).Inc()
	s.logger.Info("连续打卡已从历史重算",
		zap.String("user_id", userID),
		zap.String("source", source),
		zap.Int64("current", v.CurrentStreak),
		zap.Int64("longest", v.LongestStreak))
	return v, nil
}

// --- 供积分模块在同一事务中调用 ---

// RecordHistory 写入或覆盖某天的积分历史
func (s *Service) RecordHistory(tx *gorm.DB, userID, date string, points int64, now time.Time) error {
	wd, err := clock.Weekday(date)
	if err != nil {
		return err
	}
	rec := &DailyPointsRecord{
		UserID:    userID,
		Date:      date,
		Points:    points,
		DayOfWeek: wd.String(),
		UpdatedAt: now,
	}
	if err := upsertHistory(tx, rec); err != nil {
		return fmt.Errorf("写入积分历史失败: %w", err)
	}
	return nil
}

// ApplyUpdate 把某天的积分增量地应用到连续打卡状态上
func (s *Service) ApplyUpdate(tx *gorm.DB, userID, date string, points int64, now time.Time) error {
	existing, err := findRecord(tx, userID)
	if err != nil {
		return err
	}
	current := StreakRecord{UserID: userID}
	if existing != nil {
		current = *existing
	}

	next := Advance(current, date, points, s.threshold)
	if existing != nil && next == current {
		return nil
	}
	if existing == nil && next.LastUpdatedDate == "" {
		// 还没有达标过，不需要创建记录
		return nil
	}
	if err := saveRecord(tx, existing, next, now); err != nil {
		return fmt.Errorf("更新连续打卡失败: %w", err)
	}
	return nil
}

// MarkForRepair 标记用户需要由修复任务从历史重算
func (s *Service) MarkForRepair(tx *gorm.DB, userID string, now time.Time) error {
	if err := markRepair(tx, userID, now); err != nil {
		return fmt.Errorf("标记连续打卡修复失败: %w", err)
	}
	return nil
}
