package entry

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/nutrition"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/metrics"
	"github.com/Sound58he4/studio-sub000/internal/profile"
	"github.com/Sound58he4/studio-sub000/internal/summary"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SnapshotInvalidator 在写事务提交后使今日快照缓存失效
type SnapshotInvalidator interface {
	Invalidate(ctx context.Context, userID string)
}

// Service 是事件日志的写入口。每次追加或删除都在一个事务中
// 同时维护条目行、所属日期的每日汇总，以及（日期为今天时）今日快照。
type Service struct {
	db       *gorm.DB
	tx       database.Transactor
	clock    clock.Clock
	validate *validator.Validate
	cache    SnapshotInvalidator
	logger   *zap.Logger
}

func NewService(db *gorm.DB, tx database.Transactor, clk clock.Clock, cache SnapshotInvalidator, logger *zap.Logger) *Service {
	if cache == nil {
		cache = summary.NoopCache{}
	}
	return &Service{
		db:       db,
		tx:       tx,
		clock:    clk,
		validate: validator.New(),
		cache:    cache,
		logger:   logger,
	}
}

// aggregateResult 记录一次事务中聚合更新的结果，每次重试前清零
type aggregateResult struct {
	today           string
	snapshotSkipped bool
}

// applyAggregates 把 delta 应用到 date 的每日汇总，date 为今天时也应用到今日快照。
// 资料行不存在时跳过快照，这不是错误。
func applyAggregates(tx *gorm.DB, userID, date, today string, delta nutrition.Totals, now time.Time) (skipped bool, err error) {
	existing, err := summary.Find(tx, userID, date)
	if err != nil {
		return false, err
	}
	var p *profile.Profile
	if date == today {
		if p, err = profile.Find(tx, userID); err != nil {
			return false, err
		}
	}

	updated, err := summary.ApplyDelta(tx, existing, userID, date, delta, now)
	if err != nil {
		return false, err
	}
	if date != today {
		return false, nil
	}
	if p == nil {
		return true, nil
	}
	if err := profile.ApplyTodayDelta(tx, p, today, delta, updated.Totals, now); err != nil {
		return false, fmt.Errorf("更新今日快照失败: %w", err)
	}
	return false, nil
}

func (s *Service) warnSnapshotSkipped(op, userID, date string) {
	metrics.SnapshotSkipped.Inc()
	s.logger.Warn("用户资料不存在，跳过今日快照更新",
		zap.String("user_id", userID),
		zap.String("date", date),
		zap.Error(apperror.New(apperror.DependencyUnavailable, op, "资料行缺失").WithUser(userID)))
}

// AppendEntry 追加一条记录并返回其ID。
// 请求带ID且该ID已被同一用户使用时，直接返回该ID而不重复计入聚合。
func (s *Service) AppendEntry(ctx context.Context, userID string, req AppendRequest) (string, error) {
	const op = "entry.AppendEntry"
	if strings.TrimSpace(userID) == "" {
		return "", apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}
	if err := s.validate.Struct(req); err != nil {
		return "", apperror.FromValidation(err, op).WithUser(userID)
	}
	if req.EventTime.IsZero() {
		e := apperror.New(apperror.InvalidArgument, op, "参数校验失败").WithUser(userID)
		e.Details = []map[string]string{{"EventTime": "is required"}}
		return "", e
	}

	id := req.ID
	if id == "" {
		newID, err := uuid.NewV7()
		if err != nil {
			return "", apperror.Wrap(fmt.Errorf("无法生成条目ID: %w", err), op)
		}
		id = newID.String()
	}
	eventDate := clock.DateKey(s.clock, req.EventTime)

	var (
		res       aggregateResult
		duplicate bool
	)
	err := s.tx.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		res, duplicate = aggregateResult{}, false

		if req.ID != "" {
			existing, err := findEntry(tx, id)
			if err != nil {
				return err
			}
			if existing != nil {
				if existing.UserID != userID {
					return apperror.New(apperror.InvalidArgument, op, "条目ID已被占用").WithUser(userID).WithEntry(id)
				}
				duplicate = true
				return nil
			}
		}

		now := s.clock.Now()
		res.today = clock.Today(s.clock)
		entry := req.toEntry(id, userID, eventDate, now)
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("写入条目失败: %w", err)
		}

		skipped, err := applyAggregates(tx, userID, eventDate, res.today, entry.Delta(), now)
		res.snapshotSkipped = skipped
		return err
	})
	if err != nil {
		return "", apperror.Wrap(err, op).WithUser(userID).WithDate(eventDate).WithEntry(id)
	}

	if duplicate {
		metrics.EntriesTotal.WithLabelValues(string(req.Kind), "duplicate").Inc()
		s.logger.Debug("重复的追加请求，已忽略", zap.String("user_id", userID), zap.String("entry_id", id))
		return id, nil
	}
	metrics.EntriesTotal.WithLabelValues(string(req.Kind), "append").Inc()
	if res.snapshotSkipped {
		s.warnSnapshotSkipped(op, userID, eventDate)
	}
	if eventDate == res.today {
		s.cache.Invalidate(ctx, userID)
	}
	return id, nil
}

// RemoveEntry 删除一条记录并从聚合中扣除它的贡献。记录不存在时什么也不做。
func (s *Service) RemoveEntry(ctx context.Context, userID string, kind Kind, entryID string) error {
	const op = "entry.RemoveEntry"
	if strings.TrimSpace(userID) == "" {
		return apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return apperror.New(apperror.InvalidArgument, op, "%v", err).WithUser(userID)
	}
	if strings.TrimSpace(entryID) == "" {
		return apperror.New(apperror.InvalidArgument, op, "缺少条目ID").WithUser(userID)
	}

	var (
		res       aggregateResult
		eventDate string
		removed   bool
	)
	err := s.tx.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		res, eventDate, removed = aggregateResult{}, "", false

		entry, err := findUserEntry(tx, userID, kind, entryID)
		if err != nil {
			return err
		}
		if entry == nil {
			return nil
		}

		del := tx.Where("id = ?", entry.ID).Delete(&LogEntry{})
		if del.Error != nil {
			return fmt.Errorf("删除条目失败: %w", del.Error)
		}
		if del.RowsAffected == 0 {
			// 读取之后被并发删除
			return database.ErrConflict
		}

		now := s.clock.Now()
		res.today = clock.Today(s.clock)
		eventDate = entry.EventDate
		removed = true
		skipped, err := applyAggregates(tx, userID, entry.EventDate, res.today, entry.Delta().Negate(), now)
		res.snapshotSkipped = skipped
		return err
	})
	if err != nil {
		return apperror.Wrap(err, op).WithUser(userID).WithEntry(entryID)
	}

	if !removed {
		metrics.EntriesTotal.WithLabelValues(string(kind), "remove_missing").Inc()
		return nil
	}
	metrics.EntriesTotal.WithLabelValues(string(kind), "remove").Inc()
	if res.snapshotSkipped {
		s.warnSnapshotSkipped(op, userID, eventDate)
	}
	if eventDate == res.today {
		s.cache.Invalidate(ctx, userID)
	}
	return nil
}

// ListEntries 返回用户某天某类别的全部记录，按发生时间升序
func (s *Service) ListEntries(ctx context.Context, userID string, kind Kind, date string) ([]LogEntry, error) {
	const op = "entry.ListEntries"
	if strings.TrimSpace(userID) == "" {
		return nil, apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, apperror.New(apperror.InvalidArgument, op, "%v", err).WithUser(userID)
	}
	if _, err := clock.ParseDate(date); err != nil {
		return nil, apperror.New(apperror.InvalidArgument, op, "%v", err).WithUser(userID)
	}

	entries, err := listEntries(s.db.WithContext(ctx), userID, kind, date)
	if err != nil {
		return nil, apperror.Wrap(err, op).WithUser(userID).WithDate(date)
	}
	return entries, nil
}

// RebuildSummaries 从事件日志全量重建用户的每日汇总，并把今日快照对齐到今天的汇总。
// 返回重建后有记录的天数。
func (s *Service) RebuildSummaries(ctx context.Context, userID string) (int, error) {
	const op = "entry.RebuildSummaries"
	if strings.TrimSpace(userID) == "" {
		return 0, apperror.New(apperror.InvalidArgument, op, "缺少用户ID")
	}

	var days map[string]nutrition.Totals
	err := s.tx.ExecuteTransaction(ctx, func(tx *gorm.DB) error {
		days = make(map[string]nutrition.Totals)
		err := allEntries(tx, userID, func(batch []LogEntry) {
			for i := range batch {
				days[batch[i].EventDate] = days[batch[i].EventDate].Add(batch[i].Delta())
			}
		})
		if err != nil {
			return fmt.Errorf("读取事件日志失败: %w", err)
		}

		now := s.clock.Now()
		if err := summary.ReplaceAll(tx, userID, days, now); err != nil {
			return err
		}

		p, err := profile.Find(tx, userID)
		if err != nil || p == nil {
			return err
		}
		return profile.SetToday(tx, p, clock.Today(s.clock), days[clock.Today(s.clock)], now)
	})
	if err != nil {
		return 0, apperror.Wrap(err, op).WithUser(userID)
	}

	s.cache.Invalidate(ctx, userID)
	s.logger.Info("每日汇总已从事件日志重建", zap.String("user_id", userID), zap.Int("days", len(days)))
	return len(days), nil
}
