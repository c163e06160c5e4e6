package streak

import (
	"context"
	"errors"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/platform/metadata"
	"github.com/Sound58he4/studio-sub000/pkg/lifecycle"
	"go.uber.org/zap"
)

// repairBatchSize 是修复任务每一轮读取的标记数
const repairBatchSize = 100

// RunRepairPass 处理所有待修复的用户：逐个从历史重算连续打卡，
// 单个用户失败只记录日志，不影响其他用户。每个用户在一轮中最多处理一次，
// 期间被再次标记的用户留到下一轮。返回成功修复的用户数。
func (s *Service) RunRepairPass(ctx context.Context) (int, error) {
	repaired := 0
	seen := make(map[string]bool)
	for {
		marks, err := listMarks(s.db.WithContext(ctx), repairBatchSize+len(seen))
		if err != nil {
			return repaired, err
		}

		progressed := false
		for _, m := range marks {
			if seen[m.UserID] {
				continue
			}
			seen[m.UserID] = true
			if err := ctx.Err(); err != nil {
				return repaired, err
			}
			progressed = true
			if _, err := s.Recompute(ctx, m.UserID, SourceScheduler); err != nil {
				s.logger.Error("修复连续打卡失败", zap.String("user_id", m.UserID), zap.Error(err))
				continue
			}
			repaired++
		}
		if !progressed {
			break
		}
	}

	if err := metadata.SetLastStreakRepair(s.db.WithContext(ctx), s.clock.Now(), repaired); err != nil {
		return repaired, err
	}
	return repaired, nil
}

// StartRepairScheduler 启动修复任务的后台循环，直到生命周期句柄被取消
func (s *Service) StartRepairScheduler(handle *lifecycle.Handle, interval time.Duration) {
	defer handle.Close()
	s.logger.Info("连续打卡修复调度器已启动", zap.Duration("interval", interval))

	for {
		if err := handle.Sleep(interval); err != nil {
			s.logger.Info("连续打卡修复调度器: 休眠被中断，正在关闭")
			return
		}

		repaired, err := s.RunRepairPass(handle.Ctx())
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
				s.logger.Error("连续打卡修复调度器: 本轮修复失败", zap.Error(err))
			}
			continue
		}
		if repaired > 0 {
			s.logger.Info("连续打卡修复调度器: 本轮修复完成", zap.Int("users", repaired))
		}
	}
}
