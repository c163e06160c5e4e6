package main

import (
	"context"
	"fmt"

	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/startup"
	"github.com/Sound58he4/studio-sub000/internal/streak"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var recomputeUser string

var recomputeCmd = &cobra.Command{
	Use:   "recompute",
	Short: "从日志条目重建某个用户的每日汇总，并从积分历史重算连续打卡",
	RunE: func(cmd *cobra.Command, args []string) error {
		if recomputeUser == "" {
			return fmt.Errorf("必须通过 --user 指定用户")
		}
		return runRecompute(cmd.Context(), recomputeUser)
	},
}

func init() {
	recomputeCmd.Flags().StringVar(&recomputeUser, "user", "", "要重算的用户ID")
}

func runRecompute(ctx context.Context, userID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, zl, err := loadEnvironment()
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	db, err := database.Open(cfg.Database, zl)
	if err != nil {
		return err
	}
	if err := startup.InitializeApplication(db, zl); err != nil {
		return err
	}

	// 重建会改变今日汇总，缓存可用时一并让快照失效；不可用时跳过
	var rdb *redis.Client
	if cfg.Database.Redis.Enabled {
		rdb, err = database.OpenRedis(ctx, cfg.Database.Redis)
		if err != nil {
			zl.Warn("Redis不可用，跳过缓存失效", zap.Error(err))
			rdb = nil
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}

	app := startup.NewApp(cfg, db, rdb, clock.New(loc), zl)
	if rdb != nil {
		app.RedisStatus.UpdateRedis(true)
	}

	days, err := app.Entries.RebuildSummaries(ctx, userID)
	if err != nil {
		return fmt.Errorf("重建每日汇总失败: %w", err)
	}
	view, err := app.Streaks.Recompute(ctx, userID, streak.SourceCLI)
	if err != nil {
		return fmt.Errorf("重算连续打卡失败: %w", err)
	}

	zl.Info("重算完成",
		zap.String("userID", userID),
		zap.Int("days", days),
		zap.Int64("currentStreak", view.CurrentStreak),
		zap.Int64("longestStreak", view.LongestStreak))
	fmt.Printf("user=%s days=%d current=%d longest=%d\n", userID, days, view.CurrentStreak, view.LongestStreak)
	return nil
}
