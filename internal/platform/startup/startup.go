package startup

import (
	"context"

	"github.com/Sound58he4/studio-sub000/internal/entry"
	"github.com/Sound58he4/studio-sub000/internal/platform/config"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/metadata"
	"github.com/Sound58he4/studio-sub000/internal/points"
	"github.com/Sound58he4/studio-sub000/internal/profile"
	"github.com/Sound58he4/studio-sub000/internal/streak"
	"github.com/Sound58he4/studio-sub000/internal/summary"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InitializeApplication 是应用启动时执行的数据库初始化总入口
func InitializeApplication(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("开始迁移数据库表")

	migrations := []func(*gorm.DB) error{
		metadata.Migrate,
		profile.Migrate,
		entry.Migrate,
		summary.Migrate,
		points.Migrate,
		streak.Migrate,
	}
	for _, migrate := range migrations {
		if err := migrate(db); err != nil {
			return err
		}
	}

	logger.Info("数据库表迁移完成")
	return nil
}

// App 持有装配好的各模块服务
type App struct {
	Config *config.Config
	DB     *gorm.DB
	Clock  clock.Clock
	Logger *zap.Logger

	// Redis 在未启用缓存时为 nil
	Redis         *redis.Client
	RedisStatus   *database.Status
	SnapshotCache *summary.RedisSnapshotCache

	Profiles  *profile.Service
	Entries   *entry.Service
	Summaries *summary.Service
	Points    *points.Service
	Streaks   *streak.Service
}

// NewApp 按依赖顺序装配所有服务。rdb 为 nil 时今日快照不走缓存；
// 否则缓存在第一次健康检查通过之前保持停用。
func NewApp(cfg *config.Config, db *gorm.DB, rdb *redis.Client, clk clock.Clock, logger *zap.Logger) *App {
	app := &App{
		Config:      cfg,
		DB:          db,
		Clock:       clk,
		Logger:      logger,
		Redis:       rdb,
		RedisStatus: database.NewStatus(false),
	}

	var snapshotCache summary.SnapshotCache = summary.NoopCache{}
	if rdb != nil {
		app.SnapshotCache = summary.NewRedisSnapshotCache(rdb, app.RedisStatus, logger.Named("cache"))
		snapshotCache = app.SnapshotCache
	}

	runner := database.NewTxRunner(db, cfg.Database.MaxRetries, logger.Named("tx"))

	app.Profiles = profile.NewService(db, logger.Named("profile"))
	app.Summaries = summary.NewService(db, clk, snapshotCache, logger.Named("summary"))
	app.Entries = entry.NewService(db, runner, clk, snapshotCache, logger.Named("entry"))
	app.Streaks = streak.NewService(db, runner, clk, cfg.Streak, logger.Named("streak"))
	app.Points = points.NewService(runner, clk, app.Streaks, logger.Named("points"))
	return app
}

// HandleRedisRecovery 在Redis从不可用恢复时清空快照缓存
func (a *App) HandleRedisRecovery(ctx context.Context) error {
	if a.SnapshotCache == nil {
		return nil
	}
	return a.SnapshotCache.Flush(ctx)
}
