package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Sound58he4/studio-sub000/api"
	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/internal/platform/health"
	"github.com/Sound58he4/studio-sub000/internal/platform/shutdown"
	"github.com/Sound58he4/studio-sub000/internal/platform/startup"
	"github.com/Sound58he4/studio-sub000/pkg/clock"
	"github.com/Sound58he4/studio-sub000/pkg/lifecycle"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动HTTP服务和后台任务",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func runServe() error {
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
		return fmt.Errorf("应用初始化失败，无法启动: %w", err)
	}

	var rdb *redis.Client
	if cfg.Database.Redis.Enabled {
		rdb = database.NewRedisClient(cfg.Database.Redis)
		defer func() { _ = rdb.Close() }()
	}

	app := startup.NewApp(cfg, db, rdb, clock.New(loc), zl)

	gracefulMgr := lifecycle.NewManager("graceful", zl)
	forcefulMgr := lifecycle.NewManager("forceful", zl)

	if rdb != nil {
		checker := health.NewChecker(rdb, app.RedisStatus, app.HandleRedisRecovery, zl.Named("health"))
		// 启动后先阻塞式地检查一次，决定缓存的初始状态
		zl.Info("正在执行启动后健康检查")
		checker.PerformCheck(context.Background())

		handle, err := gracefulMgr.NewServiceHandle("redis-health")
		if err != nil {
			return err
		}
		go checker.Start(handle)
	}

	repairHandle, err := gracefulMgr.NewServiceHandle("streak-repair")
	if err != nil {
		return err
	}
	go app.Streaks.StartRepairScheduler(repairHandle, cfg.Streak.RepairInterval)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.Cors.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-User-ID"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	api.SetupRoutes(r, app)

	server := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: r,
	}
	go func() {
		zl.Info("服务器已准备就绪，开始监听", zap.String("address", cfg.Server.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	coordinator := shutdown.NewCoordinator(gracefulMgr, forcefulMgr, zl.Named("shutdown"))
	coordinator.ListenForSignalsAndShutdown(server, func(ctx context.Context) error {
		// 停机前把已标记的用户修复完，避免下次启动前读到过期的连续打卡
		repaired, err := app.Streaks.RunRepairPass(ctx)
		if err != nil {
			return err
		}
		zl.Info("停机前修复完成", zap.Int("users", repaired))
		return nil
	})
	return nil
}
