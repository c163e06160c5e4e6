package api

import (
	"context"
	"net/http"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/entry"
	"github.com/Sound58he4/studio-sub000/internal/platform/metadata"
	"github.com/Sound58he4/studio-sub000/internal/platform/startup"
	"github.com/Sound58he4/studio-sub000/internal/points"
	"github.com/Sound58he4/studio-sub000/internal/profile"
	"github.com/Sound58he4/studio-sub000/internal/streak"
	"github.com/Sound58he4/studio-sub000/internal/summary"
	"github.com/Sound58he4/studio-sub000/internal/user"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, app *startup.App) {
	router.Use(errorLogger(app.Logger.Named("http")))
	router.GET("/healthz", healthz(app))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	entries := entry.NewHandler(app.Entries)
	summaries := summary.NewHandler(app.Summaries)
	pointsHandler := points.NewHandler(app.Points)
	streaks := streak.NewHandler(app.Streaks)
	profiles := profile.NewHandler(app.Profiles)

	api := router.Group("/api", user.AuthMiddleware(app.Config.Auth.JWTSecret, app.Logger.Named("auth")))
	{
		// 日志条目 /api/entries/:kind
		entryRoutes := api.Group("/entries/:kind")
		{
			entryRoutes.POST("", entries.AppendEntry)
			entryRoutes.GET("", entries.ListEntries)
			entryRoutes.DELETE("/:id", entries.RemoveEntry)
		}

		// 每日汇总 /api/summaries
		summaryRoutes := api.Group("/summaries")
		{
			summaryRoutes.GET("", summaries.GetSummaryRange)
			summaryRoutes.GET("/week", summaries.GetWeek)
			summaryRoutes.GET("/:date", summaries.GetSummary)
		}
		api.GET("/today", summaries.GetToday)

		// 积分 /api/points
		pointsRoutes := api.Group("/points")
		{
			pointsRoutes.GET("", pointsHandler.GetLedger)
			pointsRoutes.PUT("", pointsHandler.SetLedger)
			pointsRoutes.PUT("/daily/:date", pointsHandler.UpdateDailyPoints)
		}

		// 连续打卡 /api/streak
		api.GET("/streak", streaks.GetStreak)
		api.POST("/streak/recompute", streaks.Recompute)

		api.GET("/profile", profiles.GetProfile)
		api.PUT("/profile", profiles.UpsertProfile)
	}
}

// healthz 报告数据库、缓存和连续打卡修复任务的状态。
// 缓存不可用不影响服务，只有数据库不可用时返回503。
func healthz(app *startup.App) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		body := gin.H{"status": "ok", "database": "ok", "redis": "disabled"}
		code := http.StatusOK

		sqlDB, err := app.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			body["status"], body["database"] = "unavailable", err.Error()
			code = http.StatusServiceUnavailable
		} else {
			body["lastStreakRepairAt"] = "never"
			at, err := metadata.GetLastStreakRepairAt(app.DB.WithContext(ctx))
			switch {
			case err != nil:
				body["lastStreakRepairAt"] = "unknown"
				app.Logger.Warn("读取修复任务时间失败", zap.Error(err))
			case !at.IsZero():
				body["lastStreakRepairAt"] = at.Format(time.RFC3339)
			}
		}

		if app.Redis != nil {
			body["redis"] = "degraded"
			if app.RedisStatus.IsRedisHealthy() {
				body["redis"] = "ok"
			}
		}
		c.JSON(code, body)
	}
}
