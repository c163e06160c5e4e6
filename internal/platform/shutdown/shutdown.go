package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sound58he4/studio-sub000/pkg/lifecycle"
	"go.uber.org/zap"
)

// FinalStep 在所有后台服务退出后执行一次，例如最后一轮连续打卡修复
type FinalStep func(ctx context.Context) error

// Coordinator 负责编排应用程序的优雅停机流程。
// 它接收外部创建的生命周期管理器，并使用它们来协调停机。
type Coordinator struct {
	GracefulManager *lifecycle.Manager
	ForcefulManager *lifecycle.Manager

	HTTPTimeout     time.Duration
	GracefulTimeout time.Duration
	ForcefulTimeout time.Duration
	FinalTimeout    time.Duration

	logger *zap.Logger
}

// NewCoordinator 创建一个新的停机协调器
func NewCoordinator(gracefulMgr, forcefulMgr *lifecycle.Manager, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		GracefulManager: gracefulMgr,
		ForcefulManager: forcefulMgr,
		HTTPTimeout:     15 * time.Second,
		GracefulTimeout: 30 * time.Second,
		ForcefulTimeout: 1 * time.Second,
		FinalTimeout:    30 * time.Second,
		logger:          logger,
	}
}

// ListenForSignalsAndShutdown 启动信号监听并阻塞，直到停机流程完成
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server, final FinalStep) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// 阻塞直到接收到停机信号
	sig := <-sigChan
	c.logger.Info("收到关闭信号，开始优雅停机", zap.String("signal", sig.String()))
	c.Shutdown(server, final)
}

// Shutdown 依次关闭HTTP服务器、后台服务，最后执行 final
func (c *Coordinator) Shutdown(server *http.Server, final FinalStep) {
	// 关闭HTTP服务器，允许正在进行的请求完成
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), c.HTTPTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		c.logger.Error("Gin服务器关闭错误", zap.Error(err))
	} else {
		c.logger.Info("Gin服务器已关闭")
	}

	// --- 阶段一: 优雅停机 ---
	c.logger.Info("第一阶段停机：等待后台服务完成任务", zap.Duration("timeout", c.GracefulTimeout))
	c.GracefulManager.Shutdown()

	remaining := c.GracefulManager.WaitWithTimeout(c.GracefulTimeout)
	if len(remaining) == 0 {
		c.logger.Info("所有服务已在第一阶段优雅关闭")
	} else {
		// --- 阶段二: 强制停机 ---
		c.logger.Warn("第一阶段超时，发送第二停机信号",
			zap.Strings("remaining", remaining),
			zap.Duration("timeout", c.ForcefulTimeout))
		c.ForcefulManager.Shutdown()
		c.ForcefulManager.WaitWithTimeout(c.ForcefulTimeout)
	}

	// --- 最终步骤 ---
	if final != nil {
		finalCtx, finalCancel := context.WithTimeout(context.Background(), c.FinalTimeout)
		defer finalCancel()
		c.logger.Info("正在执行停机前的最后一轮修复")
		if err := final(finalCtx); err != nil {
			c.logger.Error("最后一轮修复失败", zap.Error(err))
		}
	}

	c.logger.Info("优雅停机完成")
}
