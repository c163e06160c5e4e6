package health

import (
	"context"
	"time"

	"github.com/Sound58he4/studio-sub000/internal/platform/database"
	"github.com/Sound58he4/studio-sub000/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// RecoverFunc 在Redis从不可用恢复时执行，成功后缓存才重新启用
type RecoverFunc func(ctx context.Context) error

// Checker 定期检查Redis的连通性，并维护 database.Status
type Checker struct {
	rdb       *redis.Client
	status    *database.Status
	onRecover RecoverFunc
	interval  time.Duration
	logger    *zap.Logger
}

func NewChecker(rdb *redis.Client, status *database.Status, onRecover RecoverFunc, logger *zap.Logger) *Checker {
	return &Checker{
		rdb:       rdb,
		status:    status,
		onRecover: onRecover,
		interval:  checkInterval,
		logger:    logger,
	}
}

// PerformCheck 执行一次健康检查和可能的恢复操作
func (c *Checker) PerformCheck(ctx context.Context) {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := c.rdb.Ping(pingCtx).Err(); err != nil {
		if c.status.UpdateRedis(false) {
			c.logger.Warn("健康检查: Redis连接丢失，快照缓存已停用", zap.Error(err))
		}
		return
	}
	if c.status.IsRedisHealthy() {
		return
	}

	// 不可用期间的写入没有使缓存失效，必须先清理再启用
	if c.onRecover != nil {
		if err := c.onRecover(ctx); err != nil {
			c.logger.Error("健康检查: Redis已恢复但清理缓存失败，保持停用", zap.Error(err))
			return
		}
	}
	c.status.UpdateRedis(true)
	c.logger.Info("健康检查: Redis连接已恢复，快照缓存已启用")
}

// Start 阻塞式地定期执行健康检查，直到生命周期句柄被取消
func (c *Checker) Start(handle *lifecycle.Handle) {
	defer handle.Close()
	c.logger.Info("Redis健康检查器已启动", zap.Duration("interval", c.interval))

	for {
		if err := handle.Sleep(c.interval); err != nil {
			return
		}
		c.PerformCheck(handle.Ctx())
	}
}
