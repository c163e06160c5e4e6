package api

import (
	"github.com/Sound58he4/studio-sub000/internal/apperror"
	"github.com/Sound58he4/studio-sub000/internal/user"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// errorLogger 记录处理器通过 c.Error 附加的错误。
// Internal 错误返回给客户端时只有通用信息，完整的错误链只出现在这里。
func errorLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		for _, e := range c.Errors {
			fields := []zap.Field{
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.String("user_id", user.UserID(c)),
				zap.Error(e.Err),
			}
			if apperror.KindOf(e.Err) == apperror.Internal {
				logger.Error("请求处理失败", fields...)
			} else {
				logger.Debug("请求被拒绝", fields...)
			}
		}
	}
}
