package user

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const (
	// UserIDKey 是gin上下文中保存当前用户ID的键
	UserIDKey = "userID"
	// HeaderUserID 是未配置令牌密钥时使用的开发用请求头
	HeaderUserID = "X-User-ID"

	maxUserIDLength     = 64
	codeUnauthenticated = "UNAUTHENTICATED"
)

var errMissingSubject = errors.New("令牌中没有用户ID")

// AuthMiddleware 确定请求所属的用户并放入gin上下文。
// 配置了 secret 时要求 Authorization: Bearer <HS256 JWT>，用户ID取 sub 或 user_id 声明；
// 否则信任 X-User-ID 请求头，仅用于开发环境。
func AuthMiddleware(secret string, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var (
			userID string
			err    error
		)
		if secret != "" {
			userID, err = userIDFromBearer(c.GetHeader("Authorization"), []byte(secret))
		} else {
			userID = strings.TrimSpace(c.GetHeader(HeaderUserID))
			if userID == "" {
				err = fmt.Errorf("缺少 %s 请求头", HeaderUserID)
			}
		}
		if err == nil && len(userID) > maxUserIDLength {
			err = fmt.Errorf("用户ID长度超过 %d", maxUserIDLength)
		}

		if err != nil {
			logger.Debug("请求认证失败", zap.String("path", c.FullPath()), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "认证失败: " + err.Error(), "code": codeUnauthenticated})
			return
		}

		c.Set(UserIDKey, userID)
		c.Next()
	}
}

// UserID 返回认证中间件放入上下文的用户ID
func UserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

func userIDFromBearer(header string, secret []byte) (string, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return "", errors.New("缺少Bearer令牌")
	}

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(strings.TrimSpace(raw), claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("令牌无效: %w", err)
	}

	if sub, _ := claims.GetSubject(); sub != "" {
		return sub, nil
	}
	if id, ok := claims["user_id"].(string); ok && id != "" {
		return id, nil
	}
	return "", errMissingSubject
}
