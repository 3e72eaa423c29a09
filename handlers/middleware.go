package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const userIDKey = "userID"

// TokenVerifier resolves a raw token to a user ID
type TokenVerifier interface {
	Verify(token string) (string, error)
}

// RequireAuth 校验Authorization头中的令牌。
// The header carries the raw token, no "Bearer " prefix is stripped.
func RequireAuth(tokens TokenVerifier, l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := tokens.Verify(c.GetHeader("Authorization"))
		if err != nil {
			l.Debug("token rejected", zap.String("path", c.FullPath()), zap.Error(err))
			respondError(c, l, err, msgInvalidBody)
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// CurrentUserID 返回RequireAuth写入的用户ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// RequestLogger 用zap记录每个请求
func RequestLogger(l *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			l.Error("request", fields...)
		case status >= 400:
			l.Warn("request", fields...)
		default:
			l.Info("request", fields...)
		}
	}
}
