package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

// AccessLog 请求结束后记录一条访问日志
func AccessLog() gin.HandlerFunc {
	logger := log.NewModuleLogger("http", "access")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client", c.ClientIP(),
		}
		l := log.FromContext(c.Request.Context(), logger)
		if c.Writer.Status() >= 500 {
			l.Error("HTTP request", attrs...)
			return
		}
		l.Info("HTTP request", attrs...)
	}
}
