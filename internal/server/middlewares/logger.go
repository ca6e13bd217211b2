package middlewares

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"azpoc/backendapi/pkg/logger"
)

// RequestIDHeader 请求 ID 头
const RequestIDHeader = "X-Request-Id"

// Logger 访问日志中间件，请求 ID 作为 trace_id 注入 Context
func Logger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)

		ctx := logger.WithTraceID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		if status >= 500 {
			log.Warnf(ctx, "[HTTP] %s %s %d %v", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
			return
		}
		log.Debugf(ctx, "[HTTP] %s %s %d %v", c.Request.Method, c.Request.URL.Path, status, time.Since(start))
	}
}
