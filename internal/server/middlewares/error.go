package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"azpoc/backendapi/internal/pkg/ginx"
	"azpoc/backendapi/pkg/logger"
)

// Recovery 捕获 Handler panic，返回 500
func Recovery(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf(c.Request.Context(), "[HTTP] panic recovered: %v", r)
				ginx.AbortWithError(c, http.StatusInternalServerError, "internal server error")
			}
		}()
		c.Next()
	}
}

// ErrorHandler 统一错误处理中间件：Handler 通过 c.Error 记录、尚未写响应的错误
func ErrorHandler(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last()
		log.Errorf(c.Request.Context(), "[HTTP] request failed: %v", err.Err)
		if !c.Writer.Written() {
			ginx.InternalError(c, err.Error())
		}
	}
}
