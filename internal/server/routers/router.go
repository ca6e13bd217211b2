package routers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"

	"azpoc/backendapi/internal/pkg/ginx"
	_ "azpoc/backendapi/internal/server/docs"
	"azpoc/backendapi/internal/server/handlers/health"
	"azpoc/backendapi/internal/server/middlewares"
	"azpoc/backendapi/pkg/logger"
)

// Options 路由依赖
type Options struct {
	Logger      logger.Logger
	Health      *health.Handler
	Metrics     http.Handler // nil 时不注册 /metrics
	Development bool         // 开发环境才注册 Swagger
}

// SetupRoutes 配置所有路由
func SetupRoutes(opts Options) *gin.Engine {
	r := gin.New()

	r.Use(middlewares.Logger(opts.Logger))
	r.Use(middlewares.Recovery(opts.Logger))
	r.Use(middlewares.ErrorHandler(opts.Logger))

	r.GET("/health", opts.Health.Get)

	if opts.Metrics != nil {
		r.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	if opts.Development {
		r.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		)))
	}

	r.NoRoute(func(c *gin.Context) {
		ginx.NotFound(c, "route not found")
	})

	return r
}
