package main

import (
	"context"
	"net/http"
	"time"

	"azpoc/backendapi/internal/worker"
	"azpoc/backendapi/pkg/logger"
)

// gracefulShutdown 先停止消费（处理完缓冲区内的消息），再关闭 HTTP 服务
func gracefulShutdown(ctx context.Context, server *http.Server, mgr worker.Manager, timeout time.Duration, log logger.Logger) {
	// 1. 停止 Manager
	log.Infof(ctx, "Stopping queue consumer...")
	mgr.Shutdown()

	// 2. 停止 HTTP Server
	log.Infof(ctx, "Stopping HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf(ctx, "HTTP server shutdown error: %v", err)
	} else {
		log.Infof(ctx, "HTTP server stopped gracefully")
	}

	log.Infof(ctx, "All services stopped gracefully")
}
