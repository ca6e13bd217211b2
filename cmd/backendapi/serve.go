package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"azpoc/backendapi/internal/domains"
	"azpoc/backendapi/internal/domains/handlers/simulate"
	"azpoc/backendapi/internal/server/handlers/health"
	"azpoc/backendapi/internal/server/routers"
	"azpoc/backendapi/internal/worker"
	"azpoc/backendapi/pkg/infra/redis"
	"azpoc/backendapi/pkg/metrics"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the queue consumer",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), *configPath)
		},
	}
}

// runServe HTTP 服务与队列消费同进程运行，收到 SIGINT/SIGTERM 后依次关闭
func runServe(parent context.Context, configPath string) error {
	// 1. 加载配置（失败直接退出，此时还未连接队列）
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// 2. 初始化 Logger 和指标
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	log.Infof(ctx, "Config loaded: %s, env: %s, provider: %s, queue: %s",
		cfg.App.Name, cfg.App.Env, cfg.Queue.Provider, cfg.Worker.QueueName)

	m := metrics.New()
	checks := []health.Checker{health.SampleCheck{}}

	// 3. Redis 通知（可选）
	var publisher domains.ProcessedPublisher
	if cfg.Redis.Addr != "" {
		pubsub, err := redis.NewPubSub(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return err
		}
		defer pubsub.Close()

		publisher = pubsub
		checks = append(checks, health.NewPingCheck("redis", pubsub))
		log.Infof(ctx, "Connected to Redis: %s, channel: %s", cfg.Redis.Addr, cfg.Redis.Channel)
	}

	// 4. 队列客户端
	log.Infof(ctx, "Configuring queue client...")
	source, err := worker.NewSource(&cfg.Queue)
	if err != nil {
		return fmt.Errorf("failed to create queue client: %w", err)
	}

	// 5. 组装处理链路
	onError := domains.GetErrorHandler(log, m)
	proc := domains.GetProcess(log, simulate.New(cfg.SleepDuration(), log), onError, m)
	notifier := domains.NewSettleNotifier(log, m, publisher, cfg.Redis.Channel)

	mgr, err := worker.NewManagerInstance(&cfg.Worker, source, proc, onError, log, notifier)
	if err != nil {
		_ = source.Close(ctx)
		return fmt.Errorf("failed to create manager: %w", err)
	}

	// 6. HTTP 服务
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	server := &http.Server{
		Addr: fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: routers.SetupRoutes(routers.Options{
			Logger:      log,
			Health:      health.NewHandler(log, checks...),
			Metrics:     m.Handler(),
			Development: cfg.IsDevelopment(),
		}),
	}

	managerErrCh := make(chan error, 1)
	go func() {
		log.Infof(ctx, "Listening to queue...")
		managerErrCh <- mgr.Start()
	}()

	serverErrCh := make(chan error, 1)
	go func() {
		log.Infof(ctx, "Starting HTTP server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	// 7. 优雅停机
	sigCtx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case <-sigCtx.Done():
		log.Infof(ctx, "Received shutdown signal, gracefully shutting down...")
	case err := <-serverErrCh:
		runErr = fmt.Errorf("http server error: %w", err)
	case err := <-managerErrCh:
		if err != nil {
			runErr = fmt.Errorf("manager error: %w", err)
		}
	}

	gracefulShutdown(ctx, server, mgr, cfg.Server.ShutdownTimeout, log)
	return runErr
}
