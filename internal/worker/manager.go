package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/atomic"

	"azpoc/backendapi/internal/framework"
	"azpoc/backendapi/pkg/config"
	"azpoc/backendapi/pkg/logger"
)

// ErrManagerClosed Shutdown 之后不能再 Start
var ErrManagerClosed = errors.New("manager already shut down")

const closeSourceTimeout = 10 * time.Second

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// ManagerInstance 持有队列客户端和所有 Worker
type ManagerInstance struct {
	ctx        context.Context
	cfg        *config.WorkerConfig
	source     framework.MessageSource
	proc       framework.Proc
	onError    framework.ErrorHandler
	listeners  []framework.SettleListener
	workers    []Worker
	closing    *atomic.Bool
	shutdownCh chan struct{}
	wg         sync.WaitGroup
	mu         sync.RWMutex
	logger     logger.Logger
}

// NewManagerInstance 创建 Manager
// source 的生命周期交给 Manager，Shutdown 时关闭
func NewManagerInstance(
	cfg *config.WorkerConfig,
	source framework.MessageSource,
	proc framework.Proc,
	onError framework.ErrorHandler,
	log logger.Logger,
	listeners ...framework.SettleListener,
) (Manager, error) {
	if source == nil {
		return nil, fmt.Errorf("message source is required")
	}
	if proc == nil {
		return nil, fmt.Errorf("process function is required")
	}

	ctx := context.Background()
	log.Infof(ctx, "[Manager] Initialized with queue: %s", cfg.QueueName)

	return &ManagerInstance{
		ctx:        ctx,
		cfg:        cfg,
		source:     source,
		proc:       proc,
		onError:    onError,
		listeners:  listeners,
		closing:    atomic.NewBool(false),
		shutdownCh: make(chan struct{}),
		workers:    make([]Worker, 0),
		logger:     log,
	}, nil
}

// Start 启动 Manager，阻塞直到 Shutdown 完成
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	// 1. 加载 Worker（与 Shutdown 互斥，避免关闭过程中新增 Worker）
	m.mu.Lock()
	if m.closing.Load() {
		m.mu.Unlock()
		return ErrManagerClosed
	}
	m.loadWorkers()

	// 2. 启动所有 Worker（每个 Worker 在独立 goroutine）
	for _, worker := range m.workers {
		w := worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Start()
		}()
		m.logger.Infof(m.ctx, "[Manager] Worker started: %s", w.GetName())
	}
	m.mu.Unlock()

	m.logger.Infof(m.ctx, "[Manager] Start success, workers: %d", len(m.workers))

	// 3. 阻塞等待退出信号
	<-m.shutdownCh

	return nil
}

// Shutdown 优雅退出，可重复调用
func (m *ManagerInstance) Shutdown() {
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	// 原子操作，保证只关闭一次
	if !m.closing.CAS(false, true) {
		return
	}

	m.mu.RLock()
	workers := m.workers
	m.mu.RUnlock()

	// 1. 所有 Worker 安全退出
	for _, worker := range workers {
		m.logger.Infof(m.ctx, "[Manager] Shutting down worker: %s", worker.GetName())
		worker.Shutdown()
	}

	// 2. 等待所有 Worker 退出
	m.wg.Wait()

	// 3. 关闭队列连接，未结算的消息锁到期后重新投递
	ctx, cancel := context.WithTimeout(m.ctx, closeSourceTimeout)
	defer cancel()
	if err := m.source.Close(ctx); err != nil {
		m.logger.Warnf(m.ctx, "[Manager] Close source failed: %v", err)
	}

	// 4. 关闭信号通道
	close(m.shutdownCh)

	m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
}

// loadWorkers 根据配置创建 Worker
func (m *ManagerInstance) loadWorkers() {
	subCfg := &framework.SubscriberConfig{
		QueueName:    m.cfg.QueueName,
		Concurrency:  m.cfg.Subscriber.Threads,
		Rate:         m.cfg.Subscriber.Rate,
		Timeout:      m.cfg.Subscriber.Timeout,
		TTR:          m.cfg.Subscriber.TTR,
		ErrorBackoff: m.cfg.Subscriber.ErrorBackoff,
	}

	procCfg := &framework.ProcessorConfig{
		Concurrency:    m.cfg.Processor.Threads,
		BufferSize:     m.cfg.Processor.BufferSize,
		Timeout:        m.cfg.Processor.Timeout,
		MaxDeliveries:  m.cfg.Policy.MaxDeliveries,
		MaxLockRenewal: m.cfg.Processor.MaxLockRenewal,
	}

	worker := NewWorkerInstance(
		m.ctx,
		m.cfg.Name,
		subCfg,
		procCfg,
		m.source, // MessageSource
		m.proc,   // framework.Proc
		m.onError,
		m.logger,
		m.listeners...,
	)

	m.workers = append(m.workers, worker)
}
