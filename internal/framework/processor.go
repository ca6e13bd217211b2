package framework

import (
	"context"
	"fmt"
	"sync"
	"time"

	"azpoc/backendapi/pkg/logger"
)

// renewMargin 消息锁到期前多久续期
const renewMargin = 10 * time.Second

// Processor 处理器：接收消息，调用业务处理函数，并根据结果 Ack/Release/Bury
type Processor struct {
	cfg        *ProcessorConfig
	proc       Proc // 业务处理函数（注入的 GetProcess）
	source     MessageSource
	onError    ErrorHandler
	listeners  []SettleListener
	logger     Logger
	shutdownCh chan struct{} // 专门的退出信号通道
	wg         sync.WaitGroup
}

// NewProcessor 创建处理器
func NewProcessor(cfg *ProcessorConfig, proc Proc, source MessageSource, onError ErrorHandler, logger Logger, listeners ...SettleListener) *Processor {
	return &Processor{
		cfg:        cfg,
		proc:       proc,
		source:     source,
		onError:    onError,
		listeners:  listeners,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// Start 启动处理协程
func (p *Processor) Start(ctx context.Context, inputChan <-chan *Message) {
	p.logger.Infof(ctx, "[Processor] Starting with %d workers", p.cfg.Concurrency)

	for i := 0; i < p.cfg.Concurrency; i++ {
		workerID := i
		p.wg.Add(1)
		go p.loop(ctx, workerID, inputChan)
	}
}

// SignalShutdown 通知 Processor 准备退出（进入 Drain 模式）
func (p *Processor) SignalShutdown() {
	p.logger.Infof(context.Background(), "[Processor] Shutdown signal received")
	close(p.shutdownCh)
}

// Wait 等待所有处理协程退出
func (p *Processor) Wait() {
	p.wg.Wait()
	p.logger.Infof(context.Background(), "[Processor] All workers exited")
}

// loop 处理循环（单个 Worker）
func (p *Processor) loop(ctx context.Context, workerID int, inputChan <-chan *Message) {
	defer p.wg.Done()
	p.logger.Infof(ctx, "[Processor-%d] Started", workerID)

	for {
		select {
		// A. 正常业务处理
		case msg := <-inputChan:
			p.process(ctx, msg, workerID)

		// B. Drain 模式：处理完剩余消息再退出
		case <-p.shutdownCh:
			p.logger.Infof(ctx, "[Processor-%d] Entering DRAIN mode", workerID)
			count := 0
			for {
				select {
				case msg := <-inputChan:
					p.process(ctx, msg, workerID)
					count++
				default:
					p.logger.Infof(ctx, "[Processor-%d] Drained %d messages, exiting", workerID, count)
					return
				}
			}
		}
	}
}

// process 处理单个消息
func (p *Processor) process(ctx context.Context, msg *Message, workerID int) {
	if msg == nil {
		return
	}

	startTime := time.Now()

	// 1. 注入元信息到 Context
	ctx = logger.WithWorkerID(ctx, workerID)
	ctx = logger.WithMessageID(ctx, msg.ID)
	ctx = logger.WithQueue(ctx, msg.Queue)

	// 2. 处理超时（0 表示不限制）
	procCtx := ctx
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		procCtx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}

	p.logger.Debugf(procCtx, "[Processor-%d] Processing message: %s", workerID, msg.ID)

	// 3. 调用业务处理函数，处理期间续期消息锁
	stopRenewal := p.keepLocked(ctx, msg, workerID)
	resp := p.invoke(procCtx, msg)
	stopRenewal()

	// 4. 投递策略：超过最大投递次数不再重试
	if resp.Action == JobRespStatusRelease && p.cfg.MaxDeliveries > 0 && msg.Attempts >= p.cfg.MaxDeliveries {
		p.logger.Warnf(procCtx, "[Processor-%d] Message %s delivered %d times, burying", workerID, msg.ID, msg.Attempts)
		resp = &JobResp{
			Action: JobRespStatusBury,
			Reason: fmt.Sprintf("max deliveries (%d) exceeded: %s", p.cfg.MaxDeliveries, resp.Reason),
		}
	}

	// 5. 根据 resp.Action 执行 ACK/Release/Bury，处理超时不影响确认
	p.settle(ctx, msg, resp)

	duration := time.Since(startTime)
	p.logger.Debugf(procCtx, "[Processor-%d] Message settled: %s, action: %s, duration: %v",
		workerID, msg.ID, resp.Action, duration)

	for _, l := range p.listeners {
		l.OnSettled(ctx, msg, resp.Action, duration)
	}
}

// invoke 调用 proc 并捕获 panic，异常交给 ErrorHandler 后重新投递
func (p *Processor) invoke(ctx context.Context, msg *Message) (resp *JobResp) {
	defer func() {
		if r := recover(); r != nil {
			p.report(ctx, ErrorSourceUserCallback, msg, fmt.Errorf("handler panic: %v", r))
			resp = &JobResp{Action: JobRespStatusRelease, Reason: "handler panic"}
		}
	}()

	resp = p.proc(ctx, msg)
	if resp == nil {
		resp = &JobResp{Action: JobRespStatusRelease, Reason: "empty response"}
	}
	return resp
}

// keepLocked 按锁到期时间续期消息锁，直到返回的 stop 被调用或达到 MaxLockRenewal
// 消息源不支持续期或消息没有锁到期时间时什么也不做
func (p *Processor) keepLocked(ctx context.Context, msg *Message, workerID int) (stop func()) {
	renewer, ok := p.source.(LockRenewer)
	if !ok || p.cfg.MaxLockRenewal <= 0 || msg.LockedUntil.IsZero() {
		return func() {}
	}

	renewCtx, cancel := context.WithTimeout(ctx, p.cfg.MaxLockRenewal)
	done := make(chan struct{})
	lockedUntil := msg.LockedUntil

	go func() {
		defer close(done)
		for {
			timer := time.NewTimer(renewDelay(time.Until(lockedUntil)))
			select {
			case <-renewCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			next, err := renewer.RenewLock(renewCtx, msg)
			if err != nil {
				// stop 或 MaxLockRenewal 到期导致的取消不算错误
				if renewCtx.Err() == nil {
					p.report(ctx, ErrorSourceRenewLock, msg, err)
				}
				return
			}
			p.logger.Debugf(ctx, "[Processor-%d] Lock renewed: %s, locked until: %v", workerID, msg.ID, next)
			lockedUntil = next
		}
	}()

	return func() {
		cancel()
		<-done
	}
}

// renewDelay 锁剩余时间充足时提前 renewMargin 续期，否则在剩余时间过半时续期
func renewDelay(remaining time.Duration) time.Duration {
	switch {
	case remaining > 2*renewMargin:
		return remaining - renewMargin
	case remaining > 0:
		return remaining / 2
	default:
		return 0
	}
}

func (p *Processor) settle(ctx context.Context, msg *Message, resp *JobResp) {
	switch resp.Action {
	case JobRespStatusSuccess:
		if err := p.source.Ack(ctx, msg); err != nil {
			p.report(ctx, ErrorSourceComplete, msg, err)
		}
	case JobRespStatusBury:
		if err := p.source.Bury(ctx, msg, resp.Reason); err != nil {
			p.report(ctx, ErrorSourceDeadLetter, msg, err)
		}
	default:
		if err := p.source.Release(ctx, msg); err != nil {
			p.report(ctx, ErrorSourceAbandon, msg, err)
		}
	}
}

func (p *Processor) report(ctx context.Context, source ErrorSource, msg *Message, err error) {
	if p.onError == nil {
		p.logger.Errorf(ctx, "[Processor] %s failed for message %s: %v", source, msg.ID, err)
		return
	}
	p.onError(ctx, &ErrorEvent{
		Source:    source,
		Queue:     msg.Queue,
		MessageID: msg.ID,
		Err:       err,
	})
}
