package simulate

import (
	"context"
	"strconv"
	"time"

	"azpoc/backendapi/internal/framework"
	"azpoc/backendapi/pkg/errorutil"
	"azpoc/backendapi/pkg/logger"
)

// Handler 模拟耗时处理：记录收到、等待固定时长、记录完成
// sleep 在构造时确定，处理过程中只读，可被多个协程同时调用
type Handler struct {
	sleep time.Duration
	log   logger.Logger
}

// New 创建模拟处理 Handler
func New(sleep time.Duration, log logger.Logger) *Handler {
	return &Handler{sleep: sleep, log: log}
}

// Handle 处理单条消息
// Context 在等待结束前被取消（处理超时）时返回可重试错误，消息不会被确认
func (h *Handler) Handle(ctx context.Context, msg *framework.Message) error {
	h.log.Infof(ctx, "Message #%s - Received - Processing (%s sec)", msg.ID, formatSeconds(h.sleep))

	timer := time.NewTimer(h.sleep)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return errorutil.RetriableWrap(ctx.Err(), "simulated processing interrupted")
	}

	h.log.Infof(ctx, "Message #%s - Processed", msg.ID)
	return nil
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
