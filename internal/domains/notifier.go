package domains

import (
	"context"
	"time"

	"azpoc/backendapi/internal/framework"
	"azpoc/backendapi/pkg/infra/redis"
	"azpoc/backendapi/pkg/logger"
	"azpoc/backendapi/pkg/metrics"
)

// ProcessedPublisher 结算通知发布接口（redis.PubSub 实现）
type ProcessedPublisher interface {
	PublishProcessed(ctx context.Context, channel string, notification *redis.ProcessedNotification) error
}

// SettleNotifier 消息结算后记录指标，并按需发布通知
type SettleNotifier struct {
	log       logger.Logger
	metrics   *metrics.Metrics
	publisher ProcessedPublisher
	channel   string
}

// NewSettleNotifier 创建结算监听器，m 与 publisher 可以为 nil
func NewSettleNotifier(log logger.Logger, m *metrics.Metrics, publisher ProcessedPublisher, channel string) *SettleNotifier {
	return &SettleNotifier{
		log:       log,
		metrics:   m,
		publisher: publisher,
		channel:   channel,
	}
}

// OnSettled 实现 framework.SettleListener
func (n *SettleNotifier) OnSettled(ctx context.Context, msg *framework.Message, action framework.JobRespStatus, duration time.Duration) {
	if n.metrics != nil {
		n.metrics.MessageSettled(action.String(), duration)
	}

	if n.publisher == nil {
		return
	}

	notification := &redis.ProcessedNotification{
		MessageID:  msg.ID,
		Queue:      msg.Queue,
		Action:     action.String(),
		Attempts:   msg.Attempts,
		DurationMs: duration.Milliseconds(),
		Timestamp:  time.Now().Unix(),
	}

	// 通知失败不影响消息结算
	if err := n.publisher.PublishProcessed(ctx, n.channel, notification); err != nil {
		n.log.Warnf(ctx, "[SettleNotifier] publish notification failed: %v", err)
	}
}
