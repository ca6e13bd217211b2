package domains

import (
	"context"

	"azpoc/backendapi/internal/framework"
	"azpoc/backendapi/pkg/logger"
	"azpoc/backendapi/pkg/metrics"
)

// GetErrorHandler 返回错误回调：只记录日志和指标，不重试、不退出
func GetErrorHandler(log logger.Logger, m *metrics.Metrics) framework.ErrorHandler {
	return func(ctx context.Context, event *framework.ErrorEvent) {
		if ctx == nil {
			ctx = context.Background()
		}

		defer func() {
			if r := recover(); r != nil {
				log.Errorf(ctx, "[ErrorHandler] recovered: %v", r)
			}
		}()

		if event == nil {
			log.Warnf(ctx, "[ErrorHandler] empty error event")
			return
		}

		if m != nil {
			m.QueueError(string(event.Source))
		}

		log.Errorf(ctx, "[ErrorHandler] source=%s, queue=%s, message_id=%s, error=%v",
			event.Source, event.Queue, event.MessageID, event.Err)
	}
}
