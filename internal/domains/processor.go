package domains

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"azpoc/backendapi/internal/framework"
	"azpoc/backendapi/pkg/errorutil"
	"azpoc/backendapi/pkg/logger"
	"azpoc/backendapi/pkg/metrics"
)

// MessageHandler 业务处理接口
type MessageHandler interface {
	Handle(ctx context.Context, msg *framework.Message) error
}

// GetProcess 返回核心处理函数（注入到 Processor）
// onError 与 m 可以为 nil
func GetProcess(log logger.Logger, handler MessageHandler, onError framework.ErrorHandler, m *metrics.Metrics) framework.Proc {
	return func(ctx context.Context, msg *framework.Message) *framework.JobResp {
		startTime := time.Now()

		// 1. 注入 TraceID
		ctx = logger.WithTraceID(ctx, uuid.New().String())

		if m != nil {
			m.MessageReceived()
		}

		log.Debugf(ctx, "[GetProcess] Processing message: id=%s, attempts=%d", msg.ID, msg.Attempts)

		// 2. 调用 Handler（捕获 panic）
		var err error
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = errorutil.NonRetriable(fmt.Sprintf("handler panic: %v", r))
				}
			}()
			err = handler.Handle(ctx, msg)
		}()

		// 3. 失败交给 ErrorHandler 记录
		if err != nil && onError != nil {
			onError(ctx, &framework.ErrorEvent{
				Source:    framework.ErrorSourceUserCallback,
				Queue:     msg.Queue,
				MessageID: msg.ID,
				Err:       err,
			})
		}

		resp := doJobReport(err)

		log.Debugf(ctx, "[GetProcess] Processing complete: action=%s, duration=%v", resp.Action, time.Since(startTime))
		return resp
	}
}

// doJobReport 根据错误类型决定 ACK/Release/Bury
func doJobReport(err error) *framework.JobResp {
	if err == nil {
		return &framework.JobResp{Action: framework.JobRespStatusSuccess}
	}

	if errorutil.IsRetryable(err) {
		return &framework.JobResp{Action: framework.JobRespStatusRelease, Reason: err.Error()}
	}
	return &framework.JobResp{Action: framework.JobRespStatusBury, Reason: err.Error()}
}
