package logger

import "context"

type ctxKey string

const (
	keyTraceID   ctxKey = "trace_id"
	keyWorkerID  ctxKey = "worker_id"
	keyMessageID ctxKey = "message_id"
	keyQueue     ctxKey = "queue"
)

// WithTraceID 注入 trace_id
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, keyTraceID, traceID)
}

// WithWorkerID 注入 worker_id
func WithWorkerID(ctx context.Context, workerID int) context.Context {
	return context.WithValue(ctx, keyWorkerID, workerID)
}

// WithMessageID 注入 message_id
func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, keyMessageID, messageID)
}

// WithQueue 注入队列名称
func WithQueue(ctx context.Context, queue string) context.Context {
	return context.WithValue(ctx, keyQueue, queue)
}

// TraceID 读取 trace_id
func TraceID(ctx context.Context) string {
	traceID, _ := ctx.Value(keyTraceID).(string)
	return traceID
}
