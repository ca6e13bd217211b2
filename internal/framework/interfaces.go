package framework

import (
	"context"
	"time"
)

// MessageSource 消息源接口（适配不同 MQ）
type MessageSource interface {
	// Consume 消费消息（阻塞，直到拉取到消息或超时；超时返回 nil, nil）
	// 拉取到的消息处于锁定状态，直到 Ack/Release/Bury
	Consume(ctx context.Context, queue string, timeout time.Duration, ttr time.Duration) (*Message, error)

	// Ack 确认消息（从队列中永久删除）
	Ack(ctx context.Context, msg *Message) error

	// Release 放弃本次处理，消息重新投递
	Release(ctx context.Context, msg *Message) error

	// Bury 移入死信队列
	Bury(ctx context.Context, msg *Message, reason string) error

	// Close 关闭连接
	Close(ctx context.Context) error
}

// LockRenewer 支持续期消息锁的消息源（可选）
// 返回新的锁到期时间
type LockRenewer interface {
	RenewLock(ctx context.Context, msg *Message) (time.Time, error)
}

// MessagePublisher 消息发布接口
type MessagePublisher interface {
	Publish(ctx context.Context, queue string, msg *Message) error
}

// Logger 日志接口
type Logger interface {
	Debugf(ctx context.Context, format string, args ...interface{})
	Infof(ctx context.Context, format string, args ...interface{})
	Warnf(ctx context.Context, format string, args ...interface{})
	Errorf(ctx context.Context, format string, args ...interface{})
}

// JobRespStatus 消息处理结果状态
type JobRespStatus int

const (
	// JobRespStatusSuccess 处理成功，ACK 消息
	JobRespStatusSuccess JobRespStatus = iota
	// JobRespStatusRelease 需要重试，Release 消息（重新投递）
	JobRespStatusRelease
	// JobRespStatusBury 处理失败且不可重试，Bury 消息（移到死信队列）
	JobRespStatusBury
)

// String 用于日志和指标标签
func (s JobRespStatus) String() string {
	switch s {
	case JobRespStatusSuccess:
		return "ack"
	case JobRespStatusRelease:
		return "release"
	case JobRespStatusBury:
		return "bury"
	default:
		return "unknown"
	}
}

// JobResp 消息处理结果
type JobResp struct {
	Action JobRespStatus // 处理动作
	Reason string        // Bury/Release 原因
	Data   []byte        // 响应数据（可选）
}

// Proc 业务处理函数，每条消息调用一次
type Proc func(ctx context.Context, msg *Message) *JobResp

// ErrorHandler 错误回调，只负责记录，不得 panic
type ErrorHandler func(ctx context.Context, event *ErrorEvent)

// SettleListener 消息被 Ack/Release/Bury 之后回调
type SettleListener interface {
	OnSettled(ctx context.Context, msg *Message, action JobRespStatus, duration time.Duration)
}
