package framework

import "time"

// Message 消息结构（框架内部流转）
type Message struct {
	ID          string                 // 消息 ID
	Queue       string                 // 队列名称
	Data        []byte                 // 原始消息体，框架不解析
	Attempts    int                    // 已投递次数（队列不提供时为 0）
	ReceivedAt  time.Time              // 拉取时间
	LockedUntil time.Time              // 消息锁到期时间（队列不提供时为零值）
	Extra       map[string]interface{} // 扩展字段
	Raw         interface{}            // 队列 SDK 的原始消息，Ack/Release/Bury 时使用
}

// ErrorSource 错误来源
type ErrorSource string

const (
	ErrorSourceReceive      ErrorSource = "receive"
	ErrorSourceComplete     ErrorSource = "complete"
	ErrorSourceAbandon      ErrorSource = "abandon"
	ErrorSourceDeadLetter   ErrorSource = "dead_letter"
	ErrorSourceUserCallback ErrorSource = "user_callback"
	ErrorSourceRenewLock    ErrorSource = "renew_lock"
)

// ErrorEvent 收发链路上的错误，交给 ErrorHandler 处理
type ErrorEvent struct {
	Source    ErrorSource
	Queue     string
	MessageID string
	Err       error
}
