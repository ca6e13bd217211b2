package servicebus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"azpoc/backendapi/internal/framework"
)

var (
	// ErrUnexpectedRaw 消息不是由本客户端拉取的
	ErrUnexpectedRaw = errors.New("servicebus: message was not received by this client")
	// ErrReceiverNotFound 队列没有对应的 Receiver（结算必须使用拉取时的 Receiver）
	ErrReceiverNotFound = errors.New("servicebus: no receiver for queue")
)

// queueReceiver 单个队列的 Receiver
// 同一个 Receiver 上的 ReceiveMessages 串行调用，结算可以并发
type queueReceiver struct {
	receiveMu sync.Mutex
	receiver  *azservicebus.Receiver
}

// Client Azure Service Bus 客户端封装（peek-lock 模式）
type Client struct {
	client *azservicebus.Client

	mu        sync.Mutex
	receivers map[string]*queueReceiver
	senders   map[string]*azservicebus.Sender
}

// NewClient 通过命名空间连接串创建客户端，连接在首次收发时建立
func NewClient(connectionString string) (*Client, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("servicebus connection string is required")
	}

	client, err := azservicebus.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create servicebus client failed: %w", err)
	}

	return &Client{
		client:    client,
		receivers: make(map[string]*queueReceiver),
		senders:   make(map[string]*azservicebus.Sender),
	}, nil
}

func (c *Client) receiverFor(queue string, create bool) (*queueReceiver, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.receivers[queue]; ok {
		return r, nil
	}
	if !create {
		return nil, fmt.Errorf("%w: %s", ErrReceiverNotFound, queue)
	}

	receiver, err := c.client.NewReceiverForQueue(queue, &azservicebus.ReceiverOptions{
		ReceiveMode: azservicebus.ReceiveModePeekLock,
	})
	if err != nil {
		return nil, fmt.Errorf("create receiver for %s failed: %w", queue, err)
	}

	r := &queueReceiver{receiver: receiver}
	c.receivers[queue] = r
	return r, nil
}

// Consume 拉取一条消息（实现 MessageSource 接口）
// 消息在锁定期内对其他消费者不可见；ttr 由队列的 LockDuration 决定，这里忽略
func (c *Client) Consume(ctx context.Context, queue string, timeout time.Duration, ttr time.Duration) (*framework.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r, err := c.receiverFor(queue, true)
	if err != nil {
		return nil, err
	}

	r.receiveMu.Lock()
	defer r.receiveMu.Unlock()

	receiveCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		receiveCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	msgs, err := r.receiver.ReceiveMessages(receiveCtx, 1, nil)
	if err != nil {
		// 拉取超时（父 Context 仍有效）视为没有消息
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("servicebus receive failed: %w", err)
	}
	if len(msgs) == 0 {
		return nil, nil
	}

	return toMessage(queue, msgs[0]), nil
}

func toMessage(queue string, m *azservicebus.ReceivedMessage) *framework.Message {
	extra := map[string]interface{}{}
	if m.LockedUntil != nil {
		extra["locked_until"] = *m.LockedUntil
	}
	if m.EnqueuedTime != nil {
		extra["enqueued_time"] = *m.EnqueuedTime
	}
	for k, v := range m.ApplicationProperties {
		extra[k] = v
	}

	msg := &framework.Message{
		ID:         m.MessageID,
		Queue:      queue,
		Data:       m.Body,
		Attempts:   int(m.DeliveryCount),
		ReceivedAt: time.Now(),
		Extra:      extra,
		Raw:        m,
	}
	if m.LockedUntil != nil {
		msg.LockedUntil = *m.LockedUntil
	}
	return msg
}

// settleTarget 取出结算所需的 Receiver 和原始消息
func (c *Client) settleTarget(msg *framework.Message) (*azservicebus.Receiver, *azservicebus.ReceivedMessage, error) {
	raw, ok := msg.Raw.(*azservicebus.ReceivedMessage)
	if !ok || raw == nil {
		return nil, nil, ErrUnexpectedRaw
	}
	r, err := c.receiverFor(msg.Queue, false)
	if err != nil {
		return nil, nil, err
	}
	return r.receiver, raw, nil
}

// Ack 完成消息，从队列中永久删除
func (c *Client) Ack(ctx context.Context, msg *framework.Message) error {
	receiver, raw, err := c.settleTarget(msg)
	if err != nil {
		return err
	}
	if err := receiver.CompleteMessage(ctx, raw, nil); err != nil {
		return fmt.Errorf("servicebus complete failed: %w", err)
	}
	return nil
}

// Release 放弃锁定，消息立即可以被重新投递（DeliveryCount + 1）
func (c *Client) Release(ctx context.Context, msg *framework.Message) error {
	receiver, raw, err := c.settleTarget(msg)
	if err != nil {
		return err
	}
	if err := receiver.AbandonMessage(ctx, raw, nil); err != nil {
		return fmt.Errorf("servicebus abandon failed: %w", err)
	}
	return nil
}

// Bury 移入队列自带的死信子队列
func (c *Client) Bury(ctx context.Context, msg *framework.Message, reason string) error {
	receiver, raw, err := c.settleTarget(msg)
	if err != nil {
		return err
	}
	if err := receiver.DeadLetterMessage(ctx, raw, &azservicebus.DeadLetterOptions{
		Reason: &reason,
	}); err != nil {
		return fmt.Errorf("servicebus dead letter failed: %w", err)
	}
	return nil
}

// RenewLock 续期 peek-lock（实现 LockRenewer 接口），返回新的锁到期时间
func (c *Client) RenewLock(ctx context.Context, msg *framework.Message) (time.Time, error) {
	receiver, raw, err := c.settleTarget(msg)
	if err != nil {
		return time.Time{}, err
	}
	if err := receiver.RenewMessageLock(ctx, raw, nil); err != nil {
		return time.Time{}, fmt.Errorf("servicebus renew lock failed: %w", err)
	}
	if raw.LockedUntil == nil {
		return time.Time{}, fmt.Errorf("servicebus renew lock returned no expiry for message %s", msg.ID)
	}
	return *raw.LockedUntil, nil
}

// Publish 发送消息（实现 MessagePublisher 接口）
func (c *Client) Publish(ctx context.Context, queue string, msg *framework.Message) error {
	c.mu.Lock()
	sender, ok := c.senders[queue]
	if !ok {
		var err error
		sender, err = c.client.NewSender(queue, nil)
		if err != nil {
			c.mu.Unlock()
			return fmt.Errorf("create sender for %s failed: %w", queue, err)
		}
		c.senders[queue] = sender
	}
	c.mu.Unlock()

	out := &azservicebus.Message{Body: msg.Data}
	if msg.ID != "" {
		id := msg.ID
		out.MessageID = &id
	}

	if err := sender.SendMessage(ctx, out, nil); err != nil {
		return fmt.Errorf("servicebus send failed: %w", err)
	}
	return nil
}

// Close 关闭所有 Receiver/Sender 以及底层连接
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for queue, r := range c.receivers {
		if err := r.receiver.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close receiver %s: %w", queue, err))
		}
	}
	for queue, s := range c.senders {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close sender %s: %w", queue, err))
		}
	}
	if err := c.client.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close client: %w", err))
	}

	c.receivers = make(map[string]*queueReceiver)
	c.senders = make(map[string]*azservicebus.Sender)
	return errors.Join(errs...)
}
