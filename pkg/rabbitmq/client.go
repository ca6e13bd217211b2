package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"azpoc/backendapi/internal/framework"
)

var (
	// ErrUnexpectedRaw 消息不是由本客户端拉取的
	ErrUnexpectedRaw = errors.New("rabbitmq: message was not received by this client")
	// ErrDeliveriesClosed 消费通道已关闭（连接断开或 Close）
	ErrDeliveriesClosed = errors.New("rabbitmq: delivery channel closed")
)

// Client RabbitMQ 客户端封装（手动 Ack）
type Client struct {
	connection *amqp.Connection
	consumeCh  *amqp.Channel
	publishCh  *amqp.Channel
	prefetch   int

	mu         sync.Mutex
	deliveries map[string]<-chan amqp.Delivery
}

// NewClient 建立连接并设置 QoS
func NewClient(url string, prefetch int) (*Client, error) {
	if url == "" {
		return nil, fmt.Errorf("rabbitmq url is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	consumeCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	// prefetch 限制未 Ack 的消息数，相当于锁定窗口
	if err := consumeCh.Qos(prefetch, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	publishCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create publish channel: %w", err)
	}

	return &Client{
		connection: conn,
		consumeCh:  consumeCh,
		publishCh:  publishCh,
		prefetch:   prefetch,
		deliveries: make(map[string]<-chan amqp.Delivery),
	}, nil
}

func (c *Client) deliveriesFor(queue string) (<-chan amqp.Delivery, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d, ok := c.deliveries[queue]; ok {
		return d, nil
	}

	d, err := c.consumeCh.Consume(
		queue,
		"",    // consumer tag 由服务端生成
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume %s: %w", queue, err)
	}

	c.deliveries[queue] = d
	return d, nil
}

// Consume 等待一条投递（实现 MessageSource 接口）
// ttr 不适用：未 Ack 的投递在连接断开时由 broker 重新入队
func (c *Client) Consume(ctx context.Context, queue string, timeout time.Duration, ttr time.Duration) (*framework.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	deliveries, err := c.deliveriesFor(queue)
	if err != nil {
		return nil, err
	}

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeoutCh:
		return nil, nil
	case d, ok := <-deliveries:
		if !ok {
			return nil, ErrDeliveriesClosed
		}
		return toMessage(queue, d), nil
	}
}

func toMessage(queue string, d amqp.Delivery) *framework.Message {
	id := d.MessageId
	if id == "" {
		id = uuid.NewString()
	}

	extra := map[string]interface{}{
		"delivery_tag": d.DeliveryTag,
		"redelivered":  d.Redelivered,
	}
	if d.ContentType != "" {
		extra["content_type"] = d.ContentType
	}

	return &framework.Message{
		ID:         id,
		Queue:      queue,
		Data:       d.Body,
		Attempts:   attempts(d),
		ReceivedAt: time.Now(),
		Extra:      extra,
		Raw:        d,
	}
}

// attempts 投递次数：quorum 队列带 x-delivery-count，经典队列只能区分是否重投
func attempts(d amqp.Delivery) int {
	switch v := d.Headers["x-delivery-count"].(type) {
	case int64:
		return int(v) + 1
	case int32:
		return int(v) + 1
	case int:
		return v + 1
	}
	if d.Redelivered {
		return 2
	}
	return 1
}

func delivery(msg *framework.Message) (amqp.Delivery, error) {
	d, ok := msg.Raw.(amqp.Delivery)
	if !ok {
		return amqp.Delivery{}, ErrUnexpectedRaw
	}
	return d, nil
}

// Ack 确认投递
func (c *Client) Ack(ctx context.Context, msg *framework.Message) error {
	d, err := delivery(msg)
	if err != nil {
		return err
	}
	if err := d.Ack(false); err != nil {
		return fmt.Errorf("rabbitmq ack failed: %w", err)
	}
	return nil
}

// Release 拒绝并重新入队
func (c *Client) Release(ctx context.Context, msg *framework.Message) error {
	d, err := delivery(msg)
	if err != nil {
		return err
	}
	if err := d.Nack(false, true); err != nil {
		return fmt.Errorf("rabbitmq nack (requeue) failed: %w", err)
	}
	return nil
}

// Bury 拒绝且不重新入队，队列配置了 x-dead-letter-exchange 时进入死信
func (c *Client) Bury(ctx context.Context, msg *framework.Message, reason string) error {
	d, err := delivery(msg)
	if err != nil {
		return err
	}
	if err := d.Nack(false, false); err != nil {
		return fmt.Errorf("rabbitmq nack (%s) failed: %w", reason, err)
	}
	return nil
}

// Publish 通过默认交换机投递到队列（实现 MessagePublisher 接口）
func (c *Client) Publish(ctx context.Context, queue string, msg *framework.Message) error {
	id := msg.ID
	if id == "" {
		id = uuid.NewString()
	}

	err := c.publishCh.PublishWithContext(ctx,
		"",    // exchange
		queue, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/octet-stream",
			DeliveryMode: amqp.Persistent,
			MessageId:    id,
			Timestamp:    time.Now(),
			Body:         msg.Data,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}
	return nil
}

// Close 关闭 channel 与连接，未 Ack 的投递由 broker 重新入队
func (c *Client) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if c.consumeCh != nil && !c.consumeCh.IsClosed() {
		errs = append(errs, c.consumeCh.Close())
	}
	if c.publishCh != nil && !c.publishCh.IsClosed() {
		errs = append(errs, c.publishCh.Close())
	}
	if c.connection != nil && !c.connection.IsClosed() {
		errs = append(errs, c.connection.Close())
	}
	c.deliveries = make(map[string]<-chan amqp.Delivery)
	return errors.Join(errs...)
}
