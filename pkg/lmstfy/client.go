package lmstfy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitleak/lmstfy/client"

	"azpoc/backendapi/internal/framework"
)

// 发布参数
const (
	defaultTTL   = 24 * time.Hour
	defaultTries = 3
)

// ErrNoDeadLetterQueue 未配置死信队列时无法主动 Bury
var ErrNoDeadLetterQueue = errors.New("lmstfy dead letter queue not configured")

// Client Lmstfy 客户端封装
type Client struct {
	cli             *client.LmstfyClient
	namespace       string
	deadLetterQueue string
}

// NewClient 创建 Lmstfy 客户端
func NewClient(host string, port int, namespace, token, deadLetterQueue string) (*Client, error) {
	if host == "" {
		return nil, fmt.Errorf("lmstfy host is required")
	}
	cli := client.NewLmstfyClient(host, port, namespace, token)
	return &Client{
		cli:             cli,
		namespace:       namespace,
		deadLetterQueue: deadLetterQueue,
	}, nil
}

// Consume 消费消息（实现 MessageSource 接口）
// lmstfy 的 TTR 即锁定时长：TTR 内未 Ack 的任务会被重新投递
func (c *Client) Consume(ctx context.Context, queue string, timeout time.Duration, ttr time.Duration) (*framework.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	job, err := c.cli.Consume(queue, uint32(ttr.Seconds()), uint32(timeout.Seconds()))
	if err != nil {
		return nil, fmt.Errorf("lmstfy consume failed: %w", err)
	}

	// 超时未拉到消息
	if job == nil {
		return nil, nil
	}

	return toMessage(queue, c.namespace, job), nil
}

func toMessage(queue, namespace string, job *client.Job) *framework.Message {
	return &framework.Message{
		ID:         job.ID,
		Queue:      queue,
		Data:       job.Data,
		Attempts:   attempts(job),
		ReceivedAt: time.Now(),
		Extra: map[string]interface{}{
			"namespace":    namespace,
			"remain_tries": job.RemainTries,
		},
		Raw: job,
	}
}

// attempts 由剩余次数推算已投递次数（每次 Consume 扣减一次）
// 按本服务发布时的 defaultTries 计算，其他发布方设置了更多 tries 时至少为 1
func attempts(job *client.Job) int {
	n := defaultTries - int(job.RemainTries)
	if n < 1 {
		return 1
	}
	return n
}

// Ack 确认消息（实现 MessageSource 接口）
func (c *Client) Ack(ctx context.Context, msg *framework.Message) error {
	err := c.cli.Ack(msg.Queue, msg.ID)
	if err != nil {
		return fmt.Errorf("lmstfy ack failed: %w", err)
	}
	return nil
}

// Release 不 Ack，等待 TTR 到期后 lmstfy 自动重新投递
func (c *Client) Release(ctx context.Context, msg *framework.Message) error {
	return nil
}

// Bury 转存到死信队列后 Ack 原任务
func (c *Client) Bury(ctx context.Context, msg *framework.Message, reason string) error {
	if c.deadLetterQueue == "" {
		return ErrNoDeadLetterQueue
	}
	if _, err := c.cli.Publish(c.deadLetterQueue, msg.Data, uint32(defaultTTL.Seconds()), 1, 0); err != nil {
		return fmt.Errorf("lmstfy bury (%s) failed: %w", reason, err)
	}
	return c.Ack(ctx, msg)
}

// Publish 发布消息（实现 MessagePublisher 接口）
func (c *Client) Publish(ctx context.Context, queue string, msg *framework.Message) error {
	_, err := c.cli.Publish(queue, msg.Data, uint32(defaultTTL.Seconds()), defaultTries, 0)
	if err != nil {
		return fmt.Errorf("lmstfy publish failed: %w", err)
	}
	return nil
}

// Close lmstfy 基于 HTTP，无常驻连接
func (c *Client) Close(ctx context.Context) error {
	return nil
}
