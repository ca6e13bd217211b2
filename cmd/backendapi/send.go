package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"azpoc/backendapi/internal/framework"
	"azpoc/backendapi/internal/worker"
	"azpoc/backendapi/pkg/logger"
)

const sendTimeout = 30 * time.Second

func newSendCmd(configPath *string) *cobra.Command {
	var (
		count int
		body  string
	)

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Publish test messages to the configured queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}

			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer log.Sync()

			source, err := worker.NewSource(&cfg.Queue)
			if err != nil {
				return fmt.Errorf("failed to create queue client: %w", err)
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), sendTimeout)
			defer cancel()
			defer source.Close(context.Background())

			return publishTestMessages(ctx, source, cfg.Worker.QueueName, buildTestMessages(count, body), log)
		},
	}

	cmd.Flags().IntVar(&count, "count", 1, "发送的消息数量")
	cmd.Flags().StringVar(&body, "body", "simulated work item", "消息内容")

	return cmd
}

// buildTestMessages 生成测试消息，ID 使用 UUID
func buildTestMessages(count int, body string) []*framework.Message {
	msgs := make([]*framework.Message, 0, count)
	for i := 0; i < count; i++ {
		msgs = append(msgs, &framework.Message{
			ID:   uuid.New().String(),
			Data: []byte(body),
		})
	}
	return msgs
}

func publishTestMessages(ctx context.Context, publisher framework.MessagePublisher, queue string, msgs []*framework.Message, log logger.Logger) error {
	for i, msg := range msgs {
		if err := publisher.Publish(ctx, queue, msg); err != nil {
			return fmt.Errorf("publish message %d/%d failed: %w", i+1, len(msgs), err)
		}
		log.Infof(ctx, "Message #%s - Sent to %s", msg.ID, queue)
	}
	return nil
}
