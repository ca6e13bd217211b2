package worker

import (
	"fmt"

	"azpoc/backendapi/internal/framework"
	"azpoc/backendapi/pkg/config"
	"azpoc/backendapi/pkg/lmstfy"
	"azpoc/backendapi/pkg/rabbitmq"
	"azpoc/backendapi/pkg/servicebus"
)

// Source 既能消费也能发布的队列客户端
type Source interface {
	framework.MessageSource
	framework.MessagePublisher
}

var (
	_ Source = (*servicebus.Client)(nil)
	_ Source = (*lmstfy.Client)(nil)
	_ Source = (*rabbitmq.Client)(nil)

	// Service Bus 的 peek-lock 需要在处理期间续期
	_ framework.LockRenewer = (*servicebus.Client)(nil)
)

// NewSource 按 queue.provider 创建队列客户端
func NewSource(cfg *config.QueueConfig) (Source, error) {
	switch cfg.Provider {
	case config.ProviderServiceBus, "":
		return servicebus.NewClient(cfg.ServiceBus.ConnectionString)
	case config.ProviderLmstfy:
		return lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token, cfg.Lmstfy.DeadLetterQueue)
	case config.ProviderRabbitMQ:
		return rabbitmq.NewClient(cfg.RabbitMQ.URL, cfg.RabbitMQ.Prefetch)
	default:
		return nil, fmt.Errorf("unsupported queue provider: %s", cfg.Provider)
	}
}
