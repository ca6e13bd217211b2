package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// 队列类型
const (
	ProviderServiceBus = "servicebus"
	ProviderLmstfy     = "lmstfy"
	ProviderRabbitMQ   = "rabbitmq"
)

// EnvDevelopment 开发环境标识（开启 Swagger、console 日志）
const EnvDevelopment = "development"

// KeySleepDuration 模拟处理时长的配置键，必须显式提供
const KeySleepDuration = "worker.processor.sleep_duration_sec"

var (
	// ErrSleepDurationMissing 未提供 SLEEP_DURATION_SEC
	ErrSleepDurationMissing = errors.New("SLEEP_DURATION_SEC is required")
	// ErrSleepDurationInvalid SLEEP_DURATION_SEC 不是十进制 32 位整数
	ErrSleepDurationInvalid = errors.New("SLEEP_DURATION_SEC must be a decimal 32-bit integer")
)

// Config 全局配置
type Config struct {
	App    AppConfig    `mapstructure:"app"`
	Server ServerConfig `mapstructure:"server"`
	Queue  QueueConfig  `mapstructure:"queue"`
	Redis  RedisConfig  `mapstructure:"redis"`
	Worker WorkerConfig `mapstructure:"worker"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name" validate:"required"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// ServerConfig HTTP 服务配置
type ServerConfig struct {
	Port            string        `mapstructure:"port" validate:"required,numeric"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// QueueConfig 消息队列连接配置
type QueueConfig struct {
	Provider   string           `mapstructure:"provider" validate:"oneof=servicebus lmstfy rabbitmq"`
	ServiceBus ServiceBusConfig `mapstructure:"servicebus"`
	Lmstfy     LmstfyConfig     `mapstructure:"lmstfy"`
	RabbitMQ   RabbitMQConfig   `mapstructure:"rabbitmq"`
}

// ServiceBusConfig Azure Service Bus 配置
type ServiceBusConfig struct {
	ConnectionString string `mapstructure:"connection_string" json:"-"`
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Namespace       string `mapstructure:"namespace"`
	Token           string `mapstructure:"token" json:"-"`
	DeadLetterQueue string `mapstructure:"dead_letter_queue"` // Bury 时转存的队列
}

// RabbitMQConfig RabbitMQ 配置
type RabbitMQConfig struct {
	URL      string `mapstructure:"url" json:"-"`
	Prefetch int    `mapstructure:"prefetch" validate:"min=0"`
}

// RedisConfig Redis 配置（Addr 为空则不发送处理完成通知）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password" json:"-"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name       string           `mapstructure:"name" validate:"required"`
	QueueName  string           `mapstructure:"queue_name" validate:"required"`
	Subscriber SubscriberConfig `mapstructure:"subscriber"`
	Processor  ProcessorConfig  `mapstructure:"processor"`
	Policy     PolicyConfig     `mapstructure:"policy"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads" validate:"min=1"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`                           // 拉取间隔
	Timeout      time.Duration `mapstructure:"timeout" validate:"min=0"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr" validate:"min=0"`           // Time-To-Run（仅 lmstfy）
	ErrorBackoff time.Duration `mapstructure:"error_backoff" validate:"min=0"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads          int           `mapstructure:"threads" validate:"min=1"`            // 并发处理数
	BufferSize       int           `mapstructure:"buffer_size" validate:"min=0"`        // Channel 缓冲大小
	Timeout          time.Duration `mapstructure:"timeout" validate:"min=0"`            // 单个消息超时，0 表示不限制
	SleepDurationSec int           `mapstructure:"sleep_duration_sec" validate:"min=0"` // 模拟处理时长（秒）
	MaxLockRenewal   time.Duration `mapstructure:"max_lock_renewal" validate:"min=0"`   // 消息锁自动续期的最长时间，0 表示不续期
}

// PolicyConfig 失败消息的投递策略
type PolicyConfig struct {
	// MaxDeliveries 大于 0 时，已投递次数达到该值的 Release 会改为 Bury；0 交给队列自身策略
	MaxDeliveries int `mapstructure:"max_deliveries" validate:"min=0"`
}

// SleepDuration 模拟处理时长
func (c *Config) SleepDuration() time.Duration {
	return time.Duration(c.Worker.Processor.SleepDurationSec) * time.Second
}

// IsDevelopment 是否为开发环境
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.Env, EnvDevelopment)
}

// envBindings 配置键与环境变量的对应关系
var envBindings = map[string]string{
	KeySleepDuration:                     "SLEEP_DURATION_SEC",
	"queue.servicebus.connection_string": "NAMESPACE_CONNECTION_STRING",
	"worker.queue_name":                  "QUEUE_NAME",
	"queue.provider":                     "QUEUE_PROVIDER",
	"app.env":                            "APP_ENV",
	"app.log_level":                      "LOG_LEVEL",
	"server.port":                        "SERVER_PORT",
	"queue.lmstfy.host":                  "LMSTFY_HOST",
	"queue.lmstfy.token":                 "LMSTFY_TOKEN",
	"queue.rabbitmq.url":                 "RABBITMQ_URL",
	"redis.addr":                         "REDIS_ADDR",
	"redis.password":                     "REDIS_PASSWORD",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "backendapi")
	v.SetDefault("app.env", "production")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("queue.provider", ProviderServiceBus)
	v.SetDefault("queue.lmstfy.port", 7777)
	v.SetDefault("queue.rabbitmq.prefetch", 1)

	v.SetDefault("redis.channel", "message_processed")

	v.SetDefault("worker.name", "simulated-work")
	v.SetDefault("worker.subscriber.threads", 1)
	v.SetDefault("worker.subscriber.rate", time.Duration(0))
	v.SetDefault("worker.subscriber.timeout", 5*time.Second)
	v.SetDefault("worker.subscriber.ttr", 60*time.Second)
	v.SetDefault("worker.subscriber.error_backoff", time.Second)
	v.SetDefault("worker.processor.threads", 1)
	v.SetDefault("worker.processor.buffer_size", 0)
	v.SetDefault("worker.processor.timeout", time.Duration(0))
	v.SetDefault("worker.processor.max_lock_renewal", 5*time.Minute)
	v.SetDefault("worker.policy.max_deliveries", 0)
}

// Load 加载配置
// configPath 为空时仅使用默认值与环境变量；环境变量优先于配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s failed: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config failed: %w", err)
		}
	}

	if !v.IsSet(KeySleepDuration) {
		return nil, ErrSleepDurationMissing
	}
	sec, err := parseSleepDuration(v.GetString(KeySleepDuration))
	if err != nil {
		return nil, err
	}
	v.Set(KeySleepDuration, sec)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	return &cfg, nil
}

// parseSleepDuration 只接受十进制（可带符号），不接受 0x/0 前缀和下划线，超出 int32 视为错误
func parseSleepDuration(raw string) (int, error) {
	s := strings.TrimSpace(raw)
	sec, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrSleepDurationInvalid, raw)
	}
	return int(sec), nil
}

// Validate 验证配置
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch c.Queue.Provider {
	case ProviderServiceBus:
		if c.Queue.ServiceBus.ConnectionString == "" {
			return fmt.Errorf("NAMESPACE_CONNECTION_STRING is required for provider %s", c.Queue.Provider)
		}
	case ProviderLmstfy:
		if c.Queue.Lmstfy.Host == "" {
			return fmt.Errorf("queue.lmstfy.host is required")
		}
		if c.Queue.Lmstfy.Namespace == "" {
			return fmt.Errorf("queue.lmstfy.namespace is required")
		}
		if c.Queue.Lmstfy.Token == "" {
			return fmt.Errorf("queue.lmstfy.token is required")
		}
		// lmstfy 的拉取超时按秒取整，0 为非阻塞拉取
		if c.Worker.Subscriber.Timeout < time.Second {
			return fmt.Errorf("worker.subscriber.timeout must be at least 1s for provider %s", c.Queue.Provider)
		}
	case ProviderRabbitMQ:
		if c.Queue.RabbitMQ.URL == "" {
			return fmt.Errorf("queue.rabbitmq.url is required")
		}
	}

	if t := c.Worker.Processor.Timeout; t > 0 && t <= c.SleepDuration() {
		return fmt.Errorf("worker.processor.timeout (%v) must exceed the simulated duration (%v)", t, c.SleepDuration())
	}

	return nil
}
