package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "backendapi"

// Metrics 队列处理指标，每个实例使用独立的 Registry
type Metrics struct {
	registry *prometheus.Registry

	messagesReceived   prometheus.Counter
	messagesSettled    *prometheus.CounterVec
	processingDuration prometheus.Histogram
	queueErrors        *prometheus.CounterVec
}

// New 创建并注册指标
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		messagesReceived: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_received_total",
				Help:      "Count of messages handed to the processor",
			},
		),

		messagesSettled: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_settled_total",
				Help:      "Count of messages settled, by action",
			},
			[]string{"action"},
		),

		processingDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "processing_duration_seconds",
				Help:      "Time from handler start to settlement",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
		),

		queueErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "queue_errors_total",
				Help:      "Count of errors reported to the error handler, by source",
			},
			[]string{"source"},
		),
	}

	m.registry.MustRegister(
		m.messagesReceived,
		m.messagesSettled,
		m.processingDuration,
		m.queueErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// MessageReceived 记录一条进入处理流程的消息
func (m *Metrics) MessageReceived() {
	m.messagesReceived.Inc()
}

// MessageSettled 记录结算动作与耗时
func (m *Metrics) MessageSettled(action string, duration time.Duration) {
	m.messagesSettled.WithLabelValues(action).Inc()
	m.processingDuration.Observe(duration.Seconds())
}

// QueueError 记录错误来源
func (m *Metrics) QueueError(source string) {
	m.queueErrors.WithLabelValues(source).Inc()
}

// Handler /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
