package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oxychat"

// 聊天请求结果
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeEphemeral = "ephemeral"
)

// Metrics 服务端 Prometheus 指标
type Metrics struct {
	ChatRequests   *prometheus.CounterVec
	StreamEvents   *prometheus.CounterVec
	ToolCalls      *prometheus.CounterVec
	TitleJobs      *prometheus.CounterVec
	StreamDuration *prometheus.HistogramVec
}

// New 创建指标并注册到 reg，reg 为 nil 时不注册
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Chat stream requests by model and outcome.",
		}, []string{"model", "outcome"}),
		StreamEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_events_total",
			Help:      "Wire events sent to clients by type.",
		}, []string{"type"}),
		ToolCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Recorded tool calls by tool and status.",
		}, []string{"tool", "status"}),
		TitleJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "title_jobs_total",
			Help:      "Auto title jobs by outcome.",
		}, []string{"outcome"}),
		StreamDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_stream_duration_seconds",
			Help:      "Wall time of provider streams.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"model"}),
	}
	if reg != nil {
		reg.MustRegister(m.ChatRequests, m.StreamEvents, m.ToolCalls, m.TitleJobs, m.StreamDuration)
	}
	return m
}

// NewDefault 注册到全局 registry，供 promhttp.Handler 暴露
func NewDefault() *Metrics {
	return New(prometheus.DefaultRegisterer)
}

// ObserveChatRequest 记录一次聊天请求
func (m *Metrics) ObserveChatRequest(model, outcome string) {
	if m == nil {
		return
	}
	m.ChatRequests.WithLabelValues(model, outcome).Inc()
}

// ObserveStreamEvent 记录一个下发事件
func (m *Metrics) ObserveStreamEvent(eventType string) {
	if m == nil {
		return
	}
	m.StreamEvents.WithLabelValues(eventType).Inc()
}

// ObserveToolCall 记录工具调用
func (m *Metrics) ObserveToolCall(tool, status string) {
	if m == nil {
		return
	}
	m.ToolCalls.WithLabelValues(tool, status).Inc()
}

// ObserveTitleJob 记录标题任务结果
func (m *Metrics) ObserveTitleJob(outcome string) {
	if m == nil {
		return
	}
	m.TitleJobs.WithLabelValues(outcome).Inc()
}

// ObserveStreamDuration 记录供应商流耗时
func (m *Metrics) ObserveStreamDuration(model string, d time.Duration) {
	if m == nil {
		return
	}
	m.StreamDuration.WithLabelValues(model).Observe(d.Seconds())
}
