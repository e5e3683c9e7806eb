package chat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ndrwsmyth/oxychat/internal/domain/provider"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/metrics"
)

// ProviderResolver 按模型 ID 解析适配器
type ProviderResolver interface {
	Get(modelID string) (provider.Provider, error)
	List() []string
}

// Service 多模型对话编排：组装系统提示词、路由到供应商、转换事件
type Service struct {
	providers ProviderResolver
	prompts   *PromptBuilder
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewService 创建对话服务
func NewService(providers ProviderResolver, prompts *PromptBuilder, m *metrics.Metrics) *Service {
	return &Service{
		providers: providers,
		prompts:   prompts,
		metrics:   m,
		logger:    log.NewModuleLogger("chat", "service"),
	}
}

// Models 已注册模型
func (s *Service) Models() []string {
	return s.providers.List()
}

// Stream 流式生成回复
// 返回的 channel 以恰好一个终止事件结束；ctx 取消时直接关闭
func (s *Service) Stream(ctx context.Context, messages []provider.ChatMessage, contextText *string, model string) <-chan WireEvent {
	out := make(chan WireEvent, 16)
	logger := log.FromContext(ctx, s.logger)

	go func() {
		defer close(out)

		p, err := s.providers.Get(model)
		if err != nil {
			logger.Error("Provider not found", "model", model, "error", err)
			send(ctx, out, ErrorEvent(err.Error()))
			return
		}

		opts := provider.StreamOptions{
			SystemPrompt:    s.prompts.Build(contextText),
			ThinkingEnabled: true,
		}
		logger.Info("Streaming response", "model", model, "messages", len(messages))

		start := time.Now()
		defer func() { s.metrics.ObserveStreamDuration(model, time.Since(start)) }()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Provider stream panicked", "model", model, "panic", r)
				send(ctx, out, ErrorEvent(fmt.Sprintf("%v", r)))
			}
		}()

		for ev := range p.Stream(ctx, messages, opts) {
			if !send(ctx, out, FromStreamEvent(ev)) {
				return
			}
			if ev.IsTerminal() {
				return
			}
		}

		// 适配器未发出终止事件即关闭
		if ctx.Err() == nil {
			send(ctx, out, ErrorEvent("stream ended without completion"))
		}
	}()

	return out
}

// send ctx 取消时放弃发送
func send(ctx context.Context, out chan<- WireEvent, ev WireEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
