package provider

import (
	"context"

	domain "github.com/ndrwsmyth/oxychat/internal/domain/provider"
)

const defaultXAIBaseURL = "https://api.x.ai/v1"

// XAIProvider xAI Grok 适配器（OpenAI 兼容接口，无推理通道）
type XAIProvider struct {
	*OpenAIProvider
}

var _ domain.Provider = (*XAIProvider)(nil)

// NewXAIProvider 创建 xAI 适配器
func NewXAIProvider(opts Options) *XAIProvider {
	return &XAIProvider{
		OpenAIProvider: newOpenAICompatible("xai", defaultXAIBaseURL, false, opts),
	}
}

// Stream 未配置 API key 时直接返回单个错误事件
func (p *XAIProvider) Stream(ctx context.Context, messages []domain.ChatMessage, opts domain.StreamOptions) <-chan domain.StreamEvent {
	if p.apiKey == "" {
		out := make(chan domain.StreamEvent, 1)
		out <- domain.Error("XAI_API_KEY not configured", map[string]any{"provider": "xai"})
		close(out)
		return out
	}
	return p.OpenAIProvider.Stream(ctx, messages, opts)
}
