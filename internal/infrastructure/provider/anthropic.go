package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	domain "github.com/ndrwsmyth/oxychat/internal/domain/provider"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

const (
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	anthropicVersion        = "2023-06-01"
	defaultMaxTokens        = 8192
	defaultThinkingBudget   = 4096
)

// anthropicModelMap 对外模型 ID 到 API 模型名的映射
var anthropicModelMap = map[string]string{
	"claude-sonnet-4.5": "claude-sonnet-4-5-20250929",
	"claude-opus-4.5":   "claude-opus-4-5-20251101",
}

type anthropicThinking struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type anthropicRequest struct {
	Model     string               `json:"model"`
	Messages  []domain.ChatMessage `json:"messages"`
	MaxTokens int                  `json:"max_tokens"`
	System    string               `json:"system,omitempty"`
	Stream    bool                 `json:"stream"`
	Thinking  *anthropicThinking   `json:"thinking,omitempty"`
}

// anthropicStreamEvent Messages API 的流事件（只解析用到的字段）
type anthropicStreamEvent struct {
	Type         string `json:"type"`
	ContentBlock *struct {
		Type string `json:"type"`
	} `json:"content_block,omitempty"`
	Delta *struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	} `json:"delta,omitempty"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// AnthropicProvider Anthropic Messages API 适配器，支持扩展思考
type AnthropicProvider struct {
	modelID    string
	apiModel   string
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ domain.Provider = (*AnthropicProvider)(nil)

// NewAnthropicProvider 创建 Anthropic 适配器
func NewAnthropicProvider(opts Options) *AnthropicProvider {
	apiModel := opts.APIModel
	if apiModel == "" {
		apiModel = anthropicModelMap[opts.ModelID]
	}
	if apiModel == "" {
		apiModel = opts.ModelID
	}
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}
	return &AnthropicProvider{
		modelID:    opts.ModelID,
		apiModel:   apiModel,
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		httpClient: opts.httpClient(),
		logger:     log.NewModuleLogger("provider", "anthropic"),
	}
}

// ModelID 返回模型 ID
func (p *AnthropicProvider) ModelID() string {
	return p.modelID
}

// SupportsThinking Claude 支持扩展思考
func (p *AnthropicProvider) SupportsThinking() bool {
	return true
}

// APIModel 返回供应商侧模型名
func (p *AnthropicProvider) APIModel() string {
	return p.apiModel
}

// Stream 流式生成回复
func (p *AnthropicProvider) Stream(ctx context.Context, messages []domain.ChatMessage, opts domain.StreamOptions) <-chan domain.StreamEvent {
	metadata := map[string]any{"provider": "anthropic", "model": p.modelID}
	return runStream(ctx, metadata, func(w *eventWriter) error {
		return p.stream(ctx, w, messages, opts)
	})
}

func (p *AnthropicProvider) stream(ctx context.Context, w *eventWriter, messages []domain.ChatMessage, opts domain.StreamOptions) error {
	reqBody := anthropicRequest{
		Model:     p.apiModel,
		Messages:  messages,
		MaxTokens: opts.MaxTokens,
		System:    opts.SystemPrompt,
		Stream:    true,
	}
	if reqBody.MaxTokens <= 0 {
		reqBody.MaxTokens = defaultMaxTokens
	}
	if opts.ThinkingEnabled {
		budget := opts.ThinkingBudget
		if budget <= 0 {
			budget = defaultThinkingBudget
		}
		reqBody.Thinking = &anthropicThinking{Type: "enabled", BudgetTokens: budget}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("x-api-key", p.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)

	p.logger.Debug("Sending streaming request",
		"model", p.apiModel,
		"messages", len(messages),
		"thinking", reqBody.Thinking != nil,
	)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("Streaming request failed", "model", p.modelID, "error", err)
		return fmt.Errorf("anthropic API request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := statusError("anthropic", resp)
		p.logger.Error("Streaming request rejected", "model", p.modelID, "error", err)
		return err
	}

	inThinkingBlock := false
	completed := false
	err = readSSE(resp.Body, func(ev sseEvent) (bool, error) {
		if ev.Data == "" {
			return false, nil
		}

		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(ev.Data), &event); err != nil {
			return false, fmt.Errorf("failed to decode stream event: %w", err)
		}

		var out []domain.StreamEvent
		switch event.Type {
		case "content_block_start":
			if event.ContentBlock != nil && event.ContentBlock.Type == "thinking" {
				inThinkingBlock = true
				out = append(out, domain.ThinkingStart(map[string]any{"block_type": "thinking"}))
			}
		case "content_block_delta":
			if event.Delta != nil {
				if event.Delta.Thinking != "" {
					out = append(out, domain.Thinking(event.Delta.Thinking))
				}
				if event.Delta.Text != "" {
					out = append(out, domain.Content(event.Delta.Text))
				}
			}
		case "content_block_stop":
			if inThinkingBlock {
				inThinkingBlock = false
				out = append(out, domain.ThinkingEnd())
			}
		case "error":
			msg := "unknown stream error"
			if event.Error != nil {
				msg = event.Error.Message
			}
			return false, fmt.Errorf("anthropic stream error: %s", msg)
		case "message_stop":
			completed = true
			return true, nil
		}

		for _, e := range out {
			if !w.emit(e) {
				return false, ctx.Err()
			}
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if !completed {
		return errors.New("anthropic stream ended before message_stop")
	}
	return nil
}

// HealthCheck 仅检查 API key 是否配置
func (p *AnthropicProvider) HealthCheck(ctx context.Context) bool {
	if p.apiKey == "" {
		p.logger.Warn("ANTHROPIC_API_KEY not set", "model", p.modelID)
		return false
	}
	return true
}
