package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	domain "github.com/ndrwsmyth/oxychat/internal/domain/provider"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

const (
	defaultOpenAIBaseURL   = "https://api.openai.com/v1"
	defaultReasoningEffort = "medium"
	defaultTimeout         = 120 * time.Second
)

// Options 适配器公共参数
type Options struct {
	ModelID  string // 对外暴露的模型 ID
	APIModel string // 供应商侧模型名，留空等于 ModelID
	BaseURL  string
	APIKey   string
	Timeout  time.Duration
}

func (o Options) apiModel() string {
	if o.APIModel != "" {
		return o.APIModel
	}
	return o.ModelID
}

func (o Options) httpClient() *http.Client {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// chatCompletionRequest OpenAI 兼容的流式请求
type chatCompletionRequest struct {
	Model           string               `json:"model"`
	Messages        []domain.ChatMessage `json:"messages"`
	Stream          bool                 `json:"stream"`
	MaxTokens       int                  `json:"max_tokens,omitempty"`
	ReasoningEffort string               `json:"reasoning_effort,omitempty"`
}

// chatCompletionChunk 流式响应分片
type chatCompletionChunk struct {
	Choices []struct {
		Delta struct {
			Content          string `json:"content"`
			ReasoningContent string `json:"reasoning_content"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// OpenAIProvider OpenAI Chat Completions 适配器
type OpenAIProvider struct {
	vendor     string
	modelID    string
	apiModel   string
	baseURL    string
	apiKey     string
	thinking   bool
	httpClient *http.Client
	logger     *slog.Logger
}

var _ domain.Provider = (*OpenAIProvider)(nil)

// NewOpenAIProvider 创建 OpenAI 适配器
func NewOpenAIProvider(opts Options) *OpenAIProvider {
	return newOpenAICompatible("openai", defaultOpenAIBaseURL, true, opts)
}

func newOpenAICompatible(vendor, defaultBaseURL string, thinking bool, opts Options) *OpenAIProvider {
	baseURL := strings.TrimSuffix(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAIProvider{
		vendor:     vendor,
		modelID:    opts.ModelID,
		apiModel:   opts.apiModel(),
		baseURL:    baseURL,
		apiKey:     opts.APIKey,
		thinking:   thinking,
		httpClient: opts.httpClient(),
		logger:     log.NewModuleLogger("provider", vendor),
	}
}

// ModelID 返回模型 ID
func (p *OpenAIProvider) ModelID() string {
	return p.modelID
}

// SupportsThinking 是否支持推理通道
func (p *OpenAIProvider) SupportsThinking() bool {
	return p.thinking
}

func (p *OpenAIProvider) metadata() map[string]any {
	return map[string]any{"provider": p.vendor, "model": p.modelID}
}

// Stream 流式生成回复
func (p *OpenAIProvider) Stream(ctx context.Context, messages []domain.ChatMessage, opts domain.StreamOptions) <-chan domain.StreamEvent {
	return runStream(ctx, p.metadata(), func(w *eventWriter) error {
		return p.stream(ctx, w, messages, opts)
	})
}

func (p *OpenAIProvider) stream(ctx context.Context, w *eventWriter, messages []domain.ChatMessage, opts domain.StreamOptions) error {
	full := make([]domain.ChatMessage, 0, len(messages)+1)
	if opts.SystemPrompt != "" {
		full = append(full, domain.ChatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	full = append(full, messages...)

	reqBody := chatCompletionRequest{
		Model:     p.apiModel,
		Messages:  full,
		Stream:    true,
		MaxTokens: opts.MaxTokens,
	}
	if opts.ThinkingEnabled && p.thinking {
		reqBody.ReasoningEffort = opts.ReasoningEffort
		if reqBody.ReasoningEffort == "" {
			reqBody.ReasoningEffort = defaultReasoningEffort
		}
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	p.logger.Debug("Sending streaming request",
		"model", p.apiModel,
		"messages", len(full),
		"reasoning_effort", reqBody.ReasoningEffort,
	)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error("Streaming request failed", "model", p.modelID, "error", err)
		return fmt.Errorf("%s API request failed: %w", p.vendor, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := statusError(p.vendor, resp)
		p.logger.Error("Streaming request rejected", "model", p.modelID, "error", err)
		return err
	}

	completed := false
	err = readSSE(resp.Body, func(ev sseEvent) (bool, error) {
		if ev.Data == "[DONE]" {
			completed = true
			return true, nil
		}
		if ev.Data == "" {
			return false, nil
		}

		var chunk chatCompletionChunk
		if err := json.Unmarshal([]byte(ev.Data), &chunk); err != nil {
			return false, fmt.Errorf("failed to decode stream chunk: %w", err)
		}
		if chunk.Error != nil {
			return false, fmt.Errorf("%s stream error: %s", p.vendor, chunk.Error.Message)
		}

		for _, choice := range chunk.Choices {
			if choice.Delta.ReasoningContent != "" {
				if !w.emit(domain.Thinking(choice.Delta.ReasoningContent)) {
					return false, ctx.Err()
				}
			}
			if choice.Delta.Content != "" {
				if !w.emit(domain.Content(choice.Delta.Content)) {
					return false, ctx.Err()
				}
			}
		}
		return false, nil
	})
	if err != nil {
		return err
	}
	if !completed {
		return fmt.Errorf("%s stream ended before [DONE]", p.vendor)
	}
	return nil
}

// HealthCheck 通过模型列表接口检查连通性
func (p *OpenAIProvider) HealthCheck(ctx context.Context) bool {
	if p.apiKey == "" {
		p.logger.Warn("API key not set", "model", p.modelID)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Warn("Health check failed", "model", p.modelID, "error", err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		p.logger.Warn("Health check failed", "model", p.modelID, "status", resp.StatusCode)
		return false
	}
	return true
}
