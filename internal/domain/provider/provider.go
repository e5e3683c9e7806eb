package provider

import (
	"context"
	"errors"
	"strings"
)

// ErrUnknownModel 请求的模型未注册，属于配置错误，不应重试
var ErrUnknownModel = errors.New("unknown model")

// UnknownModelError 携带当前已注册模型列表
type UnknownModelError struct {
	Model     string
	Available []string
}

func (e *UnknownModelError) Error() string {
	available := "none"
	if len(e.Available) > 0 {
		available = strings.Join(e.Available, ", ")
	}
	return "Unknown model: " + e.Model + ". Available: " + available
}

// Is 支持 errors.Is(err, ErrUnknownModel)
func (e *UnknownModelError) Is(target error) bool {
	return target == ErrUnknownModel
}

// ChatMessage 发送给模型的对话消息
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// StreamOptions 单次流式调用参数，零值字段使用适配器默认值
type StreamOptions struct {
	SystemPrompt    string
	ThinkingEnabled bool
	MaxTokens       int
	ThinkingBudget  int
	ReasoningEffort string
}

// Provider 模型供应商适配器
//
// Stream 返回的 channel 以恰好一个终止事件（done 或 error）结束后关闭。
// 适配器不向调用方返回错误，所有失败都转换为 error 事件。
type Provider interface {
	ModelID() string
	SupportsThinking() bool
	Stream(ctx context.Context, messages []ChatMessage, opts StreamOptions) <-chan StreamEvent
	HealthCheck(ctx context.Context) bool
}
