package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	titleSystemPrompt = "Generate a concise 3-5 word title for this conversation. Do not use quotes or punctuation. Make it descriptive and specific."
	titleMaxTokens    = 20
	titleTemperature  = 0.7
	// maxTitleLength 与会话标题列宽一致
	maxTitleLength = 500
)

// ErrModelUnavailable 未配置 OpenAI 凭证
var ErrModelUnavailable = errors.New("title model not configured")

// TitleGenerator 使用 LLM 为会话生成标题
type TitleGenerator struct {
	llm       llms.Model
	modelName string
	logger    *slog.Logger
}

// NewTitleGenerator 创建标题生成器
// 未配置 OPENAI_API_KEY 时返回的生成器总是产生 ErrModelUnavailable
func NewTitleGenerator(titleCfg *config.TitleConfig, providers *config.ProvidersConfig) (*TitleGenerator, error) {
	logger := log.NewModuleLogger("llm", "title")
	if providers.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not configured, auto titles disabled")
		return &TitleGenerator{modelName: titleCfg.Model, logger: logger}, nil
	}

	opts := []openai.Option{
		openai.WithToken(providers.OpenAIAPIKey),
		openai.WithModel(titleCfg.Model),
	}
	if providers.OpenAIBaseURL != "" {
		opts = append(opts, openai.WithBaseURL(providers.OpenAIBaseURL))
	}
	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return NewTitleGeneratorWithModel(model, titleCfg.Model), nil
}

// NewTitleGeneratorWithModel 使用已有的 langchaingo 模型
func NewTitleGeneratorWithModel(model llms.Model, modelName string) *TitleGenerator {
	return &TitleGenerator{
		llm:       model,
		modelName: modelName,
		logger:    log.NewModuleLogger("llm", "title"),
	}
}

// Model 返回模型名称
func (g *TitleGenerator) Model() string {
	return g.modelName
}

// Generate 根据首条用户消息生成标题
// 出错时返回错误，调用方自行决定是否使用默认标题
func (g *TitleGenerator) Generate(ctx context.Context, userQuery string) (string, error) {
	if g.llm == nil {
		return "", ErrModelUnavailable
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, titleSystemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userQuery),
	}
	resp, err := g.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(titleMaxTokens),
		llms.WithTemperature(titleTemperature),
	)
	if err != nil {
		return "", fmt.Errorf("generate title: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}

	title := CleanTitle(resp.Choices[0].Content)
	if title == "" {
		return "", fmt.Errorf("empty title")
	}
	return title, nil
}

// GenerateOrDefault 生成标题，失败时返回默认标题
func (g *TitleGenerator) GenerateOrDefault(ctx context.Context, userQuery string) string {
	title, err := g.Generate(ctx, userQuery)
	if err != nil {
		if !errors.Is(err, ErrModelUnavailable) {
			log.FromContext(ctx, g.logger).Warn("Title generation failed", "error", err)
		}
		return chat.DefaultTitle
	}
	return title
}

// CleanTitle 去除首尾引号和空白，超长时截断
func CleanTitle(raw string) string {
	title := strings.TrimSpace(raw)
	title = strings.Trim(title, `"'`)
	title = strings.TrimSpace(title)
	if runes := []rune(title); len(runes) > maxTitleLength {
		title = string(runes[:maxTitleLength-3]) + "..."
	}
	return title
}
