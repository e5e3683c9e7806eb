package chat

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
)

//go:embed prompts/system.txt
var defaultSystemPrompt string

const (
	datePlaceholder = "{current_date}"
	promptDateFmt   = "January 02, 2006"
)

// PromptBuilder 系统提示词模板，每次调用注入当天日期
type PromptBuilder struct {
	template string
	now      func() time.Time
}

// NewPromptBuilder 加载系统提示词，未配置文件时使用内置模板
func NewPromptBuilder(cfg *config.ChatConfig) (*PromptBuilder, error) {
	tmpl := defaultSystemPrompt
	if cfg != nil && cfg.SystemPromptFile != "" {
		data, err := os.ReadFile(cfg.SystemPromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read system prompt %s: %w", cfg.SystemPromptFile, err)
		}
		tmpl = string(data)
	}
	return &PromptBuilder{template: tmpl, now: time.Now}, nil
}

// NewPromptBuilderWithTemplate 使用指定模板和时钟
func NewPromptBuilderWithTemplate(tmpl string, now func() time.Time) *PromptBuilder {
	if now == nil {
		now = time.Now
	}
	return &PromptBuilder{template: tmpl, now: now}
}

// Build 生成系统提示词，有上下文时追加在末尾
func (p *PromptBuilder) Build(context *string) string {
	prompt := strings.ReplaceAll(p.template, datePlaceholder, p.now().Format(promptDateFmt))
	if context != nil && *context != "" {
		prompt += "\n\n" + *context
	}
	return prompt
}
