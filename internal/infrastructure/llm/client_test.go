package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// fakeModel 记录调用参数的 langchaingo 模型
type fakeModel struct {
	reply    string
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (f *fakeModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	f.messages = messages
	for _, o := range options {
		o(&f.opts)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: f.reply}}}, nil
}

func (f *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func TestCleanTitle(t *testing.T) {
	long := strings.Repeat("a", 600)
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Quarterly Planning Review", "Quarterly Planning Review"},
		{"double quotes", `  "Budget Sync Notes"  `, "Budget Sync Notes"},
		{"single quotes", "'Hiring Plan'", "Hiring Plan"},
		{"whitespace only", "   ", ""},
		{"too long", long, strings.Repeat("a", 497) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanTitle(tt.in))
		})
	}
}

func TestCleanTitle_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("季度规划", 200)
	title := CleanTitle(long)
	assert.True(t, utf8.ValidString(title))
	assert.Equal(t, maxTitleLength, utf8.RuneCountInString(title))
	assert.True(t, strings.HasSuffix(title, "..."))
	assert.Equal(t, string([]rune(long)[:maxTitleLength-3])+"...", title)

	short := "季度规划回顾"
	assert.Equal(t, short, CleanTitle(short))
}

func TestTitleGenerator_Generate(t *testing.T) {
	model := &fakeModel{reply: "\"Roadmap Decisions Recap\"\n"}
	g := NewTitleGeneratorWithModel(model, "gpt-4.1-nano-2025-04-14")

	title, err := g.Generate(context.Background(), "What did we decide about the roadmap?")
	require.NoError(t, err)
	assert.Equal(t, "Roadmap Decisions Recap", title)

	require.Len(t, model.messages, 2)
	assert.Equal(t, llms.ChatMessageTypeSystem, model.messages[0].Role)
	assert.Equal(t, llms.ChatMessageTypeHuman, model.messages[1].Role)
	assert.Equal(t, titleMaxTokens, model.opts.MaxTokens)
	assert.InDelta(t, titleTemperature, model.opts.Temperature, 1e-9)
}

func TestTitleGenerator_EmptyReply(t *testing.T) {
	g := NewTitleGeneratorWithModel(&fakeModel{reply: `""`}, "m")

	_, err := g.Generate(context.Background(), "hi")
	assert.Error(t, err)
	assert.Equal(t, chat.DefaultTitle, g.GenerateOrDefault(context.Background(), "hi"))
}

func TestTitleGenerator_ModelError(t *testing.T) {
	g := NewTitleGeneratorWithModel(&fakeModel{err: errors.New("rate limited")}, "m")
	assert.Equal(t, chat.DefaultTitle, g.GenerateOrDefault(context.Background(), "hi"))
}

func TestNewTitleGenerator_NoKey(t *testing.T) {
	g, err := NewTitleGenerator(&config.TitleConfig{Model: "gpt-4.1-nano-2025-04-14"}, &config.ProvidersConfig{})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.Equal(t, "gpt-4.1-nano-2025-04-14", g.Model())
}
