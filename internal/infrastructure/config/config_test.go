package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("EMBEDDING_API_KEY", "")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, ":8000", cfg.Server.HTTPPort)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxBodyBytes)
	assert.Equal(t, "https://api.x.ai/v1", cfg.Providers.XAIBaseURL)
	assert.Equal(t, 120*time.Second, cfg.Providers.Timeout)
	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, "claude-sonnet-4.5", cfg.Chat.DefaultModel)
	assert.Equal(t, "gpt-4.1-nano-2025-04-14", cfg.Title.Model)
	assert.Empty(t, cfg.Inbox.Dir)
	assert.Equal(t, 500*time.Millisecond, cfg.Inbox.Debounce)
}

func TestNewConfig_EnvOverride(t *testing.T) {
	t.Setenv("OXYCHAT_HTTP_PORT", ":9100")
	t.Setenv("PROVIDER_TIMEOUT", "5s")
	t.Setenv("RAG_ENABLED", "false")
	t.Setenv("OXYCHAT_INBOX_DIR", "/srv/inbox")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Server.HTTPPort)
	assert.Equal(t, 5*time.Second, cfg.Providers.Timeout)
	assert.False(t, cfg.RAG.Enabled)
	assert.Equal(t, "/srv/inbox", NewInboxConfig(cfg).Dir)
}

func TestNewConfig_EmbeddingKeyFallsBackToOpenAI(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-openai")
	t.Setenv("EMBEDDING_API_KEY", "")

	cfg, err := NewConfig()
	require.NoError(t, err)
	assert.Equal(t, "sk-openai", cfg.RAG.EmbeddingAPIKey, "未配置 embedding key 时应复用 OpenAI key")
}

func TestNewConfig_InvalidDuration(t *testing.T) {
	t.Setenv("PROVIDER_TIMEOUT", "not-a-duration")

	_, err := NewConfig()
	assert.Error(t, err)
}
