package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo}, // 默认值
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, parseLevel(tt.input))
		})
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")
		t.Setenv("LOG_OUTPUT", "")
		t.Setenv("ENV", "")

		cfg := NewConfigFromEnv()
		assert.Equal(t, "info", cfg.Level)
		assert.Equal(t, "console", cfg.Format)
		assert.Equal(t, "stdout", cfg.Output)
	})

	t.Run("development mode", func(t *testing.T) {
		t.Setenv("ENV", "development")
		t.Setenv("LOG_LEVEL", "error") // 应该被覆盖

		cfg := NewConfigFromEnv()
		assert.Equal(t, "debug", cfg.Level)
		assert.True(t, cfg.AddSource)
	})
}

func TestConfig_FilePath(t *testing.T) {
	path, ok := (&Config{Output: "file:/var/log/oxychat.log"}).filePath()
	assert.True(t, ok)
	assert.Equal(t, "/var/log/oxychat.log", path)

	_, ok = (&Config{Output: "stdout"}).filePath()
	assert.False(t, ok)

	_, ok = (&Config{Output: "file:"}).filePath()
	assert.False(t, ok)
}

func TestInit_FileOutputFansOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	Init(&Config{Level: "info", Format: "console", Output: "file:" + path})
	t.Cleanup(func() { _ = Close() })

	NewModuleLogger("test", "fanout").Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to file"`)
	assert.Contains(t, string(data), `"module":"test"`)
}

func TestNewModuleLogger(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, &Config{Level: "debug", Format: "console"})

	NewModuleLogger("chat", "pipeline").Debug("test message")

	out := buf.String()
	assert.True(t, strings.Contains(out, "test message"))
	assert.Contains(t, out, "module=chat")
	assert.Contains(t, out, "component=pipeline")
	assert.Contains(t, out, "service=oxychat-backend")
	assert.True(t, IsDebugMode())
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, &Config{Level: "info", Format: "json"})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithConversationID(ctx, "conv-1")

	FromContext(ctx, GetLogger()).Info("scoped")

	assert.Contains(t, buf.String(), `"request_id":"req-1"`)
	assert.Contains(t, buf.String(), `"conversation_id":"conv-1"`)
	assert.Equal(t, "req-1", RequestIDFromContext(ctx))
	assert.Empty(t, LogCtxFromContext(context.Background()))
}
