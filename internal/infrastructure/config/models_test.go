package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadModelCatalog_Embedded(t *testing.T) {
	catalog, err := LoadModelCatalog("")
	require.NoError(t, err)

	ids := make([]string, 0, len(catalog.Models))
	for _, m := range catalog.Models {
		ids = append(ids, m.ID)
	}
	assert.ElementsMatch(t, []string{"gpt-5.2", "claude-sonnet-4.5", "claude-opus-4.5", "grok-4"}, ids)

	entry, ok := catalog.Entry("grok-4")
	require.True(t, ok)
	assert.Equal(t, "xai", entry.Provider)
	assert.Equal(t, "grok-4-1-fast", entry.APIModel)
}

func TestModelCatalog_LimitsFor(t *testing.T) {
	catalog, err := LoadModelCatalog("")
	require.NoError(t, err)

	tests := []struct {
		name         string
		model        string
		contextLimit int
		maxMentions  int
	}{
		{"claude 精确匹配", "claude-sonnet-4.5", 180000, 10},
		{"claude 前缀匹配", "claude-haiku-9", 180000, 10},
		{"gpt", "gpt-5.2", 100000, 5},
		{"grok", "grok-4", 100000, 5},
		{"未知模型", "mystery-model", 100000, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limits := catalog.LimitsFor(tt.model)
			assert.Equal(t, tt.contextLimit, limits.ContextLimit)
			assert.Equal(t, tt.maxMentions, limits.MaxMentions)
		})
	}
}

func TestParseModelCatalog_FillsDefaults(t *testing.T) {
	catalog, err := ParseModelCatalog([]byte(`
models:
  - id: local-model
    provider: openai
    max_mentions: 2
`))
	require.NoError(t, err)

	entry, ok := catalog.Entry("local-model")
	require.True(t, ok)
	assert.Equal(t, "local-model", entry.APIModel, "api_model 缺省时等于 id")

	limits := catalog.LimitsFor("local-model")
	assert.Equal(t, 100000, limits.ContextLimit)
	assert.Equal(t, 2, limits.MaxMentions)
}

func TestParseModelCatalog_MissingID(t *testing.T) {
	_, err := ParseModelCatalog([]byte("models:\n  - provider: openai\n"))
	assert.Error(t, err)
}

func TestLoadModelCatalog_FromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  - id: only\n    provider: xai\n"), 0644))

	catalog, err := LoadModelCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog.Models, 1)
	assert.Equal(t, "only", catalog.Models[0].ID)
}
