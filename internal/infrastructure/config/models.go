package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed models.yaml
var defaultModelsYAML []byte

// ModelLimits 单个模型的上下文预算
type ModelLimits struct {
	ContextLimit int `yaml:"context_limit"`
	MaxMentions  int `yaml:"max_mentions"`
}

// ModelEntry 模型目录条目
type ModelEntry struct {
	ID       string `yaml:"id"`
	Provider string `yaml:"provider"` // openai | anthropic | xai
	APIModel string `yaml:"api_model"`
	ModelLimits `yaml:",inline"`
}

// ModelFamily 按前缀匹配的预算规则
type ModelFamily struct {
	Prefix      string `yaml:"prefix"`
	ModelLimits `yaml:",inline"`
}

// ModelCatalog 模型目录
type ModelCatalog struct {
	Default  ModelLimits   `yaml:"default"`
	Families []ModelFamily `yaml:"families"`
	Models   []ModelEntry  `yaml:"models"`
}

// ParseModelCatalog 解析 YAML 模型目录
func ParseModelCatalog(data []byte) (*ModelCatalog, error) {
	var catalog ModelCatalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse model catalog: %w", err)
	}
	if catalog.Default.ContextLimit <= 0 {
		catalog.Default.ContextLimit = 100000
	}
	if catalog.Default.MaxMentions <= 0 {
		catalog.Default.MaxMentions = 5
	}
	for i, m := range catalog.Models {
		if m.ID == "" {
			return nil, fmt.Errorf("model catalog entry %d has no id", i)
		}
		if m.APIModel == "" {
			catalog.Models[i].APIModel = m.ID
		}
	}
	return &catalog, nil
}

// LoadModelCatalog 加载模型目录，path 为空时使用内置目录
func LoadModelCatalog(path string) (*ModelCatalog, error) {
	if path == "" {
		return ParseModelCatalog(defaultModelsYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model catalog %s: %w", path, err)
	}
	return ParseModelCatalog(data)
}

// NewModelCatalog wire 提供者
func NewModelCatalog(cfg *ChatConfig) (*ModelCatalog, error) {
	return LoadModelCatalog(cfg.ModelsFile)
}

// Entry 按 ID 查找模型条目
func (c *ModelCatalog) Entry(modelID string) (ModelEntry, bool) {
	for _, m := range c.Models {
		if m.ID == modelID {
			return m, true
		}
	}
	return ModelEntry{}, false
}

// LimitsFor 返回模型预算：精确匹配 > 前缀匹配 > 默认值
// 缺失的字段回落到默认值
func (c *ModelCatalog) LimitsFor(modelID string) ModelLimits {
	limits := c.Default
	if m, ok := c.Entry(modelID); ok {
		return mergeLimits(m.ModelLimits, limits)
	}
	for _, f := range c.Families {
		if f.Prefix != "" && strings.HasPrefix(modelID, f.Prefix) {
			return mergeLimits(f.ModelLimits, limits)
		}
	}
	return limits
}

func mergeLimits(l, fallback ModelLimits) ModelLimits {
	if l.ContextLimit <= 0 {
		l.ContextLimit = fallback.ContextLimit
	}
	if l.MaxMentions <= 0 {
		l.MaxMentions = fallback.MaxMentions
	}
	return l
}
