package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Providers ProvidersConfig
	RAG       RAGConfig
	Chat      ChatConfig
	Title     TitleConfig
	Inbox     InboxConfig
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTPPort string `env:"OXYCHAT_HTTP_PORT" envDefault:":8000"`
	// 聊天流接口按客户端限流
	RateLimitRPS   float64 `env:"CHAT_RATE_LIMIT_RPS" envDefault:"2"`
	RateLimitBurst int     `env:"CHAT_RATE_LIMIT_BURST" envDefault:"5"`
	// MaxBodyBytes 请求体上限，文档导入也受此限制
	MaxBodyBytes int64 `env:"OXYCHAT_MAX_BODY_BYTES" envDefault:"10485760"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	// Path 留空表示使用数据目录下的 oxychat.db
	Path string `env:"OXYCHAT_DB_PATH"`
}

// ProvidersConfig 模型供应商配置
type ProvidersConfig struct {
	OpenAIAPIKey     string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string        `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	AnthropicAPIKey  string        `env:"ANTHROPIC_API_KEY"`
	AnthropicBaseURL string        `env:"ANTHROPIC_BASE_URL" envDefault:"https://api.anthropic.com"`
	XAIAPIKey        string        `env:"XAI_API_KEY"`
	XAIBaseURL       string        `env:"XAI_BASE_URL" envDefault:"https://api.x.ai/v1"`
	Timeout          time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"120s"`
}

// RAGConfig 向量检索配置
type RAGConfig struct {
	Enabled      bool   `env:"RAG_ENABLED" envDefault:"true"`
	QdrantHost   string `env:"QDRANT_HOST" envDefault:"localhost"`
	QdrantPort   int    `env:"QDRANT_PORT" envDefault:"6334"`
	QdrantAPIKey string `env:"QDRANT_API_KEY"`
	Collection   string `env:"QDRANT_COLLECTION" envDefault:"meeting_chunks"`

	// EmbeddingAPIKey 留空时复用 OPENAI_API_KEY
	EmbeddingBaseURL   string `env:"EMBEDDING_BASE_URL" envDefault:"https://api.openai.com/v1"`
	EmbeddingAPIKey    string `env:"EMBEDDING_API_KEY"`
	EmbeddingModel     string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`
	EmbeddingDimension int    `env:"EMBEDDING_DIMENSION" envDefault:"1536"`

	TopK         int `env:"RAG_TOP_K" envDefault:"3"`
	ChunkSize    int `env:"RAG_CHUNK_SIZE" envDefault:"1000"`
	ChunkOverlap int `env:"RAG_CHUNK_OVERLAP" envDefault:"200"`
}

// ChatConfig 对话配置
type ChatConfig struct {
	DefaultModel string `env:"DEFAULT_MODEL" envDefault:"claude-sonnet-4.5"`
	// ModelsFile 模型目录 YAML，留空使用内置目录
	ModelsFile string `env:"OXYCHAT_MODELS_FILE"`
	// SystemPromptFile 系统提示词模板，留空使用内置模板
	SystemPromptFile string `env:"OXYCHAT_SYSTEM_PROMPT_FILE"`
}

// TitleConfig 自动标题配置
type TitleConfig struct {
	Model     string        `env:"TITLE_MODEL" envDefault:"gpt-4.1-nano-2025-04-14"`
	QueueSize int           `env:"TITLE_QUEUE_SIZE" envDefault:"64"`
	Timeout   time.Duration `env:"TITLE_TIMEOUT" envDefault:"30s"`
}

// InboxConfig 文档收件目录，为空时不监听
type InboxConfig struct {
	Dir      string        `env:"OXYCHAT_INBOX_DIR"`
	Debounce time.Duration `env:"OXYCHAT_INBOX_DEBOUNCE" envDefault:"500ms"`
}

// NewConfig 创建配置：默认值 + 环境变量覆盖
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.RAG.EmbeddingAPIKey == "" {
		cfg.RAG.EmbeddingAPIKey = cfg.Providers.OpenAIAPIKey
	}
	return cfg, nil
}

// NewDatabaseConfig 创建数据库配置
func NewDatabaseConfig(cfg *Config) *DatabaseConfig {
	return &cfg.Database
}

// NewServerConfig 创建服务器配置
func NewServerConfig(cfg *Config) *ServerConfig {
	return &cfg.Server
}

// NewProvidersConfig 创建供应商配置
func NewProvidersConfig(cfg *Config) *ProvidersConfig {
	return &cfg.Providers
}

// NewRAGConfig 创建检索配置
func NewRAGConfig(cfg *Config) *RAGConfig {
	return &cfg.RAG
}

// NewChatConfig 创建对话配置
func NewChatConfig(cfg *Config) *ChatConfig {
	return &cfg.Chat
}

// NewTitleConfig 创建自动标题配置
func NewTitleConfig(cfg *Config) *TitleConfig {
	return &cfg.Title
}

// NewInboxConfig 创建收件目录配置
func NewInboxConfig(cfg *Config) *InboxConfig {
	return &cfg.Inbox
}
