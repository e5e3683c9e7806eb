package chat

import (
	"encoding/json"
	"time"
)

// ToolStatus 工具调用状态
type ToolStatus string

const (
	ToolStatusPending ToolStatus = "pending"
	ToolStatusSuccess ToolStatus = "success"
	ToolStatusError   ToolStatus = "error"
)

// 内置工具名称
const (
	ToolMention = "mention"
	ToolRAG     = "rag"
)

// DefaultRetrievalMethod 默认检索方式
const DefaultRetrievalMethod = "qdrant"

// ToolCall 上下文获取操作的审计记录
type ToolCall struct {
	ID           string          `json:"id"`
	MessageID    *string         `json:"message_id,omitempty"`
	TurnID       string          `json:"turn_id"`
	ToolName     string          `json:"tool_name"`
	Input        json.RawMessage `json:"input"`
	Output       json.RawMessage `json:"output,omitempty"`
	Status       ToolStatus      `json:"status"`
	LatencyMS    *int64          `json:"latency_ms,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// RetrievalResult RAG 检索结果，仅用于离线分析
type RetrievalResult struct {
	ID              string          `json:"id"`
	TurnID          string          `json:"turn_id"`
	ToolCallID      string          `json:"tool_call_id"`
	Query           string          `json:"query"`
	Results         json.RawMessage `json:"results"`
	RetrievalMethod string          `json:"retrieval_method"`
	CreatedAt       time.Time       `json:"created_at"`
}

// StepLLMCall 单次模型调用步骤
const StepLLMCall = "llm_call"

// AgentStep 多步推理轨迹
type AgentStep struct {
	ID           string    `json:"id"`
	TurnID       string    `json:"turn_id"`
	Sequence     int       `json:"sequence"`
	StepType     string    `json:"step_type"`
	InputContext *string   `json:"input_context,omitempty"`
	Output       *string   `json:"output,omitempty"`
	Model        *string   `json:"model,omitempty"`
	TokensIn     *int      `json:"tokens_in,omitempty"`
	TokensOut    *int      `json:"tokens_out,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
