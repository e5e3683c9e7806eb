package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/metrics"
)

// ToolTracker 记录单个 turn 内的上下文获取操作
// 每条记录立即提交，不依赖请求最终是否成功
type ToolTracker struct {
	repo    domainChat.ToolCallRepository
	turnID  string
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewToolTracker 创建绑定到 turn 的工具追踪器
func NewToolTracker(repo domainChat.ToolCallRepository, turnID string, m *metrics.Metrics) *ToolTracker {
	return &ToolTracker{repo: repo, turnID: turnID, metrics: m, now: time.Now}
}

// TurnID 返回绑定的 turn
func (t *ToolTracker) TurnID() string {
	return t.turnID
}

type mentionRef struct {
	DocID string `json:"doc_id"`
}

// TrackMention 记录 @mention 解析
func (t *ToolTracker) TrackMention(ctx context.Context, mentions []string, sources []Source, messageID *string) (*domainChat.ToolCall, error) {
	refs := make([]mentionRef, len(mentions))
	for i, m := range mentions {
		refs[i] = mentionRef{DocID: m}
	}
	input, err := json.Marshal(map[string]any{
		"mentions":      refs,
		"mention_count": len(mentions),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode mention input: %w", err)
	}
	output, err := json.Marshal(map[string]any{
		"sources":      nonNilSources(sources),
		"source_count": len(sources),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode mention output: %w", err)
	}

	call := t.newCall(domainChat.ToolMention, input, output, domainChat.ToolStatusSuccess, messageID)
	if err := t.repo.Create(ctx, call); err != nil {
		return nil, err
	}
	t.metrics.ObserveToolCall(call.ToolName, string(call.Status))
	return call, nil
}

// TrackRAG 记录 RAG 检索，工具调用与检索结果在同一事务内写入
func (t *ToolTracker) TrackRAG(ctx context.Context, query string, results any, resultCount int, retrievalMethod string, messageID *string) (*domainChat.ToolCall, *domainChat.RetrievalResult, error) {
	if retrievalMethod == "" {
		retrievalMethod = domainChat.DefaultRetrievalMethod
	}
	input, err := json.Marshal(map[string]any{
		"query":            query,
		"retrieval_method": retrievalMethod,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode rag input: %w", err)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode rag results: %w", err)
	}
	output, err := json.Marshal(map[string]any{
		"results":      json.RawMessage(resultsJSON),
		"result_count": resultCount,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode rag output: %w", err)
	}

	call := t.newCall(domainChat.ToolRAG, input, output, domainChat.ToolStatusSuccess, messageID)
	retrieval := &domainChat.RetrievalResult{
		ID:              uuid.New().String(),
		TurnID:          t.turnID,
		ToolCallID:      call.ID,
		Query:           query,
		Results:         resultsJSON,
		RetrievalMethod: retrievalMethod,
		CreatedAt:       call.StartedAt,
	}
	if err := t.repo.CreateWithRetrieval(ctx, call, retrieval); err != nil {
		return nil, nil, err
	}
	t.metrics.ObserveToolCall(call.ToolName, string(call.Status))
	return call, retrieval, nil
}

// TrackError 记录失败的工具调用
func (t *ToolTracker) TrackError(ctx context.Context, toolName string, input any, errorMessage string, messageID *string) (*domainChat.ToolCall, error) {
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool input: %w", err)
	}
	call := t.newCall(toolName, inputJSON, nil, domainChat.ToolStatusError, messageID)
	call.ErrorMessage = &errorMessage
	if err := t.repo.Create(ctx, call); err != nil {
		return nil, err
	}
	t.metrics.ObserveToolCall(call.ToolName, string(call.Status))
	return call, nil
}

// CustomToolCall 自定义工具调用参数
type CustomToolCall struct {
	ToolName     string
	Input        any
	Output       any
	Status       domainChat.ToolStatus
	LatencyMS    *int64
	ErrorMessage *string
	MessageID    *string
}

// TrackCustomTool 记录任意工具，status 为 pending 时不写完成时间
func (t *ToolTracker) TrackCustomTool(ctx context.Context, c CustomToolCall) (*domainChat.ToolCall, error) {
	input, err := json.Marshal(c.Input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool input: %w", err)
	}
	var output json.RawMessage
	if c.Output != nil {
		if output, err = json.Marshal(c.Output); err != nil {
			return nil, fmt.Errorf("failed to encode tool output: %w", err)
		}
	}
	status := c.Status
	if status == "" {
		status = domainChat.ToolStatusSuccess
	}

	call := t.newCall(c.ToolName, input, output, status, c.MessageID)
	call.LatencyMS = c.LatencyMS
	call.ErrorMessage = c.ErrorMessage
	if status == domainChat.ToolStatusPending {
		call.CompletedAt = nil
	}
	if err := t.repo.Create(ctx, call); err != nil {
		return nil, err
	}
	t.metrics.ObserveToolCall(call.ToolName, string(call.Status))
	return call, nil
}

func (t *ToolTracker) newCall(tool string, input, output json.RawMessage, status domainChat.ToolStatus, messageID *string) *domainChat.ToolCall {
	now := t.now()
	return &domainChat.ToolCall{
		ID:          uuid.New().String(),
		MessageID:   messageID,
		TurnID:      t.turnID,
		ToolName:    tool,
		Input:       input,
		Output:      output,
		Status:      status,
		StartedAt:   now,
		CompletedAt: &now,
	}
}

func nonNilSources(s []Source) []Source {
	if s == nil {
		return []Source{}
	}
	return s
}
