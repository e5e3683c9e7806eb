package chat

import (
	"context"
	"fmt"

	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
)

// TurnAudit 单个 turn 的工具调用记录
type TurnAudit struct {
	Turn             *domainChat.Turn              `json:"turn"`
	ToolCalls        []*domainChat.ToolCall        `json:"tool_calls"`
	RetrievalResults []*domainChat.RetrievalResult `json:"retrieval_results"`
	AgentSteps       []*domainChat.AgentStep       `json:"agent_steps"`
}

// AuditService turn 级审计查询
type AuditService struct {
	messages   domainChat.MessageRepository
	toolCalls  domainChat.ToolCallRepository
	agentSteps domainChat.AgentStepRepository
}

// NewAuditService 创建审计服务
func NewAuditService(messages domainChat.MessageRepository, toolCalls domainChat.ToolCallRepository, agentSteps domainChat.AgentStepRepository) *AuditService {
	return &AuditService{messages: messages, toolCalls: toolCalls, agentSteps: agentSteps}
}

// TurnAudit 返回 turn 的工具调用、检索结果与推理步骤
func (s *AuditService) TurnAudit(ctx context.Context, turnID string) (*TurnAudit, error) {
	turn, err := s.messages.GetTurn(ctx, turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to get turn: %w", err)
	}
	if turn == nil {
		return nil, domainChat.ErrTurnNotFound
	}

	calls, err := s.toolCalls.ListByTurn(ctx, turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tool calls: %w", err)
	}
	results, err := s.toolCalls.ListRetrievalResults(ctx, turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to list retrieval results: %w", err)
	}
	steps, err := s.agentSteps.ListByTurn(ctx, turnID)
	if err != nil {
		return nil, fmt.Errorf("failed to list agent steps: %w", err)
	}

	audit := &TurnAudit{
		Turn:             turn,
		ToolCalls:        calls,
		RetrievalResults: results,
		AgentSteps:       steps,
	}
	if audit.ToolCalls == nil {
		audit.ToolCalls = []*domainChat.ToolCall{}
	}
	if audit.RetrievalResults == nil {
		audit.RetrievalResults = []*domainChat.RetrievalResult{}
	}
	if audit.AgentSteps == nil {
		audit.AgentSteps = []*domainChat.AgentStep{}
	}
	return audit, nil
}
