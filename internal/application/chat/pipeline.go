package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/domain/provider"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/metrics"
)

// InvalidConversationIDMessage 会话 ID 不是合法 UUID
const InvalidConversationIDMessage = "Invalid conversation ID format"

// ChatRequest 聊天请求
type ChatRequest struct {
	ConversationID string
	Messages       []provider.ChatMessage
	Mentions       []string
	UseRAG         bool
	Model          string
	// ParentMessageID 非空表示重新生成该助手消息
	ParentMessageID string
}

// LatestUserMessage 最后一条用户消息
func (r *ChatRequest) LatestUserMessage() (string, bool) {
	for i := len(r.Messages) - 1; i >= 0; i-- {
		if r.Messages[i].Role == string(domainChat.RoleUser) {
			return r.Messages[i].Content, true
		}
	}
	return "", false
}

// TitleEnqueuer 自动标题任务提交
type TitleEnqueuer interface {
	Enqueue(conversationID, userQuery string) bool
}

// TokenCounter 计算 token 数
type TokenCounter interface {
	CountTokens(text string) int
}

// Pipeline 聊天请求的持久化编排
// 用户消息在调用模型前写入；助手消息在流成功结束后写入，然后才下发 done
type Pipeline struct {
	conversations domainChat.ConversationRepository
	messages      domainChat.MessageRepository
	toolCalls     domainChat.ToolCallRepository
	agentSteps    domainChat.AgentStepRepository
	builder       *ContextBuilder
	service       *Service
	versions      *VersionService
	titles        TitleEnqueuer
	tokens        TokenCounter
	metrics       *metrics.Metrics
	logger        *slog.Logger
	now           func() time.Time
}

// NewPipeline 创建聊天流水线
func NewPipeline(
	conversations domainChat.ConversationRepository,
	messages domainChat.MessageRepository,
	toolCalls domainChat.ToolCallRepository,
	agentSteps domainChat.AgentStepRepository,
	builder *ContextBuilder,
	service *Service,
	versions *VersionService,
	titles TitleEnqueuer,
	tokens TokenCounter,
	m *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		conversations: conversations,
		messages:      messages,
		toolCalls:     toolCalls,
		agentSteps:    agentSteps,
		builder:       builder,
		service:       service,
		versions:      versions,
		titles:        titles,
		tokens:        tokens,
		metrics:       m,
		logger:        log.NewModuleLogger("chat", "pipeline"),
		now:           time.Now,
	}
}

// turnState 本次请求的持久化状态，conv 为 nil 表示临时会话
type turnState struct {
	conv          *domainChat.Conversation
	turn          *domainChat.Turn
	userMessageID *string
	parentID      *string
	version       int
	tracker       *ToolTracker
}

// Run 执行一次聊天请求，返回下发给客户端的事件流
func (p *Pipeline) Run(ctx context.Context, req ChatRequest) <-chan WireEvent {
	out := make(chan WireEvent, 16)

	go func() {
		defer close(out)
		p.run(ctx, req, out)
	}()
	return out
}

func (p *Pipeline) run(ctx context.Context, req ChatRequest, out chan<- WireEvent) {
	if req.Model == "" {
		req.Model = domainChat.DefaultModel
	}
	logger := log.FromContext(ctx, p.logger)
	logger.Info("Chat request",
		"messages", len(req.Messages),
		"mentions", len(req.Mentions),
		"use_rag", req.UseRAG,
		"conversation_id", req.ConversationID,
		"model", req.Model,
	)

	if req.ConversationID != "" {
		if _, err := uuid.Parse(req.ConversationID); err != nil {
			logger.Error("Invalid conversation_id format", "conversation_id", req.ConversationID)
			p.metrics.ObserveChatRequest(req.Model, metrics.OutcomeError)
			p.emit(ctx, out, ErrorEvent(InvalidConversationIDMessage))
			return
		}
	}

	userQuery, _ := req.LatestUserMessage()

	state, err := p.openTurn(ctx, req, userQuery)
	if err != nil {
		logger.Error("Failed to prepare turn", "error", err)
		p.metrics.ObserveChatRequest(req.Model, metrics.OutcomeError)
		p.emit(ctx, out, ErrorEvent(err.Error()))
		return
	}
	if state.turn != nil {
		ctx = log.WithTurnID(log.WithConversationID(ctx, state.conv.ID), state.turn.ID)
		logger = log.FromContext(ctx, p.logger)
	}

	result := p.builder.Build(ctx, BuildRequest{
		Mentions: req.Mentions,
		UseRAG:   req.UseRAG,
		Query:    userQuery,
		Model:    req.Model,
	})
	p.trackTools(ctx, state, req, userQuery, result)

	if result.HasSources() {
		if len(result.FailedMentions) > 0 {
			logger.Warn("Failed mentions being sent to client", "failed_mentions", result.FailedMentions)
		}
		if !p.emit(ctx, out, SourcesEvent(result)) {
			return
		}
	}

	var reply strings.Builder
	var held *WireEvent
	failed := false
	for ev := range p.service.Stream(ctx, req.Messages, result.Context, req.Model) {
		switch ev.Type {
		case string(provider.EventDone):
			// 持久化完成后再下发
			e := ev
			held = &e
			continue
		case string(provider.EventContent):
			if ev.Content != nil {
				reply.WriteString(*ev.Content)
			}
		case string(provider.EventError):
			failed = true
		}
		if !p.emit(ctx, out, ev) {
			return
		}
	}

	if failed || held == nil {
		p.metrics.ObserveChatRequest(req.Model, metrics.OutcomeError)
		return
	}

	if state.conv != nil && reply.Len() > 0 {
		// 流已完整结束，客户端断开也要保存
		saveCtx := context.WithoutCancel(ctx)
		if err := p.persistReply(saveCtx, state, req, userQuery, result, reply.String()); err != nil {
			logger.Error("Failed to save assistant message", "error", err)
			p.metrics.ObserveChatRequest(req.Model, metrics.OutcomeError)
			p.emit(ctx, out, ErrorEvent("Failed to save assistant message"))
			return
		}
	}

	if state.conv == nil {
		p.metrics.ObserveChatRequest(req.Model, metrics.OutcomeEphemeral)
	} else {
		p.metrics.ObserveChatRequest(req.Model, metrics.OutcomeSuccess)
	}
	p.emit(ctx, out, *held)
}

// openTurn 查找会话；存在时在同一事务内创建 turn 与用户消息
func (p *Pipeline) openTurn(ctx context.Context, req ChatRequest, userQuery string) (*turnState, error) {
	state := &turnState{version: 1}
	if req.ConversationID == "" {
		return state, nil
	}

	conv, err := p.conversations.GetActive(ctx, req.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	if conv == nil {
		log.FromContext(ctx, p.logger).Warn("Conversation not found, continuing without persistence", "conversation_id", req.ConversationID)
		return state, nil
	}
	state.conv = conv

	var userMsg *domainChat.Message
	if req.ParentMessageID != "" {
		root, next, err := p.versions.ResolveParent(ctx, conv.ID, req.ParentMessageID)
		if err != nil {
			return nil, err
		}
		state.parentID = &root
		state.version = next
	} else if userQuery != "" {
		userMsg = &domainChat.Message{
			ConversationID: conv.ID,
			Role:           domainChat.RoleUser,
			Content:        userQuery,
			Mentions:       req.Mentions,
		}
	}

	turn, err := p.messages.CreateTurnWithUserMessage(ctx, conv.ID, userMsg)
	if err != nil {
		return nil, fmt.Errorf("failed to create turn: %w", err)
	}
	state.turn = turn
	state.tracker = NewToolTracker(p.toolCalls, turn.ID, p.metrics)
	if userMsg != nil {
		id := userMsg.ID
		state.userMessageID = &id
	}
	log.FromContext(ctx, p.logger).Info("Created turn", "turn_id", turn.ID, "sequence", turn.Sequence)
	return state, nil
}

// trackTools 记录本轮工具调用，失败只记日志
// 未解析的提及各记一条失败调用，reason 为 not_found 或 lookup_error
func (p *Pipeline) trackTools(ctx context.Context, state *turnState, req ChatRequest, userQuery string, result *ContextResult) {
	if state.tracker == nil {
		return
	}
	logger := log.FromContext(ctx, p.logger)

	for _, failed := range result.FailedMentions {
		input := map[string]string{"doc_id": failed.DocID}
		if _, err := state.tracker.TrackError(ctx, domainChat.ToolMention, input, failed.Reason, state.userMessageID); err != nil {
			logger.Error("Failed to track failed mention", "doc_id", failed.DocID, "error", err)
		}
	}
	if len(result.Sources) == 0 {
		return
	}

	if len(req.Mentions) > 0 {
		if _, err := state.tracker.TrackMention(ctx, req.Mentions, result.Sources, state.userMessageID); err != nil {
			logger.Error("Failed to track mention tool call", "error", err)
			return
		}
		logger.Info("Tracked mention tool usage")
		return
	}

	if _, _, err := state.tracker.TrackRAG(ctx, userQuery, result.RAGHits, len(result.RAGHits), domainChat.DefaultRetrievalMethod, state.userMessageID); err != nil {
		logger.Error("Failed to track rag tool call", "error", err)
		return
	}
	logger.Info("Tracked rag tool usage")
}

// persistReply 保存助手消息、记录推理步骤、按需提交自动标题
func (p *Pipeline) persistReply(ctx context.Context, state *turnState, req ChatRequest, userQuery string, result *ContextResult, reply string) error {
	logger := log.FromContext(ctx, p.logger)
	model := req.Model
	turnID := state.turn.ID

	msg := &domainChat.Message{
		ConversationID:  state.conv.ID,
		TurnID:          &turnID,
		Role:            domainChat.RoleAssistant,
		Content:         reply,
		Model:           &model,
		Mentions:        req.Mentions,
		ParentMessageID: state.parentID,
		Version:         state.version,
		CreatedAt:       p.now(),
	}
	if err := p.messages.SaveAssistantMessage(ctx, msg); err != nil {
		return err
	}
	logger.Info("Saved assistant message", "message_id", msg.ID, "version", msg.Version)

	p.recordStep(ctx, state, req, result, reply)

	if !state.conv.NeedsAutoTitle() {
		return nil
	}
	count, err := p.messages.CountByConversation(ctx, state.conv.ID)
	if err != nil {
		logger.Warn("Failed to count messages for auto title", "error", err)
		return nil
	}
	if count == 2 && p.titles != nil {
		p.titles.Enqueue(state.conv.ID, userQuery)
	}
	return nil
}

// recordStep 记录一次模型调用步骤
func (p *Pipeline) recordStep(ctx context.Context, state *turnState, req ChatRequest, result *ContextResult, reply string) {
	if p.agentSteps == nil {
		return
	}

	var input strings.Builder
	for _, m := range req.Messages {
		input.WriteString(m.Content)
		input.WriteString("\n")
	}
	contextChars := 0
	if result.Context != nil {
		input.WriteString(*result.Context)
		contextChars = len(*result.Context)
	}

	summary := fmt.Sprintf("messages=%d context_chars=%d sources=%d", len(req.Messages), contextChars, len(result.Sources))
	model := req.Model
	output := reply
	step := &domainChat.AgentStep{
		TurnID:       state.turn.ID,
		Sequence:     1,
		StepType:     domainChat.StepLLMCall,
		InputContext: &summary,
		Output:       &output,
		Model:        &model,
	}
	if p.tokens != nil {
		in := p.tokens.CountTokens(input.String())
		out := p.tokens.CountTokens(reply)
		step.TokensIn = &in
		step.TokensOut = &out
	}
	if err := p.agentSteps.Create(ctx, step); err != nil {
		log.FromContext(ctx, p.logger).Warn("Failed to record agent step", "error", err)
	}
}

func (p *Pipeline) emit(ctx context.Context, out chan<- WireEvent, ev WireEvent) bool {
	if !send(ctx, out, ev) {
		return false
	}
	p.metrics.ObserveStreamEvent(ev.Type)
	return true
}

