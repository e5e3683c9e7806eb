package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/domain/provider"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

// ChatStreamer 聊天事件流来源，*appChat.Pipeline 实现该接口
type ChatStreamer interface {
	Run(ctx context.Context, req appChat.ChatRequest) <-chan appChat.WireEvent
}

// ChatHandler 聊天流处理器
type ChatHandler struct {
	pipeline ChatStreamer
	logger   *slog.Logger
}

// NewChatHandler 创建聊天处理器
func NewChatHandler(pipeline ChatStreamer) *ChatHandler {
	return &ChatHandler{
		pipeline: pipeline,
		logger:   log.NewModuleLogger("http", "chat"),
	}
}

// ChatStreamRequest 聊天请求体
type ChatStreamRequest struct {
	ConversationID  string                 `json:"conversation_id"`
	Messages        []provider.ChatMessage `json:"messages" binding:"required"`
	Mentions        []string               `json:"mentions"`
	UseRAG          *bool                  `json:"use_rag"`
	Model           string                 `json:"model"`
	ParentMessageID string                 `json:"parent_message_id"`
}

func (r *ChatStreamRequest) toChatRequest() appChat.ChatRequest {
	useRAG := true
	if r.UseRAG != nil {
		useRAG = *r.UseRAG
	}
	model := r.Model
	if model == "" {
		model = domainChat.DefaultModel
	}
	return appChat.ChatRequest{
		ConversationID:  r.ConversationID,
		Messages:        r.Messages,
		Mentions:        r.Mentions,
		UseRAG:          useRAG,
		Model:           model,
		ParentMessageID: r.ParentMessageID,
	}
}

// Stream 以 SSE 下发聊天事件
// POST /api/chat/stream
func (h *ChatHandler) Stream(c *gin.Context) {
	var req ChatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.ConversationID != "" {
		ctx = log.WithConversationID(ctx, req.ConversationID)
	}
	logger := log.FromContext(ctx, h.logger)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	events := h.pipeline.Run(ctx, req.toChatRequest())
	for ev := range events {
		data, err := json.Marshal(ev)
		if err != nil {
			logger.Error("Failed to encode stream event", "type", ev.Type, "error", err)
			continue
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			// 客户端断开，取消由请求 ctx 传递给流水线
			logger.Debug("Client disconnected", "error", err)
			for range events {
			}
			return
		}
		c.Writer.Flush()
	}
}
