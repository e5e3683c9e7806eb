package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/interfaces/http/response"
)

// ConversationHandler 会话处理器
type ConversationHandler struct {
	conversations *appChat.ConversationService
	logger        *slog.Logger
}

// NewConversationHandler 创建会话处理器
func NewConversationHandler(conversations *appChat.ConversationService) *ConversationHandler {
	return &ConversationHandler{
		conversations: conversations,
		logger:        log.NewModuleLogger("http", "conversations"),
	}
}

// ConversationDetail 会话及其消息
type ConversationDetail struct {
	*domainChat.Conversation
	Messages []*domainChat.Message `json:"messages"`
}

// UpdateConversationRequest 会话更新请求，缺省字段不修改
type UpdateConversationRequest struct {
	Title  *string `json:"title"`
	Pinned *bool   `json:"pinned"`
	Model  *string `json:"model"`
}

// List 按日期分组列出会话，置顶优先
// GET /api/conversations?search=
func (h *ConversationHandler) List(c *gin.Context) {
	grouped, err := h.conversations.ListGrouped(c.Request.Context(), c.Query("search"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, grouped)
}

// Create 创建会话
// POST /api/conversations
func (h *ConversationHandler) Create(c *gin.Context) {
	var req appChat.CreateConversationInput
	// 请求体可为空
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			bindError(c, err)
			return
		}
	}
	conv, err := h.conversations.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Get 获取会话及消息
// GET /api/conversations/:id
func (h *ConversationHandler) Get(c *gin.Context) {
	ctx := log.WithConversationID(c.Request.Context(), c.Param("id"))
	conv, err := h.conversations.Get(ctx, c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	msgs, err := h.conversations.Messages(ctx, conv.ID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ConversationDetail{Conversation: conv, Messages: msgs})
}

// Update 修改标题、置顶或模型
// PATCH /api/conversations/:id
func (h *ConversationHandler) Update(c *gin.Context) {
	var req UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	conv, err := h.conversations.Update(c.Request.Context(), c.Param("id"), domainChat.ConversationUpdate{
		Title:  req.Title,
		Pinned: req.Pinned,
		Model:  req.Model,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Delete 软删除会话
// DELETE /api/conversations/:id
func (h *ConversationHandler) Delete(c *gin.Context) {
	if err := h.conversations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.logger, err)
		return
	}
	response.Message(c, http.StatusOK, "Conversation deleted successfully")
}

// TogglePin 切换置顶
// POST /api/conversations/:id/pin
func (h *ConversationHandler) TogglePin(c *gin.Context) {
	conv, err := h.conversations.TogglePin(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// Messages 会话消息列表
// GET /api/conversations/:id/messages
func (h *ConversationHandler) Messages(c *gin.Context) {
	msgs, err := h.conversations.Messages(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// AutoTitle 按首条用户消息重新生成标题
// POST /api/conversations/:id/auto-title
func (h *ConversationHandler) AutoTitle(c *gin.Context) {
	conv, err := h.conversations.AutoTitle(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"title": conv.Title, "conversation": conv})
}
