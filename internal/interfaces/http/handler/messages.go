package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

// MessageHandler 消息版本处理器
type MessageHandler struct {
	versions *appChat.VersionService
	logger   *slog.Logger
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(versions *appChat.VersionService) *MessageHandler {
	return &MessageHandler{
		versions: versions,
		logger:   log.NewModuleLogger("http", "messages"),
	}
}

// 消息路由下会话缺失与无权访问不作区分
var messageOverrides = []errorMapping{
	{domainChat.ErrConversationNotFound, http.StatusNotFound, detailConversationDenied},
}

// Regenerate 返回重新生成所需的父消息与版本号，实际生成由聊天流完成
// POST /api/messages/:id/regenerate
func (h *MessageHandler) Regenerate(c *gin.Context) {
	info, err := h.versions.PrepareRegeneration(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, messageOverrides...)
		return
	}
	c.JSON(http.StatusOK, info)
}

// Versions 列出消息的全部版本
// GET /api/messages/:id/versions
func (h *MessageHandler) Versions(c *gin.Context) {
	versions, err := h.versions.ListVersions(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err, messageOverrides...)
		return
	}
	c.JSON(http.StatusOK, versions)
}
