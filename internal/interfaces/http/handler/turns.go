package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
)

// TurnHandler turn 审计处理器
type TurnHandler struct {
	audit  *appChat.AuditService
	logger *slog.Logger
}

// NewTurnHandler 创建 turn 处理器
func NewTurnHandler(audit *appChat.AuditService) *TurnHandler {
	return &TurnHandler{audit: audit, logger: log.NewModuleLogger("http", "turns")}
}

// ToolCalls turn 的工具调用与推理步骤
// GET /api/turns/:id/tool-calls
func (h *TurnHandler) ToolCalls(c *gin.Context) {
	audit, err := h.audit.TurnAudit(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, audit)
}
