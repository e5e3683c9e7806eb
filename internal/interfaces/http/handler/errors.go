package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	appDocument "github.com/ndrwsmyth/oxychat/internal/application/document"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/interfaces/http/response"
)

// 客户端可见的错误提示
const (
	detailMessageNotFound      = "Message not found"
	detailConversationNotFound = "Conversation not found"
	detailConversationDenied   = "Conversation not found or access denied"
	detailNotAssistant         = "Can only regenerate assistant messages"
	detailNoUserMessages       = "No user messages found in conversation"
	detailDocumentNotFound     = "Document not found"
	detailTurnNotFound         = "Turn not found"
	detailIndexDisabled        = "Vector index is not configured"
	detailReindexRunning       = "Embedding already in progress"
	detailInternal             = "Internal server error"
)

// errorMapping 领域错误到 HTTP 状态码与提示
type errorMapping struct {
	err    error
	code   int
	detail string
}

var baseMappings = []errorMapping{
	{domainChat.ErrMessageNotFound, http.StatusNotFound, detailMessageNotFound},
	{domainChat.ErrConversationNotFound, http.StatusNotFound, detailConversationNotFound},
	{domainChat.ErrNotAssistantMessage, http.StatusBadRequest, detailNotAssistant},
	{domainChat.ErrNoUserMessages, http.StatusBadRequest, detailNoUserMessages},
	{domainChat.ErrDocumentNotFound, http.StatusNotFound, detailDocumentNotFound},
	{domainChat.ErrTurnNotFound, http.StatusNotFound, detailTurnNotFound},
	{appDocument.ErrInvalidDocument, http.StatusBadRequest, appDocument.ErrInvalidDocument.Error()},
	{appDocument.ErrIndexDisabled, http.StatusServiceUnavailable, detailIndexDisabled},
	{appDocument.ErrReindexRunning, http.StatusConflict, detailReindexRunning},
}

// writeError 按映射表输出错误，未知错误记录日志并返回 500
// overrides 优先于默认映射
func writeError(c *gin.Context, logger *slog.Logger, err error, overrides ...errorMapping) {
	for _, m := range append(overrides, baseMappings...) {
		if errors.Is(err, m.err) {
			response.Error(c, m.code, m.detail)
			return
		}
	}
	log.FromContext(c.Request.Context(), logger).Error("Request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"error", err,
	)
	response.Error(c, http.StatusInternalServerError, detailInternal)
}

// bindError 请求体校验失败
func bindError(c *gin.Context, err error) {
	response.Error(c, http.StatusUnprocessableEntity, "invalid request: "+err.Error())
}
