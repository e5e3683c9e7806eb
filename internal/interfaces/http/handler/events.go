package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// EventStreamer WebSocket 事件推送，*websocket.Hub 实现该接口
type EventStreamer interface {
	ServeWS(w http.ResponseWriter, r *http.Request)
}

// EventsHandler 会话事件推送处理器
type EventsHandler struct {
	hub EventStreamer
}

// NewEventsHandler 创建事件推送处理器
func NewEventsHandler(hub EventStreamer) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// Stream 升级为 WebSocket，推送后台标题生成等会话事件
func (h *EventsHandler) Stream(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request)
}
