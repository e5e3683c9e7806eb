package chat

// 会话事件类型
const (
	EventConversationTitled = "conversation_titled"
)

// ConversationEvent 推送给前端的会话变更事件
type ConversationEvent struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title,omitempty"`
}
