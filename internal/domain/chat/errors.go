package chat

import "errors"

var (
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrInvalidConversationID = errors.New("invalid conversation ID format")
	ErrMessageNotFound       = errors.New("message not found")
	ErrNotAssistantMessage   = errors.New("can only regenerate assistant messages")
	ErrDocumentNotFound      = errors.New("document not found")
	ErrTurnNotFound          = errors.New("turn not found")
	ErrNoUserMessages        = errors.New("no user messages found in conversation")
	// ErrSequenceConflict 并发请求争用同一 turn 序号
	ErrSequenceConflict = errors.New("turn sequence conflict")
)
