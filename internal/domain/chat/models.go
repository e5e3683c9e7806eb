package chat

import "time"

// 默认值
const (
	// DefaultTitle 会话默认标题
	DefaultTitle = "New conversation"
	// DefaultModel 会话默认模型
	DefaultModel = "claude-sonnet-4.5"
	// DevUserID 单租户开发模式下的默认用户
	DevUserID = "dev-user-local"
)

// Role 消息角色
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation 会话
type Conversation struct {
	ID          string     `json:"id"`
	UserID      *string    `json:"user_id,omitempty"` // 单租户模式下可为空
	Title       string     `json:"title"`
	AutoTitled  bool       `json:"auto_titled"`
	UserRenamed bool       `json:"user_renamed"`
	Model       string     `json:"model"`
	Pinned      bool       `json:"pinned"`
	PinnedAt    *time.Time `json:"pinned_at,omitempty"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"` // 软删除
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NeedsAutoTitle 是否仍允许自动生成标题
func (c *Conversation) NeedsAutoTitle() bool {
	return !c.AutoTitled && !c.UserRenamed
}

// IsDeleted 是否已软删除
func (c *Conversation) IsDeleted() bool {
	return c.DeletedAt != nil
}

// Turn 一次用户/助手交互
type Turn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Sequence       int       `json:"sequence"` // 会话内从 1 开始递增
	CreatedAt      time.Time `json:"created_at"`
}

// Message 会话消息
type Message struct {
	ID              string    `json:"id"`
	ConversationID  string    `json:"conversation_id"`
	TurnID          *string   `json:"turn_id,omitempty"`
	Role            Role      `json:"role"`
	Content         string    `json:"content"`
	Model           *string   `json:"model,omitempty"` // 仅助手消息
	Mentions        []string  `json:"mentions"`
	ParentMessageID *string   `json:"parent_message_id,omitempty"`
	Version         int       `json:"version"`
	CreatedAt       time.Time `json:"created_at"`
}

// LineageRoot 返回消息所属版本链的根 ID
func (m *Message) LineageRoot() string {
	if m.ParentMessageID != nil && *m.ParentMessageID != "" {
		return *m.ParentMessageID
	}
	return m.ID
}

// Document 会议纪要文档
type Document struct {
	DocID            string    `json:"doc_id"`
	Title            string    `json:"title"`
	Date             string    `json:"date,omitempty"`
	FormattedContent string    `json:"formatted_content"`
	Source           string    `json:"source"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// RetrievalHit 语义检索命中的文档片段，Distance 越小越相关
type RetrievalHit struct {
	DocID    string  `json:"doc_id"`
	Title    string  `json:"title"`
	Date     string  `json:"date"`
	Content  string  `json:"content"`
	Distance float32 `json:"distance"`
}
