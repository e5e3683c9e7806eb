package chat

import "context"

// ConversationUpdate 会话可更新字段，nil 表示不修改
type ConversationUpdate struct {
	Title  *string
	Pinned *bool
	Model  *string
}

// ConversationRepository 会话仓储接口
// 查询方法在记录不存在时返回 nil, nil
type ConversationRepository interface {
	Create(ctx context.Context, conv *Conversation) error
	// GetActive 获取未删除的会话
	GetActive(ctx context.Context, id string) (*Conversation, error)
	// List 列出未删除会话，search 非空时按标题子串过滤
	List(ctx context.Context, search string, limit, offset int) ([]*Conversation, error)
	Update(ctx context.Context, id string, update ConversationUpdate) (*Conversation, error)
	SoftDelete(ctx context.Context, id string) error
	// ApplyAutoTitle 仅在会话既未自动命名也未被用户重命名时写入标题，返回是否写入
	ApplyAutoTitle(ctx context.Context, id, title string) (bool, error)
	// ForceAutoTitle 无条件写入自动标题（手动触发）
	ForceAutoTitle(ctx context.Context, id, title string) (*Conversation, error)
}

// MessageRepository 消息与 turn 仓储接口
type MessageRepository interface {
	// CreateTurnWithUserMessage 在同一事务内创建 turn 与用户消息（userMsg 可为 nil）
	// 序号冲突时自动重试
	CreateTurnWithUserMessage(ctx context.Context, conversationID string, userMsg *Message) (*Turn, error)
	// SaveAssistantMessage 保存助手消息并刷新会话 updated_at，单次提交
	SaveAssistantMessage(ctx context.Context, msg *Message) error
	Get(ctx context.Context, id string) (*Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]*Message, error)
	CountByConversation(ctx context.Context, conversationID string) (int, error)
	// ListLineage 返回版本链成员（根消息及其子版本），按版本升序
	ListLineage(ctx context.Context, rootID string) ([]*Message, error)
	ListTurns(ctx context.Context, conversationID string) ([]*Turn, error)
	GetTurn(ctx context.Context, id string) (*Turn, error)
}

// ToolCallRepository 工具调用仓储接口
type ToolCallRepository interface {
	Create(ctx context.Context, call *ToolCall) error
	// CreateWithRetrieval 在同一事务内写入工具调用与检索结果
	CreateWithRetrieval(ctx context.Context, call *ToolCall, result *RetrievalResult) error
	ListByTurn(ctx context.Context, turnID string) ([]*ToolCall, error)
	ListRetrievalResults(ctx context.Context, turnID string) ([]*RetrievalResult, error)
}

// AgentStepRepository 推理步骤仓储接口
type AgentStepRepository interface {
	Create(ctx context.Context, step *AgentStep) error
	ListByTurn(ctx context.Context, turnID string) ([]*AgentStep, error)
}

// DocumentRepository 文档仓储接口
type DocumentRepository interface {
	Get(ctx context.Context, docID string) (*Document, error)
	Upsert(ctx context.Context, doc *Document) error
	List(ctx context.Context, limit, offset int) ([]*Document, error)
	// Delete 删除文档，返回是否存在
	Delete(ctx context.Context, docID string) (bool, error)
	// SearchByTitle 标题模糊匹配，用于 @mention 自动补全
	SearchByTitle(ctx context.Context, query string, limit int) ([]*Document, error)
}
