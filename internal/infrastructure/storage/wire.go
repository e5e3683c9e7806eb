package storage

import (
	"github.com/google/wire"
	"github.com/ndrwsmyth/oxychat/internal/domain/chat"
)

// ProviderSet Storage 基础设施层 ProviderSet
var ProviderSet = wire.NewSet(
	ProvideDB,                   // 提供数据库连接（含迁移）
	NewConversationRepository,   // 会话仓储
	NewMessageRepository,        // 消息与 turn 仓储
	NewToolCallRepository,       // 工具调用仓储
	NewAgentStepRepository,      // 推理步骤仓储
	NewDocumentRepository,       // 文档仓储
	wire.Bind(new(chat.ConversationRepository), new(*ConversationRepository)),
	wire.Bind(new(chat.MessageRepository), new(*MessageRepository)),
	wire.Bind(new(chat.ToolCallRepository), new(*ToolCallRepository)),
	wire.Bind(new(chat.AgentStepRepository), new(*AgentStepRepository)),
	wire.Bind(new(chat.DocumentRepository), new(*DocumentRepository)),
)
