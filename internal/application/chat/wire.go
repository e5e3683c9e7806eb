package chat

import "github.com/google/wire"

// ProviderSet 聊天应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewPromptBuilder,
	NewService,
	NewContextBuilder,
	NewVersionService,
	NewTitleQueue,
	NewPipeline,
	NewConversationService,
	NewAuditService,
	wire.Bind(new(TitleEnqueuer), new(*TitleQueue)),
)
