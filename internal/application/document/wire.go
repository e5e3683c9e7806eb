package document

import (
	"github.com/google/wire"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/vector"
)

// ProviderSet 文档应用层 ProviderSet
var ProviderSet = wire.NewSet(
	NewService,
	NewRetrievalService,
	NewInboxIngester,
	wire.Bind(new(Index), new(*vector.DocumentIndex)),
	wire.Bind(new(appChat.Retriever), new(*RetrievalService)),
)
