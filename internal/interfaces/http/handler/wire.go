package handler

import (
	"github.com/google/wire"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/provider"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/websocket"
)

// ProviderSet Handler ProviderSet
var ProviderSet = wire.NewSet(
	NewChatHandler,
	NewModelsHandler,
	NewMessageHandler,
	NewConversationHandler,
	NewDocumentHandler,
	NewTurnHandler,
	NewEventsHandler,
	wire.Bind(new(ChatStreamer), new(*appChat.Pipeline)),
	wire.Bind(new(ModelLister), new(*provider.Registry)),
	wire.Bind(new(EventStreamer), new(*websocket.Hub)),
)
