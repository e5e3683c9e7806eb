package application

import (
	"github.com/google/wire"
	"github.com/ndrwsmyth/oxychat/internal/application/chat"
	"github.com/ndrwsmyth/oxychat/internal/application/document"
)

// ProviderSet Application 层总 ProviderSet
var ProviderSet = wire.NewSet(
	chat.ProviderSet,
	document.ProviderSet,
)
