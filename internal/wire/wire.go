//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"
	"github.com/ndrwsmyth/oxychat/internal/application"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	appDocument "github.com/ndrwsmyth/oxychat/internal/application/document"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/llm"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/provider"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/storage"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/tokenizer"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/watcher"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/websocket"
	"github.com/ndrwsmyth/oxychat/internal/interfaces"
)

// InitializeApp 初始化所有服务
func InitializeApp() (*App, func(), error) {
	wire.Build(
		// 按层组合 ProviderSet
		infrastructure.ProviderSet, // 基础设施层
		application.ProviderSet,    // 应用层
		interfaces.ProviderSet,     // 接口层
		// 跨层接口绑定
		wire.Bind(new(appChat.ProviderResolver), new(*provider.Registry)),
		wire.Bind(new(appChat.LimitsProvider), new(*config.ModelCatalog)),
		wire.Bind(new(appChat.DocumentLookup), new(*storage.DocumentRepository)),
		wire.Bind(new(appChat.TitleGenerator), new(*llm.TitleGenerator)),
		wire.Bind(new(appChat.TokenCounter), new(*tokenizer.Counter)),
		wire.Bind(new(watcher.FileHandler), new(*appDocument.InboxIngester)),
		wire.Bind(new(appChat.EventPublisher), new(*websocket.Hub)),
		NewApp, // 组合所有服务的应用结构
	)
	return nil, nil, nil
}
