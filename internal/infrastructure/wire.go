package infrastructure

import (
	"github.com/google/wire"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/embedding"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/llm"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/metrics"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/provider"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/storage"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/tokenizer"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/vector"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/watcher"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/websocket"
)

// ProviderSet Infrastructure 层总 ProviderSet
var ProviderSet = wire.NewSet(
	config.ProviderSet,
	storage.ProviderSet,
	provider.ProviderSet,
	embedding.ProviderSet,
	vector.ProviderSet,
	tokenizer.ProviderSet,
	llm.ProviderSet,
	metrics.ProviderSet,
	watcher.ProviderSet,
	websocket.ProviderSet,
)
