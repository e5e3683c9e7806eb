package embedding

import (
	"github.com/google/wire"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/vector"
)

// ProviderSet 向量化 ProviderSet
var ProviderSet = wire.NewSet(
	NewClientFromConfig,
	wire.Bind(new(vector.Embedder), new(*Client)),
)
