package vector

import (
	"github.com/google/wire"
	"github.com/qdrant/go-client/qdrant"
)

// ProviderSet 向量索引 ProviderSet
var ProviderSet = wire.NewSet(
	NewQdrantClient,  // Qdrant 客户端
	NewDocumentIndex, // 文档向量索引
	wire.Bind(new(PointStore), new(*qdrant.Client)),
)
