package vector

import (
	"fmt"

	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/qdrant/go-client/qdrant"
)

var _ PointStore = (*qdrant.Client)(nil)

// NewQdrantClient 创建 Qdrant gRPC 客户端，返回清理函数
// 连接是惰性的，服务不可用时在首次调用时报错
func NewQdrantClient(cfg *config.RAGConfig) (*qdrant.Client, func(), error) {
	logger := log.NewModuleLogger("vector", "qdrant")

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.QdrantHost,
		Port:   cfg.QdrantPort,
		APIKey: cfg.QdrantAPIKey,
		UseTLS: cfg.QdrantAPIKey != "",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}

	logger.Info("Qdrant client created",
		"host", cfg.QdrantHost,
		"port", cfg.QdrantPort,
		"collection", cfg.Collection,
	)

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close qdrant client", "error", err)
		}
	}
	return client, cleanup, nil
}
