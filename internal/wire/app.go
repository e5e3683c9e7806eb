package wire

import (
	"context"
	"database/sql"
	"log/slog"

	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	appDocument "github.com/ndrwsmyth/oxychat/internal/application/document"
	applog "github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/watcher"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/websocket"
	"github.com/ndrwsmyth/oxychat/internal/interfaces"
)

// App 应用主结构，组合所有服务
type App struct {
	HTTPServer *interfaces.HTTPServer
	titleQueue *appChat.TitleQueue
	documents  *appDocument.Service
	inbox      *watcher.InboxWatcher
	events     *websocket.Hub
	db         *sql.DB
	logger     *slog.Logger
}

// NewApp 创建应用实例
func NewApp(
	httpServer *interfaces.HTTPServer,
	titleQueue *appChat.TitleQueue,
	documents *appDocument.Service,
	inbox *watcher.InboxWatcher,
	events *websocket.Hub,
	db *sql.DB,
) *App {
	return &App{
		HTTPServer: httpServer,
		titleQueue: titleQueue,
		documents:  documents,
		inbox:      inbox,
		events:     events,
		db:         db,
		logger:     applog.NewModuleLogger("app", "main"),
	}
}

// Start 启动后台任务与 HTTP 服务器
// 返回的通道在 HTTP 服务器退出时接收其错误
func (a *App) Start() <-chan error {
	a.logger.Info("Starting oxychat backend")

	a.events.Start()
	a.titleQueue.Start()
	if !a.documents.IndexEnabled() {
		a.logger.Warn("Vector index disabled, RAG retrieval off")
	}
	if a.inbox != nil {
		if err := a.inbox.Start(); err != nil {
			a.logger.Error("Failed to start inbox watcher", "dir", a.inbox.Dir(), "error", err)
			a.inbox = nil
		}
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.HTTPServer.Start()
	}()

	a.logger.Info("Oxychat backend started")
	return errCh
}

// Stop 依次关闭 HTTP 服务器、收件目录监听、标题队列、后台索引与事件推送
// 数据库与 Qdrant 连接由 wire 清理函数关闭
func (a *App) Stop(ctx context.Context) error {
	a.logger.Info("Stopping oxychat backend")

	var firstErr error
	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.logger.Error("Failed to stop HTTP server", "error", err)
		firstErr = err
	}
	if a.inbox != nil {
		a.inbox.Stop()
	}
	if err := a.titleQueue.Stop(ctx); err != nil {
		a.logger.Error("Failed to drain title queue", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	a.documents.Stop()
	a.events.Stop()

	a.logger.Info("Oxychat backend stopped")
	return firstErr
}
