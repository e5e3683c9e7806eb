package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/log"
	"github.com/ndrwsmyth/oxychat/internal/interfaces/http/handler"
	"github.com/ndrwsmyth/oxychat/internal/interfaces/http/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTPServer HTTP 服务器
type HTTPServer struct {
	router   *gin.Engine
	httpPort string
	server   *http.Server
	logger   *slog.Logger
}

// Handlers 路由依赖的处理器集合
type Handlers struct {
	Chat          *handler.ChatHandler
	Models        *handler.ModelsHandler
	Messages      *handler.MessageHandler
	Conversations *handler.ConversationHandler
	Documents     *handler.DocumentHandler
	Turns         *handler.TurnHandler
	Events        *handler.EventsHandler
}

// NewServer 创建 HTTP 服务器
func NewServer(cfg *config.ServerConfig, h *Handlers) *HTTPServer {
	return &HTTPServer{
		router:   NewRouter(cfg, h),
		httpPort: cfg.HTTPPort,
		logger:   log.NewModuleLogger("http", "server"),
	}
}

// NewRouter 注册中间件与路由
func NewRouter(cfg *config.ServerConfig, h *Handlers) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.NormalizeBody(cfg.MaxBodyBytes),
	)

	router.GET("/health", handler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	{
		api.POST("/chat/stream", middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst), h.Chat.Stream)
		api.GET("/models", h.Models.List)

		messages := api.Group("/messages")
		{
			messages.POST("/:id/regenerate", h.Messages.Regenerate)
			messages.GET("/:id/versions", h.Messages.Versions)
		}

		conversations := api.Group("/conversations")
		{
			conversations.GET("", h.Conversations.List)
			conversations.POST("", h.Conversations.Create)
			conversations.GET("/:id", h.Conversations.Get)
			conversations.PATCH("/:id", h.Conversations.Update)
			conversations.DELETE("/:id", h.Conversations.Delete)
			conversations.POST("/:id/pin", h.Conversations.TogglePin)
			conversations.GET("/:id/messages", h.Conversations.Messages)
			conversations.POST("/:id/auto-title", h.Conversations.AutoTitle)
		}

		documents := api.Group("/documents")
		{
			documents.GET("", h.Documents.List)
			documents.POST("", h.Documents.Ingest)
			documents.POST("/search", h.Documents.Search)
			documents.POST("/embed-all", h.Documents.EmbedAll)
			documents.GET("/vector-stats", h.Documents.VectorStats)
			documents.GET("/:doc_id", h.Documents.Get)
			documents.DELETE("/:doc_id", h.Documents.Delete)
			documents.POST("/:doc_id/embed", h.Documents.Embed)
		}

		api.GET("/turns/:id/tool-calls", h.Turns.ToolCalls)
		api.GET("/events", h.Events.Stream)
	}

	return router
}

// Handler 返回路由，供测试使用
func (s *HTTPServer) Handler() http.Handler {
	return s.router
}

// Start 启动服务器，阻塞直到关闭
func (s *HTTPServer) Start() error {
	s.server = &http.Server{
		Addr:              s.httpPort,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP server starting",
		"port", s.httpPort,
	)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown 优雅关闭
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
