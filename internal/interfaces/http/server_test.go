package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/interfaces/http/handler"
	"github.com/ndrwsmyth/oxychat/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter() *gin.Engine {
	return NewRouter(&config.ServerConfig{HTTPPort: ":0", RateLimitRPS: 1, RateLimitBurst: 1}, &Handlers{
		Chat:          &handler.ChatHandler{},
		Models:        &handler.ModelsHandler{},
		Messages:      &handler.MessageHandler{},
		Conversations: &handler.ConversationHandler{},
		Documents:     &handler.DocumentHandler{},
		Turns:         &handler.TurnHandler{},
		Events:        &handler.EventsHandler{},
	})
}

func TestRouter_HealthAndMetrics(t *testing.T) {
	router := newTestRouter()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Routes(t *testing.T) {
	registered := make(map[string]bool)
	for _, r := range newTestRouter().Routes() {
		registered[r.Method+" "+r.Path] = true
	}

	for _, want := range []string{
		"POST /api/chat/stream",
		"GET /api/models",
		"POST /api/messages/:id/regenerate",
		"GET /api/messages/:id/versions",
		"GET /api/conversations",
		"POST /api/conversations",
		"PATCH /api/conversations/:id",
		"DELETE /api/conversations/:id",
		"POST /api/conversations/:id/auto-title",
		"GET /api/documents",
		"POST /api/documents",
		"GET /api/documents/:doc_id",
		"POST /api/documents/search",
		"GET /api/documents/vector-stats",
		"GET /api/turns/:id/tool-calls",
		"GET /api/events",
	} {
		assert.True(t, registered[want], want)
	}
}
