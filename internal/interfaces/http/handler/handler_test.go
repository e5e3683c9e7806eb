package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	appDocument "github.com/ndrwsmyth/oxychat/internal/application/document"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/config"
	"github.com/ndrwsmyth/oxychat/internal/infrastructure/storage"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fixture 测试用仓储与服务
type fixture struct {
	conversations *storage.ConversationRepository
	messages      *storage.MessageRepository
	toolCalls     *storage.ToolCallRepository
	agentSteps    *storage.AgentStepRepository
	documents     *storage.DocumentRepository
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.OpenDB(&config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "http.db")})
	require.NoError(t, err)
	_, err = storage.Migrate(db)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return &fixture{
		conversations: storage.NewConversationRepository(db),
		messages:      storage.NewMessageRepository(db),
		toolCalls:     storage.NewToolCallRepository(db),
		agentSteps:    storage.NewAgentStepRepository(db),
		documents:     storage.NewDocumentRepository(db),
	}
}

// seedExchange 写入一问一答
func (f *fixture) seedExchange(t *testing.T) (*domainChat.Conversation, *domainChat.Turn, *domainChat.Message) {
	t.Helper()
	ctx := context.Background()
	conv := &domainChat.Conversation{}
	require.NoError(t, f.conversations.Create(ctx, conv))

	turn, err := f.messages.CreateTurnWithUserMessage(ctx, conv.ID, &domainChat.Message{
		ConversationID: conv.ID, Role: domainChat.RoleUser, Content: "What shipped?",
	})
	require.NoError(t, err)

	model := "gpt-5.2"
	assistant := &domainChat.Message{ConversationID: conv.ID, TurnID: &turn.ID, Content: "The importer.", Model: &model}
	require.NoError(t, f.messages.SaveAssistantMessage(ctx, assistant))
	return conv, turn, assistant
}

// staticTitles 固定标题
type staticTitles string

func (s staticTitles) Generate(context.Context, string) (string, error) {
	return string(s), nil
}

func (f *fixture) conversationHandler() *ConversationHandler {
	return NewConversationHandler(appChat.NewConversationService(f.conversations, f.messages, staticTitles("Shipping recap")))
}

func (f *fixture) documentHandler() *DocumentHandler {
	svc := appDocument.NewService(f.documents, nil, &config.RAGConfig{Enabled: false})
	return NewDocumentHandler(svc)
}

// doJSON 发送请求并返回响应
func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
