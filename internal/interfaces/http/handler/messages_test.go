package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mustField 取响应 JSON 中的字段
func mustField(t *testing.T, w *httptest.ResponseRecorder, key string) json.RawMessage {
	t.Helper()
	fields := decode[map[string]json.RawMessage](t, w)
	v, ok := fields[key]
	require.True(t, ok, "missing field %s in %s", key, w.Body.String())
	return v
}

func setupMessageRouter(f *fixture) *gin.Engine {
	router := gin.New()
	h := NewMessageHandler(appChat.NewVersionService(f.messages, f.conversations))
	router.POST("/api/messages/:id/regenerate", h.Regenerate)
	router.GET("/api/messages/:id/versions", h.Versions)
	return router
}

func TestMessageHandler_Regenerate(t *testing.T) {
	f := setupFixture(t)
	router := setupMessageRouter(f)
	conv, turn, assistant := f.seedExchange(t)

	w := doJSON(t, router, http.MethodPost, "/api/messages/"+assistant.ID+"/regenerate", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	info := decode[appChat.RegenerationInfo](t, w)
	assert.Equal(t, assistant.ID, info.ParentMessageID)
	assert.Equal(t, conv.ID, info.ConversationID)
	assert.Equal(t, 2, info.NextVersion)

	msgs, err := f.messages.ListByConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	userID := msgs[0].ID
	require.Equal(t, &turn.ID, msgs[0].TurnID)

	w = doJSON(t, router, http.MethodPost, "/api/messages/"+userID+"/regenerate", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"Can only regenerate assistant messages"}`, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/messages/missing/regenerate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Message not found"}`, w.Body.String())

	require.NoError(t, f.conversations.SoftDelete(context.Background(), conv.ID))
	w = doJSON(t, router, http.MethodPost, "/api/messages/"+assistant.ID+"/regenerate", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Conversation not found or access denied"}`, w.Body.String())
}

func TestMessageHandler_Versions(t *testing.T) {
	f := setupFixture(t)
	router := setupMessageRouter(f)
	_, _, assistant := f.seedExchange(t)

	w := doJSON(t, router, http.MethodGet, "/api/messages/"+assistant.ID+"/versions", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	versions := decode[[]appChat.MessageVersion](t, w)
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].Version)
	assert.True(t, versions[0].IsCurrent)
	assert.Equal(t, "The importer.", versions[0].Content)
}
