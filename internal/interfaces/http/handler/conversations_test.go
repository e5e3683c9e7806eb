package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConversationRouter(f *fixture) *gin.Engine {
	router := gin.New()
	h := f.conversationHandler()
	conversations := router.Group("/api/conversations")
	{
		conversations.GET("", h.List)
		conversations.POST("", h.Create)
		conversations.GET("/:id", h.Get)
		conversations.PATCH("/:id", h.Update)
		conversations.DELETE("/:id", h.Delete)
		conversations.POST("/:id/pin", h.TogglePin)
		conversations.GET("/:id/messages", h.Messages)
		conversations.POST("/:id/auto-title", h.AutoTitle)
	}
	return router
}

func TestConversationHandler_Lifecycle(t *testing.T) {
	f := setupFixture(t)
	router := setupConversationRouter(f)

	w := doJSON(t, router, http.MethodPost, "/api/conversations", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[domainChat.Conversation](t, w)
	assert.Equal(t, domainChat.DefaultTitle, created.Title)
	assert.Equal(t, domainChat.DefaultModel, created.Model)

	w = doJSON(t, router, http.MethodPatch, "/api/conversations/"+created.ID, map[string]any{"title": "Roadmap"})
	require.Equal(t, http.StatusOK, w.Code)
	renamed := decode[domainChat.Conversation](t, w)
	assert.Equal(t, "Roadmap", renamed.Title)
	assert.True(t, renamed.UserRenamed)

	w = doJSON(t, router, http.MethodPost, "/api/conversations/"+created.ID+"/pin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[domainChat.Conversation](t, w).Pinned)

	w = doJSON(t, router, http.MethodGet, "/api/conversations?search=road", nil)
	require.Equal(t, http.StatusOK, w.Code)
	grouped := decode[appChat.GroupedConversations](t, w)
	require.Len(t, grouped.Pinned, 1)
	assert.Equal(t, created.ID, grouped.Pinned[0].ID)

	w = doJSON(t, router, http.MethodGet, "/api/conversations/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, string(mustField(t, w, "messages")))

	w = doJSON(t, router, http.MethodDelete, "/api/conversations/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"Conversation deleted successfully"}`, w.Body.String())

	w = doJSON(t, router, http.MethodGet, "/api/conversations/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Conversation not found"}`, w.Body.String())
}

func TestConversationHandler_AutoTitle(t *testing.T) {
	f := setupFixture(t)
	router := setupConversationRouter(f)
	conv, _, _ := f.seedExchange(t)

	w := doJSON(t, router, http.MethodPost, "/api/conversations/"+conv.ID+"/auto-title", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `"Shipping recap"`, string(mustField(t, w, "title")))

	w = doJSON(t, router, http.MethodGet, "/api/conversations/"+conv.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	msgs := decode[[]domainChat.Message](t, w)
	require.Len(t, msgs, 2)
	assert.Equal(t, domainChat.RoleUser, msgs[0].Role)

	empty := doJSON(t, router, http.MethodPost, "/api/conversations", nil)
	emptyConv := decode[domainChat.Conversation](t, empty)
	w = doJSON(t, router, http.MethodPost, "/api/conversations/"+emptyConv.ID+"/auto-title", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"detail":"No user messages found in conversation"}`, w.Body.String())
}

func TestConversationHandler_UpdateMissing(t *testing.T) {
	f := setupFixture(t)
	router := setupConversationRouter(f)

	w := doJSON(t, router, http.MethodPatch, "/api/conversations/nope", map[string]any{"pinned": true})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/conversations/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
