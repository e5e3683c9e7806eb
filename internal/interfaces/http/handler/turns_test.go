package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	appChat "github.com/ndrwsmyth/oxychat/internal/application/chat"
	domainChat "github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTurnHandler_ToolCalls(t *testing.T) {
	f := setupFixture(t)
	_, turn, _ := f.seedExchange(t)
	ctx := context.Background()

	require.NoError(t, f.toolCalls.Create(ctx, &domainChat.ToolCall{
		TurnID:   turn.ID,
		ToolName: domainChat.ToolMention,
		Input:    json.RawMessage(`{"doc_id":"doc_A"}`),
		Status:   domainChat.ToolStatusSuccess,
	}))

	router := gin.New()
	h := NewTurnHandler(appChat.NewAuditService(f.messages, f.toolCalls, f.agentSteps))
	router.GET("/api/turns/:id/tool-calls", h.ToolCalls)

	w := doJSON(t, router, http.MethodGet, "/api/turns/"+turn.ID+"/tool-calls", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	audit := decode[appChat.TurnAudit](t, w)
	assert.Equal(t, turn.ID, audit.Turn.ID)
	require.Len(t, audit.ToolCalls, 1)
	assert.Equal(t, domainChat.ToolMention, audit.ToolCalls[0].ToolName)
	assert.Empty(t, audit.RetrievalResults)
	assert.Empty(t, audit.AgentSteps)

	w = doJSON(t, router, http.MethodGet, "/api/turns/missing/tool-calls", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail":"Turn not found"}`, w.Body.String())
}
