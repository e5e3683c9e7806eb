package storage

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ndrwsmyth/oxychat/internal/domain/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolCallRepository_CreateWithRetrieval(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	conv := createTestConversation(t, db)
	turn, err := NewMessageRepository(db).CreateTurnWithUserMessage(ctx, conv.ID, nil)
	require.NoError(t, err)

	repo := NewToolCallRepository(db)
	now := time.Now()
	call := &chat.ToolCall{
		TurnID:      turn.ID,
		ToolName:    chat.ToolRAG,
		Input:       json.RawMessage(`{"query":"q","retrieval_method":"qdrant"}`),
		Output:      json.RawMessage(`{"results":[],"result_count":0}`),
		Status:      chat.ToolStatusSuccess,
		StartedAt:   now,
		CompletedAt: &now,
	}
	result := &chat.RetrievalResult{Query: "q", Results: json.RawMessage(`[{"doc_id":"d1"}]`)}
	require.NoError(t, repo.CreateWithRetrieval(ctx, call, result))
	assert.Equal(t, call.ID, result.ToolCallID)

	calls, err := repo.ListByTurn(ctx, turn.ID)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, chat.ToolStatusSuccess, calls[0].Status)
	assert.JSONEq(t, `{"query":"q","retrieval_method":"qdrant"}`, string(calls[0].Input))
	require.NotNil(t, calls[0].CompletedAt)

	results, err := repo.ListRetrievalResults(ctx, turn.ID)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, chat.DefaultRetrievalMethod, results[0].RetrievalMethod)
	assert.JSONEq(t, `[{"doc_id":"d1"}]`, string(results[0].Results))
}

func TestToolCallRepository_RetrievalRollsBackWithToolCall(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewToolCallRepository(db)

	// turn 不存在，外键约束导致整个事务回滚
	call := &chat.ToolCall{TurnID: "missing-turn", ToolName: chat.ToolRAG}
	err := repo.CreateWithRetrieval(ctx, call, &chat.RetrievalResult{Query: "q"})
	require.Error(t, err)

	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM tool_calls`).Scan(&count))
	assert.Zero(t, count)
}

func TestToolCallRepository_DefaultsPending(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	conv := createTestConversation(t, db)
	turn, err := NewMessageRepository(db).CreateTurnWithUserMessage(ctx, conv.ID, nil)
	require.NoError(t, err)

	repo := NewToolCallRepository(db)
	require.NoError(t, repo.Create(ctx, &chat.ToolCall{TurnID: turn.ID, ToolName: "web_search"}))

	calls, err := repo.ListByTurn(ctx, turn.ID)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, chat.ToolStatusPending, calls[0].Status)
	assert.Nil(t, calls[0].CompletedAt)
	assert.Nil(t, calls[0].Output)
}

func TestAgentStepRepository_CreateAndList(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	conv := createTestConversation(t, db)
	turn, err := NewMessageRepository(db).CreateTurnWithUserMessage(ctx, conv.ID, nil)
	require.NoError(t, err)

	repo := NewAgentStepRepository(db)
	in, out := 120, 45
	require.NoError(t, repo.Create(ctx, &chat.AgentStep{
		TurnID:    turn.ID,
		Sequence:  1,
		StepType:  chat.StepLLMCall,
		Output:    strPtr("answer"),
		Model:     strPtr("gpt-5.2"),
		TokensIn:  &in,
		TokensOut: &out,
	}))

	steps, err := repo.ListByTurn(ctx, turn.ID)
	require.NoError(t, err)
	require.Len(t, steps, 1)
	assert.Equal(t, chat.StepLLMCall, steps[0].StepType)
	assert.Equal(t, 120, *steps[0].TokensIn)
	assert.Equal(t, 45, *steps[0].TokensOut)
	assert.Nil(t, steps[0].InputContext)
}
