package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	domain "github.com/ndrwsmyth/oxychat/internal/domain/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestXAIProvider_MissingKey(t *testing.T) {
	p := NewXAIProvider(Options{ModelID: "grok-4"})
	events := collect(p.Stream(context.Background(), nil, domain.StreamOptions{ThinkingEnabled: true}))

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventError, events[0].Type)
	assert.Equal(t, "XAI_API_KEY not configured", events[0].Message)
	assert.Equal(t, map[string]any{"provider": "xai"}, events[0].Metadata)
	assert.False(t, p.HealthCheck(context.Background()))
}

func TestXAIProvider_StreamIgnoresThinking(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		writeSSE(w, `{"choices":[{"delta":{"content":"grok"}}]}`, `[DONE]`)
	}))
	defer server.Close()

	p := NewXAIProvider(Options{ModelID: "grok-4", APIModel: "grok-4-1-fast", BaseURL: server.URL, APIKey: "xk"})
	assert.False(t, p.SupportsThinking())

	events := collect(p.Stream(context.Background(), nil, domain.StreamOptions{ThinkingEnabled: true}))
	assert.Equal(t, []domain.EventType{domain.EventContent, domain.EventDone}, eventTypes(events))
	assert.Equal(t, "grok-4-1-fast", captured.Model)
	assert.Empty(t, captured.ReasoningEffort)
}

func TestXAIProvider_ErrorMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	p := NewXAIProvider(Options{ModelID: "grok-4", BaseURL: server.URL, APIKey: "xk"})
	events := collect(p.Stream(context.Background(), nil, domain.StreamOptions{}))

	require.Len(t, events, 1)
	assert.Equal(t, map[string]any{"provider": "xai", "model": "grok-4"}, events[0].Metadata)
}
