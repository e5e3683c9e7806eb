package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	domain "github.com/ndrwsmyth/oxychat/internal/domain/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeSSE 以 OpenAI 的格式写出 data 行
func writeSSE(w http.ResponseWriter, payloads ...string) {
	w.Header().Set("Content-Type", "text/event-stream")
	for _, p := range payloads {
		fmt.Fprintf(w, "data: %s\n\n", p)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func TestOpenAIProvider_Stream(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		writeSSE(w,
			`{"choices":[{"delta":{"reasoning_content":"hmm"}}]}`,
			`{"choices":[{"delta":{"content":"Hel"}}]}`,
			`{"choices":[{"delta":{"content":"lo"}}]}`,
			`{"choices":[{"delta":{},"finish_reason":"stop"}]}`,
			`[DONE]`,
		)
	}))
	defer server.Close()

	p := NewOpenAIProvider(Options{ModelID: "gpt-5.2", BaseURL: server.URL, APIKey: "sk-test"})
	events := collect(p.Stream(context.Background(),
		[]domain.ChatMessage{{Role: "user", Content: "hi"}},
		domain.StreamOptions{SystemPrompt: "be nice", ThinkingEnabled: true},
	))

	assert.Equal(t, []domain.EventType{
		domain.EventThinking, domain.EventContent, domain.EventContent, domain.EventDone,
	}, eventTypes(events))
	assert.Equal(t, "hmm", events[0].Text)
	assert.Equal(t, "Hel", events[1].Text)

	assert.Equal(t, "gpt-5.2", captured.Model)
	assert.True(t, captured.Stream)
	assert.Equal(t, "medium", captured.ReasoningEffort)
	require.Len(t, captured.Messages, 2)
	assert.Equal(t, domain.ChatMessage{Role: "system", Content: "be nice"}, captured.Messages[0])
}

func TestOpenAIProvider_NoReasoningWhenThinkingDisabled(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		writeSSE(w, `[DONE]`)
	}))
	defer server.Close()

	p := NewOpenAIProvider(Options{ModelID: "gpt-5.2", BaseURL: server.URL, APIKey: "k"})
	events := collect(p.Stream(context.Background(), nil, domain.StreamOptions{}))

	assert.Equal(t, []domain.EventType{domain.EventDone}, eventTypes(events))
	assert.Empty(t, captured.ReasoningEffort)
}

func TestOpenAIProvider_HTTPErrorEmitsSingleError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	p := NewOpenAIProvider(Options{ModelID: "gpt-5.2", BaseURL: server.URL, APIKey: "k"})
	events := collect(p.Stream(context.Background(), nil, domain.StreamOptions{}))

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventError, events[0].Type)
	assert.Contains(t, events[0].Message, "429")
	assert.Equal(t, map[string]any{"provider": "openai", "model": "gpt-5.2"}, events[0].Metadata)
}

func TestOpenAIProvider_MalformedChunk(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, `{"choices":[{"delta":{"content":"ok"}}]}`, `{not json`)
	}))
	defer server.Close()

	p := NewOpenAIProvider(Options{ModelID: "gpt-5.2", BaseURL: server.URL, APIKey: "k"})
	events := collect(p.Stream(context.Background(), nil, domain.StreamOptions{}))

	assert.Equal(t, []domain.EventType{domain.EventContent, domain.EventError}, eventTypes(events))
}

func TestOpenAIProvider_TruncatedStreamIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, `{"choices":[{"delta":{"content":"Partial"}}]}`)
	}))
	defer server.Close()

	p := NewOpenAIProvider(Options{ModelID: "gpt-5.2", BaseURL: server.URL, APIKey: "k"})
	events := collect(p.Stream(context.Background(), nil, domain.StreamOptions{}))

	assert.Equal(t, []domain.EventType{domain.EventContent, domain.EventError}, eventTypes(events))
	assert.Contains(t, events[1].Message, "ended before [DONE]")
	assert.Equal(t, "openai", events[1].Metadata["provider"])
}

func TestOpenAIProvider_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	p := NewOpenAIProvider(Options{ModelID: "gpt-5.2", BaseURL: server.URL, APIKey: "k", Timeout: 50 * time.Millisecond})
	events := collect(p.Stream(context.Background(), nil, domain.StreamOptions{}))

	require.Len(t, events, 1)
	assert.Equal(t, domain.EventError, events[0].Type)
}

func TestOpenAIProvider_ContextCancelled(t *testing.T) {
	started := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeSSE(w, `{"choices":[{"delta":{"content":"first"}}]}`)
		close(started)
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	p := NewOpenAIProvider(Options{ModelID: "gpt-5.2", BaseURL: server.URL, APIKey: "k"})
	ch := p.Stream(ctx, nil, domain.StreamOptions{})

	first := <-ch
	assert.Equal(t, domain.EventContent, first.Type)
	<-started
	cancel()

	rest := collect(ch)
	for _, ev := range rest {
		assert.NotEqual(t, domain.EventDone, ev.Type, "取消后不应出现 done")
	}
}

func TestOpenAIProvider_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" && r.Header.Get("Authorization") == "Bearer good" {
			_, _ = w.Write([]byte(`{"data":[]}`))
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	assert.True(t, NewOpenAIProvider(Options{ModelID: "gpt-5.2", BaseURL: server.URL, APIKey: "good"}).HealthCheck(context.Background()))
	assert.False(t, NewOpenAIProvider(Options{ModelID: "gpt-5.2", BaseURL: server.URL, APIKey: "bad"}).HealthCheck(context.Background()))
	assert.False(t, NewOpenAIProvider(Options{ModelID: "gpt-5.2", BaseURL: server.URL}).HealthCheck(context.Background()))
}
