package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
)

type testConfig struct {
	baseURL string
}

func (c testConfig) GetBaseURL(string) (string, error) { return c.baseURL, nil }
func (c testConfig) GetToken(string) (string, error)   { return "key", nil }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(testConfig{baseURL: srv.URL})
}

func TestNewRequestMovesSystem(t *testing.T) {
	req := newRequest(backend.Request{
		Model: "claude-sonnet-4",
		Messages: []backend.Message{
			{Role: backend.RoleSystem, Content: "You are A."},
			{Role: backend.RoleUser, Content: "q1"},
			{Role: backend.RoleAssistant, Content: "a1"},
			{Role: backend.RoleUser, Content: "q2"},
		},
	}, false)

	assert.Equal(t, "You are A.", req.System)
	assert.Equal(t, DefaultMaxTokens, req.MaxTokens)
	require.Len(t, req.Messages, 3)
	assert.Equal(t, "assistant", req.Messages[1].Role)
	assert.Equal(t, "q2", req.Messages[2].Content[0].Text)
}

func TestComplete(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-api-key"))
		assert.Equal(t, AnthropicVersion, r.Header.Get("anthropic-version"))

		var req MessagesAPIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.False(t, req.Stream)

		fmt.Fprint(w, `{"id":"msg_1","content":[{"type":"text","text":"Hello"},{"type":"text","text":"there"}]}`)
	})

	resp, err := client.Complete(context.Background(), backend.Request{Model: "claude-sonnet-4"})
	require.NoError(t, err)
	assert.Equal(t, "Hello\nthere", resp.Content)
}

func TestCompleteAPIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"type":"error","error":{"type":"authentication_error","message":"invalid x-api-key"}}`)
	})

	_, err := client.Complete(context.Background(), backend.Request{Model: "claude-sonnet-4"})
	assert.EqualError(t, err, "anthropic API error (HTTP 401): invalid x-api-key")
}

func TestStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req MessagesAPIRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		fmt.Fprint(w, "event: message_start\ndata: {\"type\":\"message_start\"}\n\n")
		for _, chunk := range []string{"The", " answer", " is", " 4."} {
			fmt.Fprintf(w, "event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"delta\":{\"type\":\"text_delta\",\"text\":%q}}\n\n", chunk)
		}
		fmt.Fprint(w, "event: message_stop\ndata: {\"type\":\"message_stop\"}\n\n")
	})

	stream, err := client.Stream(context.Background(), backend.Request{Model: "claude-sonnet-4"})
	require.NoError(t, err)

	text, err := backend.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "The answer is 4.", text)
}

func TestStreamErrorEvent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "data: {\"type\":\"error\",\"error\":{\"type\":\"overloaded_error\",\"message\":\"Overloaded\"}}\n\n")
	})

	stream, err := client.Stream(context.Background(), backend.Request{Model: "claude-sonnet-4"})
	require.NoError(t, err)

	_, err = backend.ReadAll(stream)
	assert.EqualError(t, err, "API error [overloaded_error]: Overloaded")
}

func TestListModels(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		fmt.Fprint(w, `{"data":[
			{"id":"claude-3-5-haiku-20241022","display_name":"Claude Haiku 3.5"},
			{"id":"claude-sonnet-4-20250514","created_at":"2025-05-14T00:00:00Z"}
		]}`)
	})

	models, err := client.ListModels(context.Background())
	require.NoError(t, err)
	require.Len(t, models, 2)
	assert.Equal(t, "claude-sonnet-4-20250514", models[0].ID)
	assert.Equal(t, "Created: 2025-05-14", models[0].Description)
	assert.Equal(t, "Claude Haiku 3.5", models[1].Description)
}
