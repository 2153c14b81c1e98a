package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
)

const (
	ProviderName     = "anthropic"
	DefaultBaseURL   = "https://api.anthropic.com/v1"
	AnthropicVersion = "2023-06-01"
	DefaultMaxTokens = 8192
)

// ModelsAPIResponse represents the response from Anthropic's models endpoint
type ModelsAPIResponse struct {
	Data []ModelData `json:"data"`
}

// ModelData represents a single model in the API response
type ModelData struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// MessagesAPIRequest represents the request body for Anthropic's Messages API
type MessagesAPIRequest struct {
	Model     string         `json:"model"`
	MaxTokens int            `json:"max_tokens"`
	System    string         `json:"system,omitempty"`
	Messages  []MessageInput `json:"messages"`
	Stream    bool           `json:"stream,omitempty"`
}

// MessageInput represents a message in the conversation
type MessageInput struct {
	Role    string    `json:"role"`    // "user" or "assistant"
	Content []Content `json:"content"` // Array of content blocks
}

// Content represents a text content block
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MessagesAPIResponse represents the response from Anthropic's Messages API
type MessagesAPIResponse struct {
	ID      string    `json:"id"`
	Content []Content `json:"content"`
}

// StreamEvent is the data payload of one SSE event.
type StreamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"delta"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Config defines the configuration interface for Anthropic provider
type Config interface {
	GetBaseURL(provider string) (string, error)
	GetToken(provider string) (string, error)
}

// Client talks to the Messages API and is safe for concurrent use.
type Client struct {
	config Config
	http   backend.HTTPDoer
}

// NewClient creates a client using http.DefaultClient.
func NewClient(config Config) *Client {
	return &Client{config: config, http: http.DefaultClient}
}

// WithHTTPClient replaces the HTTP client.
func (c *Client) WithHTTPClient(h backend.HTTPDoer) *Client {
	c.http = h
	return c
}

func (c *Client) endpoint(path string) (string, map[string]string, error) {
	// Get token for Anthropic
	token, err := c.config.GetToken(ProviderName)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get token: %w", err)
	}

	// Get base URL for Anthropic
	baseURL, err := c.config.GetBaseURL(ProviderName)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get base URL: %w", err)
	}

	headers := map[string]string{
		"x-api-key":         token,
		"anthropic-version": AnthropicVersion,
	}
	return strings.TrimRight(baseURL, "/") + path, headers, nil
}

// newRequest moves system messages to the top-level system field; the
// Messages API only accepts user and assistant turns.
func newRequest(req backend.Request, stream bool) MessagesAPIRequest {
	var system []string
	inputs := make([]MessageInput, 0, len(req.Messages))
	for _, msg := range req.Messages {
		if msg.Role == backend.RoleSystem {
			system = append(system, msg.Content)
			continue
		}
		inputs = append(inputs, MessageInput{
			Role:    msg.Role,
			Content: []Content{{Type: "text", Text: msg.Content}},
		})
	}

	return MessagesAPIRequest{
		Model:     req.Model,
		MaxTokens: DefaultMaxTokens,
		System:    strings.Join(system, "\n\n"),
		Messages:  inputs,
		Stream:    stream,
	}
}

// Complete implements backend.ChatBackend.
func (c *Client) Complete(ctx context.Context, req backend.Request) (*backend.Response, error) {
	url, headers, err := c.endpoint("/messages")
	if err != nil {
		return nil, err
	}

	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodPost, url, headers, newRequest(req, false))
	if err != nil {
		return nil, err
	}

	var result MessagesAPIResponse
	if err := backend.DecodeJSON(resp, &result); err != nil {
		return nil, err
	}

	// Extract text from content blocks
	var textBlocks []string
	for _, content := range result.Content {
		if content.Type == "text" && content.Text != "" {
			textBlocks = append(textBlocks, content.Text)
		}
	}
	if len(textBlocks) == 0 {
		return nil, fmt.Errorf("no text content found in API response (id=%s)", result.ID)
	}
	return &backend.Response{Content: strings.Join(textBlocks, "\n")}, nil
}

// Stream implements backend.ChatBackend using server-sent events.
func (c *Client) Stream(ctx context.Context, req backend.Request) (backend.Stream, error) {
	url, headers, err := c.endpoint("/messages")
	if err != nil {
		return nil, err
	}
	headers["Accept"] = "text/event-stream"

	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodPost, url, headers, newRequest(req, true))
	if err != nil {
		return nil, err
	}
	return backend.NewLineStream(resp.Body, parseEvent), nil
}

func parseEvent(line string) (string, bool, error) {
	data, ok := backend.SSEData(line)
	if !ok {
		return "", false, nil
	}

	var event StreamEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return "", false, fmt.Errorf("error parsing stream event: %w", err)
	}

	switch event.Type {
	case "content_block_delta":
		if event.Delta.Type == "text_delta" {
			return event.Delta.Text, false, nil
		}
	case "message_stop":
		return "", true, nil
	case "error":
		if event.Error != nil {
			return "", true, fmt.Errorf("API error [%s]: %s", event.Error.Type, event.Error.Message)
		}
		return "", true, fmt.Errorf("API error in stream")
	}
	return "", false, nil
}

// ListModels returns the list of supported models from the API
func (c *Client) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	url, headers, err := c.endpoint("/models")
	if err != nil {
		return nil, err
	}

	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodGet, url, headers, nil)
	if err != nil {
		return nil, err
	}

	var result ModelsAPIResponse
	if err := backend.DecodeJSON(resp, &result); err != nil {
		return nil, err
	}

	models := make([]backend.ModelInfo, 0, len(result.Data))
	for _, model := range result.Data {
		// Use display name as description if available
		description := model.DisplayName
		if description == "" && !model.CreatedAt.IsZero() {
			description = fmt.Sprintf("Created: %s", model.CreatedAt.UTC().Format("2006-01-02"))
		}
		models = append(models, backend.ModelInfo{
			Provider:    ProviderName,
			ID:          model.ID,
			Description: description,
		})
	}

	// Sort models by ID (descending order)
	sort.Slice(models, func(i, j int) bool {
		return models[i].ID > models[j].ID
	})
	return models, nil
}
