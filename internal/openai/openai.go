// Package openai implements backend.ChatBackend for OpenAI-compatible
// chat completions APIs.
package openai

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
	ProviderName   = "openai"
	DefaultBaseURL = "https://api.openai.com/v1"
)

// Config defines the configuration interface for the OpenAI client.
type Config interface {
	GetBaseURL(provider string) (string, error)
	GetToken(provider string) (string, error)
}

// ChatCompletionRequest is the body of POST /chat/completions.
type ChatCompletionRequest struct {
	Model    string            `json:"model"`
	Messages []backend.Message `json:"messages"`
	Stream   bool              `json:"stream,omitempty"`
}

// ChatCompletionResponse is a non-streaming reply.
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Choices []Choice `json:"choices"`
}

// Choice is one completion alternative.
type Choice struct {
	Message backend.Message `json:"message"`
	Delta   backend.Message `json:"delta"`
}

// ModelsAPIResponse is the body of GET /models.
type ModelsAPIResponse struct {
	Data []ModelData `json:"data"`
}

// ModelData represents a single model in the API response.
type ModelData struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
	Created int64  `json:"created"`
}

// Client talks to an OpenAI-compatible API and is safe for concurrent use.
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
	token, err := c.config.GetToken(ProviderName)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get token: %w", err)
	}
	baseURL, err := c.config.GetBaseURL(ProviderName)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get base URL: %w", err)
	}
	headers := map[string]string{"Authorization": "Bearer " + token}
	return strings.TrimRight(baseURL, "/") + path, headers, nil
}

// Complete implements backend.ChatBackend.
func (c *Client) Complete(ctx context.Context, req backend.Request) (*backend.Response, error) {
	url, headers, err := c.endpoint("/chat/completions")
	if err != nil {
		return nil, err
	}

	body := ChatCompletionRequest{Model: req.Model, Messages: req.Messages}
	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodPost, url, headers, body)
	if err != nil {
		return nil, err
	}

	var result ChatCompletionResponse
	if err := backend.DecodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("no choices in response (id=%s)", result.ID)
	}
	return &backend.Response{Content: result.Choices[0].Message.Content}, nil
}

// Stream implements backend.ChatBackend using server-sent events.
func (c *Client) Stream(ctx context.Context, req backend.Request) (backend.Stream, error) {
	url, headers, err := c.endpoint("/chat/completions")
	if err != nil {
		return nil, err
	}
	headers["Accept"] = "text/event-stream"

	body := ChatCompletionRequest{Model: req.Model, Messages: req.Messages, Stream: true}
	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodPost, url, headers, body)
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
	if data == "[DONE]" {
		return "", true, nil
	}

	var chunk ChatCompletionResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, fmt.Errorf("error parsing stream chunk: %w", err)
	}
	if len(chunk.Choices) == 0 {
		return "", false, nil
	}
	return chunk.Choices[0].Delta.Content, false, nil
}

// ListModels returns the models visible to the token, newest first.
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

	sort.Slice(result.Data, func(i, j int) bool {
		return result.Data[i].Created > result.Data[j].Created
	})

	models := make([]backend.ModelInfo, 0, len(result.Data))
	for _, m := range result.Data {
		description := m.OwnedBy
		if m.Created > 0 {
			created := time.Unix(m.Created, 0).UTC().Format("2006-01-02")
			description = strings.TrimSpace(fmt.Sprintf("%s (created %s)", m.OwnedBy, created))
		}
		models = append(models, backend.ModelInfo{
			Provider:    ProviderName,
			ID:          m.ID,
			Description: description,
		})
	}
	return models, nil
}
