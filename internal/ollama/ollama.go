// Package ollama implements backend.ChatBackend for the Ollama HTTP API.
package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
)

const (
	ProviderName   = "ollama"
	DefaultBaseURL = "http://localhost:11434"
)

// Config defines the configuration interface for the Ollama client.
type Config interface {
	GetBaseURL(provider string) (string, error)
	GetToken(provider string) (string, error)
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Model    string            `json:"model"`
	Messages []backend.Message `json:"messages"`
	Stream   bool              `json:"stream"`
}

// ChatResponse is one reply object; when streaming, one per NDJSON line.
type ChatResponse struct {
	Model   string          `json:"model"`
	Message backend.Message `json:"message"`
	Done    bool            `json:"done"`
	Error   string          `json:"error,omitempty"`
}

// TagsResponse is the body of GET /api/tags.
type TagsResponse struct {
	Models []TagModel `json:"models"`
}

// TagModel is one locally available model.
type TagModel struct {
	Name    string `json:"name"`
	Size    int64  `json:"size"`
	Details struct {
		Family        string `json:"family"`
		ParameterSize string `json:"parameter_size"`
	} `json:"details"`
}

// Client talks to an Ollama server. It holds no per-call state and is safe
// for concurrent use.
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
	baseURL, err := c.config.GetBaseURL(ProviderName)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get base URL: %w", err)
	}

	// A token is only needed for hosted Ollama; local servers take none.
	headers := map[string]string{}
	if token, err := c.config.GetToken(ProviderName); err == nil && token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return strings.TrimRight(baseURL, "/") + path, headers, nil
}

// Complete implements backend.ChatBackend.
func (c *Client) Complete(ctx context.Context, req backend.Request) (*backend.Response, error) {
	url, headers, err := c.endpoint("/api/chat")
	if err != nil {
		return nil, err
	}

	body := ChatRequest{Model: req.Model, Messages: req.Messages, Stream: false}
	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodPost, url, headers, body)
	if err != nil {
		return nil, err
	}

	var result ChatResponse
	if err := backend.DecodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", result.Error)
	}
	return &backend.Response{Content: result.Message.Content}, nil
}

// Stream implements backend.ChatBackend. The reply arrives as NDJSON.
func (c *Client) Stream(ctx context.Context, req backend.Request) (backend.Stream, error) {
	url, headers, err := c.endpoint("/api/chat")
	if err != nil {
		return nil, err
	}

	body := ChatRequest{Model: req.Model, Messages: req.Messages, Stream: true}
	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodPost, url, headers, body)
	if err != nil {
		return nil, err
	}
	return backend.NewLineStream(resp.Body, parseLine), nil
}

func parseLine(line string) (string, bool, error) {
	var chunk ChatResponse
	if err := json.Unmarshal([]byte(line), &chunk); err != nil {
		return "", false, fmt.Errorf("error parsing stream chunk: %w", err)
	}
	if chunk.Error != "" {
		return "", true, fmt.Errorf("ollama error: %s", chunk.Error)
	}
	return chunk.Message.Content, chunk.Done, nil
}

// ListModels returns the models pulled on the server, sorted by name.
func (c *Client) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	url, headers, err := c.endpoint("/api/tags")
	if err != nil {
		return nil, err
	}

	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodGet, url, headers, nil)
	if err != nil {
		return nil, err
	}

	var result TagsResponse
	if err := backend.DecodeJSON(resp, &result); err != nil {
		return nil, err
	}

	models := make([]backend.ModelInfo, 0, len(result.Models))
	for _, m := range result.Models {
		var parts []string
		if m.Details.Family != "" {
			parts = append(parts, m.Details.Family)
		}
		if m.Details.ParameterSize != "" {
			parts = append(parts, m.Details.ParameterSize)
		}
		models = append(models, backend.ModelInfo{
			Provider:    ProviderName,
			ID:          m.Name,
			Description: strings.Join(parts, " "),
		})
	}

	sort.Slice(models, func(i, j int) bool {
		return models[i].ID < models[j].ID
	})
	return models, nil
}
