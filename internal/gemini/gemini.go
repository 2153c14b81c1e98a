package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
)

const (
	ProviderName   = "gemini"
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
)

// ModelsAPIResponse represents the response from Gemini's models endpoint
type ModelsAPIResponse struct {
	Models []GeminiModelData `json:"models"`
}

// GeminiModelData represents a single model in the API response
type GeminiModelData struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

// GeminiRequest represents the request body for Gemini's generate content API
type GeminiRequest struct {
	Contents          []GeminiContent          `json:"contents"`
	SystemInstruction *GeminiSystemInstruction `json:"system_instruction,omitempty"`
}

// GeminiSystemInstruction represents system instruction for Gemini
type GeminiSystemInstruction struct {
	Parts []GeminiPart `json:"parts"`
}

// GeminiContent represents a content item in the Gemini request format
type GeminiContent struct {
	Role  string       `json:"role,omitempty"` // "user" or "model"
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart represents a part of the content in the Gemini request format
type GeminiPart struct {
	Text string `json:"text"`
}

// GeminiResponse represents a generateContent reply, or one streamed chunk
type GeminiResponse struct {
	Candidates []GeminiCandidate `json:"candidates"`
}

// GeminiCandidate represents a candidate response
type GeminiCandidate struct {
	Content GeminiContent `json:"content"`
}

// text joins the parts of the first candidate.
func (r GeminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String()
}

// Config defines the configuration interface for Gemini provider
type Config interface {
	GetBaseURL(provider string) (string, error)
	GetToken(provider string) (string, error)
}

// Client talks to the Gemini API and is safe for concurrent use.
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

// endpoint builds baseURL+path with the API key and extra query values.
func (c *Client) endpoint(path string, query url.Values) (string, error) {
	// Get token for Gemini
	token, err := c.config.GetToken(ProviderName)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	// Get base URL for Gemini
	baseURL, err := c.config.GetBaseURL(ProviderName)
	if err != nil {
		return "", fmt.Errorf("failed to get base URL: %w", err)
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("key", token)
	return strings.TrimRight(baseURL, "/") + path + "?" + query.Encode(), nil
}

// newRequest maps roles to Gemini's: system goes to system_instruction and
// assistant becomes "model".
func newRequest(req backend.Request) GeminiRequest {
	var body GeminiRequest
	for _, msg := range req.Messages {
		switch msg.Role {
		case backend.RoleSystem:
			if body.SystemInstruction == nil {
				body.SystemInstruction = &GeminiSystemInstruction{}
			}
			body.SystemInstruction.Parts = append(body.SystemInstruction.Parts, GeminiPart{Text: msg.Content})
		case backend.RoleAssistant:
			body.Contents = append(body.Contents, GeminiContent{Role: "model", Parts: []GeminiPart{{Text: msg.Content}}})
		default:
			body.Contents = append(body.Contents, GeminiContent{Role: "user", Parts: []GeminiPart{{Text: msg.Content}}})
		}
	}
	return body
}

// Complete implements backend.ChatBackend.
func (c *Client) Complete(ctx context.Context, req backend.Request) (*backend.Response, error) {
	endpoint, err := c.endpoint("/models/"+req.Model+":generateContent", nil)
	if err != nil {
		return nil, err
	}

	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodPost, endpoint, nil, newRequest(req))
	if err != nil {
		return nil, err
	}

	var result GeminiResponse
	if err := backend.DecodeJSON(resp, &result); err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in response")
	}
	return &backend.Response{Content: result.text()}, nil
}

// Stream implements backend.ChatBackend using server-sent events.
func (c *Client) Stream(ctx context.Context, req backend.Request) (backend.Stream, error) {
	endpoint, err := c.endpoint("/models/"+req.Model+":streamGenerateContent", url.Values{"alt": {"sse"}})
	if err != nil {
		return nil, err
	}

	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodPost, endpoint, nil, newRequest(req))
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

	var chunk GeminiResponse
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return "", false, fmt.Errorf("error parsing stream chunk: %w", err)
	}
	return chunk.text(), false, nil
}

// ListModels returns the list of supported models from the API
func (c *Client) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	endpoint, err := c.endpoint("/models", nil)
	if err != nil {
		return nil, err
	}

	resp, err := backend.DoJSON(ctx, c.http, ProviderName, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	var result ModelsAPIResponse
	if err := backend.DecodeJSON(resp, &result); err != nil {
		return nil, err
	}

	models := make([]backend.ModelInfo, 0, len(result.Models))
	for _, model := range result.Models {
		// Only include models that support generateContent
		if !slices.Contains(model.SupportedGenerationMethods, "generateContent") {
			continue
		}

		description := model.Description
		if description == "" {
			description = model.DisplayName
		}
		models = append(models, backend.ModelInfo{
			Provider:    ProviderName,
			ID:          strings.TrimPrefix(model.Name, "models/"),
			Description: description,
		})
	}

	// Sort models by ID (descending order)
	sort.Slice(models, func(i, j int) bool {
		return models[i].ID > models[j].ID
	})
	return models, nil
}
