// Package backend provides the core abstractions for model backends.
// This package defines the ChatBackend interface that all provider clients
// (ollama, openai, anthropic, gemini) implement, along with the message and
// stream types shared by the council orchestration.
package backend

import (
	"context"
	"fmt"
	"strings"
)

// Message roles understood by every backend.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message represents a single chat message sent to a model.
type Message struct {
	Role    string `json:"role"`    // "system", "user" or "assistant"
	Content string `json:"content"` // Message content
}

// Request is a chat request for one model.
type Request struct {
	Model    string    // Model identifier, optionally in "provider:model" form
	Messages []Message // Ordered conversation, system message first if any
}

// Response is a complete, non-streaming reply.
type Response struct {
	Content string
}

// ModelInfo represents information about an available model from a provider.
type ModelInfo struct {
	Provider    string // Provider name (e.g., "ollama", "openai")
	ID          string // Model identifier (e.g., "llama3:latest", "gpt-4.1")
	Description string // Human-readable description of the model
}

// ChatBackend is the capability the council needs from a model provider.
// Implementations must be safe for concurrent use and must not share mutable
// per-call state between concurrent requests.
//
// Example usage:
//
//	b := ollama.NewClient(cfg)
//	resp, err := b.Complete(ctx, backend.Request{Model: "llama3", Messages: msgs})
type ChatBackend interface {
	// Complete sends the request and waits for the full reply.
	// The context bounds the call; cancelling it aborts the request.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Stream opens a streaming call and returns as soon as the backend has
	// accepted it. An error means the stream was never established.
	// The caller must Close the returned stream.
	Stream(ctx context.Context, req Request) (Stream, error)
}

// ModelLister is implemented by backends that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// ParseModelString parses a model string in "provider:model" format.
// Returns (provider, model, error).
//
// Example:
//
//	provider, model, err := ParseModelString("openai:gpt-4")
//	// provider = "openai", model = "gpt-4"
func ParseModelString(modelStr string) (string, string, error) {
	parts := strings.SplitN(modelStr, ":", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid model format: %s (expected format: provider:model, e.g., openai:gpt-4)", modelStr)
	}

	provider := strings.TrimSpace(parts[0])
	model := strings.TrimSpace(parts[1])

	if provider == "" || model == "" {
		return "", "", fmt.Errorf("provider and model cannot be empty")
	}

	return provider, model, nil
}

// FormatModelString formats provider and model into "provider:model" format.
//
// Example:
//
//	modelStr := FormatModelString("openai", "gpt-4")
//	// modelStr = "openai:gpt-4"
func FormatModelString(provider, model string) string {
	return fmt.Sprintf("%s:%s", provider, model)
}
