package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is returned when a provider answers with a non-2xx status.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s API request failed (HTTP %d)", e.Provider, e.StatusCode)
	}
	return fmt.Sprintf("%s API error (HTTP %d): %s", e.Provider, e.StatusCode, e.Message)
}

// NewAPIError builds an APIError from a response body, pulling the message
// out of the common {"error": "..."} and {"error": {"message": "..."}} shapes.
func NewAPIError(provider string, statusCode int, body []byte) *APIError {
	return &APIError{
		Provider:   provider,
		StatusCode: statusCode,
		Message:    extractErrorMessage(body),
	}
}

func extractErrorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}

	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512] + "..."
	}
	return msg
}
