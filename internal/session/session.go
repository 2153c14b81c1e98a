// Package session stores council conversations on disk. A session is the
// caller-owned history log: the council only ever sees the windowed
// messages derived from it.
package session

import (
	"time"

	"github.com/google/uuid"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
	"github.com/gregoriusjimmy/llm-council/internal/council"
)

// Message represents a single message in a conversation
type Message struct {
	Role      string    `json:"role"`    // "user" or "assistant"
	Content   string    `json:"content"` // Message content
	Timestamp time.Time `json:"timestamp"`
}

// TurnRecord keeps what the advisors said during one turn, for display.
type TurnRecord struct {
	ID         string                  `json:"id"`
	Prompt     string                  `json:"prompt"`
	Results    []council.AdvisorResult `json:"results"`
	CritiqueOK bool                    `json:"critique_ok"`
	CreatedAt  time.Time               `json:"created_at"`
}

// Session represents a conversation session
type Session struct {
	ID            string                  `json:"id"`             // UUID v4 (e.g., "550e8400-e29b-41d4-a716-446655440000")
	ParentID      string                  `json:"parent_id"`      // Parent session ID (for summarized sessions)
	Name          string                  `json:"name"`           // Optional session name (empty by default)
	TemplateName  string                  `json:"template_name"`  // Prompt template name (reference info, can be empty)
	SystemPrompt  string                  `json:"system_prompt"`  // Template system text appended to advisor roles (can be empty)
	ChairmanModel string                  `json:"chairman_model"` // Chairman model used when the session was created
	Advisors      []council.AdvisorConfig `json:"advisors"`       // Council snapshot at creation
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
	Messages      []Message               `json:"messages"`
	Turns         []TurnRecord            `json:"turns,omitempty"`
}

// NewSession creates a new session for the given council
func NewSession(c *council.Council) *Session {
	now := time.Now()
	return &Session{
		ID:            uuid.New().String(),
		ChairmanModel: c.Chairman.Model,
		Advisors:      append([]council.AdvisorConfig(nil), c.Advisors...),
		CreatedAt:     now,
		UpdatedAt:     now,
		Messages:      []Message{},
	}
}

// AddMessage adds a new message to the session
func (s *Session) AddMessage(role, content string) {
	s.Messages = append(s.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.UpdatedAt = time.Now()
}

// AddTurn records a finished turn: the user's question, the synthesized
// answer and the advisors' results.
func (s *Session) AddTurn(turn *council.Turn, answer string) {
	s.AddMessage(backend.RoleUser, turn.Prompt)
	s.AddMessage(backend.RoleAssistant, answer)
	s.Turns = append(s.Turns, TurnRecord{
		ID:         turn.ID,
		Prompt:     turn.Prompt,
		Results:    turn.Results,
		CritiqueOK: turn.CritiqueOK,
		CreatedAt:  time.Now(),
	})
}

// History returns the conversation as backend messages, oldest first.
func (s *Session) History() []backend.Message {
	history := make([]backend.Message, 0, len(s.Messages))
	for _, m := range s.Messages {
		history = append(history, backend.Message{Role: m.Role, Content: m.Content})
	}
	return history
}

// Council rebuilds the council the session was created with.
func (s *Session) Council() *council.Council {
	return council.New(s.Advisors, s.ChairmanModel)
}

// GetShortID returns the shortened session ID (first 8 characters)
func (s *Session) GetShortID() string {
	if len(s.ID) >= 8 {
		return s.ID[:8]
	}
	return s.ID
}

// GetDisplayName returns the display name for the session
// If name is set, returns the name. Otherwise, returns the short ID.
func (s *Session) GetDisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.GetShortID()
}

// MessageCount returns the number of messages in the session
func (s *Session) MessageCount() int {
	return len(s.Messages)
}
