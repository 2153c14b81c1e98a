package council

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
)

// Phase is a step of a council turn as seen by the caller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseGathering
	PhaseCritiquing
	PhaseCritiqueDone
	PhaseSynthesizing
	PhaseStreaming
	PhaseDone
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:         "idle",
	PhaseGathering:    "gathering",
	PhaseCritiquing:   "critiquing",
	PhaseCritiqueDone: "critique_done",
	PhaseSynthesizing: "synthesizing",
	PhaseStreaming:    "streaming",
	PhaseDone:         "done",
	PhaseFailed:       "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// CritiqueFailedPlaceholder replaces the critique when the chairman's
// critique call fails, so synthesis can still run.
const CritiqueFailedPlaceholder = "Critique failed."

const critiqueInstruction = "CRITICAL ANALYSIS: Identify conflicts, potential errors, and missing perspectives in the council's opinions. What is the strongest argument? What is the weakest?"

const synthesisInstruction = "Based on the opinions and your critique, provide a comprehensive, best-possible answer. Correct any mistakes. Merge insights into a coherent response."

// CritiquePrompt is the user message of the critique call.
func CritiquePrompt(contextText string) string {
	return contextText + "\n\n" + critiqueInstruction
}

// FinalPrompt is the user message of the streamed synthesis call.
func FinalPrompt(contextText, critique string) string {
	return fmt.Sprintf("%s\n\n--- Chairman's Internal Critique ---\n%s\n\n%s", contextText, critique, synthesisInstruction)
}

// StreamStartError reports that the chairman's final stream could not be
// opened. It is the only failure that fails a whole turn.
type StreamStartError struct {
	Model string
	Err   error
}

func (e *StreamStartError) Error() string {
	return fmt.Sprintf("starting synthesis stream for %s: %v", e.Model, e.Err)
}

func (e *StreamStartError) Unwrap() error {
	return e.Err
}

// Critique asks the chairman to privately analyse the council's opinions.
// On timeout or error it returns CritiqueFailedPlaceholder and ok=false.
func Critique(ctx context.Context, b backend.ChatBackend, chairman AdvisorConfig, contextText string, history []backend.Message, timeout time.Duration) (text string, ok bool) {
	res := critique(ctx, b, chairman, contextText, history, DefaultHistoryWindow, timeout)
	if !res.OK() {
		return CritiqueFailedPlaceholder, false
	}
	return res.Content, true
}

func critique(ctx context.Context, b backend.ChatBackend, chairman AdvisorConfig, contextText string, history []backend.Message, window int, timeout time.Duration) AdvisorResult {
	if timeout <= 0 {
		timeout = DefaultCritiqueTimeout
	}
	return dispatch(ctx, b, call{
		name:    chairman.Name,
		model:   chairman.Model,
		system:  chairman.SystemPrompt(),
		prompt:  CritiquePrompt(contextText),
		history: history,
		window:  window,
		timeout: timeout,
	})
}

// Synthesize opens the chairman's streamed final answer and returns it
// unconsumed. There is no internal timeout; ctx governs the whole stream.
// Failure to open the stream is returned as *StreamStartError.
func Synthesize(ctx context.Context, b backend.ChatBackend, chairman AdvisorConfig, contextText, critiqueText string, history []backend.Message) (backend.Stream, error) {
	return synthesize(ctx, b, chairman, contextText, critiqueText, history, DefaultHistoryWindow)
}

func synthesize(ctx context.Context, b backend.ChatBackend, chairman AdvisorConfig, contextText, critiqueText string, history []backend.Message, window int) (backend.Stream, error) {
	req := backend.Request{
		Model:    chairman.Model,
		Messages: buildMessages(chairman.Role, history, window, FinalPrompt(contextText, critiqueText)),
	}

	stream, err := b.Stream(ctx, req)
	if err != nil {
		return nil, &StreamStartError{Model: chairman.Model, Err: err}
	}
	if stream == nil {
		return nil, &StreamStartError{Model: chairman.Model, Err: errors.New("backend returned no stream")}
	}
	return stream, nil
}
