package council

import "github.com/gregoriusjimmy/llm-council/internal/backend"

// Window returns the last k user/assistant messages of history in their
// original order. Messages with any other role are dropped before counting,
// so system messages from earlier turns never reach a model. A k <= 0 uses
// DefaultHistoryWindow. The result is a new slice; history is not modified.
func Window(history []backend.Message, k int) []backend.Message {
	if k <= 0 {
		k = DefaultHistoryWindow
	}

	kept := make([]backend.Message, 0, min(len(history), k))
	// Walk backwards so only the needed suffix is examined.
	for i := len(history) - 1; i >= 0 && len(kept) < k; i-- {
		switch history[i].Role {
		case backend.RoleUser, backend.RoleAssistant:
			kept = append(kept, history[i])
		}
	}

	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// buildMessages assembles system + windowed history + user prompt.
func buildMessages(system string, history []backend.Message, window int, prompt string) []backend.Message {
	recent := Window(history, window)
	messages := make([]backend.Message, 0, len(recent)+2)
	messages = append(messages, backend.Message{Role: backend.RoleSystem, Content: system})
	messages = append(messages, recent...)
	messages = append(messages, backend.Message{Role: backend.RoleUser, Content: prompt})
	return messages
}
