package council

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/iter"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
)

// Gather queries every advisor of c concurrently and returns one result per
// advisor in configuration order. It is a full join: it returns only after
// every advisor has succeeded, failed or timed out, so the wall time is
// bounded by the slowest advisor's timeout.
func Gather(ctx context.Context, b backend.ChatBackend, c *Council, prompt string, history []backend.Message, timeout time.Duration) []AdvisorResult {
	return gather(ctx, b, c.Advisors, prompt, history, DefaultHistoryWindow, timeout, nil)
}

// gather runs dispatch once per advisor. onResult, when set, is called from
// the advisor's goroutine as soon as that advisor finishes.
func gather(ctx context.Context, b backend.ChatBackend, advisors []AdvisorConfig, prompt string, history []backend.Message, window int, timeout time.Duration, onResult func(int, AdvisorResult)) []AdvisorResult {
	if len(advisors) == 0 {
		return []AdvisorResult{}
	}

	slots := make([]int, len(advisors))
	for i := range slots {
		slots[i] = i
	}

	// One goroutine per advisor; Map writes each result to its input index,
	// so completion order never leaks into the result order.
	mapper := iter.Mapper[int, AdvisorResult]{MaxGoroutines: len(advisors)}
	return mapper.Map(slots, func(i *int) AdvisorResult {
		a := advisors[*i]
		res := dispatch(ctx, b, call{
			name:    a.Name,
			model:   a.Model,
			system:  a.SystemPrompt(),
			prompt:  prompt,
			history: history,
			window:  window,
			timeout: timeout,
		})
		if onResult != nil {
			onResult(*i, res)
		}
		return res
	})
}
