package council

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
)

// call is one bounded, non-streaming model invocation.
type call struct {
	name    string
	model   string
	system  string
	prompt  string
	history []backend.Message
	window  int
	timeout time.Duration
}

// Dispatch runs one advisor call bounded by timeout and captures every
// outcome in the returned AdvisorResult. It never returns an error and never
// waits on the backend past the deadline.
func Dispatch(ctx context.Context, b backend.ChatBackend, advisor AdvisorConfig, prompt string, history []backend.Message, timeout time.Duration) AdvisorResult {
	return dispatch(ctx, b, call{
		name:    advisor.Name,
		model:   advisor.Model,
		system:  advisor.SystemPrompt(),
		prompt:  prompt,
		history: history,
		window:  DefaultHistoryWindow,
		timeout: timeout,
	})
}

type outcome struct {
	resp *backend.Response
	err  error
}

func dispatch(ctx context.Context, b backend.ChatBackend, c call) AdvisorResult {
	start := time.Now()
	result := AdvisorResult{Name: c.name, Model: c.model}

	timeout := c.timeout
	if timeout <= 0 {
		timeout = DefaultAdvisorTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := backend.Request{
		Model:    c.model,
		Messages: buildMessages(c.system, c.history, c.window, c.prompt),
	}

	// Buffered so an abandoned call can still finish and be collected.
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("backend panic: %v", r)}
			}
		}()
		resp, err := b.Complete(callCtx, req)
		done <- outcome{resp: resp, err: err}
	}()

	select {
	case out := <-done:
		switch {
		case out.err != nil:
			if timedOut(ctx, callCtx) {
				result.Status, result.Content = StatusTimeout, timeoutMessage(timeout)
			} else {
				result.Status, result.Content = StatusError, "Error: "+out.err.Error()
			}
		case out.resp == nil:
			result.Status, result.Content = StatusError, "Error: backend returned no response"
		default:
			result.Status, result.Content = StatusSuccess, out.resp.Content
		}
	case <-callCtx.Done():
		if timedOut(ctx, callCtx) {
			result.Status, result.Content = StatusTimeout, timeoutMessage(timeout)
		} else {
			result.Status, result.Content = StatusError, "Error: "+ctx.Err().Error()
		}
	}

	result.Duration = time.Since(start)
	return result
}

// timedOut reports whether callCtx hit its own deadline rather than the
// parent being cancelled.
func timedOut(parent, callCtx context.Context) bool {
	return parent.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded)
}

func timeoutMessage(timeout time.Duration) string {
	return fmt.Sprintf("Error: Request timed out after %s.", formatTimeout(timeout))
}

// formatTimeout renders whole-second durations as "N seconds".
func formatTimeout(d time.Duration) string {
	if d >= time.Second && d%time.Second == 0 {
		return fmt.Sprintf("%d seconds", int64(d/time.Second))
	}
	return d.String()
}
