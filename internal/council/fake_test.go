package council

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
)

// reply scripts how fakeBackend answers one model.
type reply struct {
	content string
	delay   time.Duration
	err     error
	block   bool // wait for ctx to end, ignoring delay
	panics  bool
}

// fakeBackend answers by model id and records every request it sees.
type fakeBackend struct {
	mu        sync.Mutex
	replies   map[string]reply
	critique  *reply
	chunks    []string
	streamErr error
	models    []backend.ModelInfo
	listErr   error
	requests  []backend.Request
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{replies: map[string]reply{}}
}

func (f *fakeBackend) Complete(ctx context.Context, req backend.Request) (*backend.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	r, ok := f.replies[req.Model]
	if f.critique != nil && isCritique(req) {
		r, ok = *f.critique, true
	}
	f.mu.Unlock()

	if !ok {
		return nil, errors.New("model not found")
	}
	if r.panics {
		panic("boom")
	}
	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.delay > 0 {
		select {
		case <-time.After(r.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return &backend.Response{Content: r.content}, nil
}

func (f *fakeBackend) Stream(ctx context.Context, req backend.Request) (backend.Stream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.streamErr != nil {
		return nil, f.streamErr
	}
	return backend.SliceStream(f.chunks...), nil
}

func (f *fakeBackend) ListModels(ctx context.Context) ([]backend.ModelInfo, error) {
	return f.models, f.listErr
}

func (f *fakeBackend) recorded() []backend.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]backend.Request(nil), f.requests...)
}

func (f *fakeBackend) lastStreamRequest() backend.Request {
	reqs := f.recorded()
	return reqs[len(reqs)-1]
}

func isCritique(req backend.Request) bool {
	last := req.Messages[len(req.Messages)-1]
	return strings.HasSuffix(last.Content, critiqueInstruction)
}

// fakeRecorder counts outcomes.
type fakeRecorder struct {
	mu        sync.Mutex
	advisors  map[Status]int
	critiques []bool
	synths    []bool
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{advisors: map[Status]int{}}
}

func (r *fakeRecorder) ObserveAdvisor(res AdvisorResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.advisors[res.Status]++
}

func (r *fakeRecorder) ObserveCritique(ok bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.critiques = append(r.critiques, ok)
}

func (r *fakeRecorder) ObserveSynthesis(started bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.synths = append(r.synths, started)
}

// stubbornBackend ignores its context and only returns once released.
type stubbornBackend struct {
	release chan struct{}
}

func (s *stubbornBackend) Complete(ctx context.Context, req backend.Request) (*backend.Response, error) {
	<-s.release
	return &backend.Response{Content: "late"}, nil
}

func (s *stubbornBackend) Stream(ctx context.Context, req backend.Request) (backend.Stream, error) {
	<-s.release
	return backend.SliceStream("late"), nil
}
