package council

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
)

// Recorder receives turn outcomes, typically for metrics.
// Implementations must be safe for concurrent use.
type Recorder interface {
	ObserveAdvisor(result AdvisorResult)
	ObserveCritique(ok bool, duration time.Duration)
	ObserveSynthesis(started bool)
}

// Manager holds the current council and runs turns against a backend.
// The council is swapped atomically; every turn works on the snapshot it
// took when it started, so reconfiguration never affects a turn in flight.
type Manager struct {
	backend backend.ChatBackend
	council atomic.Pointer[Council]

	advisorTimeout  time.Duration
	critiqueTimeout time.Duration
	window          int
	logger          *slog.Logger
	recorder        Recorder
}

// Option configures a Manager.
type Option func(*Manager)

// WithAdvisorTimeout sets the per-advisor timeout.
func WithAdvisorTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.advisorTimeout = d
		}
	}
}

// WithCritiqueTimeout sets the timeout of the chairman's critique call.
func WithCritiqueTimeout(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.critiqueTimeout = d
		}
	}
}

// WithHistoryWindow sets how many past messages each call receives.
func WithHistoryWindow(k int) Option {
	return func(m *Manager) {
		if k > 0 {
			m.window = k
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithRecorder sets the outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

// NewManager creates a manager with an empty council.
func NewManager(b backend.ChatBackend, opts ...Option) *Manager {
	m := &Manager{
		backend:         b,
		advisorTimeout:  DefaultAdvisorTimeout,
		critiqueTimeout: DefaultCritiqueTimeout,
		window:          DefaultHistoryWindow,
		logger:          slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.council.Store(New(nil, ""))
	return m
}

// SetCouncil replaces the council. Turns already running keep their snapshot.
func (m *Manager) SetCouncil(advisors []AdvisorConfig, chairmanModel string) {
	c := New(advisors, chairmanModel)
	m.council.Store(c)
	m.logger.Info("council updated", "advisors", len(c.Advisors), "chairman", c.Chairman.Model)
}

// Council returns a copy of the current council.
func (m *Manager) Council() *Council {
	c := m.council.Load()
	return &Council{
		Advisors: append([]AdvisorConfig(nil), c.Advisors...),
		Chairman: c.Chairman,
	}
}

// GatherAdvisorResponses queries the current council's advisors in parallel.
func (m *Manager) GatherAdvisorResponses(ctx context.Context, prompt string, history []backend.Message) []AdvisorResult {
	return m.gather(ctx, m.council.Load(), "", prompt, history, nil)
}

func (m *Manager) gather(ctx context.Context, c *Council, turnID, prompt string, history []backend.Message, onResult func(int, AdvisorResult)) []AdvisorResult {
	return gather(ctx, m.backend, c.Advisors, prompt, history, m.window, m.advisorTimeout, func(i int, res AdvisorResult) {
		m.observeAdvisor(turnID, res)
		if onResult != nil {
			onResult(i, res)
		}
	})
}

func (m *Manager) observeAdvisor(turnID string, res AdvisorResult) {
	if m.recorder != nil {
		m.recorder.ObserveAdvisor(res)
	}
	if res.OK() {
		m.logger.Debug("advisor responded", "turn", turnID, "advisor", res.Name, "model", res.Model, "duration", res.Duration)
		return
	}
	m.logger.Warn("advisor failed", "turn", turnID, "advisor", res.Name, "model", res.Model, "status", string(res.Status), "detail", res.Content)
}

// Critique runs the chairman's private critique. A failed critique yields
// CritiqueFailedPlaceholder and ok=false.
func (m *Manager) Critique(ctx context.Context, chairman AdvisorConfig, contextText string, history []backend.Message) (text string, ok bool) {
	return m.critique(ctx, "", chairman, contextText, history)
}

func (m *Manager) critique(ctx context.Context, turnID string, chairman AdvisorConfig, contextText string, history []backend.Message) (string, bool) {
	res := critique(ctx, m.backend, chairman, contextText, history, m.window, m.critiqueTimeout)
	if m.recorder != nil {
		m.recorder.ObserveCritique(res.OK(), res.Duration)
	}
	if !res.OK() {
		m.logger.Warn("critique failed, continuing with placeholder", "turn", turnID, "model", chairman.Model, "detail", res.Content)
		return CritiqueFailedPlaceholder, false
	}
	m.logger.Debug("critique done", "turn", turnID, "model", chairman.Model, "duration", res.Duration)
	return res.Content, true
}

// Synthesize opens the chairman's final answer stream.
func (m *Manager) Synthesize(ctx context.Context, chairman AdvisorConfig, contextText, critiqueText string, history []backend.Message) (backend.Stream, error) {
	return m.synthesize(ctx, "", chairman, contextText, critiqueText, history)
}

func (m *Manager) synthesize(ctx context.Context, turnID string, chairman AdvisorConfig, contextText, critiqueText string, history []backend.Message) (backend.Stream, error) {
	stream, err := synthesize(ctx, m.backend, chairman, contextText, critiqueText, history, m.window)
	if m.recorder != nil {
		m.recorder.ObserveSynthesis(err == nil)
	}
	if err != nil {
		m.logger.Error("synthesis stream failed to start", "turn", turnID, "model", chairman.Model, "error", err)
		return nil, err
	}
	return stream, nil
}

// RunSynthesis builds the context from results, runs the critique and opens
// the final stream using the current council's chairman.
func (m *Manager) RunSynthesis(ctx context.Context, prompt string, results []AdvisorResult, history []backend.Message) (backend.Stream, error) {
	chairman := m.council.Load().Chairman
	contextText := BuildContext(prompt, results)
	critiqueText, _ := m.critique(ctx, "", chairman, contextText, history)
	return m.synthesize(ctx, "", chairman, contextText, critiqueText, history)
}

// Hooks lets a caller follow a turn while it runs. OnAdvisor is called from
// advisor goroutines and must be safe for concurrent use.
type Hooks struct {
	OnPhase   func(Phase)
	OnAdvisor func(index int, result AdvisorResult)
}

func (h Hooks) phase(p Phase) {
	if h.OnPhase != nil {
		h.OnPhase(p)
	}
}

// Turn is the state of one council turn.
type Turn struct {
	ID         string
	Council    *Council
	Prompt     string
	Results    []AdvisorResult
	Context    string
	Critique   string
	CritiqueOK bool

	// Stream is the chairman's final answer. It is nil when the turn failed.
	// The caller owns it and must Close it.
	Stream backend.Stream
}

// Failed returns the results of advisors that did not answer.
func (t *Turn) Failed() []AdvisorResult {
	var failed []AdvisorResult
	for _, r := range t.Results {
		if !r.OK() {
			failed = append(failed, r)
		}
	}
	return failed
}

// RunTurn runs a full turn on a snapshot of the current council: fan-out,
// aggregation, critique and the opening of the final stream. The returned
// error is non-nil only when the stream could not be started; the Turn is
// still returned so the advisors' results can be shown.
func (m *Manager) RunTurn(ctx context.Context, prompt string, history []backend.Message, hooks Hooks) (*Turn, error) {
	c := m.council.Load()
	turn := &Turn{
		ID:      uuid.New().String(),
		Council: c,
		Prompt:  prompt,
	}
	start := time.Now()
	m.logger.Info("turn started", "turn", turn.ID, "advisors", len(c.Advisors), "chairman", c.Chairman.Model)

	hooks.phase(PhaseGathering)
	turn.Results = m.gather(ctx, c, turn.ID, prompt, history, hooks.OnAdvisor)
	turn.Context = BuildContext(prompt, turn.Results)

	hooks.phase(PhaseCritiquing)
	turn.Critique, turn.CritiqueOK = m.critique(ctx, turn.ID, c.Chairman, turn.Context, history)
	hooks.phase(PhaseCritiqueDone)

	hooks.phase(PhaseSynthesizing)
	stream, err := m.synthesize(ctx, turn.ID, c.Chairman, turn.Context, turn.Critique, history)
	if err != nil {
		hooks.phase(PhaseFailed)
		return turn, err
	}

	hooks.phase(PhaseStreaming)
	turn.Stream = &phaseStream{Stream: stream, onEOF: func() {
		hooks.phase(PhaseDone)
		m.logger.Info("turn finished", "turn", turn.ID, "duration", time.Since(start))
	}}
	m.logger.Debug("synthesis streaming", "turn", turn.ID, "failed_advisors", len(turn.Failed()))
	return turn, nil
}

// phaseStream reports the end of the final answer exactly once.
type phaseStream struct {
	backend.Stream
	onEOF func()
	once  sync.Once
}

func (s *phaseStream) Recv() (string, error) {
	chunk, err := s.Stream.Recv()
	if errors.Is(err, io.EOF) {
		s.once.Do(s.onEOF)
	}
	return chunk, err
}

// CheckModelsAvailability returns the configured model ids that the backend
// does not list. It is a soft check; dispatch does not depend on it.
func (m *Manager) CheckModelsAvailability(ctx context.Context) ([]string, error) {
	lister, ok := m.backend.(backend.ModelLister)
	if !ok {
		return nil, errors.New("backend does not support model listing")
	}

	models, err := lister.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing models: %w", err)
	}

	available := make([]string, 0, len(models))
	for _, model := range models {
		available = append(available, model.ID)
	}
	return MissingModels(m.council.Load().Models(), available), nil
}
