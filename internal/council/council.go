// Package council implements the multi-agent orchestration engine: a question
// is dispatched to every advisor in parallel, the replies are joined in
// configuration order, and a chairman model critiques them privately before
// streaming one synthesized answer.
//
// A turn is usually driven through a Manager:
//
//	m := council.NewManager(router)
//	m.SetCouncil(advisors, "deepseek-r1")
//	turn, err := m.RunTurn(ctx, prompt, history, council.Hooks{})
//	if err != nil {
//		return err // the final stream could not be opened
//	}
//	defer turn.Stream.Close()
//
// Advisor and critique failures never fail a turn; they are recorded in the
// AdvisorResult status or replaced by a placeholder critique.
package council

import (
	"fmt"
	"time"
)

const (
	// DefaultHistoryWindow is the number of past messages sent with each call.
	DefaultHistoryWindow = 10

	// DefaultAdvisorTimeout bounds each advisor call. Reasoning models can be slow.
	DefaultAdvisorTimeout = 180 * time.Second

	// DefaultCritiqueTimeout bounds the chairman's critique call.
	DefaultCritiqueTimeout = 180 * time.Second

	// DefaultChairmanModel is used when no chairman model is configured.
	DefaultChairmanModel = "deepseek-r1"

	// ChairmanName is the display name of the chairman.
	ChairmanName = "Chairman"

	// ChairmanRole is the fixed synthesis-oriented role of the chairman.
	ChairmanRole = "You are the Chairman of the LLM Council. Your job is to synthesize the answers from other members into a single, perfect response."
)

// AdvisorConfig describes one council participant.
// Names are not required to be unique; advisors are distinguished by position.
type AdvisorConfig struct {
	Name  string `json:"name" toml:"name" yaml:"name" mapstructure:"name"`
	Model string `json:"model" toml:"model" yaml:"model" mapstructure:"model"`
	Role  string `json:"role" toml:"role" yaml:"role" mapstructure:"role"`
}

// SystemPrompt is the system message an advisor receives.
func (a AdvisorConfig) SystemPrompt() string {
	return fmt.Sprintf("You are %s. %s", a.Name, a.Role)
}

// Council is the set of participants for one turn. A Council value is never
// mutated once built; reconfiguration builds a new one.
type Council struct {
	Advisors []AdvisorConfig `json:"advisors"`
	Chairman AdvisorConfig   `json:"chairman"`
}

// New builds a council from advisors and the chairman's model id.
// The advisors slice is copied so later changes by the caller do not leak in.
func New(advisors []AdvisorConfig, chairmanModel string) *Council {
	if chairmanModel == "" {
		chairmanModel = DefaultChairmanModel
	}
	return &Council{
		Advisors: append([]AdvisorConfig(nil), advisors...),
		Chairman: AdvisorConfig{
			Name:  ChairmanName,
			Model: chairmanModel,
			Role:  ChairmanRole,
		},
	}
}

// Models returns every configured model id, advisors first then the
// chairman, without duplicates.
func (c *Council) Models() []string {
	seen := make(map[string]bool)
	var models []string
	add := func(model string) {
		if model == "" || seen[model] {
			return
		}
		seen[model] = true
		models = append(models, model)
	}
	for _, a := range c.Advisors {
		add(a.Model)
	}
	add(c.Chairman.Model)
	return models
}

// DefaultAdvisors returns the stock council used when none is configured.
func DefaultAdvisors() []AdvisorConfig {
	return []AdvisorConfig{
		{Name: "The Reasoner", Model: "kimi-k2-thinking:cloud", Role: "You are a deep thinker. Break down the user's problem step-by-step."},
		{Name: "The Engineer", Model: "minimax-m2:cloud", Role: "You are an engineer. Focus on practical implementation, code, and efficiency."},
		{Name: "The Generalist", Model: "deepseek-v3.2:cloud", Role: "You are a balanced assistant. Provide clear, direct answers."},
	}
}

// Status is the outcome of one advisor call.
type Status string

const (
	StatusSuccess Status = "success"
	StatusTimeout Status = "timeout"
	StatusError   Status = "error"
)

// AdvisorResult is produced exactly once per advisor per turn. For a
// non-success status Content holds a readable failure description.
type AdvisorResult struct {
	Name     string        `json:"name"`
	Model    string        `json:"model"`
	Content  string        `json:"content"`
	Status   Status        `json:"status"`
	Duration time.Duration `json:"duration"`
}

// OK reports whether the advisor answered.
func (r AdvisorResult) OK() bool {
	return r.Status == StatusSuccess
}
