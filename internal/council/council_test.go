package council

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregoriusjimmy/llm-council/internal/backend"
)

func TestNew(t *testing.T) {
	advisors := []AdvisorConfig{
		{Name: "A", Model: "m1", Role: "r1"},
		{Name: "A", Model: "m2", Role: "r2"},
	}

	c := New(advisors, "")
	assert.Equal(t, DefaultChairmanModel, c.Chairman.Model)
	assert.Equal(t, ChairmanName, c.Chairman.Name)
	assert.Equal(t, ChairmanRole, c.Chairman.Role)
	require.Len(t, c.Advisors, 2)

	advisors[0].Name = "changed"
	assert.Equal(t, "A", c.Advisors[0].Name, "council must not alias the caller's slice")
}

func TestCouncilModels(t *testing.T) {
	c := New([]AdvisorConfig{
		{Name: "A", Model: "m1"},
		{Name: "B", Model: "m2"},
		{Name: "C", Model: "m1"},
	}, "m2")

	assert.Equal(t, []string{"m1", "m2"}, c.Models())
}

func TestSystemPrompt(t *testing.T) {
	a := AdvisorConfig{Name: "The Engineer", Role: "Be practical."}
	assert.Equal(t, "You are The Engineer. Be practical.", a.SystemPrompt())
}

func TestWindow(t *testing.T) {
	var history []backend.Message
	history = append(history, backend.Message{Role: backend.RoleSystem, Content: "old system"})
	for i := 0; i < 15; i++ {
		role := backend.RoleUser
		if i%2 == 1 {
			role = backend.RoleAssistant
		}
		history = append(history, backend.Message{Role: role, Content: fmt.Sprintf("m%d", i)})
	}

	tests := []struct {
		name  string
		k     int
		first string
		want  int
	}{
		{name: "default window", k: 0, first: "m5", want: 10},
		{name: "explicit window", k: 3, first: "m12", want: 3},
		{name: "window larger than history", k: 50, first: "m0", want: 15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Window(history, tt.k)
			require.Len(t, got, tt.want)
			assert.Equal(t, tt.first, got[0].Content)
			assert.Equal(t, "m14", got[len(got)-1].Content)
			for _, m := range got {
				assert.NotEqual(t, backend.RoleSystem, m.Role)
			}
		})
	}
}

func TestWindowShortAndEmpty(t *testing.T) {
	assert.Empty(t, Window(nil, 10))

	history := []backend.Message{
		{Role: backend.RoleUser, Content: "hi"},
		{Role: backend.RoleAssistant, Content: "hello"},
	}
	assert.Equal(t, history, Window(history, 10))
}

func TestBuildMessages(t *testing.T) {
	history := []backend.Message{
		{Role: backend.RoleUser, Content: "q1"},
		{Role: backend.RoleAssistant, Content: "a1"},
	}

	got := buildMessages("sys", history, 10, "q2")
	want := []backend.Message{
		{Role: backend.RoleSystem, Content: "sys"},
		{Role: backend.RoleUser, Content: "q1"},
		{Role: backend.RoleAssistant, Content: "a1"},
		{Role: backend.RoleUser, Content: "q2"},
	}
	assert.Equal(t, want, got)
}

func TestBuildContext(t *testing.T) {
	results := []AdvisorResult{
		{Name: "A", Model: "m1", Content: "4", Status: StatusSuccess},
		{Name: "B", Model: "m2", Content: "Error: Request timed out after 180 seconds.", Status: StatusTimeout},
		{Name: "C", Model: "m3", Content: "Error: connection refused", Status: StatusError},
	}

	want := "The user asked: 'What is 2+2?'\n\n" +
		"Here are the initial opinions from the council:\n\n" +
		"--- Opinion of A (m1) ---\n4\n\n" +
		"--- Opinion of B (m2) ---\n[Member failed to respond: Error: Request timed out after 180 seconds.]\n\n" +
		"--- Opinion of C (m3) ---\n[Member failed to respond: Error: connection refused]\n\n"

	assert.Equal(t, want, BuildContext("What is 2+2?", results))
}

func TestBuildContextEmpty(t *testing.T) {
	got := BuildContext("hi", nil)
	assert.Equal(t, "The user asked: 'hi'\n\nHere are the initial opinions from the council:\n\n", got)
}

func TestMissingModels(t *testing.T) {
	tests := []struct {
		name       string
		configured []string
		available  []string
		want       []string
	}{
		{
			name:       "all present by substring",
			configured: []string{"llama3", "deepseek-r1"},
			available:  []string{"ollama:llama3:latest", "ollama:deepseek-r1:7b"},
			want:       nil,
		},
		{
			name:       "one missing",
			configured: []string{"llama3", "gpt-4o"},
			available:  []string{"ollama:llama3:latest"},
			want:       []string{"gpt-4o"},
		},
		{
			name:       "nothing available",
			configured: []string{"a", "b"},
			available:  nil,
			want:       []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MissingModels(tt.configured, tt.available))
		})
	}
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "gathering", PhaseGathering.String())
	assert.Equal(t, "done", PhaseDone.String())
	assert.Equal(t, "phase(42)", Phase(42).String())
}
