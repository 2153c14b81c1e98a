package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregoriusjimmy/llm-council/internal/council"
)

func writePrompt(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFormatMessage(t *testing.T) {
	dir := t.TempDir()
	writePrompt(t, dir, "review.toml", `
system = "Answer in {{lang}}."
user = "Review this: {{input}}"
chairman = "openai:gpt-4.1"
`)
	writePrompt(t, dir, "bare.toml", `system = "Be terse."`)

	tests := []struct {
		name         string
		promptName   string
		args         []string
		wantQuestion string
		wantSystem   string
		wantChairman string
		wantErr      bool
	}{
		{
			name:         "no template",
			promptName:   "",
			wantQuestion: "hello",
		},
		{
			name:         "template with args",
			promptName:   "review",
			args:         []string{"lang:French"},
			wantQuestion: "Review this: hello",
			wantSystem:   "Answer in French.",
			wantChairman: "openai:gpt-4.1",
		},
		{
			name:         "empty user defaults to input",
			promptName:   "bare.toml",
			wantQuestion: "hello",
			wantSystem:   "Be terse.",
		},
		{
			name:       "missing template",
			promptName: "nope",
			wantErr:    true,
		},
		{
			name:       "reserved arg",
			promptName: "review",
			args:       []string{"input:x"},
			wantErr:    true,
		},
		{
			name:       "malformed arg",
			promptName: "review",
			args:       []string{"novalue"},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatMessage("hello", tt.promptName, []string{dir}, tt.args)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuestion, got.Question)
			assert.Equal(t, tt.wantSystem, got.System)
			if tt.wantChairman == "" {
				assert.Nil(t, got.Chairman)
			} else {
				require.NotNil(t, got.Chairman)
				assert.Equal(t, tt.wantChairman, *got.Chairman)
			}
		})
	}
}

func TestProcessArgsEscapes(t *testing.T) {
	got, err := processArgs([]string{`"url:http\://x"`, `q:say \"hi\"`})
	require.NoError(t, err)
	assert.Equal(t, "http://x", got["url"])
	assert.Equal(t, `say "hi"`, got["q"])
}

func TestFindLaterDirectoryWins(t *testing.T) {
	low, high := t.TempDir(), t.TempDir()
	writePrompt(t, low, "p.toml", `user = "low"`)
	writePrompt(t, high, "p.toml", `user = "high"`)

	path, err := Find("p", []string{low, high})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(high, "p.toml"), path)
}

func TestList(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	writePrompt(t, a, "z.toml", "")
	writePrompt(t, a, "sub/x.toml", "")
	writePrompt(t, a, "notes.txt", "")
	writePrompt(t, b, "z.toml", "")
	writePrompt(t, b, "m.toml", "")

	entries, err := List([]string{a, b, filepath.Join(a, "missing")})
	require.NoError(t, err)

	var names []string
	for _, e := range entries {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"m", "sub/x", "z"}, names)
	assert.Equal(t, a, entries[2].Dir)
}

func TestApplyToAdvisors(t *testing.T) {
	advisors := []council.AdvisorConfig{{Name: "A", Model: "m", Role: "Be practical."}}

	f := &Formatted{System: "Answer in French."}
	got := f.ApplyToAdvisors(advisors)
	assert.Equal(t, "Be practical.\n\nAnswer in French.", got[0].Role)
	assert.Equal(t, "Be practical.", advisors[0].Role, "input must not be modified")

	assert.Equal(t, advisors, (&Formatted{}).ApplyToAdvisors(advisors))
}
