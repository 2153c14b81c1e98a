package backend

import "testing"

func TestParseModelString(t *testing.T) {
	tests := []struct {
		name         string
		input        string
		wantProvider string
		wantModel    string
		wantErr      bool
	}{
		{
			name:         "openai model",
			input:        "openai:gpt-4.1",
			wantProvider: "openai",
			wantModel:    "gpt-4.1",
		},
		{
			name:         "ollama model with tag",
			input:        "ollama:llama3:latest",
			wantProvider: "ollama",
			wantModel:    "llama3:latest",
		},
		{
			name:         "cloud tag parses as provider",
			input:        "kimi-k2-thinking:cloud",
			wantProvider: "kimi-k2-thinking",
			wantModel:    "cloud",
		},
		{
			name:         "with whitespace",
			input:        " anthropic : claude-sonnet-4 ",
			wantProvider: "anthropic",
			wantModel:    "claude-sonnet-4",
		},
		{
			name:    "bare model",
			input:   "deepseek-r1",
			wantErr: true,
		},
		{
			name:    "empty provider",
			input:   ":gpt-4",
			wantErr: true,
		},
		{
			name:    "empty model",
			input:   "gemini:",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider, model, err := ParseModelString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseModelString() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if provider != tt.wantProvider {
				t.Errorf("ParseModelString() provider = %v, want %v", provider, tt.wantProvider)
			}
			if model != tt.wantModel {
				t.Errorf("ParseModelString() model = %v, want %v", model, tt.wantModel)
			}
		})
	}
}

func TestFormatModelString(t *testing.T) {
	got := FormatModelString("ollama", "llama3:latest")
	if got != "ollama:llama3:latest" {
		t.Errorf("FormatModelString() = %q", got)
	}

	provider, model, err := ParseModelString(got)
	if err != nil || provider != "ollama" || model != "llama3:latest" {
		t.Errorf("round trip = (%q, %q, %v)", provider, model, err)
	}
}
