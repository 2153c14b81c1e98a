package prompt

import (
	"fmt"
	"strings"

	"github.com/gregoriusjimmy/llm-council/internal/council"
)

// Formatted is a prompt template applied to a question.
type Formatted struct {
	Question string  // Text sent to every advisor
	System   string  // Extra instructions for every advisor, may be empty
	Chairman *string // Chairman model override, if the template sets one
}

// FormatMessage applies the named template to message. With no template
// name the message is returned unchanged.
func FormatMessage(message string, promptName string, promptDirs []string, args []string) (*Formatted, error) {
	if promptName == "" {
		return &Formatted{Question: message}, nil
	}

	promptPath, err := Find(promptName, promptDirs)
	if err != nil {
		return nil, err
	}

	// Load prompt template
	promptTemplate, err := LoadPrompt(promptPath)
	if err != nil {
		return nil, fmt.Errorf("error loading prompt file: %w", err)
	}

	// Process command line arguments
	argMap, err := processArgs(args)
	if err != nil {
		return nil, fmt.Errorf("error processing arguments: %w", err)
	}

	// Create a map of all replacements
	replacements := make(map[string]string, len(argMap)+1)
	replacements["input"] = message
	for key, value := range argMap {
		replacements[key] = value
	}

	systemPrompt := promptTemplate.System
	userPrompt := promptTemplate.User
	if strings.TrimSpace(userPrompt) == "" {
		userPrompt = "{{input}}"
	}
	for key, value := range replacements {
		placeholder := fmt.Sprintf("{{%s}}", key)
		systemPrompt = strings.ReplaceAll(systemPrompt, placeholder, value)
		userPrompt = strings.ReplaceAll(userPrompt, placeholder, value)
	}

	if promptTemplate.Chairman != nil && strings.TrimSpace(*promptTemplate.Chairman) == "" {
		return nil, fmt.Errorf("invalid chairman in prompt template: empty model id")
	}

	return &Formatted{
		Question: userPrompt,
		System:   strings.TrimSpace(systemPrompt),
		Chairman: promptTemplate.Chairman,
	}, nil
}

// processArgs processes the command line arguments and returns a map of key-value pairs
func processArgs(args []string) (map[string]string, error) {
	result := make(map[string]string)
	for _, arg := range args {
		// Handle quoted values
		arg = strings.TrimSpace(arg)
		if strings.HasPrefix(arg, `"`) && strings.HasSuffix(arg, `"`) {
			arg = strings.Trim(arg, `"`)
		}

		// Split on first colon
		parts := strings.SplitN(arg, ":", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid argument format: %s. Expected format: key:value", arg)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove escape characters from value
		value = strings.ReplaceAll(value, `\:`, ":")
		value = strings.ReplaceAll(value, `\"`, `"`)

		if key == "input" {
			return nil, fmt.Errorf("'input' is a reserved keyword and cannot be used as a key")
		}
		result[key] = value
	}
	return result, nil
}

// ApplyToAdvisors returns a copy of advisors with the template's system text
// appended to each role.
func (f *Formatted) ApplyToAdvisors(advisors []council.AdvisorConfig) []council.AdvisorConfig {
	out := append([]council.AdvisorConfig(nil), advisors...)
	if f.System == "" {
		return out
	}
	for i := range out {
		out[i].Role = strings.TrimSpace(out[i].Role + "\n\n" + f.System)
	}
	return out
}
