package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// Prompt represents the structure of a TOML prompt file
type Prompt struct {
	System   string  `toml:"system"`             // Appended to every advisor's role
	User     string  `toml:"user"`               // The question put to the council
	Chairman *string `toml:"chairman,omitempty"` // Overrides the chairman model
}

// LoadPrompt loads a prompt file and returns its contents
func LoadPrompt(filePath string) (*Prompt, error) {
	var prompt Prompt
	if _, err := toml.DecodeFile(filePath, &prompt); err != nil {
		return nil, fmt.Errorf("error decoding prompt file: %w", err)
	}
	return &prompt, nil
}

// Find returns the path of a named prompt. Later directories take precedence
// over earlier ones.
func Find(name string, promptDirs []string) (string, error) {
	promptFile := name
	if !strings.HasSuffix(promptFile, ".toml") {
		promptFile += ".toml"
	}

	var promptPath string
	for _, promptDir := range promptDirs {
		candidatePath := filepath.Join(promptDir, promptFile)
		if _, err := os.Stat(candidatePath); err == nil {
			promptPath = candidatePath
		}
	}

	if promptPath == "" {
		return "", fmt.Errorf("prompt file '%s' not found in any of the prompt directories: %v", promptFile, promptDirs)
	}
	return promptPath, nil
}

// Entry is one prompt template found on disk.
type Entry struct {
	Name string // Relative path without extension, e.g. "foo/bar"
	Dir  string // Prompt directory it was found in
}

// List scans promptDirs recursively for .toml templates, sorted by name.
// When a name exists in several directories the first one found wins the
// listing; missing directories are skipped.
func List(promptDirs []string) ([]Entry, error) {
	seen := make(map[string]bool)
	var entries []Entry

	for _, promptDir := range promptDirs {
		if _, err := os.Stat(promptDir); os.IsNotExist(err) {
			continue
		}

		err := filepath.WalkDir(promptDir, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.HasSuffix(d.Name(), ".toml") {
				return nil
			}

			relPath, err := filepath.Rel(promptDir, path)
			if err != nil {
				return nil
			}
			name := filepath.ToSlash(strings.TrimSuffix(relPath, ".toml"))
			if seen[name] {
				return nil
			}
			seen[name] = true
			entries = append(entries, Entry{Name: name, Dir: promptDir})
			return nil
		})
		if err != nil {
			return entries, fmt.Errorf("error walking prompt directory %s: %w", promptDir, err)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
