package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/gregoriusjimmy/llm-council/internal/council"
)

// CouncilFile is a standalone council definition:
//
//	chairman_model = "deepseek-r1"
//
//	[[advisors]]
//	name  = "The Reasoner"
//	model = "kimi-k2-thinking:cloud"
//	role  = "Break the problem down step by step."
type CouncilFile struct {
	ChairmanModel string                  `toml:"chairman_model" yaml:"chairman_model"`
	Advisors      []council.AdvisorConfig `toml:"advisors" yaml:"advisors"`
}

// LoadCouncilFile reads a council from a .toml, .yaml or .yml file.
func LoadCouncilFile(path string) (*CouncilFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read council file: %w", err)
	}
	return ParseCouncil(data, filepath.Ext(path))
}

// ParseCouncil decodes a council in the format named by ext (".toml",
// ".yaml" or ".yml").
func ParseCouncil(data []byte, ext string) (*CouncilFile, error) {
	var cf CouncilFile
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(string(data), &cf); err != nil {
			return nil, fmt.Errorf("failed to parse council TOML: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cf); err != nil {
			return nil, fmt.Errorf("failed to parse council YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported council file format %q (use .toml, .yaml or .yml)", ext)
	}

	if err := cf.Validate(); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Validate checks that every advisor names a model.
func (cf *CouncilFile) Validate() error {
	for i, a := range cf.Advisors {
		if strings.TrimSpace(a.Model) == "" {
			return fmt.Errorf("advisor %d (%q) has no model", i+1, a.Name)
		}
	}
	return nil
}

// Apply overlays the file onto the config: advisors are replaced when the
// file defines any, and a non-empty chairman model wins.
func (cf *CouncilFile) Apply(c *Config) {
	if len(cf.Advisors) > 0 {
		c.Advisors = cf.Advisors
	}
	if cf.ChairmanModel != "" {
		c.ChairmanModel = cf.ChairmanModel
	}
}
