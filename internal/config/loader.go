package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a preflight configuration from the given YAML file
// path, then applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./preflight.yaml, ~/.preflight/config.yaml
func LoadDefault() (*Config, error) {
	candidates := []string{"preflight.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".preflight", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	return nil, fmt.Errorf("no preflight config found (searched: %v)", candidates)
}

// applyDefaults fills in the retry budget, push behaviour and AI settings
// for fields the file leaves unset.
func applyDefaults(cfg *Config) {
	p := &cfg.Preflight

	if p.MaxFixAttempts == 0 {
		p.MaxFixAttempts = 2
	}
	if p.AI.MaxTokens == 0 {
		p.AI.MaxTokens = 2048
	}
}
