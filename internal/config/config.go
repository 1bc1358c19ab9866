// Package config loads the application-level configuration: how to reach the
// oracle provider and the default voting bounds. Task definitions live in
// their own files (see internal/task); this package never writes config to
// disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Voting   VotingConfig   `yaml:"voting"`
	LogLevel string         `yaml:"log_level"`
}

// ProviderConfig describes the chat-completions endpoint used as the oracle.
type ProviderConfig struct {
	Endpoint    string  `yaml:"endpoint"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	APITimeout  string  `yaml:"api_timeout"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// VotingConfig holds defaults for the per-step voting loop. Task files and
// command-line flags may override both values.
type VotingConfig struct {
	// MaxSamples bounds the oracle calls consumed per step, flagged samples
	// included. Exceeding it stalls the step instead of looping forever.
	MaxSamples int `yaml:"max_samples"`
	// Parallelism is the number of concurrent sample requests per step.
	// 1 means fully sequential sampling.
	Parallelism int `yaml:"parallelism"`
}

// Validate checks that required fields are present and bounds are sane.
func (c *Config) Validate() error {
	if c.Provider.Endpoint == "" {
		return fmt.Errorf("provider.endpoint is required")
	}
	if c.Voting.MaxSamples < 1 {
		return fmt.Errorf("voting.max_samples must be >= 1, got %d", c.Voting.MaxSamples)
	}
	if c.Voting.Parallelism < 1 {
		return fmt.Errorf("voting.parallelism must be >= 1, got %d", c.Voting.Parallelism)
	}
	return nil
}

// APIKey returns the resolved provider API key.
func (c *Config) APIKey() string {
	if c.Provider.APIKeyEnv == "" {
		return os.Getenv("OPENROUTER_API_KEY")
	}
	return os.Getenv(c.Provider.APIKeyEnv)
}

// Load resolves config from project → user → defaults.
func Load() (*Config, error) {
	cfg := defaults()

	// user-level config
	home, err := os.UserHomeDir()
	if err == nil {
		userPath := filepath.Join(home, ".maker", "config.yaml")
		if err := mergeFile(cfg, userPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("loading user config: %w", err)
		}
	}

	// project-level config (highest priority)
	projectPath := filepath.Join(".maker", "config.yaml")
	if err := mergeFile(cfg, projectPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("loading project config: %w", err)
	}

	return cfg, nil
}

func mergeFile(dst *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, dst)
}

func defaults() *Config {
	return &Config{
		Provider: ProviderConfig{
			Endpoint:    "https://openrouter.ai/api/v1",
			APIKeyEnv:   "OPENROUTER_API_KEY",
			APITimeout:  "120s",
			Temperature: 0.7,
			MaxTokens:   500,
		},
		Voting: VotingConfig{
			MaxSamples:  64,
			Parallelism: 1,
		},
		LogLevel: "info",
	}
}
