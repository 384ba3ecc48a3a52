package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config drives the CLI and serve mode.
type Config struct {
	Model        ModelConfig `yaml:"model"`
	Store        StoreConfig `yaml:"store"`
	MCP          MCPConfig   `yaml:"mcp"`
	StepBudget   int         `yaml:"step_budget"`
	SystemPrompt string      `yaml:"system_prompt"`
	LogLevel     string      `yaml:"log_level"`
}

// ModelConfig selects the chat model endpoint.
type ModelConfig struct {
	Name string `yaml:"name"`
	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never lives in the config file.
	APIKeyEnv string `yaml:"api_key_env"`
}

// StoreConfig selects the checkpoint backend.
type StoreConfig struct {
	// Backend is "memory" or "redis".
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis checkpoint store.
type RedisConfig struct {
	Addr   string `yaml:"addr"`
	Prefix string `yaml:"prefix"`
}

// MCPConfig configures the MCP tool server subprocess.
type MCPConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Name:      "gpt-4o-mini",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Store: StoreConfig{
			Backend: "memory",
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
		},
		StepBudget: 5,
		LogLevel:   "info",
	}
}

// Load reads the YAML config at path, layered over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for structural problems.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown store backend %q (want memory or redis)", c.Store.Backend)
	}
	if c.StepBudget < 1 {
		return fmt.Errorf("step_budget must be at least 1, got %d", c.StepBudget)
	}
	return nil
}
