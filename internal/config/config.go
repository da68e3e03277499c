// Package config handles configuration loading for forager.
// It supports XDG config paths, a project-local override, and
// FORAGER_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for forager.
type Config struct {
	Round      RoundConfig      `mapstructure:"round"`
	Fusion     FusionConfig     `mapstructure:"fusion"`
	Confidence ConfidenceConfig `mapstructure:"confidence"`
	Agents     AgentsConfig     `mapstructure:"agents"`
	Anthropic  AnthropicConfig  `mapstructure:"anthropic"`
	State      StateConfig      `mapstructure:"state"`
}

// RoundConfig holds scheduling knobs for one research round.
type RoundConfig struct {
	// MaxParallelTasks bounds worker concurrency.
	MaxParallelTasks int `mapstructure:"max_parallel_tasks"`
	// RetryBudget is the maximum retries per task.
	RetryBudget int `mapstructure:"retry_budget"`
	// PerTaskTimeout is the deadline for a single agent call.
	PerTaskTimeout time.Duration `mapstructure:"per_task_timeout"`
	// Deadline is the overall round deadline.
	Deadline time.Duration `mapstructure:"deadline"`
}

// FusionConfig holds fusion knobs.
type FusionConfig struct {
	// K is the RRF smoothing constant.
	K int `mapstructure:"rrf_k"`
}

// ConfidenceConfig holds confidence scoring knobs.
type ConfidenceConfig struct {
	// TopN is the number of fused entries considered when scoring.
	TopN int `mapstructure:"top_n"`
}

// AgentsConfig holds worker agent settings.
type AgentsConfig struct {
	// Manifest is the optional path to the capability toggle file.
	Manifest string `mapstructure:"manifest"`
	// MaxResults caps the findings requested from each agent.
	MaxResults int `mapstructure:"max_results"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	// APIKey is the API key; the ANTHROPIC_API_KEY env var also works.
	APIKey string `mapstructure:"api_key"`
	// Model overrides the default model for the deep-research agent.
	Model string `mapstructure:"model"`
}

// StateConfig holds persistence settings.
type StateConfig struct {
	// DBPath overrides the default database location.
	DBPath string `mapstructure:"db_path"`
}

// ConfigDir returns the XDG config directory for forager.
func ConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "forager")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("round.max_parallel_tasks", 4)
	v.SetDefault("round.retry_budget", 1)
	v.SetDefault("round.per_task_timeout", 30*time.Second)
	v.SetDefault("round.deadline", 2*time.Minute)
	v.SetDefault("fusion.rrf_k", 60)
	v.SetDefault("confidence.top_n", 10)
	v.SetDefault("agents.manifest", "")
	v.SetDefault("agents.max_results", 10)
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "")
	v.SetDefault("state.db_path", "")
}

// Load reads configuration from the XDG config dir, an optional
// ./forager.yaml project override, and FORAGER_* environment variables.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(ConfigDir())
	v.AddConfigPath(".")

	v.SetEnvPrefix("FORAGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; defaults and env apply.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if cfg.Anthropic.APIKey == "" {
		cfg.Anthropic.APIKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	return &cfg, nil
}

// Validate rejects configurations that would fail a round before dispatch.
func (c *Config) Validate() error {
	if c.Round.MaxParallelTasks <= 0 {
		return fmt.Errorf("round.max_parallel_tasks must be positive, got %d", c.Round.MaxParallelTasks)
	}
	if c.Round.RetryBudget < 0 {
		return fmt.Errorf("round.retry_budget must not be negative, got %d", c.Round.RetryBudget)
	}
	if c.Round.PerTaskTimeout <= 0 {
		return fmt.Errorf("round.per_task_timeout must be positive, got %s", c.Round.PerTaskTimeout)
	}
	if c.Round.Deadline <= 0 {
		return fmt.Errorf("round.deadline must be positive, got %s", c.Round.Deadline)
	}
	if c.Fusion.K <= 0 {
		return fmt.Errorf("fusion.rrf_k must be positive, got %d", c.Fusion.K)
	}
	if c.Confidence.TopN <= 0 {
		return fmt.Errorf("confidence.top_n must be positive, got %d", c.Confidence.TopN)
	}
	return nil
}
