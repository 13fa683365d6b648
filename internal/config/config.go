package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all murmur configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Data directory for state files, logs, and the metrics archive
	DataDir string `yaml:"data_dir"`

	// Scheduler loop cadence and quiet hours
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Triage identity and relationship settings
	Triage TriageConfig `yaml:"triage"`

	// Conversation lifecycle thresholds
	Conversation ConversationConfig `yaml:"conversation"`

	// Outbound dedup and pacing
	Outbound OutboundConfig `yaml:"outbound"`

	// LLM collaborator
	LLM LLMConfig `yaml:"llm"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	JSONFormat bool            `yaml:"json_format"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "murmur",
		Version: "0.4.0",

		DataDir: ".murmur",

		Scheduler:    DefaultSchedulerConfig(),
		Triage:       DefaultTriageConfig(),
		Conversation: DefaultConversationConfig(),
		Outbound:     DefaultOutboundConfig(),
		LLM:          DefaultLLMConfig(),

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load loads configuration from a YAML file.
// Returns defaults if the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides overrides config values from environment variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MURMUR_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("MURMUR_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.LLM.APIKey == "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("MURMUR_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("MURMUR_PRINCIPAL"); v != "" {
		c.Triage.PrincipalID = v
	}
	if v := os.Getenv("MURMUR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("MURMUR_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if err := c.Scheduler.validate(); err != nil {
		return fmt.Errorf("scheduler: %w", err)
	}
	if err := c.Conversation.validate(); err != nil {
		return fmt.Errorf("conversation: %w", err)
	}
	if err := c.Outbound.validate(); err != nil {
		return fmt.Errorf("outbound: %w", err)
	}
	return nil
}

// parseDuration parses a duration string with a fallback.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
