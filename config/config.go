// ABOUTME: YAML configuration for the service: listen address, storage, LLM, pipeline tuning.
// ABOUTME: Environment variables override file values so containers need no config file.

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LLMConfig points the agents at a chat-completion endpoint. The API key is
// named by environment variable, never stored in the file.
type LLMConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
}

// PipelineConfig tunes the orchestration core.
type PipelineConfig struct {
	MaxRetries  int      `yaml:"max_retries"`
	MaxSteps    int      `yaml:"max_steps"`
	SoftChecks  []string `yaml:"soft_checks"`
	ToolTimeout string   `yaml:"tool_timeout"`
}

// Config is the full service configuration.
type Config struct {
	Addr     string         `yaml:"addr"`
	DataDir  string         `yaml:"data_dir"`
	DBPath   string         `yaml:"db_path"`
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Addr:    ":8080",
		DataDir: "data",
		DBPath:  "data/runs.db",
		LLM: LLMConfig{
			APIKeyEnv: "OPENAI_API_KEY",
			Model:     "gpt-4o-mini",
		},
		Pipeline: PipelineConfig{
			ToolTimeout: "60s",
		},
	}
}

// Load reads a YAML config file, applies environment overrides, and
// validates. An empty path loads defaults plus overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config YAML: %w", err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv lets deployment environments override the file.
func (c *Config) applyEnv() {
	if v := os.Getenv("INFRAGENIE_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv("INFRAGENIE_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("INFRAGENIE_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := os.Getenv("INFRAGENIE_LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("INFRAGENIE_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("config: addr must not be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("config: db_path must not be empty")
	}
	if c.LLM.APIKeyEnv == "" {
		return fmt.Errorf("config: llm.api_key_env must not be empty")
	}
	if c.Pipeline.MaxRetries < 0 {
		return fmt.Errorf("config: pipeline.max_retries must not be negative")
	}
	if c.Pipeline.MaxSteps < 0 {
		return fmt.Errorf("config: pipeline.max_steps must not be negative")
	}
	if _, err := c.ToolTimeout(); err != nil {
		return err
	}
	return nil
}

// APIKey resolves the configured key from the environment. Empty when
// unset; the agents then run against whatever the endpoint allows.
func (c *Config) APIKey() string {
	return os.Getenv(c.LLM.APIKeyEnv)
}

// ToolTimeout parses the per-tool timeout.
func (c *Config) ToolTimeout() (time.Duration, error) {
	if c.Pipeline.ToolTimeout == "" {
		return 60 * time.Second, nil
	}
	d, err := time.ParseDuration(c.Pipeline.ToolTimeout)
	if err != nil {
		return 0, fmt.Errorf("config: bad pipeline.tool_timeout %q: %w", c.Pipeline.ToolTimeout, err)
	}
	return d, nil
}
