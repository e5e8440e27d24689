package config

import (
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
)

// Dir is the name of the configuration directory, looked up in the user's
// home directory and in the working directory.
const Dir = ".agent"

const DefaultInstructions = "You are a coding assistant working in the user's current directory. " +
	"Use the tools to inspect and change files. Answer concisely."

type Config struct {
	LLMClient       string  `yaml:"llm"`
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url"`
	APIKey          string  `yaml:"api_key"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	ReasoningEffort string  `yaml:"reasoning_effort"`
	KnowledgeCutoff string  `yaml:"knowledge_cutoff"`
	Instructions    string  `yaml:"instructions"`
	// MaxToolSteps caps tool round-trips per turn. 0 means unbounded.
	MaxToolSteps int `yaml:"max_tool_steps"`
	// ToolErrors is "fatal" (a failed tool ends the turn) or "report" (the
	// failure is fed back to the model as the tool result).
	ToolErrors    string `yaml:"tool_errors"`
	Mode          string `yaml:"mode"`
	ToolVerbosity string `yaml:"tool_verbosity"`
	LogLevel      string `yaml:"log_level"`
	LogFormat     string `yaml:"log_format"`
}

// Defaults returns the configuration used when no file or environment
// variable says otherwise. It targets a local LM Studio server.
func Defaults() *Config {
	return &Config{
		LLMClient:       "openai",
		Model:           "openai/gpt-oss-20b",
		BaseURL:         "http://localhost:1234/v1/",
		APIKey:          "not-needed",
		MaxTokens:       512,
		Temperature:     0.7,
		ReasoningEffort: "medium",
		KnowledgeCutoff: "2024-06",
		Instructions:    DefaultInstructions,
		MaxToolSteps:    0,
		ToolErrors:      "fatal",
		Mode:            "auto",
		ToolVerbosity:   "info",
		LogLevel:        "warn",
		LogFormat:       "text",
	}
}

// LoadConfig loads configuration from the user's home directory and the current
// working directory, with the latter taking precedence. Environment variables
// override both.
func LoadConfig() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		home = ""
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrapf(err, "could not get working directory")
	}
	return LoadConfigFrom(home, wd)
}

// LoadConfigFrom is LoadConfig with explicit home and project directories.
// An empty home skips the user-level file.
func LoadConfigFrom(home, wd string) (*Config, error) {
	cfg := Defaults()

	if home != "" {
		if err := loadIfExists(filepath.Join(home, Dir, "config.yaml"), cfg); err != nil {
			return nil, errors.Wrapf(err, "error loading user config")
		}
	}
	if err := loadIfExists(filepath.Join(wd, Dir, "config.yaml"), cfg); err != nil {
		return nil, errors.Wrapf(err, "error loading project config")
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadIfExists(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	return loadFromFile(path, cfg)
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	// Fields present in the YAML overwrite what is already set, so the
	// project file replaces user-level values key by key.
	return yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), cfg)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("AGENT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("AGENT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// Validate rejects unknown enum values and impossible numbers.
func (c *Config) Validate() error {
	checks := []struct {
		key, value string
		allowed    []string
	}{
		{"llm", c.LLMClient, []string{"openai", "mock"}},
		{"reasoning_effort", c.ReasoningEffort, []string{"low", "medium", "high"}},
		{"tool_errors", c.ToolErrors, []string{"fatal", "report"}},
		{"mode", c.Mode, []string{"auto", "prompt"}},
		{"tool_verbosity", c.ToolVerbosity, []string{"none", "info", "all"}},
		{"log_format", c.LogFormat, []string{"text", "json"}},
	}
	for _, ch := range checks {
		if !contains(ch.allowed, ch.value) {
			return errors.New("invalid %s %q (valid: %s)", ch.key, ch.value, strings.Join(ch.allowed, ", "))
		}
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return errors.Wrapf(err, "invalid log_level")
	}
	if c.Model == "" {
		return errors.New("model must not be empty")
	}
	if c.MaxTokens <= 0 {
		return errors.New("max_tokens must be positive, got %d", c.MaxTokens)
	}
	if c.MaxToolSteps < 0 {
		return errors.New("max_tool_steps must not be negative, got %d", c.MaxToolSteps)
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
