package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, Dir), 0o755); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, Dir, "config.yaml"), []byte(content), 0o644); err != nil {
		t.Fatalf("prepare: %v", err)
	}
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"OPENAI_BASE_URL", "OPENAI_API_KEY", "AGENT_MODEL", "AGENT_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfigFrom(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	want := Defaults()
	if *cfg != *want {
		t.Fatalf("got %+v, want defaults %+v", cfg, want)
	}
	if cfg.BaseURL != "http://localhost:1234/v1/" || cfg.APIKey != "not-needed" || cfg.MaxTokens != 512 {
		t.Fatalf("unexpected transport defaults %+v", cfg)
	}
}

func TestLoadConfigProjectOverridesUser(t *testing.T) {
	clearEnv(t)
	home, wd := t.TempDir(), t.TempDir()
	writeConfig(t, home, "model: user-model\nmax_tokens: 1024\nmode: prompt\n")
	writeConfig(t, wd, "model: project-model\n")

	cfg, err := LoadConfigFrom(home, wd)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.Model != "project-model" {
		t.Errorf("model = %q, want project-model", cfg.Model)
	}
	if cfg.MaxTokens != 1024 || cfg.Mode != "prompt" {
		t.Errorf("user values lost: %+v", cfg)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("temperature = %v, want default", cfg.Temperature)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	clearEnv(t)
	wd := t.TempDir()
	writeConfig(t, wd, "base_url: http://from-file/v1/\n")
	t.Setenv("OPENAI_BASE_URL", "http://from-env/v1/")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AGENT_MODEL", "openai/gpt-oss-120b")
	t.Setenv("AGENT_LOG_LEVEL", "debug")

	cfg, err := LoadConfigFrom("", wd)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.BaseURL != "http://from-env/v1/" || cfg.APIKey != "sk-test" || cfg.Model != "openai/gpt-oss-120b" || cfg.LogLevel != "debug" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoadConfigExpandsEnvInFile(t *testing.T) {
	clearEnv(t)
	wd := t.TempDir()
	t.Setenv("AGENT_TEST_KEY", "sk-expanded")
	writeConfig(t, wd, "api_key: ${AGENT_TEST_KEY}\n")
	cfg, err := LoadConfigFrom("", wd)
	if err != nil {
		t.Fatalf("LoadConfigFrom: %v", err)
	}
	if cfg.APIKey != "sk-expanded" {
		t.Fatalf("api_key = %q", cfg.APIKey)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	tests := []string{
		"tool_errors: ignore\n",
		"mode: yolo\n",
		"tool_verbosity: loud\n",
		"reasoning_effort: extreme\n",
		"log_level: chatty\n",
		"max_tokens: 0\n",
		"max_tool_steps: -1\n",
		"llm: anthropic\n",
		"model: [unclosed\n",
	}
	for _, content := range tests {
		t.Run(strings.TrimSpace(content), func(t *testing.T) {
			clearEnv(t)
			wd := t.TempDir()
			writeConfig(t, wd, content)
			if _, err := LoadConfigFrom("", wd); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"", slog.LevelInfo},
		{"TRACE", LevelTrace},
		{" debug ", slog.LevelDebug},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, %v; want %v", tt.in, got, err, tt.want)
		}
	}
	if _, err := ParseLogLevel("loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewLoggerRendersTrace(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, LevelTrace, "text")
	logger.Log(context.Background(), LevelTrace, "raw completion")
	if !strings.Contains(buf.String(), "level=TRACE") {
		t.Fatalf("output = %q", buf.String())
	}
}
