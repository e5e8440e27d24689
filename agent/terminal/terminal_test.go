package terminal

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/agent"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/config"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/llm"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/tools"
)

const listCall = `<|channel|>commentary to=functions.list_files <|constrain|>json<|message|>{}`

func newTestAgent(t *testing.T, cfg *config.Config, client llm.CompletionClient) (*agent.Agent, string) {
	t.Helper()
	dir := t.TempDir()
	d, err := tools.NewDispatcher(dir)
	if err != nil {
		t.Fatalf("NewDispatcher: %v", err)
	}
	if cfg == nil {
		cfg = config.Defaults()
	}
	a, err := agent.New(cfg, client, d, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}
	return a, dir
}

func run(t *testing.T, a *agent.Agent, input, initial string) (string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	term := NewWithIO(a, strings.NewReader(input), &out, &errOut)
	if err := term.Run(context.Background(), initial); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String(), errOut.String()
}

func TestTerminalNew(t *testing.T) {
	a, _ := newTestAgent(t, nil, &llm.MockCompletionClient{})
	term := New(a)
	if term == nil {
		t.Fatal("Expected terminal instance, got nil")
	}
	if term.agent != a {
		t.Fatal("Terminal agent doesn't match the provided agent")
	}
}

func TestTerminalMockConversation(t *testing.T) {
	a, _ := newTestAgent(t, nil, &llm.MockCompletionClient{})
	out, errOut := run(t, a, "\n\nhello there\nexit\nnever read\n", "")
	if !strings.Contains(out, "Assistant: I am a mock model. You said: 'hello there'.") {
		t.Fatalf("output = %q", out)
	}
	if strings.Contains(out, "never read") {
		t.Fatal("input after exit was processed")
	}
	if errOut != "" {
		t.Fatalf("stderr = %q", errOut)
	}
	// Empty lines re-prompt: three blank/real prompts plus the one answered by exit.
	if n := strings.Count(out, "You: "); n != 4 {
		t.Fatalf("saw %d prompts in %q", n, out)
	}
}

func TestTerminalExitCommands(t *testing.T) {
	for _, cmd := range []string{"exit", "/exit", "/quit"} {
		t.Run(cmd, func(t *testing.T) {
			client := llm.NewScriptedClient()
			a, _ := newTestAgent(t, nil, client)
			run(t, a, cmd+"\nhello\n", "")
			if n := len(client.Requests()); n != 0 {
				t.Fatalf("made %d requests after %s", n, cmd)
			}
		})
	}
}

func TestTerminalInitialPrompt(t *testing.T) {
	client := llm.NewScriptedClient("<|channel|>final<|message|>from argv")
	a, _ := newTestAgent(t, nil, client)
	out, _ := run(t, a, "", "list things")
	if !strings.Contains(out, "You: list things\nAssistant: from argv\n") {
		t.Fatalf("output = %q", out)
	}
}

func TestTerminalVerbosity(t *testing.T) {
	tests := []struct {
		verbosity  string
		wantCall   bool
		wantResult bool
	}{
		{"none", false, false},
		{"info", true, false},
		{"all", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.verbosity, func(t *testing.T) {
			cfg := config.Defaults()
			cfg.ToolVerbosity = tt.verbosity
			client := llm.NewScriptedClient(listCall, "<|channel|>final<|message|>empty")
			a, _ := newTestAgent(t, cfg, client)
			out, _ := run(t, a, "list\n", "")
			if got := strings.Contains(out, "Tool call: list_files {}"); got != tt.wantCall {
				t.Errorf("tool call shown = %v in %q", got, out)
			}
			if got := strings.Contains(out, "Tool result (list_files): []"); got != tt.wantResult {
				t.Errorf("tool result shown = %v in %q", got, out)
			}
			if !strings.Contains(out, "Assistant: empty") {
				t.Errorf("missing answer in %q", out)
			}
		})
	}
}

func TestTerminalPromptMode(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "prompt"
	edit := `<|channel|>commentary to=functions.edit_file <|constrain|>json<|message|>{"path":"a.txt","old_str":"","new_str":"x"}`

	client := llm.NewScriptedClient(edit, "<|channel|>final<|message|>skipped", edit, "<|channel|>final<|message|>written")
	a, dir := newTestAgent(t, cfg, client)
	out, _ := run(t, a, "make a\nn\nmake a\ny\n", "")

	if n := strings.Count(out, "Do you want to allow this? (y/n): "); n != 2 {
		t.Fatalf("asked %d times in %q", n, out)
	}
	if b, err := os.ReadFile(filepath.Join(dir, "a.txt")); err != nil || string(b) != "x" {
		t.Fatalf("a.txt = %q, %v", b, err)
	}
	if !strings.Contains(out, "Assistant: skipped") || !strings.Contains(out, "Assistant: written") {
		t.Fatalf("output = %q", out)
	}
}

func TestTerminalReportsErrorsAndContinues(t *testing.T) {
	unknown := `<|channel|>commentary to=functions.delete_everything <|constrain|>json<|message|>{}`
	client := llm.NewScriptedClient(unknown, "<|channel|>final<|message|>still here")
	a, _ := newTestAgent(t, nil, client)
	out, errOut := run(t, a, "break it\nhello\n", "")
	if !strings.Contains(errOut, "Error: ") || !strings.Contains(errOut, "delete_everything") {
		t.Fatalf("stderr = %q", errOut)
	}
	if !strings.Contains(out, "Assistant: still here") {
		t.Fatalf("second turn did not run: %q", out)
	}
}
