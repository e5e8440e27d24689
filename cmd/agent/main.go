package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/mrnugget/agent-openai-gpt-oss-20b/agent"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/agent/acp"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/agent/terminal"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/config"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/errors"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/llm"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/tools"
	"github.com/mrnugget/agent-openai-gpt-oss-20b/tools/mcp"
)

type flags struct {
	mode          string
	toolVerbosity string
	logLevel      string
	mcp           bool
	acp           bool
}

func main() {
	var f flags
	flag.StringVar(&f.mode, "m", "", "Execution mode: 'auto' or 'prompt'")
	flag.StringVar(&f.toolVerbosity, "tool-verbosity", "", "Tool verbosity level: 'none', 'info', or 'all'")
	flag.StringVar(&f.logLevel, "log-level", "", "Log level: 'trace', 'debug', 'info', 'warn' or 'error'")
	flag.BoolVar(&f.mcp, "mcp", false, "Serve the file tools over MCP on stdio instead of chatting")
	flag.BoolVar(&f.acp, "acp", false, "Enable Agent Client Protocol support")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %+v\n", err)
		os.Exit(1)
	}
	if err := applyFlags(cfg, f); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid flags: %v\n", err)
		os.Exit(1)
	}

	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := config.NewLogger(os.Stderr, level, cfg.LogFormat)
	slog.SetDefault(logger)

	dispatcher, err := tools.NewDispatcher("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing tools: %+v\n", err)
		os.Exit(1)
	}

	if f.mcp {
		server, err := mcp.NewServer(dispatcher, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error initializing MCP server: %+v\n", err)
			os.Exit(1)
		}
		if err := server.Run(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "MCP mode failed: %+v\n", err)
			os.Exit(1)
		}
		return
	}

	client, err := newClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing completion client: %+v\n", err)
		os.Exit(1)
	}

	if f.acp {
		// stdout carries JSON-RPC only; logs already go to stderr.
		if err := acp.Run(context.Background(), sessionAgents(cfg, client, logger), os.Stdin, os.Stdout, logger); err != nil {
			fmt.Fprintf(os.Stderr, "ACP mode failed: %+v\n", err)
			os.Exit(1)
		}
		return
	}

	a, err := agent.New(cfg, client, dispatcher, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing agent: %+v\n", err)
		os.Exit(1)
	}
	logger.Info("agent ready", "model", cfg.Model, "base_url", cfg.BaseURL, "mode", cfg.Mode)

	// Get initial prompt from remaining arguments
	initialPrompt := strings.Join(flag.Args(), " ")

	term := terminal.New(a)
	if err := term.Run(context.Background(), initialPrompt); err != nil {
		fmt.Fprintf(os.Stderr, "Agent stopped with an error: %+v\n", err)
		os.Exit(1)
	}
}

// applyFlags overrides cfg with the flags that were set and re-validates.
func applyFlags(cfg *config.Config, f flags) error {
	if f.mode != "" {
		cfg.Mode = f.mode
	}
	if f.toolVerbosity != "" {
		cfg.ToolVerbosity = f.toolVerbosity
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	return cfg.Validate()
}

func newClient(cfg *config.Config) (llm.CompletionClient, error) {
	switch cfg.LLMClient {
	case "openai":
		return llm.NewOpenAICompletionClient(cfg.BaseURL, cfg.APIKey)
	case "mock":
		return &llm.MockCompletionClient{}, nil
	default:
		return nil, errors.New("unknown llm client %q", cfg.LLMClient)
	}
}

// sessionAgents builds one agent per ACP session, with file tools rooted at
// the session's working directory.
func sessionAgents(cfg *config.Config, client llm.CompletionClient, logger *slog.Logger) acp.NewAgentFunc {
	return func(cwd string) (*agent.Agent, error) {
		d, err := tools.NewDispatcher(cwd)
		if err != nil {
			return nil, err
		}
		return agent.New(cfg, client, d, logger)
	}
}
